package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Follow copies the transcript at path to out as it grows, like tail -f.
// Existing content is emitted first, then write events drive further
// copies. Returns nil when the file is removed or renamed (the recording
// rotated or finished and was cleaned up) or when ctx is cancelled.
func Follow(ctx context.Context, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch transcript: %w", err)
	}

	// Drain whatever is already on disk before waiting for events.
	if _, err := io.Copy(out, f); err != nil {
		return fmt.Errorf("copy transcript: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				return nil
			}
			if ev.Has(fsnotify.Write) {
				// The file offset persists across reads, so each copy
				// picks up only the newly appended bytes.
				if _, err := io.Copy(out, f); err != nil {
					return fmt.Errorf("copy transcript: %w", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil && !errors.Is(err, fsnotify.ErrEventOverflow) {
				return fmt.Errorf("watch transcript: %w", err)
			}
		}
	}
}
