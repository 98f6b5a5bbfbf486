package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists recording history to disk.
type Store interface {
	Append(e Entry) error
	List() ([]Entry, error) // newest first
}

// diskStore is the concrete Store that writes to the XDG data directory.
type diskStore struct {
	path string // full path to history.json
}

// NewStore returns a Store backed by path, or by the XDG data directory
// when path is empty.
// Default path: $XDG_DATA_HOME/ttycap/history.json or
// ~/.local/share/ttycap/history.json
func NewStore(path string) (Store, error) {
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data directory: %w", err)
		}
		path = filepath.Join(dir, "history.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{path: path}, nil
}

// dataDir returns the ttycap-specific XDG data directory.
func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "ttycap"), nil
}

// Append loads the existing entries, adds e, and saves the file
// atomically via a temp file + os.Rename.
func (d *diskStore) Append(e Entry) error {
	entries, err := d.load()
	if err != nil {
		return err
	}
	entries = append(entries, e)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "history-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist history: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}

	if err = os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// List returns all entries, most recent first.
func (d *diskStore) List() ([]Entry, error) {
	entries, err := d.load()
	if err != nil {
		return nil, err
	}
	// Entries are appended in order; reverse for newest-first display.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (d *diskStore) load() ([]Entry, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return entries, nil
}
