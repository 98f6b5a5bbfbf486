package playback

import (
	"fmt"
	"io"
	"time"
)

// ReplayOptions tune playback speed.
type ReplayOptions struct {
	// Divisor divides every delay; 2 plays back twice as fast. Values
	// <= 0 are treated as 1.
	Divisor float64
	// MaxDelay clamps any single pause when > 0, so long idle stretches
	// in the original session don't stall the replay.
	MaxDelay time.Duration
	// CombinedLog marks data as a combined I/O log rather than a plain
	// transcript: input events then consume their bytes from data instead
	// of only contributing delay.
	CombinedLog bool

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// Replay re-emits a recorded session on out, pausing between chunks per
// the timing events. data is the transcript (or combined log, see
// ReplayOptions.CombinedLog) the timing log was recorded against.
func Replay(data io.Reader, events []Event, out io.Writer, opts ReplayOptions) error {
	if opts.Divisor <= 0 {
		opts.Divisor = 1
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	buf := make([]byte, 0, 8192)
	for _, ev := range events {
		delay := time.Duration(float64(ev.Delay) / opts.Divisor)
		if opts.MaxDelay > 0 && delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
		if delay > 0 {
			sleep(delay)
		}

		if ev.Dir == Input && !opts.CombinedLog {
			// Plain transcripts hold no input bytes; the event only
			// spaces out the surrounding output.
			continue
		}

		if cap(buf) < ev.Bytes {
			buf = make([]byte, 0, ev.Bytes)
		}
		chunk := buf[:ev.Bytes]
		if _, err := io.ReadFull(data, chunk); err != nil {
			return fmt.Errorf("transcript shorter than timing log: %w", err)
		}
		if ev.Dir == Input {
			continue // consumed from the combined log, not replayed
		}
		if _, err := out.Write(chunk); err != nil {
			return fmt.Errorf("write replay output: %w", err)
		}
	}
	return nil
}
