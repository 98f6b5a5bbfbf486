// Package history keeps a registry of past recordings so they can be
// listed and replayed later.
package history

import "time"

// Entry describes one completed recording.
type Entry struct {
	ID         string    `json:"id"`
	StartTime  time.Time `json:"start_time"`
	StopTime   time.Time `json:"stop_time"`
	Command    string    `json:"command,omitempty"` // empty for interactive shell sessions
	Transcript string    `json:"transcript"`
	TimingLog  string    `json:"timing_log,omitempty"`
	ExitCode   int       `json:"exit_code"`
	// OutputBytes is the session's total output volume, handy when
	// deciding whether a recording is worth replaying.
	OutputBytes int64 `json:"output_bytes"`
}
