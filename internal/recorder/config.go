// Package recorder implements the terminal-session recorder: it runs a
// command (or the user's shell) on a pseudo-terminal, relays bytes between
// the real terminal and the session, and fans every byte out to the
// configured transcript and log files.
package recorder

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/fakeyudi/ttycap/internal/ptyx"
)

// ErrUnsupported is returned by Record on platforms without pseudo-terminal
// support.
var ErrUnsupported = errors.New("session recording is not supported on this platform")

// TimingFormat selects the timing-log line format.
type TimingFormat int

const (
	// TimingClassic emits "<elapsed> <bytes>" lines for output events only.
	TimingClassic TimingFormat = iota
	// TimingAdvanced emits "<I|O> <elapsed> <bytes>" lines for both
	// directions.
	TimingAdvanced
)

// ParseTimingFormat maps a --logging-format flag value to a TimingFormat.
func ParseTimingFormat(s string) (TimingFormat, error) {
	switch s {
	case "classic", "":
		return TimingClassic, nil
	case "advanced":
		return TimingAdvanced, nil
	default:
		return TimingClassic, fmt.Errorf("invalid logging format %q (want classic or advanced)", s)
	}
}

// Category labels the direction of an I/O event.
type Category int

const (
	// CategoryInput is bytes read from the real stdin and fed to the
	// session.
	CategoryInput Category = iota
	// CategoryOutput is bytes produced by the session and mirrored to the
	// real stdout.
	CategoryOutput
)

// SessionConfig describes one recording session. It is constructed by the
// caller (all file handles already open) and consumed by Record; it is not
// mutated afterwards.
type SessionConfig struct {
	// Transcript receives every output byte. Required, and opened by the
	// caller before any pseudo-terminal is allocated so an unwritable
	// destination never leaks a pty or child process.
	Transcript *os.File

	// Optional per-direction logs. LogCombined interleaves both directions
	// in the order observed.
	LogInput    *os.File
	LogOutput   *os.File
	LogCombined *os.File
	LogTiming   *os.File

	TimingFormat TimingFormat

	Echo ptyx.EchoMode

	// Command is the argv to run on the secondary terminal. Empty means
	// the user's interactive shell ($SHELL, falling back to /bin/sh, or
	// Shell when set).
	Command []string
	Shell   string

	// OutputLimit ends the session once this many output bytes have been
	// written to stdout. Zero means no limit.
	OutputLimit int64

	FlushEveryWrite     bool
	Quiet               bool
	PropagateExitStatus bool

	// Stdin/Stdout default to the process's own when nil.
	Stdin  *os.File
	Stdout *os.File
}

// ExitDisposition is the reaped state of the child: either a normal exit
// with a code, or death by signal.
type ExitDisposition struct {
	Code     int
	Signal   syscall.Signal
	Signaled bool
}

// ExitCode maps the disposition to a shell-style exit code: the child's own
// code, or 128 plus the signal number.
func (d ExitDisposition) ExitCode() int {
	if d.Signaled {
		return 128 + int(d.Signal)
	}
	return d.Code
}

// Result summarizes a finished session.
type Result struct {
	// ExitCode is the recorder's own exit code: the child's (per
	// ExitDisposition.ExitCode) when PropagateExitStatus is set, zero
	// otherwise.
	ExitCode    int
	Disposition ExitDisposition
	OutputBytes int64
	StartedAt   time.Time
	EndedAt     time.Time
	// LimitReached is true when the session ended because OutputLimit was
	// hit rather than because the child exited on its own.
	LimitReached bool
}
