package ptyx

import (
	"errors"
	"fmt"
)

// ErrPtyUnavailable is returned by Open when the kernel cannot provide a
// pseudo-terminal pair (pty exhaustion, missing /dev/ptmx, permissions).
var ErrPtyUnavailable = errors.New("pseudo-terminal unavailable")

// EchoMode controls the local-echo bit on the secondary terminal.
type EchoMode int

const (
	// EchoAuto disables echo when the real stdin is itself a terminal
	// (the outer terminal already echoes keystrokes; double echo must be
	// avoided) and enables it otherwise, so piped input still appears in
	// the transcript.
	EchoAuto EchoMode = iota
	EchoAlways
	EchoNever
)

// ParseEchoMode maps a --echo flag value to an EchoMode.
func ParseEchoMode(s string) (EchoMode, error) {
	switch s {
	case "auto", "":
		return EchoAuto, nil
	case "always":
		return EchoAlways, nil
	case "never":
		return EchoNever, nil
	default:
		return EchoAuto, fmt.Errorf("invalid echo mode %q (want always, never or auto)", s)
	}
}
