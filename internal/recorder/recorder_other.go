//go:build !linux

package recorder

// Record is Linux-only: session recording needs the pty and termios
// interfaces the other platforms do not expose in a compatible form.
func Record(cfg SessionConfig) (*Result, error) {
	return nil, ErrUnsupported
}
