//go:build linux

// Package ptyx manages the pseudo-terminal pair a recorded session runs on:
// allocation, one-shot window-size inheritance from the real terminal, and
// echo negotiation on the secondary side.
package ptyx

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Pair is a linked master/secondary pseudo-terminal pair. The master stays
// with the recorder; the secondary becomes the child's controlling terminal
// and is closed in the parent as soon as the child has started.
type Pair struct {
	Master    *os.File
	Secondary *os.File
}

// Open allocates a new pseudo-terminal pair.
func Open() (*Pair, error) {
	master, secondary, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPtyUnavailable, err)
	}
	return &Pair{Master: master, Secondary: secondary}, nil
}

// InheritSize copies the window size of from (the real controlling
// terminal) onto the pair. Best effort: a non-terminal from is not an
// error, the session simply runs with the kernel's default dimensions.
func (p *Pair) InheritSize(from *os.File) error {
	size, err := pty.GetsizeFull(from)
	if err != nil {
		return nil
	}
	return pty.Setsize(p.Master, size)
}

// NegotiateEcho sets or clears the ECHO bit on the secondary terminal per
// mode. stdinIsTerminal feeds the EchoAuto decision. Failure to read or
// apply the attributes is fatal to session start.
func (p *Pair) NegotiateEcho(mode EchoMode, stdinIsTerminal bool) error {
	fd := int(p.Secondary.Fd())
	attrs, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("read terminal attributes: %w", err)
	}

	echoOn := true
	switch mode {
	case EchoAlways:
		echoOn = true
	case EchoNever:
		echoOn = false
	case EchoAuto:
		echoOn = !stdinIsTerminal
	}

	if echoOn {
		attrs.Lflag |= unix.ECHO
	} else {
		attrs.Lflag &^= unix.ECHO
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, attrs); err != nil {
		return fmt.Errorf("apply terminal attributes: %w", err)
	}
	return nil
}

// EOFChar returns the secondary terminal's end-of-file character (VEOF,
// normally ^D). Used to signal end of input to a canonical-mode child when
// the recorder's own stdin reaches EOF.
func (p *Pair) EOFChar() byte {
	attrs, err := unix.IoctlGetTermios(int(p.Secondary.Fd()), unix.TCGETS)
	if err != nil {
		return 0x04
	}
	return attrs.Cc[unix.VEOF]
}

// CloseSecondary closes the secondary side. Called in the parent right
// after the child has started; the child holds its own descriptors.
func (p *Pair) CloseSecondary() {
	if p.Secondary != nil {
		p.Secondary.Close()
		p.Secondary = nil
	}
}

// Close releases both sides of the pair. Closing the master is the only
// legal way to signal EOF to a still-open secondary.
func (p *Pair) Close() {
	p.CloseSecondary()
	if p.Master != nil {
		p.Master.Close()
		p.Master = nil
	}
}
