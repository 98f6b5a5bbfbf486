//go:build linux

package recorder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// childSession is the command running on the secondary terminal. After
// Start the parent and child share nothing but the pid; the runtime's
// fork/exec path performs the setsid, controlling-terminal acquisition and
// descriptor duplication in the child using only async-signal-safe
// operations, and an exec failure surfaces as an ordinary child exit with
// the error on the (redirected) stderr.
type childSession struct {
	cmd    *exec.Cmd
	waitCh chan ExitDisposition

	// reaped caches the disposition once the wait goroutine reports it.
	reaped *ExitDisposition
}

// startChild launches argv attached to secondary as its controlling
// terminal, with all three standard descriptors on it.
func startChild(argv []string, secondary *os.File) (*childSession, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = secondary
	cmd.Stdout = secondary
	cmd.Stderr = secondary
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in the child is the secondary pty
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	c := &childSession{
		cmd:    cmd,
		waitCh: make(chan ExitDisposition, 1),
	}
	go func() {
		c.waitCh <- classifyExit(cmd.Wait())
	}()
	return c, nil
}

// sessionArgv resolves the argv for a session: the configured command, or
// the user's interactive shell.
func sessionArgv(cfg SessionConfig) []string {
	if len(cfg.Command) > 0 {
		return cfg.Command
	}
	shell := cfg.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return []string{shell}
}

// poll reports the child's disposition without blocking, or nil while it is
// still running.
func (c *childSession) poll() *ExitDisposition {
	if c.reaped != nil {
		return c.reaped
	}
	select {
	case d := <-c.waitCh:
		c.reaped = &d
		return c.reaped
	default:
		return nil
	}
}

// wait blocks until the child has been reaped.
func (c *childSession) wait() ExitDisposition {
	if c.reaped == nil {
		d := <-c.waitCh
		c.reaped = &d
	}
	return *c.reaped
}

// terminate sends SIGTERM to the child. Safe to call after exit.
func (c *childSession) terminate() {
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(syscall.SIGTERM)
	}
}

// classifyExit turns cmd.Wait's error into an ExitDisposition.
func classifyExit(err error) ExitDisposition {
	if err == nil {
		return ExitDisposition{Code: 0}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status, ok := exitErr.Sys().(syscall.WaitStatus)
		if ok && status.Signaled() {
			return ExitDisposition{Signal: status.Signal(), Signaled: true}
		}
		return ExitDisposition{Code: exitErr.ExitCode()}
	}
	// Wait failed for a non-exit reason; report it as a generic failure.
	fmt.Fprintf(os.Stderr, "ttycap: wait for child: %v\n", err)
	return ExitDisposition{Code: 1}
}
