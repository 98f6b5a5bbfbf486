//go:build linux

package recorder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"golang.org/x/sys/unix"

	"github.com/fakeyudi/ttycap/internal/ptyx"
)

// chunkSize is the unit of transfer through the loop. Reads shorter than a
// chunk are written out as-is; bytes are passed through as soon as they are
// available so the session stays interactive.
const chunkSize = 8192

// pollTimeout bounds each readiness wait so the loop periodically re-checks
// child liveness even when no I/O event ever arrives (a child can close all
// its standard descriptors without exiting, or exit without a final write).
const pollTimeout = 1000 // milliseconds

// Record runs one recording session to completion: it allocates the
// pseudo-terminal, starts the child, relays bytes between the real terminal
// and the session while logging them, and reports the child's exit.
//
// Setup failures (pty allocation, terminal attributes, process start)
// return a nil Result and an error before any byte is relayed. Once the
// loop is running the session always ends with a Result.
func Record(cfg SessionConfig) (*Result, error) {
	stdin := cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if cfg.Transcript == nil {
		return nil, fmt.Errorf("session config has no transcript handle")
	}

	start := time.Now()
	logs := NewLogSet(cfg, start)
	defer logs.Close()

	var latch SignalLatch
	latch.Install(syscall.SIGUSR1)
	defer latch.Uninstall()

	pair, err := ptyx.Open()
	if err != nil {
		return nil, err
	}
	defer pair.Close()

	stdinIsTerm := term.IsTerminal(stdin.Fd())
	if stdinIsTerm {
		if err := pair.InheritSize(stdin); err != nil {
			return nil, fmt.Errorf("propagate window size: %w", err)
		}
	}
	if err := pair.NegotiateEcho(cfg.Echo, stdinIsTerm); err != nil {
		return nil, err
	}
	// Captured before the secondary closes in the parent.
	eofChar := pair.EOFChar()

	if !cfg.Quiet {
		fmt.Fprintf(stdout, "Script started, file is %s\n", cfg.Transcript.Name())
	}

	child, err := startChild(sessionArgv(cfg), pair.Secondary)
	if err != nil {
		return nil, err
	}
	pair.CloseSecondary()

	res := runLoop(cfg, logs, &latch, pair, child, stdin, stdout, eofChar)
	res.StartedAt = start
	res.EndedAt = time.Now()

	logs.FlushAll()
	if !cfg.Quiet {
		fmt.Fprintf(stdout, "Script done, file is %s\n", cfg.Transcript.Name())
	}
	if cfg.PropagateExitStatus {
		res.ExitCode = res.Disposition.ExitCode()
	}
	return res, nil
}

// runLoop is the single-threaded multiplexing loop. It waits, with a
// bounded timeout, for readiness on the real stdin and the pty master, and
// on every iteration: honors a pending flush request, probes child
// liveness, drains stdin into the master, and drains the master into stdout
// and the logs.
func runLoop(cfg SessionConfig, logs *LogSet, latch *SignalLatch, pair *ptyx.Pair, child *childSession, stdin, stdout *os.File, eofChar byte) *Result {
	var (
		res       Result
		buf       = make([]byte, chunkSize)
		stdinOpen = true
	)

	masterFd := int32(pair.Master.Fd())
	stdinFd := int32(stdin.Fd())

	// endSession forcibly ends the child and collects its disposition.
	// Closing the master hangs up the secondary side, so a child blocked
	// writing to a full pty buffer still sees the termination.
	endSession := func() *Result {
		child.terminate()
		pair.Close()
		res.Disposition = child.wait()
		return &res
	}

	for {
		fds := []unix.PollFd{{Fd: masterFd, Events: unix.POLLIN}}
		if stdinOpen {
			fds = append(fds, unix.PollFd{Fd: stdinFd, Events: unix.POLLIN})
		}

		n, err := unix.Poll(fds, pollTimeout)
		if err != nil {
			if isTransient(err) {
				continue
			}
			fmt.Fprintf(os.Stderr, "ttycap: poll: %v\n", err)
			return endSession()
		}

		// A signal-requested flush runs first, on this thread, regardless
		// of which descriptor woke us.
		if latch.TakeAndClear() {
			logs.FlushAll()
		}

		exited := child.poll()

		if n > 0 && stdinOpen && len(fds) > 1 && ready(fds[1].Revents) {
			stdinOpen = relayInput(logs, pair, stdin, buf, eofChar)
		}

		masterReady := n > 0 && ready(fds[0].Revents)
		if masterReady {
			done, fatal := relayOutput(cfg, logs, &res, pair, stdout, buf)
			if fatal {
				return endSession()
			}
			if done {
				// Secondary side fully closed: the child has no open
				// descriptors left. Unconditional transition to exit.
				res.Disposition = child.wait()
				return &res
			}
			if res.LimitReached {
				return endSession()
			}
		}

		// The child is gone and the master had nothing pending this
		// iteration. The readiness snapshot predates the exit probe, so
		// a final chunk written just before death can be sitting in the
		// pty buffer unseen; re-check the master directly and stop only
		// when it really is empty. A closed secondary keeps the master
		// readable (POLLHUP) until a read observes EIO, so the re-check
		// cannot report empty while bytes remain.
		if exited != nil && !masterReady {
			if masterPending(masterFd) {
				continue
			}
			res.Disposition = *exited
			return &res
		}
	}
}

// relayInput moves one chunk from the real stdin to the pty master and the
// input logs. Returns false once stdin should leave the poll set (EOF or a
// persistent read failure). Stdin failures never terminate the session; the
// child's own output may still be worth capturing.
func relayInput(logs *LogSet, pair *ptyx.Pair, stdin *os.File, buf []byte, eofChar byte) bool {
	n, err := stdin.Read(buf)
	if n > 0 {
		if _, werr := pair.Master.Write(buf[:n]); werr != nil {
			fmt.Fprintf(os.Stderr, "ttycap: write to session: %v\n", werr)
			return false
		}
		logs.Write(CategoryInput, buf[:n])
		logs.RecordTiming(CategoryInput, time.Now(), n)
	}
	if err != nil {
		if isTransient(err) {
			return true
		}
		if err != io.EOF {
			fmt.Fprintf(os.Stderr, "ttycap: read stdin: %v\n", err)
			return false
		}
		// Input exhausted: hand the session the terminal's EOF character
		// so a canonical-mode shell sees end of input, then stop polling
		// stdin.
		if _, werr := pair.Master.Write([]byte{eofChar}); werr != nil {
			fmt.Fprintf(os.Stderr, "ttycap: write to session: %v\n", werr)
		}
		return false
	}
	return true
}

// relayOutput moves one chunk from the pty master to the real stdout and
// the output logs, accumulating the running output total against the
// configured limit. done is true when the secondary side has fully closed;
// fatal is true on a non-transient master or stdout failure, which breaks
// the session's primary data path.
func relayOutput(cfg SessionConfig, logs *LogSet, res *Result, pair *ptyx.Pair, stdout *os.File, buf []byte) (done, fatal bool) {
	n, err := pair.Master.Read(buf)
	if n > 0 {
		if _, werr := stdout.Write(buf[:n]); werr != nil {
			fmt.Fprintf(os.Stderr, "ttycap: write stdout: %v\n", werr)
			return false, true
		}
		logs.Write(CategoryOutput, buf[:n])
		logs.RecordTiming(CategoryOutput, time.Now(), n)
		res.OutputBytes += int64(n)
		if cfg.OutputLimit > 0 && res.OutputBytes >= cfg.OutputLimit {
			res.LimitReached = true
		}
	}
	if err != nil {
		if isTransient(err) {
			return false, false
		}
		// A zero-length read or EIO is how a Linux pty master reports the
		// secondary side closing; anything else means the data path broke.
		if err == io.EOF || errors.Is(err, unix.EIO) {
			return true, false
		}
		fmt.Fprintf(os.Stderr, "ttycap: read session output: %v\n", err)
		return false, true
	}
	return false, false
}

// masterPending re-checks the master with a zero timeout. Used once the
// child is known dead, where the main poll's snapshot may be older than
// the child's final write.
func masterPending(fd int32) bool {
	fds := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		return errors.Is(err, unix.EINTR)
	}
	return n > 0 && ready(fds[0].Revents)
}

// ready reports whether revents indicates readable data or a hangup worth
// attempting a read for (a hung-up pty can still hold buffered output).
func ready(revents int16) bool {
	return revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
}

// isTransient reports the would-block and interrupted conditions that are
// silently retried on the next iteration.
func isTransient(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)
}
