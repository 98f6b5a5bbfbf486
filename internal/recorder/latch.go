package recorder

import (
	"os"
	"os/signal"
	"sync/atomic"
)

// SignalLatch is the only state shared with signal-delivery context: a
// single lock-free flag. The notify goroutine does nothing but store true;
// the main loop swaps the flag false at the top of each iteration and does
// the actual work (flushing the logs) on its own thread.
type SignalLatch struct {
	flag atomic.Bool
	ch   chan os.Signal
}

// Install registers the latch for the given signals.
func (l *SignalLatch) Install(signals ...os.Signal) {
	l.ch = make(chan os.Signal, 1)
	signal.Notify(l.ch, signals...)
	go func() {
		for range l.ch {
			l.flag.Store(true)
		}
	}()
}

// TakeAndClear atomically reads and clears the flag.
func (l *SignalLatch) TakeAndClear() bool {
	return l.flag.Swap(false)
}

// Uninstall stops signal delivery and releases the notify goroutine.
func (l *SignalLatch) Uninstall() {
	if l.ch == nil {
		return
	}
	signal.Stop(l.ch)
	close(l.ch)
	l.ch = nil
}
