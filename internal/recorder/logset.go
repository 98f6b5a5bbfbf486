package recorder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"
)

// sink is one buffered log destination.
type sink struct {
	name string
	file io.Closer // nil when the underlying writer is not ours to close
	w    *bufio.Writer
}

func newSink(name string, f *os.File) *sink {
	if f == nil {
		return nil
	}
	return &sink{name: name, file: f, w: bufio.NewWriter(f)}
}

// LogSet fans session bytes out to the configured destinations. Input bytes
// go to the input and combined logs; output bytes go to the transcript,
// output and combined logs. A write error on one sink is reported to stderr
// and does not fail the caller: logging must not crash a running session.
type LogSet struct {
	transcript *sink
	input      *sink
	output     *sink
	combined   *sink
	timing     *sink

	format     TimingFormat
	flushEvery bool

	// prev is the timestamp of the previous timing event; elapsed values
	// in the timing log are deltas between consecutive logged events.
	prev   time.Time
	closed bool

	// errw receives sink-failure diagnostics. os.Stderr in production.
	errw io.Writer
}

// NewLogSet builds a LogSet from the open handles in cfg. The session start
// time anchors the first timing delta.
func NewLogSet(cfg SessionConfig, start time.Time) *LogSet {
	return &LogSet{
		transcript: newSink("transcript", cfg.Transcript),
		input:      newSink("input", cfg.LogInput),
		output:     newSink("output", cfg.LogOutput),
		combined:   newSink("combined", cfg.LogCombined),
		timing:     newSink("timing", cfg.LogTiming),
		format:     cfg.TimingFormat,
		flushEvery: cfg.FlushEveryWrite,
		prev:       start,
		errw:       os.Stderr,
	}
}

// Write appends b to every sink subscribed to cat.
func (l *LogSet) Write(cat Category, b []byte) {
	switch cat {
	case CategoryInput:
		l.append(l.input, b)
		l.append(l.combined, b)
	case CategoryOutput:
		l.append(l.transcript, b)
		l.append(l.output, b)
		l.append(l.combined, b)
	}
}

// RecordTiming writes one timing line for an I/O event of n bytes observed
// at now. Classic format covers output events only; Advanced covers both
// directions with an I/O prefix.
func (l *LogSet) RecordTiming(cat Category, now time.Time, n int) {
	if l.timing == nil {
		return
	}

	switch l.format {
	case TimingClassic:
		if cat != CategoryOutput {
			return
		}
		elapsed := now.Sub(l.prev)
		l.prev = now
		l.appendString(l.timing, fmt.Sprintf("%.6f %d\n", elapsed.Seconds(), n))
	case TimingAdvanced:
		elapsed := now.Sub(l.prev)
		l.prev = now
		dir := "O"
		if cat == CategoryInput {
			dir = "I"
		}
		l.appendString(l.timing, fmt.Sprintf("%s %.6f %d\n", dir, elapsed.Seconds(), n))
	}
}

// FlushAll flushes every open sink. Called on an explicit flush request
// (SIGUSR1) and unconditionally at session end. Flushing an already-flushed
// set produces no additional bytes.
func (l *LogSet) FlushAll() {
	for _, s := range l.sinks() {
		if err := s.w.Flush(); err != nil {
			fmt.Fprintf(l.errw, "ttycap: flush %s log: %v\n", s.name, err)
		}
	}
}

// Close flushes and closes every sink exactly once.
func (l *LogSet) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.FlushAll()
	for _, s := range l.sinks() {
		if s.file == nil {
			continue
		}
		if err := s.file.Close(); err != nil {
			fmt.Fprintf(l.errw, "ttycap: close %s log: %v\n", s.name, err)
		}
	}
}

func (l *LogSet) sinks() []*sink {
	all := []*sink{l.transcript, l.input, l.output, l.combined, l.timing}
	open := all[:0]
	for _, s := range all {
		if s != nil {
			open = append(open, s)
		}
	}
	return open
}

func (l *LogSet) append(s *sink, b []byte) {
	if s == nil || len(b) == 0 {
		return
	}
	if _, err := s.w.Write(b); err != nil {
		fmt.Fprintf(l.errw, "ttycap: write %s log: %v\n", s.name, err)
		return
	}
	if l.flushEvery {
		if err := s.w.Flush(); err != nil {
			fmt.Fprintf(l.errw, "ttycap: flush %s log: %v\n", s.name, err)
		}
	}
}

func (l *LogSet) appendString(s *sink, line string) {
	l.append(s, []byte(line))
}
