// Package playback consumes the artifacts a recording session produces:
// it parses timing logs, replays a transcript at its original speed, and
// follows a transcript that is still being written.
package playback

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Direction labels a timing event's side of the session.
type Direction int

const (
	Output Direction = iota
	Input
)

// Event is one line of a timing log: the delay since the previous event
// and how many bytes moved.
type Event struct {
	Dir   Direction
	Delay time.Duration
	Bytes int
}

// Parse reads a timing log in either format. Classic lines are
// "<delay> <bytes>" and always describe output; advanced lines carry an
// "I " or "O " direction prefix.
func Parse(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("timing line %d: %w", lineNo, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read timing log: %w", err)
	}
	return events, nil
}

func parseLine(line string) (Event, error) {
	fields := strings.Fields(line)
	var ev Event
	switch len(fields) {
	case 2:
		ev.Dir = Output
	case 3:
		switch fields[0] {
		case "I":
			ev.Dir = Input
		case "O":
			ev.Dir = Output
		default:
			return ev, fmt.Errorf("unknown direction %q", fields[0])
		}
		fields = fields[1:]
	default:
		return ev, fmt.Errorf("malformed line %q", line)
	}

	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || seconds < 0 {
		return ev, fmt.Errorf("bad delay %q", fields[0])
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil || count < 0 {
		return ev, fmt.Errorf("bad byte count %q", fields[1])
	}
	ev.Delay = time.Duration(seconds * float64(time.Second))
	ev.Bytes = count
	return ev, nil
}
