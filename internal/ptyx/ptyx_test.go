//go:build linux

package ptyx

import (
	"testing"

	"golang.org/x/sys/unix"
)

func openPair(t *testing.T) *Pair {
	t.Helper()
	pair, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(pair.Close)
	return pair
}

func echoBit(t *testing.T, pair *Pair) bool {
	t.Helper()
	attrs, err := unix.IoctlGetTermios(int(pair.Secondary.Fd()), unix.TCGETS)
	if err != nil {
		t.Fatalf("read secondary termios: %v", err)
	}
	return attrs.Lflag&unix.ECHO != 0
}

func TestNegotiateEchoForcedModes(t *testing.T) {
	pair := openPair(t)

	if err := pair.NegotiateEcho(EchoNever, false); err != nil {
		t.Fatalf("NegotiateEcho(never): %v", err)
	}
	if echoBit(t, pair) {
		t.Error("echo bit still set after EchoNever")
	}

	if err := pair.NegotiateEcho(EchoAlways, true); err != nil {
		t.Fatalf("NegotiateEcho(always): %v", err)
	}
	if !echoBit(t, pair) {
		t.Error("echo bit clear after EchoAlways")
	}
}

func TestNegotiateEchoAutoFollowsStdinKind(t *testing.T) {
	pair := openPair(t)

	// Terminal stdin: the outer terminal echoes already, so the session
	// side must not.
	if err := pair.NegotiateEcho(EchoAuto, true); err != nil {
		t.Fatalf("NegotiateEcho(auto, tty): %v", err)
	}
	if echoBit(t, pair) {
		t.Error("echo on with a terminal stdin; double echo")
	}

	// Piped stdin: echo on so fed bytes still appear in the transcript.
	if err := pair.NegotiateEcho(EchoAuto, false); err != nil {
		t.Fatalf("NegotiateEcho(auto, pipe): %v", err)
	}
	if !echoBit(t, pair) {
		t.Error("echo off with a piped stdin")
	}
}

func TestEOFCharDefaultsToControlD(t *testing.T) {
	pair := openPair(t)
	if got := pair.EOFChar(); got != 0x04 {
		t.Errorf("EOF char = %#x, want 0x04", got)
	}
}

func TestParseEchoMode(t *testing.T) {
	cases := []struct {
		in      string
		want    EchoMode
		wantErr bool
	}{
		{"always", EchoAlways, false},
		{"never", EchoNever, false},
		{"auto", EchoAuto, false},
		{"", EchoAuto, false},
		{"sometimes", EchoAuto, true},
	}
	for _, c := range cases {
		got, err := ParseEchoMode(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseEchoMode(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
			continue
		}
		if !c.wantErr && got != c.want {
			t.Errorf("ParseEchoMode(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	pair, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	pair.Close()
	pair.Close() // must not panic or double-close
}
