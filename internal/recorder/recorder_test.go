//go:build linux

package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/fakeyudi/ttycap/internal/ptyx"
)

// testSession builds a SessionConfig that records the given shell command
// with stdin fed from input and stdout captured to a file. All handles live
// under the test's temp dir; the session's LogSet closes the log handles.
func testSession(t *testing.T, command, input string) (SessionConfig, string) {
	t.Helper()
	dir := t.TempDir()

	transcript, err := os.Create(filepath.Join(dir, "transcript"))
	if err != nil {
		t.Fatalf("create transcript: %v", err)
	}

	stdinPath := filepath.Join(dir, "stdin")
	if err := os.WriteFile(stdinPath, []byte(input), 0o644); err != nil {
		t.Fatalf("write stdin file: %v", err)
	}
	stdin, err := os.Open(stdinPath)
	if err != nil {
		t.Fatalf("open stdin file: %v", err)
	}
	t.Cleanup(func() { stdin.Close() })

	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	if err != nil {
		t.Fatalf("create stdout: %v", err)
	}
	t.Cleanup(func() { stdout.Close() })

	cfg := SessionConfig{
		Transcript: transcript,
		Echo:       ptyx.EchoNever,
		Quiet:      true,
		Stdin:      stdin,
		Stdout:     stdout,
	}
	if command != "" {
		cfg.Command = []string{"/bin/sh", "-c", command}
	}
	return cfg, transcript.Name()
}

// normalize strips the CR the pty's output post-processing inserts before
// every LF, so assertions can compare against plain text.
func normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func TestRecordCapturesCommandOutput(t *testing.T) {
	cfg, transcriptPath := testSession(t, "echo hello", "")

	res, err := Record(cfg)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}

	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if got := normalize(string(data)); got != "hello\n" {
		t.Errorf("transcript = %q, want %q", got, "hello\n")
	}
}

func TestRecordMirrorsOutputToStdout(t *testing.T) {
	cfg, transcriptPath := testSession(t, "echo mirrored", "")

	if _, err := Record(cfg); err != nil {
		t.Fatalf("Record: %v", err)
	}

	transcript, err := os.ReadFile(transcriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	mirrored, err := os.ReadFile(cfg.Stdout.Name())
	if err != nil {
		t.Fatalf("read stdout capture: %v", err)
	}
	// Byte-identical copies on the live stream and the transcript.
	if string(transcript) != string(mirrored) {
		t.Errorf("stdout = %q, transcript = %q; want identical", mirrored, transcript)
	}
}

func TestRecordRelaysInput(t *testing.T) {
	cfg, transcriptPath := testSession(t, "cat", "hello world\n")
	dir := filepath.Dir(transcriptPath)

	logIn, err := os.Create(filepath.Join(dir, "log-in"))
	if err != nil {
		t.Fatalf("create input log: %v", err)
	}
	cfg.LogInput = logIn

	res, err := Record(cfg)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.Disposition.ExitCode() != 0 {
		t.Errorf("child exit = %d, want 0", res.Disposition.ExitCode())
	}

	inputLog, err := os.ReadFile(logIn.Name())
	if err != nil {
		t.Fatalf("read input log: %v", err)
	}
	if got := string(inputLog); got != "hello world\n" {
		t.Errorf("input log = %q, want %q", got, "hello world\n")
	}

	transcript, err := os.ReadFile(transcriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if got := normalize(string(transcript)); got != "hello world\n" {
		t.Errorf("transcript = %q, want %q", got, "hello world\n")
	}
}

func TestRecordAdvancedTimingDirections(t *testing.T) {
	cfg, transcriptPath := testSession(t, "cat", "abc\n")
	dir := filepath.Dir(transcriptPath)

	timing, err := os.Create(filepath.Join(dir, "timing"))
	if err != nil {
		t.Fatalf("create timing log: %v", err)
	}
	cfg.LogTiming = timing
	cfg.TimingFormat = TimingAdvanced

	if _, err := Record(cfg); err != nil {
		t.Fatalf("Record: %v", err)
	}

	data, err := os.ReadFile(timing.Name())
	if err != nil {
		t.Fatalf("read timing log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		t.Fatalf("timing lines = %d, want at least 2: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "I ") {
		t.Errorf("first timing line = %q, want I prefix", lines[0])
	}
	var sawOutput bool
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "O ") {
			sawOutput = true
		}
	}
	if !sawOutput {
		t.Errorf("no output timing event in %q", lines)
	}
}

func TestRecordPropagatesExitStatus(t *testing.T) {
	cfg, _ := testSession(t, "exit 7", "")
	cfg.PropagateExitStatus = true

	res, err := Record(cfg)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", res.ExitCode)
	}
	if res.Disposition.Signaled {
		t.Error("disposition reports a signal for a plain exit")
	}
}

func TestRecordReportsSignalDeath(t *testing.T) {
	cfg, _ := testSession(t, "kill -TERM $$", "")
	cfg.PropagateExitStatus = true

	res, err := Record(cfg)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !res.Disposition.Signaled {
		t.Fatalf("disposition = %+v, want signaled", res.Disposition)
	}
	if res.ExitCode != 143 {
		t.Errorf("exit code = %d, want 143 (128+SIGTERM)", res.ExitCode)
	}
}

func TestRecordWithoutExitPropagationReturnsZero(t *testing.T) {
	cfg, _ := testSession(t, "exit 7", "")

	res, err := Record(cfg)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0 without --return", res.ExitCode)
	}
	// The disposition still carries the child's real exit.
	if res.Disposition.ExitCode() != 7 {
		t.Errorf("disposition exit = %d, want 7", res.Disposition.ExitCode())
	}
}

func TestRecordSilentChildLeavesEmptyTranscript(t *testing.T) {
	cfg, transcriptPath := testSession(t, "true", "")

	res, err := Record(cfg)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if res.OutputBytes != 0 {
		t.Errorf("output bytes = %d, want 0", res.OutputBytes)
	}

	fi, err := os.Stat(transcriptPath)
	if err != nil {
		t.Fatalf("transcript missing after silent session: %v", err)
	}
	if fi.Size() != 0 {
		t.Errorf("transcript size = %d, want 0", fi.Size())
	}
}

func TestRecordOutputLimitEndsSession(t *testing.T) {
	const limit = 1000
	cfg, transcriptPath := testSession(t,
		"i=0; while [ $i -lt 5000 ]; do echo xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx; i=$((i+1)); done", "")
	cfg.OutputLimit = limit

	res, err := Record(cfg)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !res.LimitReached {
		t.Fatal("session ended without tripping the output limit")
	}
	if res.OutputBytes < limit {
		t.Errorf("output bytes = %d, want >= %d", res.OutputBytes, limit)
	}

	fi, err := os.Stat(transcriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	// The limit may be overrun by at most one read chunk.
	if fi.Size() > limit+chunkSize {
		t.Errorf("transcript size = %d, want <= %d", fi.Size(), limit+chunkSize)
	}
}

func TestRecordFramingMessages(t *testing.T) {
	cfg, transcriptPath := testSession(t, "true", "")
	cfg.Quiet = false

	if _, err := Record(cfg); err != nil {
		t.Fatalf("Record: %v", err)
	}

	out, err := os.ReadFile(cfg.Stdout.Name())
	if err != nil {
		t.Fatalf("read stdout capture: %v", err)
	}
	if !strings.Contains(string(out), "Script started, file is "+transcriptPath) {
		t.Errorf("missing start framing in %q", out)
	}
	if !strings.Contains(string(out), "Script done, file is "+transcriptPath) {
		t.Errorf("missing done framing in %q", out)
	}

	// Framing lines go to the real stdout only, never into the transcript.
	transcript, err := os.ReadFile(transcriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if strings.Contains(string(transcript), "Script started") {
		t.Errorf("framing leaked into transcript: %q", transcript)
	}
}

func TestMasterPendingSeesBufferedFinalChunk(t *testing.T) {
	pair, err := ptyx.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pair.Close()

	// Bytes written on the secondary just before it closes sit in the
	// pty buffer with nothing reading the master yet.
	if _, err := pair.Secondary.Write([]byte("tail")); err != nil {
		t.Fatalf("write secondary: %v", err)
	}
	pair.CloseSecondary()

	fd := int32(pair.Master.Fd())
	if !masterPending(fd) {
		t.Fatal("buffered bytes not reported after secondary close")
	}

	buf := make([]byte, 16)
	n, err := pair.Master.Read(buf)
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	if got := string(buf[:n]); got != "tail" {
		t.Errorf("master read = %q, want %q", got, "tail")
	}

	// With the buffer empty the hangup still counts as pending, so the
	// loop performs the read that observes EIO instead of returning.
	if !masterPending(fd) {
		t.Error("hangup state not reported as pending")
	}
}

func TestRunLoopDrainsOutputBufferedBeforeExit(t *testing.T) {
	cfg, transcriptPath := testSession(t, "", "")

	logs := NewLogSet(cfg, time.Now())
	defer logs.Close()

	var latch SignalLatch
	latch.Install(syscall.SIGUSR1)
	defer latch.Uninstall()

	pair, err := ptyx.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pair.Close()
	if err := pair.NegotiateEcho(ptyx.EchoNever, false); err != nil {
		t.Fatalf("NegotiateEcho: %v", err)
	}
	eofChar := pair.EOFChar()

	child, err := startChild([]string{"/bin/sh", "-c", "echo tail"}, pair.Secondary)
	if err != nil {
		t.Fatalf("startChild: %v", err)
	}
	pair.CloseSecondary()

	// Let the child write and die before the loop ever runs; its final
	// chunk must still reach the transcript.
	child.wait()

	res := runLoop(cfg, logs, &latch, pair, child, cfg.Stdin, cfg.Stdout, eofChar)
	if res.Disposition.ExitCode() != 0 {
		t.Errorf("child exit = %d, want 0", res.Disposition.ExitCode())
	}
	logs.FlushAll()

	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if got := normalize(string(data)); got != "tail\n" {
		t.Errorf("transcript = %q, want %q", got, "tail\n")
	}
}

func TestSessionArgvFallsBackToShell(t *testing.T) {
	argv := sessionArgv(SessionConfig{Shell: "/bin/dash"})
	if len(argv) != 1 || argv[0] != "/bin/dash" {
		t.Errorf("argv = %v, want [/bin/dash]", argv)
	}

	argv = sessionArgv(SessionConfig{Command: []string{"/bin/echo", "hi"}})
	if len(argv) != 2 || argv[0] != "/bin/echo" {
		t.Errorf("argv = %v, want the configured command", argv)
	}
}
