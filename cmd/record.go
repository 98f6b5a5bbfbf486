package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/ttycap/internal/history"
	"github.com/fakeyudi/ttycap/internal/ptyx"
	"github.com/fakeyudi/ttycap/internal/recorder"
)

var recordFlags struct {
	appendMode    bool
	force         bool
	command       string
	echo          string
	logIn         string
	logOut        string
	logIO         string
	logTiming     string
	loggingFormat string
	outputLimit   string
	quiet         bool
	returnStatus  bool
	flush         bool
}

var recordCmd = &cobra.Command{
	Use:   "record [file]",
	Short: "Record a terminal session to a transcript file",
	Long: `Record runs a command (or your shell) on a pseudo-terminal and captures
everything the session writes, byte for byte, into a transcript file.
Optional side logs split input and output, interleave both, or record
per-event timing for later replay.

Send SIGUSR1 to a running recording to flush all log files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.BoolVarP(&recordFlags.appendMode, "append", "a", false, "append to existing files instead of truncating")
	f.BoolVar(&recordFlags.force, "force", false, "write to the destination even if it looks unsafe")
	f.StringVarP(&recordFlags.command, "command", "c", "", "run this command instead of an interactive shell")
	f.StringVarP(&recordFlags.echo, "echo", "E", "auto", "echo mode on the session terminal: always, never or auto")
	f.StringVarP(&recordFlags.logIn, "log-in", "I", "", "log input bytes to this file")
	f.StringVarP(&recordFlags.logOut, "log-out", "O", "", "log output bytes to this file")
	f.StringVarP(&recordFlags.logIO, "log-io", "B", "", "log both directions, interleaved, to this file")
	f.StringVarP(&recordFlags.logTiming, "log-timing", "T", "", "log per-event timing to this file")
	f.StringVarP(&recordFlags.loggingFormat, "logging-format", "m", "", "timing log format: classic or advanced")
	f.StringVarP(&recordFlags.outputLimit, "output-limit", "o", "", "end the session after this many output bytes (suffixes: K, M, G, KiB, MiB, ...)")
	f.BoolVarP(&recordFlags.quiet, "quiet", "q", false, "suppress the start and done messages")
	f.BoolVarP(&recordFlags.returnStatus, "return", "e", false, "exit with the child's exit status")
	f.BoolVarP(&recordFlags.flush, "flush", "f", false, "flush the logs after every write")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	transcriptPath := "typescript"
	if len(args) > 0 {
		transcriptPath = args[0]
	}
	if !filepath.IsAbs(transcriptPath) {
		transcriptPath = filepath.Join(cfg.OutputDir, transcriptPath)
	}

	echoMode, err := ptyx.ParseEchoMode(recordFlags.echo)
	if err != nil {
		return err
	}
	formatName := recordFlags.loggingFormat
	if formatName == "" {
		formatName = cfg.TimingFormat
	}
	timingFormat, err := recorder.ParseTimingFormat(formatName)
	if err != nil {
		return err
	}
	var outputLimit int64
	if recordFlags.outputLimit != "" {
		outputLimit, err = parseSize(recordFlags.outputLimit)
		if err != nil {
			return err
		}
	}

	// The transcript is opened first, and every log before any
	// pseudo-terminal or child exists: a refused destination must never
	// leak a session.
	files, err := openSessionFiles(transcriptPath)
	if err != nil {
		return err
	}

	var command []string
	if recordFlags.command != "" {
		command = []string{shellPath(), "-c", recordFlags.command}
	}

	res, err := recorder.Record(recorder.SessionConfig{
		Transcript:          files.transcript,
		LogInput:            files.logIn,
		LogOutput:           files.logOut,
		LogCombined:         files.logIO,
		LogTiming:           files.logTiming,
		TimingFormat:        timingFormat,
		Echo:                echoMode,
		Command:             command,
		Shell:               cfg.Shell,
		OutputLimit:         outputLimit,
		FlushEveryWrite:     recordFlags.flush,
		Quiet:               recordFlags.quiet,
		PropagateExitStatus: recordFlags.returnStatus,
	})
	if err != nil {
		files.closeAll()
		return err
	}

	recordHistory(res, transcriptPath)

	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}

// sessionFiles holds the open log handles for one recording.
type sessionFiles struct {
	transcript *os.File
	logIn      *os.File
	logOut     *os.File
	logIO      *os.File
	logTiming  *os.File
}

// closeAll releases the handles when the session never started; a running
// session's LogSet owns and closes them instead.
func (s *sessionFiles) closeAll() {
	for _, f := range []*os.File{s.transcript, s.logIn, s.logOut, s.logIO, s.logTiming} {
		if f != nil {
			f.Close()
		}
	}
}

func openSessionFiles(transcriptPath string) (*sessionFiles, error) {
	var files sessionFiles
	var err error

	files.transcript, err = openLog(transcriptPath)
	if err != nil {
		return nil, err
	}
	for _, dest := range []struct {
		path string
		f    **os.File
	}{
		{recordFlags.logIn, &files.logIn},
		{recordFlags.logOut, &files.logOut},
		{recordFlags.logIO, &files.logIO},
		{recordFlags.logTiming, &files.logTiming},
	} {
		if dest.path == "" {
			continue
		}
		*dest.f, err = openLog(dest.path)
		if err != nil {
			files.closeAll()
			return nil, err
		}
	}
	return &files, nil
}

// openLog opens path for appending or truncating per the --append flag.
// Reusing an existing file that has other hard links is refused unless
// --append or --force allows it: truncating a multiply-linked file
// clobbers data reachable under another name.
func openLog(path string) (*os.File, error) {
	if !recordFlags.appendMode && !recordFlags.force {
		if fi, err := os.Lstat(path); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return nil, fmt.Errorf("output file %s is a symlink (use --force to override)", path)
			}
			if fi.Mode().IsRegular() && hardLinkCount(fi) > 1 {
				return nil, fmt.Errorf("output file %s has multiple hard links (use --force to override)", path)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE
	if recordFlags.appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// shellPath resolves the shell used for --command and interactive sessions.
func shellPath() string {
	if cfg.Shell != "" {
		return cfg.Shell
	}
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/sh"
}

// recordHistory appends the finished session to the recording registry.
// Best effort: history failures never fail a recording that already
// succeeded.
func recordHistory(res *recorder.Result, transcriptPath string) {
	store, err := history.NewStore(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ttycap: history: %v\n", err)
		return
	}
	entry := history.Entry{
		ID:          uuid.New().String(),
		StartTime:   res.StartedAt,
		StopTime:    res.EndedAt,
		Command:     recordFlags.command,
		Transcript:  transcriptPath,
		TimingLog:   recordFlags.logTiming,
		ExitCode:    res.Disposition.ExitCode(),
		OutputBytes: res.OutputBytes,
	}
	if err := store.Append(entry); err != nil {
		fmt.Fprintf(os.Stderr, "ttycap: history: %v\n", err)
	}
}
