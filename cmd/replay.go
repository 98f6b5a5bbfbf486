package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/ttycap/internal/playback"
)

var replayFlags struct {
	logTiming string
	logIO     string
	divisor   float64
	maxDelay  time.Duration
}

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Replay a recorded session at its original speed",
	Long: `Replay re-emits a transcript on stdout, pausing between chunks the way
the original session did. It needs the timing log recorded alongside the
transcript (record --log-timing).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript := "typescript"
		if len(args) > 0 {
			transcript = args[0]
		}
		if replayFlags.logTiming == "" {
			return fmt.Errorf("replay needs a timing log (--log-timing)")
		}
		data := transcript
		combined := false
		if replayFlags.logIO != "" {
			data = replayFlags.logIO
			combined = true
		}
		return replayFiles(data, replayFlags.logTiming, playback.ReplayOptions{
			Divisor:     replayFlags.divisor,
			MaxDelay:    replayFlags.maxDelay,
			CombinedLog: combined,
		})
	},
}

func init() {
	f := replayCmd.Flags()
	f.StringVarP(&replayFlags.logTiming, "log-timing", "T", "", "timing log recorded with the transcript")
	f.StringVarP(&replayFlags.logIO, "log-io", "B", "", "replay this combined I/O log instead of the transcript")
	f.Float64VarP(&replayFlags.divisor, "divisor", "d", 1, "speed up playback by this factor")
	f.DurationVar(&replayFlags.maxDelay, "maxdelay", 0, "clamp any single pause to this duration (0 = no clamp)")
	rootCmd.AddCommand(replayCmd)
}

// replayFiles plays the recording at dataPath/timingPath back on stdout.
// Shared with the sessions picker.
func replayFiles(dataPath, timingPath string, opts playback.ReplayOptions) error {
	timing, err := os.Open(timingPath)
	if err != nil {
		return fmt.Errorf("open timing log: %w", err)
	}
	defer timing.Close()

	events, err := playback.Parse(timing)
	if err != nil {
		return err
	}

	data, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer data.Close()

	return playback.Replay(data, events, os.Stdout, opts)
}
