package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/ttycap/internal/history"
	"github.com/fakeyudi/ttycap/internal/playback"
	"github.com/fakeyudi/ttycap/internal/tui"
)

var sessionsPick bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.NewStore(cfg.HistoryPath)
		if err != nil {
			return err
		}
		entries, err := store.List()
		if err != nil {
			return err
		}

		if sessionsPick {
			return pickAndReplay(entries)
		}

		if len(entries) == 0 {
			fmt.Println("No recordings yet. Run 'ttycap record' to create one.")
			return nil
		}
		for _, e := range entries {
			cmdName := e.Command
			if cmdName == "" {
				cmdName = "(shell)"
			}
			fmt.Printf("%s  %-30s %s  exit %d  %d bytes\n",
				e.StartTime.Format(time.DateTime), cmdName, e.Transcript, e.ExitCode, e.OutputBytes)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().BoolVar(&sessionsPick, "pick", false, "pick a session interactively and replay it")
	rootCmd.AddCommand(sessionsCmd)
}

// pickAndReplay opens the interactive picker and replays the chosen
// recording when it has a timing log.
func pickAndReplay(entries []history.Entry) error {
	program := tea.NewProgram(tui.New(entries), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("picker: %w", err)
	}
	model, ok := final.(tui.Model)
	if !ok || model.Selected == nil {
		return nil
	}
	selected := model.Selected
	if selected.TimingLog == "" {
		fmt.Printf("Recording %s has no timing log; showing the raw transcript path instead:\n%s\n",
			selected.ID, selected.Transcript)
		return nil
	}
	return replayFiles(selected.Transcript, selected.TimingLog, playback.ReplayOptions{Divisor: 1})
}
