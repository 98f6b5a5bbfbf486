package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/ttycap/internal/playback"
)

var followCmd = &cobra.Command{
	Use:   "follow <file>",
	Short: "Tail a transcript that is still being recorded",
	Long: `Follow prints a transcript as it grows, like tail -f, so a session being
recorded in one terminal can be watched live from another. Interrupt to
stop; following also ends when the file is removed or renamed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return playback.Follow(ctx, args[0], os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(followCmd)
}
