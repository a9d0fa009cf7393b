package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/sleeptrack/internal/format"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a night is being tracked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, closeFn, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		out := cmd.OutOrStdout()
		if cur := tr.Tonight().Get(); cur != nil {
			fmt.Fprintf(out, "Tracking since: %s\n", cur.StartTime.Format(time.RFC3339))
			fmt.Fprintf(out, "Duration: %s\n", format.Duration(time.Since(cur.StartTime)))
		} else {
			fmt.Fprintln(out, "no night in progress")
		}
		fmt.Fprintf(out, "Nights recorded: %d\n", len(tr.Nights().Get()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
