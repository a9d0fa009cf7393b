package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking a night",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, closeFn, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if cur := tr.Tonight().Get(); cur != nil {
			return fmt.Errorf("night already in progress (started at %s)", cur.StartTime.Format(time.RFC3339))
		}
		if err := tr.Start(cmd.Context()); err != nil {
			return err
		}

		cur := tr.Tonight().Get()
		fmt.Fprintf(cmd.OutOrStdout(), "Night started at %s. Sleep well.\n", cur.StartTime.Format("15:04"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
