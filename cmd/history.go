package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print every recorded night",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, closeFn, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		fmt.Fprint(cmd.OutOrStdout(), tr.History().Get())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
