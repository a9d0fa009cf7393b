package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded night",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to delete all nights without --yes")
		}

		tr, closeFn, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if err := tr.Clear(cmd.Context()); err != nil {
			return err
		}
		tr.ConsumeCleared()

		fmt.Fprintln(cmd.OutOrStdout(), "All your data is gone forever.")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deleting every night")
	rootCmd.AddCommand(clearCmd)
}
