package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/sleeptrack/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive tracker screen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal() {
			return errors.New("ui needs an interactive terminal")
		}
		return runUI(cmd)
	},
}

func runUI(cmd *cobra.Command) error {
	path, err := databasePath()
	if err != nil {
		return err
	}
	tr, closeFn, err := openTracker(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	return tui.Run(cmd.Context(), tr, path, logger)
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
