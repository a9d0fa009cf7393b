package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/sleeptrack/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the sleep history as JSON or Markdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := exportFormat
		if name == "" {
			name = GetConfig().ExportFormat
		}
		renderer, err := export.ForFormat(name)
		if err != nil {
			return err
		}

		tr, closeFn, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		data, err := renderer.Render(tr.Nights().Get())
		if err != nil {
			return fmt.Errorf("render history: %w", err)
		}

		if exportOutput == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		dest := exportOutput
		if filepath.Ext(dest) == "" {
			dest += renderer.Ext()
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d nights to %s\n", len(tr.Nights().Get()), dest)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: markdown or json (overrides config)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of stdout (extension added when missing)")
	rootCmd.AddCommand(exportCmd)
}
