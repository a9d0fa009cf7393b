package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/sleeptrack/internal/format"
	"github.com/fakeyudi/sleeptrack/internal/night"
)

var stopQuality string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop tracking the current night",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var rating night.Rating = night.Unrated
		if stopQuality != "" {
			r, err := night.ParseRating(stopQuality)
			if err != nil {
				return err
			}
			rating = r
		}

		tr, closeFn, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if tr.Tonight().Get() == nil {
			return errors.New("no night in progress")
		}
		if err := tr.Stop(cmd.Context()); err != nil {
			return err
		}

		stopped, ok := tr.NavigateToRating().Pending()
		if !ok {
			return errors.New("night was not stopped")
		}
		// The CLI acts on the rating prompt right here.
		tr.ConsumeNavigation()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Night stopped. Slept %s.\n", format.Duration(stopped.Duration()))

		if !rating.Valid() {
			fmt.Fprintf(out, "Rate it with: sleeptrack rate <0-5> --night %s\n", stopped.ShortID())
			return nil
		}
		if err := tr.Rate(cmd.Context(), stopped.ID, rating); err != nil {
			return err
		}
		tr.ConsumeRatingDone()
		fmt.Fprintf(out, "Quality: %s\n", rating)
		return nil
	},
}

func init() {
	stopCmd.Flags().StringVarP(&stopQuality, "quality", "q", "", "rate the night right away (0-5)")
	rootCmd.AddCommand(stopCmd)
}
