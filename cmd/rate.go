package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/sleeptrack/internal/night"
)

var rateNight string

var rateCmd = &cobra.Command{
	Use:   "rate <0-5>",
	Short: "Rate how well you slept",
	Long: `Rate how well you slept, from 0 (very bad) to 5 (excellent).

Without --night the most recently finished night is rated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := night.ParseRating(args[0])
		if err != nil {
			return err
		}

		tr, closeFn, err := openTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		target, err := resolveNight(tr.Nights().Get(), rateNight)
		if err != nil {
			return err
		}
		if err := tr.Rate(cmd.Context(), target.ID, rating); err != nil {
			return err
		}
		tr.ConsumeRatingDone()

		fmt.Fprintf(cmd.OutOrStdout(), "Rated night %s: %s\n", target.ShortID(), rating)
		return nil
	},
}

// resolveNight picks the night named by prefix, or the newest finished night.
func resolveNight(nights []night.Night, prefix string) (night.Night, error) {
	if prefix != "" {
		n, err := night.Match(nights, prefix)
		if err != nil {
			return night.Night{}, err
		}
		if n.InProgress() {
			return night.Night{}, fmt.Errorf("night %s is still in progress", n.ShortID())
		}
		return n, nil
	}
	for _, n := range nights {
		if !n.InProgress() {
			return n, nil
		}
	}
	return night.Night{}, errors.New("no finished night to rate")
}

func init() {
	rateCmd.Flags().StringVar(&rateNight, "night", "", "ID (or ID prefix) of the night to rate")
	rootCmd.AddCommand(rateCmd)
}
