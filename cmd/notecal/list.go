package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the events a note can be synced to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.cfg.Validate(); err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		res, err := app.svc.Resolve(ctx, app.now())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(res.Candidates) == 0 {
			fmt.Fprintln(w, "no events")
			return nil
		}
		for i, c := range res.Candidates {
			marker := " "
			if res.HasClosest && c.Start().Equal(res.Closest.Start()) && c.UID() == res.Closest.UID() {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %2d  %s\n", marker, i+1, c.DisplayName())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
