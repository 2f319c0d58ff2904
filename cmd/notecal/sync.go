package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notecal/internal/notesync"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync <note.md>",
	Short: "Renames a note after its event and writes the attendee list",
	Long: `Picks the event the note belongs to and rewrites the note: the file is
renamed to "📅 YYYY-MM-DD <title>.md" and an "## Attendees:" block is kept
at the top. Without --pick the closest event is used (happening now, else
the next upcoming one, else the one that just ended). With --pick N the Nth
candidate from "notecal list" is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.cfg.Validate(); err != nil {
			return err
		}
		pick, _ := cmd.Flags().GetInt("pick")
		ctx, cancel := signalContext()
		defer cancel()

		now := app.now()
		var (
			out notesync.Outcome
			err error
		)
		if pick > 0 {
			candidates, cerr := app.svc.ResolveSelectable(ctx, now)
			if cerr != nil {
				return cerr
			}
			if pick > len(candidates) {
				return fmt.Errorf("--pick %d: only %d candidate(s)", pick, len(candidates))
			}
			out, err = app.svc.SyncNoteWith(args[0], candidates[pick-1])
		} else {
			out, err = app.svc.SyncNote(ctx, args[0], now)
		}
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if !out.Synced {
			fmt.Fprintln(w, "nothing to sync")
			return nil
		}
		fmt.Fprintf(w, "%s\n-> %s\n", out.Event.DisplayName(), out.Path)
		return nil
	},
}

func init() {
	syncCmd.Flags().Int("pick", 0, "Use the Nth candidate from \"notecal list\" instead of the closest event")
	rootCmd.AddCommand(syncCmd)
}
