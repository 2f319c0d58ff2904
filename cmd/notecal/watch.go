package main

import (
	"context"
	"errors"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"notecal/internal/domain"
	appLog "notecal/internal/log"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <note.md>",
	Short: "Re-syncs a note on a schedule until interrupted",
	Long: `Runs "notecal sync" for one note on a cron schedule (default from
watch_cron in the config). The note is followed across renames. A run that
is still going when the next one is due is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.cfg.Validate(); err != nil {
			return err
		}
		spec, _ := cmd.Flags().GetString("cron")
		if spec == "" {
			spec = app.cfg.WatchCron
		}

		ctx, cancel := signalContext()
		defer cancel()

		w := &watcher{path: args[0], cancel: cancel}
		logger := cron.VerbosePrintfLogger(cronLogger{})
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)))
		if _, err := c.AddFunc(spec, func() { w.run(ctx) }); err != nil {
			return domain.NewConfigurationError("invalid cron schedule "+spec, err)
		}

		appLog.Info("watching note", "path", w.path, "cron", spec)
		w.run(ctx)
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return w.err
	},
}

// watcher tracks the note between runs; cron's chain guarantees one run at
// a time.
type watcher struct {
	path   string
	cancel context.CancelFunc
	err    error
}

func (w *watcher) run(ctx context.Context) {
	out, err := app.svc.SyncNote(ctx, w.path, app.now())
	if err != nil {
		appLog.Error("watch sync failed", err, "path", w.path)
		if errors.Is(err, os.ErrNotExist) {
			// The note is gone; nothing left to watch.
			w.err = err
			w.cancel()
		}
		return
	}
	if out.Synced {
		w.path = out.Path
	}
}

// cronLogger routes cron's own messages into the app log.
type cronLogger struct{}

func (cronLogger) Printf(format string, args ...any) {
	appLog.Debug("cron", "msg", format, "args", args)
}

func init() {
	watchCmd.Flags().String("cron", "", `Cron schedule, e.g. "*/5 * * * *"`)
	rootCmd.AddCommand(watchCmd)
}
