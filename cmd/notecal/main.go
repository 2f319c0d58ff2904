package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notecal/internal/config"
	"notecal/internal/domain"
	appLog "notecal/internal/log"
	"notecal/internal/notesync"
)

// flagConfig holds the persistent flag values shared by every command.
type flagConfig struct {
	configPath string
	envFile    string
	now        string
	debug      bool
}

var flags flagConfig

// app is filled in by the root PersistentPreRunE.
var app struct {
	cfg *config.Config
	svc *notesync.Service
	now func() time.Time
}

var rootCmd = &cobra.Command{
	Use:   "notecal",
	Short: "Syncs meeting notes with your calendar feeds",
	Long: `notecal reads one or more ICS subscription feeds, picks the event a note
belongs to (the one happening now, the next one, or the last one) and renames
the note after it, keeping an attendee list at the top.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(flags.envFile); err != nil {
			return err
		}

		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return err
		}
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
		if flags.debug {
			appLog.SetLevel(appLog.LevelDebug)
		}

		now, err := nowFunc(flags.now)
		if err != nil {
			return err
		}

		svc, err := notesync.FromConfig(cfg)
		if err != nil {
			return err
		}

		app.cfg = cfg
		app.svc = svc
		app.now = now

		appLog.Debug("effective config",
			"config_path", flags.configPath,
			"listen", cfg.Listen,
			"timezone", cfg.Timezone,
			"feed_count", len(cfg.Feeds),
			"owner_set", cfg.OwnerEmail != "",
			"cache_dir", cfg.CacheDir,
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Path to a .env file (skipped if missing)")
	rootCmd.PersistentFlags().StringVar(&flags.now, "now", "", `Pretend the current time is this (RFC 3339 or e.g. "tomorrow 9am")`)
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "notecal.yaml"
	}
	return filepath.Join(dir, "notecal", "config.yaml")
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			fmt.Fprintln(os.Stderr, "notecal:", domain.UserMessage(err))
			appLog.Debug("command failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, "notecal:", err)
		}
		os.Exit(1)
	}
}
