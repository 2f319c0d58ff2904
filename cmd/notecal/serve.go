package main

import (
	"github.com/spf13/cobra"

	"notecal/internal/web"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the candidate listings and metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			app.cfg.Listen = listen
		}
		ctx, cancel := signalContext()
		defer cancel()

		return web.StartServer(ctx, app.cfg, app.svc)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}
