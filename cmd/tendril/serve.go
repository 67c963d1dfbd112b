package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Tendril HTTP server",
	Long: `Starts the HTTP API: bot config load/save, integrity validation, Mermaid
graphs, conversation turns, SSE session events and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		debug, _ := cmd.Flags().GetBool("debug")

		app, err := cli.Build(ctx, cfg, cli.WithDebugHooks(debug))
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.Serve(ctx, app, tendril.Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
