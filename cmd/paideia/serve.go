// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paideia/paideia/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health-check web service",
	Long: `Serve starts the HTTP service. GET / answers {"message": "Paideia is running!"}.
Cross-origin requests are allowed from any origin with credentials; this is a
development configuration.

The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen address (default 0.0.0.0)")
	serveCmd.Flags().Int("port", 0, "listen port (default 8000)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, cfg.Server, logger)
}
