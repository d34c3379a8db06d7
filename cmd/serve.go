package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"apimon/internal/core"
	"apimon/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitor and its HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig()
		if err != nil {
			return err
		}

		logger := core.NewLoggerWithWriter(os.Stdout, config.Log.Level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, config, logger)
		if err != nil {
			logger.Error("Failed to create server", "error", err)
			return err
		}

		return srv.Start(ctx)
	},
}
