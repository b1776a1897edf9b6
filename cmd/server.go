package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"Vedit/logger"
	"Vedit/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Vedit HTTP server",
	Long:  `Start the HTTP API that ingests uploads, manages project timelines and serves media.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown cleanup failed", logger.ErrorField(err))
		}
	}()
	logger.Debug("configuration loaded",
		logger.String("env", a.cfg.AppEnv),
		logger.String("dataDir", a.cfg.DataDir),
		logger.String("jobStore", a.cfg.JobStore))

	srv := server.New(a.service, server.Options{
		Addr:            a.cfg.HTTPAddr,
		WebAppDir:       a.cfg.WebAppDir,
		Development:     a.cfg.IsDevelopment(),
		MaxChunkMemory:  a.cfg.MaxChunkMemory,
		ShutdownTimeout: a.cfg.ShutdownTimeout,
	}, a.log)
	return srv.ListenAndServe(ctx)
}
