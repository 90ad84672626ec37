package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/devserver"
	"github.com/fyrsmithlabs/daybook/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const devServerShutdownTimeout = 5 * time.Second

func newDevServerCmd(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory backend for local development",
		Long: `Run an in-memory stand-in for the daybook backend. Data is lost on exit.

Examples:
  # Start on the configured address (default 127.0.0.1:8000)
  daybook devserver

  # Point the client at it
  daybook login --api http://127.0.0.1:8000/api dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.DevServer.Host = host
			}
			if port != 0 {
				cfg.DevServer.Port = port
			}

			logCfg, err := logging.FromUserConfig(cfg.Logging)
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(logCfg, nil)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			srv, err := devserver.NewServer(logger.Named("devserver").Underlying(), &devserver.Config{
				Host:  cfg.DevServer.Host,
				Port:  cfg.DevServer.Port,
				Token: cfg.DevServer.Token.Value(),
			})
			if err != nil {
				return err
			}
			return serve(cmd.Context(), srv, logger)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host, overrides devserver.host")
	cmd.Flags().IntVar(&port, "port", 0, "listen port, overrides devserver.port")
	return cmd
}

// serve runs srv until ctx ends, then shuts it down.
func serve(ctx context.Context, srv *devserver.Server, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), devServerShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn(shutdownCtx, "dev server shutdown", zap.Error(err))
		return err
	}
	return <-errCh
}
