package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/apiclient"
	"github.com/fyrsmithlabs/daybook/internal/config"
	"github.com/fyrsmithlabs/daybook/internal/credentials"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"github.com/fyrsmithlabs/daybook/internal/logging"
	"github.com/fyrsmithlabs/daybook/internal/telemetry"
	"go.uber.org/zap"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	apiURL     string
	logLevel   string
	logFormat  string
}

// app is everything a command needs, built from config and flags.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	store  credentials.Store
	api    *apiclient.Client
	diary  *diary.Client
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(opts.apiURL, "/")
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp wires config, telemetry, logging, the credential store and the
// API client. Callers must Close it.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, telemetry.FromUserConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.FromUserConfig(cfg.Logging)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	lp := tel.LoggerProvider()
	logCfg.Output.OTEL = lp != nil
	logger, err := logging.NewLogger(logCfg, lp)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", h.Reasons))
	}

	store, err := credentials.Open(ctx, cfg.Credentials)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	api, err := apiclient.New(cfg.API.BaseURL, store,
		apiclient.WithTimeout(cfg.API.Timeout.Duration()),
		apiclient.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		apiclient.WithTracerProvider(tel.TracerProvider()),
		apiclient.WithLogger(logger.Named("api").Underlying()),
	)
	if err != nil {
		_ = store.Close()
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	logger.Debug(ctx, "daybook initialized",
		zap.String("api", cfg.API.BaseURL),
		zap.String("credentials", cfg.Credentials.Backend),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		tel:    tel,
		store:  store,
		api:    api,
		diary:  diary.New(api),
	}, nil
}

// Close releases the store and flushes telemetry and logs.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(
		a.store.Close(),
		a.tel.Shutdown(ctx),
		a.logger.Sync(),
	)
}
