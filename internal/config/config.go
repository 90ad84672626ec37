// Package config provides configuration loading for daybook.
//
// Configuration is read from an optional YAML file and overridden by
// DAYBOOK_* environment variables. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete daybook client configuration.
type Config struct {
	API         APIConfig         `koanf:"api"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Ads         AdsConfig         `koanf:"ads"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	DevServer   DevServerConfig   `koanf:"devserver"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL   string   `koanf:"base_url"`
	Timeout   Duration `koanf:"timeout"`
	RateLimit float64  `koanf:"rate_limit"` // requests per second, 0 disables limiting
	Burst     int      `koanf:"burst"`
}

// CredentialsConfig selects where the bearer token is persisted.
type CredentialsConfig struct {
	Backend string `koanf:"backend"` // file, sqlite or memory
	Path    string `koanf:"path"`
}

// AdsConfig configures the reward ad gate in front of submissions.
type AdsConfig struct {
	Placement string `koanf:"placement"`
	// Simulate picks a scripted ad outcome: reward, dismiss, fail or load_error.
	// Empty means the environment does not support ads.
	Simulate string `koanf:"simulate"`
}

// LoggingConfig holds the subset of logging settings exposed to users.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	Protocol string `koanf:"protocol"`
}

// DevServerConfig configures the in-memory development backend.
type DevServerConfig struct {
	Host  string `koanf:"host"`
	Port  int    `koanf:"port"`
	Token Secret `koanf:"token"` // token issued by the dev login endpoint
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the API base URL is not an absolute http(s) URL
//   - the API timeout is not positive
//   - the credentials backend is unknown
//   - the simulated ad outcome is unknown
//   - the dev server port is out of range
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api.base_url %q: %w", c.API.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url must include a host, got %q", c.API.BaseURL)
	}

	if c.API.Timeout.Duration() <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be >= 0, got %v", c.API.RateLimit)
	}

	switch c.Credentials.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown credentials.backend %q (want file, sqlite or memory)", c.Credentials.Backend)
	}
	if c.Credentials.Backend != "memory" && c.Credentials.Path == "" {
		return fmt.Errorf("credentials.path is required for the %s backend", c.Credentials.Backend)
	}

	switch c.Ads.Simulate {
	case "", "reward", "dismiss", "fail", "load_error":
	default:
		return fmt.Errorf("unknown ads.simulate %q", c.Ads.Simulate)
	}

	if c.DevServer.Port < 1 || c.DevServer.Port > 65535 {
		return fmt.Errorf("invalid devserver.port: %d (must be 1-65535)", c.DevServer.Port)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000/api"
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = Duration(15 * time.Second)
	}
	if cfg.API.Burst == 0 {
		cfg.API.Burst = 1
	}

	if cfg.Credentials.Backend == "" {
		cfg.Credentials.Backend = "file"
	}
	if cfg.Credentials.Path == "" {
		switch cfg.Credentials.Backend {
		case "sqlite":
			cfg.Credentials.Path = "~/.config/daybook/credentials.db"
		case "file":
			cfg.Credentials.Path = "~/.config/daybook/credentials.toml"
		}
	}

	if cfg.Ads.Placement == "" {
		cfg.Ads.Placement = "daybook.write.reward"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}

	if cfg.DevServer.Host == "" {
		cfg.DevServer.Host = "127.0.0.1"
	}
	if cfg.DevServer.Port == 0 {
		cfg.DevServer.Port = 8000
	}
	if !cfg.DevServer.Token.IsSet() {
		cfg.DevServer.Token = Secret("dev-token")
	}
}
