package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 15*time.Second, cfg.API.Timeout.Duration())
	assert.Equal(t, 1, cfg.API.Burst)
	assert.Equal(t, "daybook.write.reward", cfg.Ads.Placement)
	assert.Empty(t, cfg.Ads.Simulate)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.API.BaseURL = "/api" },
			wantErr: "http or https",
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.API.BaseURL = "http://" },
			wantErr: "host",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.API.Timeout = 0 },
			wantErr: "api.timeout",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.API.RateLimit = -1 },
			wantErr: "api.rate_limit",
		},
		{
			name:    "unknown simulated ad",
			mutate:  func(c *Config) { c.Ads.Simulate = "maybe" },
			wantErr: "ads.simulate",
		},
		{
			name:    "file backend without path",
			mutate:  func(c *Config) { c.Credentials.Path = "" },
			wantErr: "credentials.path",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.DevServer.Port = 70000 },
			wantErr: "devserver.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_MemoryBackendNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Credentials.Backend = "memory"
	cfg.Credentials.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestSecret_NeverPrinted(t *testing.T) {
	s := Secret("super-secret-jwt")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "super-secret-jwt", s.Value())

	out, err := json.Marshal(struct{ Token Secret }{Token: s})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "super-secret-jwt")

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))

	text, err := Duration(2 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))
}
