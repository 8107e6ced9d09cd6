package config

import (
	"testing"

	"github.com/marmos91/fileshare/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	for _, level := range []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		require.NoError(t, Validate(cfg), level)
		assert.Equal(t, level, cfg.Logging.Level, "Validate must not normalize")
	}
}

func TestValidate_FieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		tag    string
	}{
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"server port too large", func(c *Config) { c.Server.Port = 70000 }, "max"},
		{"server port zero", func(c *Config) { c.Server.Port = 0 }, "min"},
		{"bind address", func(c *Config) { c.Server.BindAddress = "not-an-ip" }, "ip"},
		{"chunk size zero", func(c *Config) { c.Server.ChunkSize = 0 }, "min"},
		{"sniff buffer tiny", func(c *Config) { c.Server.SniffBufferSize = 4 }, "min"},
		{"upload idle zero", func(c *Config) { c.Server.Timeouts.UploadIdle = 0 }, "gt"},
		{"shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, "required"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "lte"},
		{"upload dir", func(c *Config) { c.Storage.UploadDir = "" }, "required"},
		{"username", func(c *Config) { c.Auth.Username = "" }, "required"},
		{"no password or hash", func(c *Config) { c.Auth.Password = "" }, "required_without"},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }, "max"},
		{"api port", func(c *Config) { c.API.Port = 70000 }, "max"},
		{"client address", func(c *Config) { c.Client.Address = "nohostport" }, "hostname_port"},
		{"client ack timeout", func(c *Config) { c.Client.AckTimeout = 0 }, "gt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "'"+tt.tag+"'")
		})
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry.endpoint")
}

func TestValidate_Profiling(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Profiling.ProfileTypes = []string{"cpu", "heapish"}
	require.NoError(t, Validate(cfg), "disabled profiling is not checked")

	cfg.Telemetry.Profiling.Enabled = true
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"heapish"`)

	cfg.Telemetry.Profiling.ProfileTypes = []string{"cpu", "goroutines"}
	cfg.Telemetry.Profiling.Endpoint = ""
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profiling.endpoint")
}

func TestValidate_SharedStorageDirectory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.TrashDir = "./uploads"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.upload_dir and storage.trash_dir")
}

func TestValidate_PasswordHash(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.PasswordHash = "plaintext"

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrInvalidHash)

	hash, err := session.HashPassword("correct horse")
	require.NoError(t, err)
	cfg.Auth.Password = ""
	cfg.Auth.PasswordHash = hash
	assert.NoError(t, Validate(cfg))
}

func TestValidate_PortCollisions(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = cfg.Server.Port
	require.NoError(t, Validate(cfg), "disabled listeners do not collide")

	cfg.Metrics.Enabled = true
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port and metrics.port")

	enabled := true
	cfg.Metrics.Port = 9090
	cfg.API.Enabled = &enabled
	cfg.API.Port = 9090
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.port and api.port")
}
