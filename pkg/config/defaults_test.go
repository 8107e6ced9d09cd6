package config

import (
	"testing"
	"time"

	"github.com/marmos91/fileshare/internal/bytesize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
}

func TestApplyDefaults_NormalizesLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "warn"}}
	ApplyDefaults(cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	s := cfg.Server
	assert.Equal(t, "", s.BindAddress)
	assert.Equal(t, 8080, s.Port)
	assert.Equal(t, 8*bytesize.KiB, s.SniffBufferSize)
	assert.Equal(t, 64*bytesize.KiB, s.MaxHeaderBytes)
	assert.Equal(t, 64*bytesize.KiB, s.MaxFormBytes)
	assert.Equal(t, 4*bytesize.KiB, s.ChunkSize)
	assert.False(t, s.EndUploadOnShortRead)

	assert.Equal(t, ServerTimeouts{
		Initial:    30 * time.Second,
		HeaderIdle: time.Second,
		Command:    30 * time.Second,
		UploadIdle: 2 * time.Second,
		BodyIdle:   5 * time.Second,
		Write:      30 * time.Second,
	}, s.Timeouts)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestApplyDefaults_StorageAndAuth(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, StorageConfig{UploadDir: "uploads", TrashDir: "trash", StaticDir: "www"}, cfg.Storage)
	assert.Equal(t, "admin", cfg.Auth.Username)
	assert.Equal(t, "password123", cfg.Auth.Password)
	assert.Empty(t, cfg.Auth.PasswordHash)
}

func TestApplyDefaults_HashSuppressesDefaultPassword(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{PasswordHash: "$2a$10$abcdefghijklmnopqrstuv"}}
	ApplyDefaults(cfg)

	assert.Empty(t, cfg.Auth.Password)
}

func TestApplyDefaults_OptionalServers(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	require.NotNil(t, cfg.API.Enabled)
	assert.False(t, cfg.API.IsEnabled())
	assert.Equal(t, 8081, cfg.API.Port)
	assert.Equal(t, 10*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.API.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.API.IdleTimeout)
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.False(t, cfg.Telemetry.Profiling.Enabled)
	assert.Equal(t, "http://localhost:4040", cfg.Telemetry.Profiling.Endpoint)
	assert.Contains(t, cfg.Telemetry.Profiling.ProfileTypes, "cpu")
}

func TestApplyDefaults_Client(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, ClientConfig{
		Address:      "localhost:8080",
		DownloadDir:  "downloads",
		ChunkSize:    4 * bytesize.KiB,
		DialTimeout:  5 * time.Second,
		AckTimeout:   5 * time.Second,
		DownloadIdle: 2 * time.Second,
	}, cfg.Client)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	enabled := true
	cfg := &Config{
		Logging:         LoggingConfig{Level: "ERROR", Format: "json", Output: "/tmp/fileshare.log"},
		ShutdownTimeout: time.Minute,
		Server: ServerConfig{
			Port:      2121,
			ChunkSize: 1024,
			Timeouts:  ServerTimeouts{UploadIdle: 100 * time.Millisecond},
		},
		Storage: StorageConfig{UploadDir: "in"},
		Auth:    AuthConfig{Username: "bob", Password: "hunter22"},
	}
	cfg.API.Enabled = &enabled
	cfg.API.Port = 7000
	ApplyDefaults(cfg)

	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/fileshare.log", cfg.Logging.Output)
	assert.Equal(t, time.Minute, cfg.ShutdownTimeout)
	assert.Equal(t, 2121, cfg.Server.Port)
	assert.Equal(t, bytesize.ByteSize(1024), cfg.Server.ChunkSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Server.Timeouts.UploadIdle)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeouts.Initial)
	assert.Equal(t, "in", cfg.Storage.UploadDir)
	assert.Equal(t, "trash", cfg.Storage.TrashDir)
	assert.Equal(t, "bob", cfg.Auth.Username)
	assert.Equal(t, "hunter22", cfg.Auth.Password)
	assert.True(t, cfg.API.IsEnabled())
	assert.Equal(t, 7000, cfg.API.Port)
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, Validate(GetDefaultConfig()))
}
