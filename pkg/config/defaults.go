package config

import (
	"strings"
	"time"

	"github.com/marmos91/fileshare/internal/bytesize"
	"github.com/marmos91/fileshare/pkg/adapter/gateway"
	"github.com/marmos91/fileshare/pkg/api"
)

// Default credential accepted by a fresh install.
const (
	DefaultUsername = "admin"
	DefaultPassword = "password123"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyAuthDefaults(&cfg.Auth)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyClientDefaults(&cfg.Client)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = gateway.DefaultShutdownTimeout
	}
}

// applyServerDefaults sets file port defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.SniffBufferSize == 0 {
		cfg.SniffBufferSize = gateway.DefaultSniffBufferSize
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = gateway.DefaultMaxHeaderBytes
	}
	if cfg.MaxFormBytes == 0 {
		cfg.MaxFormBytes = gateway.DefaultMaxFormBytes
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = gateway.DefaultChunkSize
	}

	t := &cfg.Timeouts
	if t.Initial == 0 {
		t.Initial = gateway.DefaultInitialTimeout
	}
	if t.HeaderIdle == 0 {
		t.HeaderIdle = gateway.DefaultHeaderIdle
	}
	if t.Command == 0 {
		t.Command = gateway.DefaultCommandTimeout
	}
	if t.UploadIdle == 0 {
		t.UploadIdle = gateway.DefaultUploadIdle
	}
	if t.BodyIdle == 0 {
		t.BodyIdle = gateway.DefaultBodyIdle
	}
	if t.Write == 0 {
		t.Write = gateway.DefaultWriteTimeout
	}
}

// applyStorageDefaults sets the area directories, relative to the working
// directory of the server.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.TrashDir == "" {
		cfg.TrashDir = "trash"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "www"
	}
}

// applyAuthDefaults fills the credential. The default password applies
// only when no hash is configured.
func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}
	if cfg.Password == "" && cfg.PasswordHash == "" {
		cfg.Password = DefaultPassword
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets health API defaults. The API stays disabled unless
// enabled explicitly.
func applyAPIDefaults(cfg *api.APIConfig) {
	if cfg.Enabled == nil {
		disabled := false
		cfg.Enabled = &disabled
	}
	cfg.ApplyDefaults()
}

// applyClientDefaults sets native client defaults.
func applyClientDefaults(cfg *ClientConfig) {
	if cfg.Address == "" {
		cfg.Address = "localhost:8080"
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "downloads"
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 4 * bytesize.KiB
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.AckTimeout == 0 {
		cfg.AckTimeout = 5 * time.Second
	}
	if cfg.DownloadIdle == 0 {
		cfg.DownloadIdle = 2 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{
			Insecure: true,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
