package config

import (
	"strconv"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/internal/telemetry"
	"github.com/marmos91/fileshare/pkg/adapter/gateway"
	"github.com/marmos91/fileshare/pkg/client"
	"github.com/marmos91/fileshare/pkg/session"
	"github.com/marmos91/fileshare/pkg/storage"
)

// ServiceName is reported to tracing and profiling backends.
const ServiceName = "fileshare"

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// TelemetryConfig returns the tracing settings tagged with version.
func (c *Config) TelemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// ProfilingConfig returns the Pyroscope settings tagged with version.
func (c *Config) ProfilingConfig(version string) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        c.Telemetry.Profiling.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Profiling.Endpoint,
		ProfileTypes:   append([]string(nil), c.Telemetry.Profiling.ProfileTypes...),
		Tags:           map[string]string{"port": strconv.Itoa(c.Server.Port)},
	}
}

// GatewayConfig returns the file port settings.
func (c *Config) GatewayConfig() gateway.Config {
	s := c.Server
	return gateway.Config{
		BindAddress:          s.BindAddress,
		Port:                 s.Port,
		SniffBufferSize:      s.SniffBufferSize.Int(),
		MaxHeaderBytes:       s.MaxHeaderBytes.Int(),
		MaxFormBytes:         s.MaxFormBytes.Int64(),
		ChunkSize:            s.ChunkSize.Int(),
		EndUploadOnShortRead: s.EndUploadOnShortRead,
		Timeouts: gateway.Timeouts{
			Initial:    s.Timeouts.Initial,
			HeaderIdle: s.Timeouts.HeaderIdle,
			Command:    s.Timeouts.Command,
			UploadIdle: s.Timeouts.UploadIdle,
			BodyIdle:   s.Timeouts.BodyIdle,
			Write:      s.Timeouts.Write,
			Shutdown:   c.ShutdownTimeout,
		},
	}
}

// StorageConfig returns the storage areas, streaming in server chunks.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		UploadDir: c.Storage.UploadDir,
		TrashDir:  c.Storage.TrashDir,
		StaticDir: c.Storage.StaticDir,
		ChunkSize: c.Server.ChunkSize.Int(),
	}
}

// Authenticator builds the credential checker for the file port.
func (c *Config) Authenticator() (*session.Authenticator, error) {
	return session.NewAuthenticator(c.Auth.Username, c.Auth.Password, c.Auth.PasswordHash)
}

// ClientConfig returns the native client settings. An empty client
// credential falls back to the server credential, which suits a client
// running next to its server; it cannot fall back to a password hash.
func (c *Config) ClientConfig() client.Config {
	cc := client.Config{
		Address:      c.Client.Address,
		Username:     c.Client.Username,
		Password:     c.Client.Password,
		ChunkSize:    c.Client.ChunkSize.Int(),
		DialTimeout:  c.Client.DialTimeout,
		AckTimeout:   c.Client.AckTimeout,
		DownloadIdle: c.Client.DownloadIdle,
	}
	if cc.Username == "" {
		cc.Username = c.Auth.Username
	}
	if cc.Password == "" && c.Auth.PasswordHash == "" {
		cc.Password = c.Auth.Password
	}
	return cc
}
