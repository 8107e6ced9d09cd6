package gateway

import (
	"fmt"
	"time"

	"github.com/marmos91/fileshare/internal/adapter/command"
	"github.com/marmos91/fileshare/internal/adapter/web"
)

// Defaults applied by New to zero fields.
const (
	DefaultSniffBufferSize = 8 << 10
	DefaultMaxHeaderBytes  = 64 << 10
	DefaultMaxFormBytes    = 64 << 10
	DefaultChunkSize       = 4 << 10

	DefaultInitialTimeout  = 30 * time.Second
	DefaultHeaderIdle      = time.Second
	DefaultCommandTimeout  = 30 * time.Second
	DefaultUploadIdle      = 2 * time.Second
	DefaultBodyIdle        = 5 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Timeouts groups every wait the file port performs on a peer.
type Timeouts struct {
	// Initial bounds the wait for the first bytes of a connection.
	Initial time.Duration

	// HeaderIdle ends HTTP header accumulation after this much silence.
	HeaderIdle time.Duration

	// Command bounds the wait for the command line after AUTH OK.
	Command time.Duration

	// UploadIdle ends a command-protocol upload after this much silence.
	UploadIdle time.Duration

	// BodyIdle ends an HTTP request body after this much silence.
	BodyIdle time.Duration

	// Write bounds each write to the peer.
	Write time.Duration

	// Shutdown bounds the wait for the in-flight connection on shutdown.
	Shutdown time.Duration
}

// Config holds the file port settings.
//
// Default values (applied by New if zero):
//   - SniffBufferSize: 8KiB, MaxHeaderBytes: 64KiB, MaxFormBytes: 64KiB
//   - ChunkSize: 4KiB
//   - Timeouts: initial 30s, header idle 1s, command 30s, upload idle 2s,
//     body idle 5s, write 30s, shutdown 10s
type Config struct {
	// BindAddress is the IP to bind; empty binds all interfaces.
	BindAddress string

	// Port is the TCP port. 0 picks a free port.
	Port int

	SniffBufferSize int
	MaxHeaderBytes  int
	MaxFormBytes    int64
	ChunkSize       int

	// EndUploadOnShortRead also ends a command-protocol upload at the first
	// read shorter than ChunkSize.
	EndUploadOnShortRead bool

	Timeouts Timeouts

	// MetricsLogInterval enables a periodic connection count log line.
	MetricsLogInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.SniffBufferSize <= 0 {
		c.SniffBufferSize = DefaultSniffBufferSize
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if c.MaxFormBytes <= 0 {
		c.MaxFormBytes = DefaultMaxFormBytes
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}

	t := &c.Timeouts
	if t.Initial == 0 {
		t.Initial = DefaultInitialTimeout
	}
	if t.HeaderIdle == 0 {
		t.HeaderIdle = DefaultHeaderIdle
	}
	if t.Command == 0 {
		t.Command = DefaultCommandTimeout
	}
	if t.UploadIdle == 0 {
		t.UploadIdle = DefaultUploadIdle
	}
	if t.BodyIdle == 0 {
		t.BodyIdle = DefaultBodyIdle
	}
	if t.Write == 0 {
		t.Write = DefaultWriteTimeout
	}
	if t.Shutdown == 0 {
		t.Shutdown = DefaultShutdownTimeout
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Timeouts.Shutdown < 0 {
		return fmt.Errorf("invalid shutdown timeout %s", c.Timeouts.Shutdown)
	}
	return nil
}

func (c *Config) commandConfig() command.Config {
	return command.Config{
		CommandTimeout:       c.Timeouts.Command,
		UploadIdle:           c.Timeouts.UploadIdle,
		WriteTimeout:         c.Timeouts.Write,
		EndUploadOnShortRead: c.EndUploadOnShortRead,
	}
}

func (c *Config) webConfig() web.Config {
	return web.Config{
		HeaderIdle:     c.Timeouts.HeaderIdle,
		BodyIdle:       c.Timeouts.BodyIdle,
		WriteTimeout:   c.Timeouts.Write,
		MaxHeaderBytes: c.MaxHeaderBytes,
		MaxFormBytes:   c.MaxFormBytes,
	}
}
