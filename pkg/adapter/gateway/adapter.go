// Package gateway is the file port: one TCP listener whose connections are
// sniffed and handed to either the command protocol or the HTTP handler.
package gateway

import (
	"context"
	"fmt"
	"net"

	"github.com/marmos91/fileshare/internal/adapter/command"
	"github.com/marmos91/fileshare/internal/adapter/web"
	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/pkg/adapter"
	"github.com/marmos91/fileshare/pkg/metrics"
	"github.com/marmos91/fileshare/pkg/storage"
)

// Name is the adapter name used in logs.
const Name = "fileshare"

// Adapter serves the file port.
//
// Architecture:
// Adapter embeds BaseAdapter for the listener, shutdown and connection
// tracking, with MaxConnections fixed at 1: the next connection is not
// accepted until the current one has been answered and closed. Each
// accepted connection becomes a Connection, which sniffs the first bytes and
// dispatches to the command or web handler.
type Adapter struct {
	*adapter.BaseAdapter

	config   Config
	store    *storage.Store
	metrics  metrics.GatewayMetrics
	commands *command.Handler
	web      *web.Handler
}

// New creates a stopped adapter. m may be nil.
//
// Panics if config validation fails.
func New(config Config, store *storage.Store, auth adapter.CredentialChecker, m metrics.GatewayMetrics) *Adapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid gateway config: %v", err))
	}

	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:        config.BindAddress,
		Port:               config.Port,
		MaxConnections:     1,
		ShutdownTimeout:    config.Timeouts.Shutdown,
		MetricsLogInterval: config.MetricsLogInterval,
	}, Name)
	if m != nil {
		base.Metrics = m
	}

	logger.Debug("File port configuration",
		"chunk_size", config.ChunkSize,
		"sniff_buffer_size", config.SniffBufferSize,
		"initial_timeout", config.Timeouts.Initial,
		"end_upload_on_short_read", config.EndUploadOnShortRead)

	return &Adapter{
		BaseAdapter: base,
		config:      config,
		store:       store,
		metrics:     m,
		commands:    command.NewHandler(store, auth, m, config.commandConfig()),
		web:         web.NewHandler(store, auth, m, config.webConfig()),
	}
}

// Serve accepts connections until ctx is cancelled or Stop is called.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a, nil, nil)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return NewConnection(a, conn)
}

var _ adapter.Adapter = (*Adapter)(nil)
