package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/pkg/api/handlers"
	"github.com/marmos91/fileshare/pkg/storage"
)

const shutdownGrace = 5 * time.Second

// Server serves the health endpoints on their own port, apart from the
// file port.
//
// Endpoints:
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//   - GET /health/areas: Storage area usage
type Server struct {
	http   *http.Server
	config APIConfig

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}

	stopOnce sync.Once
}

// NewServer creates a stopped server. Defaults are applied so that a
// directly built config works too.
func NewServer(config APIConfig, store *storage.Store, listener handlers.Listener) *Server {
	config.ApplyDefaults()

	return &Server{
		http: &http.Server{
			Handler:      NewRouter(store, listener),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
		ready:  make(chan struct{}),
	}
}

// Start binds the port and serves until ctx is cancelled, then shuts down
// with a short grace period. It returns nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("API server failed to bind port %d: %w", s.config.Port, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	logger.Info("API server listening", "address", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Stop(stopCtx)
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once and concurrently
// with Start.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if err = s.http.Shutdown(ctx); err != nil {
			logger.Warn("API server shutdown incomplete", logger.Err(err))
			err = fmt.Errorf("API server shutdown: %w", err)
			return
		}
		logger.Info("API server stopped")
	})
	return err
}

// Ready is closed once the port is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Start has bound the port.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
