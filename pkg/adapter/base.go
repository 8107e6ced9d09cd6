package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/fileshare/internal/logger"
)

// ConnectionHandler serves one accepted connection. Serve blocks until the
// exchange is over; the base adapter closes nothing itself, so handlers own
// the connection they were given.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory wraps accepted connections in protocol handlers.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// BaseConfig holds the listener settings shared by adapters.
type BaseConfig struct {
	// BindAddress is the IP to bind; empty binds all interfaces.
	BindAddress string

	// Port is the TCP port. 0 picks a free port (see GetListenerAddr).
	Port int

	// MaxConnections bounds how many connections are served at once.
	// 1 serialises the port: the next Accept waits for the current handler.
	// 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds the wait for in-flight connections on shutdown.
	ShutdownTimeout time.Duration

	// MetricsLogInterval enables a periodic "active connections" log line.
	MetricsLogInterval time.Duration
}

// MetricsRecorder receives connection lifecycle events. A nil recorder
// disables collection.
type MetricsRecorder interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// OnConnectionClose runs when a connection's handler returns, before its
// slot is released.
type OnConnectionClose func(addr string)

// BaseAdapter owns a TCP listener, the accept loop, connection tracking and
// graceful shutdown. Protocol adapters embed it and supply a factory.
type BaseAdapter struct {
	Config  BaseConfig
	Metrics MetricsRecorder

	name string

	listenerMu    sync.RWMutex
	listener      net.Listener
	ListenerReady chan struct{}
	readyOnce     sync.Once

	Shutdown     chan struct{}
	shutdownOnce sync.Once

	// ShutdownCtx is handed to every handler and cancelled on shutdown.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc

	slots       chan struct{}
	inflight    sync.WaitGroup
	ConnCount   atomic.Int32
	connections sync.Map // remote addr -> net.Conn
}

// NewBaseAdapter creates a stopped adapter.
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var slots chan struct{}
	if config.MaxConnections > 0 {
		slots = make(chan struct{}, config.MaxConnections)
	}
	logger.Debug(protocol+" connection limit", "max_connections", config.MaxConnections)

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseAdapter{
		Config:         config,
		name:           protocol,
		ListenerReady:  make(chan struct{}),
		Shutdown:       make(chan struct{}),
		ShutdownCtx:    ctx,
		CancelRequests: cancel,
		slots:          slots,
	}
}

func (b *BaseAdapter) markReady() {
	b.readyOnce.Do(func() { close(b.ListenerReady) })
}

// ServeWithFactory listens and accepts until ctx is cancelled or Stop is
// called. preAccept may veto a connection (it is then closed). onClose runs
// after each handler returns.
func (b *BaseAdapter) ServeWithFactory(
	ctx context.Context,
	factory ConnectionFactory,
	preAccept func(net.Conn) bool,
	onClose OnConnectionClose,
) error {
	addr := net.JoinHostPort(b.Config.BindAddress, fmt.Sprint(b.Config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		b.markReady()
		return fmt.Errorf("failed to create %s listener on %s: %w", b.name, addr, err)
	}

	b.listenerMu.Lock()
	b.listener = ln
	b.listenerMu.Unlock()
	b.markReady()

	logger.Info(b.name+" server listening", logger.Addr(ln.Addr().String()))

	go func() {
		select {
		case <-ctx.Done():
			logger.Info(b.name+" shutdown signal received", logger.Err(ctx.Err()))
			b.initiateShutdown()
		case <-b.Shutdown:
		}
	}()

	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics(ctx)
	}

	for {
		if b.slots != nil {
			select {
			case b.slots <- struct{}{}:
			case <-b.Shutdown:
				return b.gracefulShutdown()
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			b.release()
			select {
			case <-b.Shutdown:
				return b.gracefulShutdown()
			default:
				logger.Debug("Error accepting "+b.name+" connection", logger.Err(err))
				continue
			}
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		if preAccept != nil && !preAccept(conn) {
			_ = conn.Close()
			b.release()
			continue
		}

		b.track(conn)
		handler := factory.NewConnection(conn)

		go func(remote string) {
			defer b.untrack(remote, onClose)
			handler.Serve(b.ShutdownCtx)
		}(conn.RemoteAddr().String())
	}
}

func (b *BaseAdapter) release() {
	if b.slots != nil {
		<-b.slots
	}
}

func (b *BaseAdapter) track(conn net.Conn) {
	b.inflight.Add(1)
	active := b.ConnCount.Add(1)
	b.connections.Store(conn.RemoteAddr().String(), conn)

	if b.Metrics != nil {
		b.Metrics.RecordConnectionAccepted()
		b.Metrics.SetActiveConnections(active)
	}
	logger.Debug(b.name+" connection accepted", logger.ClientIP(conn.RemoteAddr().String()), "active", active)
}

func (b *BaseAdapter) untrack(remote string, onClose OnConnectionClose) {
	if onClose != nil {
		onClose(remote)
	}
	b.connections.Delete(remote)
	active := b.ConnCount.Add(-1)
	b.inflight.Done()
	b.release()

	if b.Metrics != nil {
		b.Metrics.RecordConnectionClosed()
		b.Metrics.SetActiveConnections(active)
	}
	logger.Debug(b.name+" connection closed", logger.ClientIP(remote), "active", active)
}

// initiateShutdown closes the listener, nudges blocked reads with a short
// deadline and cancels ShutdownCtx. It runs at most once.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.name+" listener", logger.Err(err))
			}
		}
		b.listenerMu.Unlock()

		b.interruptBlockingReads()
		b.CancelRequests()
	})
}

func (b *BaseAdapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	b.connections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline", logger.ClientIP(key.(string)), logger.Err(err))
			}
		}
		return true
	})
}

func (b *BaseAdapter) waitInflight() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	return done
}

// gracefulShutdown waits up to ShutdownTimeout, then force-closes whatever
// is still open and reports it as an error.
func (b *BaseAdapter) gracefulShutdown() error {
	logger.Info(b.name+" graceful shutdown: waiting for active connections",
		"active", b.ConnCount.Load(), "timeout", b.Config.ShutdownTimeout)

	select {
	case <-b.waitInflight():
		logger.Info(b.name + " graceful shutdown complete")
		return nil
	case <-time.After(b.Config.ShutdownTimeout):
		remaining := b.ConnCount.Load()
		logger.Warn(b.name+" shutdown timeout exceeded, forcing closure", "active", remaining)
		b.forceCloseConnections()
		return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.name, remaining)
	}
}

func (b *BaseAdapter) forceCloseConnections() {
	closed := 0
	b.connections.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", logger.ClientIP(key.(string)), logger.Err(err))
			return true
		}
		closed++
		if b.Metrics != nil {
			b.Metrics.RecordConnectionForceClosed()
		}
		return true
	})
	if closed > 0 {
		logger.Info("Force-closed connections", logger.Count(closed))
	}
}

// Stop begins shutdown and waits for in-flight connections until ctx ends.
// A nil ctx falls back to ShutdownTimeout. Safe to call more than once.
func (b *BaseAdapter) Stop(ctx context.Context) error {
	b.initiateShutdown()
	if ctx == nil {
		return b.gracefulShutdown()
	}

	select {
	case <-b.waitInflight():
		return nil
	case <-ctx.Done():
		logger.Warn(b.name+" shutdown context cancelled", "active", b.ConnCount.Load(), logger.Err(ctx.Err()))
		return ctx.Err()
	}
}

func (b *BaseAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.Shutdown:
			return
		case <-ticker.C:
			logger.Info(b.name+" metrics", "active_connections", b.ConnCount.Load())
		}
	}
}

// GetActiveConnections returns the number of connections being served.
func (b *BaseAdapter) GetActiveConnections() int32 {
	return b.ConnCount.Load()
}

// GetListenerAddr blocks until the listener is up and returns its address,
// or "" if listening failed.
func (b *BaseAdapter) GetListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// IsListening reports whether the listener is open.
func (b *BaseAdapter) IsListening() bool {
	select {
	case <-b.Shutdown:
		return false
	default:
	}
	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	return b.listener != nil
}

// Port returns the configured port.
func (b *BaseAdapter) Port() int { return b.Config.Port }

// Protocol returns the adapter name used in logs.
func (b *BaseAdapter) Protocol() string { return b.name }
