package gateway

import (
	"context"
	"errors"
	"net"
	"runtime/debug"

	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/fileshare/internal/adapter/command"
	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/internal/protocol/framing"
	"github.com/marmos91/fileshare/internal/telemetry"
	"github.com/marmos91/fileshare/pkg/session"
)

// Connection serves one accepted connection: sniff, dispatch, close.
type Connection struct {
	server *Adapter
	conn   net.Conn
}

// NewConnection creates a handler for conn.
func NewConnection(server *Adapter, conn net.Conn) *Connection {
	return &Connection{server: server, conn: conn}
}

// Serve runs the exchange and closes the connection on every path,
// including a panic in a protocol handler.
func (c *Connection) Serve(ctx context.Context) {
	sess := session.New(c.conn.RemoteAddr())

	ctx, span := telemetry.StartConnectionSpan(ctx, sess.ID, sess.RemoteAddr, telemetry.ClientIP(sess.ClientIP))
	defer span.End()

	lc := logger.NewLogContext(sess.ID, sess.ClientIP).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	defer c.handleConnectionClose(ctx, sess)

	r := framing.NewReader(c.conn, c.server.config.ChunkSize)
	r.SetContext(ctx)

	proto, err := c.sniff(ctx, r)
	if err != nil {
		logger.DebugCtx(ctx, "Initial read failed", logger.Err(err))
		span.SetStatus(codes.Error, err.Error())
		return
	}

	sess.SetProtocol(proto)
	span.SetAttributes(telemetry.Protocol(string(proto)))
	if c.server.metrics != nil {
		c.server.metrics.RecordProtocol(string(proto))
	}

	ctx = logger.WithContext(ctx, lc.WithProtocol(string(proto)))

	switch proto {
	case session.ProtocolUnknown:
		logger.DebugCtx(ctx, "Connection sent nothing, closing")
		return
	case session.ProtocolHTTP:
		err = c.server.web.Serve(ctx, sess, c.conn, r)
	default:
		err = c.server.commands.Serve(ctx, sess, c.conn, r)
	}

	switch {
	case err == nil:
	case errors.Is(err, command.ErrAuthFailed), errors.Is(err, command.ErrNoCommand):
		span.SetAttributes(telemetry.Result(err.Error()))
	default:
		logger.DebugCtx(ctx, "Connection ended with error", logger.Err(err))
		span.SetStatus(codes.Error, err.Error())
	}
}

// sniff performs the single initial read and classifies it.
func (c *Connection) sniff(ctx context.Context, r *framing.Reader) (session.Protocol, error) {
	_, span := telemetry.StartSpan(ctx, telemetry.SpanSniff)
	defer span.End()

	n, err := r.Fill(c.server.config.SniffBufferSize, c.server.config.Timeouts.Initial)
	span.SetAttributes(telemetry.Bytes(int64(n)))
	if err != nil {
		return session.ProtocolUnknown, err
	}

	proto := Sniff(r.Buffered())
	span.SetAttributes(telemetry.Protocol(string(proto)))
	return proto, nil
}

func (c *Connection) handleConnectionClose(ctx context.Context, sess *session.Session) {
	if r := recover(); r != nil {
		logger.ErrorCtx(ctx, "Panic in connection handler",
			"error", r,
			"stack", string(debug.Stack()))
	}

	_ = c.conn.Close()

	age := sess.Age()
	if c.server.metrics != nil {
		c.server.metrics.RecordDuration(string(sess.Protocol()), "connection", age)
	}
	logger.DebugCtx(ctx, "Connection closed",
		logger.Protocol(string(sess.Protocol())),
		logger.Username(sess.Username()),
		logger.DurationMs(logger.Duration(sess.StartedAt)))
}
