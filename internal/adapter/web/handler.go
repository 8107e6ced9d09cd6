// Package web serves the HTTP surface of the file port: a login page, a
// cookie-gated file API and the static browser UI, one request per
// connection.
package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/internal/protocol/framing"
	"github.com/marmos91/fileshare/internal/protocol/httplite"
	"github.com/marmos91/fileshare/pkg/adapter"
	"github.com/marmos91/fileshare/pkg/metrics"
	"github.com/marmos91/fileshare/pkg/session"
	"github.com/marmos91/fileshare/pkg/storage"
)

const protocolName = string(session.ProtocolHTTP)

// Config holds the limits and timeouts of the HTTP path.
type Config struct {
	// HeaderIdle ends header accumulation after this much silence.
	HeaderIdle time.Duration

	// BodyIdle ends a request body after this much silence.
	BodyIdle time.Duration

	// WriteTimeout bounds each write of the response. Zero disables it.
	WriteTimeout time.Duration

	// MaxHeaderBytes caps the request line plus headers.
	MaxHeaderBytes int

	// MaxFormBytes caps the login form body.
	MaxFormBytes int64
}

// Handler parses one request off a connection and routes it.
type Handler struct {
	store   *storage.Store
	auth    adapter.CredentialChecker
	metrics metrics.GatewayMetrics
	config  Config
	router  http.Handler
}

// NewHandler builds the handler and its router. m may be nil.
func NewHandler(store *storage.Store, auth adapter.CredentialChecker, m metrics.GatewayMetrics, cfg Config) *Handler {
	if cfg.MaxHeaderBytes <= 0 {
		cfg.MaxHeaderBytes = 64 << 10
	}
	if cfg.MaxFormBytes <= 0 {
		cfg.MaxFormBytes = 64 << 10
	}
	h := &Handler{store: store, auth: auth, metrics: m, config: cfg}
	h.router = h.newRouter()
	return h
}

type sessionKey struct{}

func withSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

// Serve reads the request head (and, through the request body, the payload)
// from r and writes exactly one response to conn.
func (h *Handler) Serve(ctx context.Context, sess *session.Session, conn net.Conn, r *framing.Reader) error {
	raw, err := r.ReadUntilIdle(h.config.HeaderIdle, h.config.MaxHeaderBytes, httplite.HeadComplete)
	if err != nil {
		return fmt.Errorf("read request head: %w", err)
	}

	head, rest, complete := httplite.SplitHead(raw)
	r.Unread(rest)

	w := httplite.NewResponseWriter(framing.NewDeadlineWriter(conn, h.config.WriteTimeout))

	rh, err := httplite.ParseHead(head)
	if err != nil || (!complete && rh.Method == http.MethodPost) {
		logger.DebugCtx(ctx, "Malformed request", "complete", complete, logger.Err(err))
		h.recordRequest("malformed", http.StatusBadRequest)
		writeText(w, http.StatusBadRequest, msgBadRequest)
		return w.Finish()
	}

	var body io.Reader = http.NoBody
	if n := rh.ContentLength(); n > 0 {
		body = r.LimitedBody(n, h.config.BodyIdle)
	}

	req := rh.NewRequest(withSession(ctx, sess), body, sess.RemoteAddr)
	h.router.ServeHTTP(w, req)

	// Whatever the route left unread is discarded, up to the form limit, so
	// the peer is not reset while it is still sending.
	_, _ = io.CopyN(io.Discard, req.Body, h.config.MaxFormBytes)

	return w.Finish()
}

func (h *Handler) recordRequest(route string, status int) {
	if h.metrics != nil {
		h.metrics.RecordHTTPRequest(route, status)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", httplite.ContentTypeText)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", httplite.ContentTypeHTML)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
