package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/internal/protocol/httplite"
	"github.com/marmos91/fileshare/internal/telemetry"
)

// newRouter wires the route table. Routes match exactly; any path or method
// not listed falls through to h.fallback, which serves static files for GET.
//
// Public:
//   - ANY /login, /login.html, /logout
//   - POST /auth
//   - ANY / (302 to /login without a session cookie)
//
// Cookie-gated:
//   - GET /list, /list_trash, /download
//   - POST /upload, /delete, /restore, /delete_permanent, /empty_trash
func (h *Handler) newRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.HandleFunc("/login", h.handleLoginPage)
	r.HandleFunc("/login.html", h.handleLoginPage)
	r.Post("/auth", h.handleAuth)
	r.HandleFunc("/logout", h.handleLogout)
	r.HandleFunc("/", h.handleRoot)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Get("/list", h.handleList)
		r.Get("/list_trash", h.handleListTrash)
		r.Get("/download", h.handleDownload)

		r.Post("/upload", h.handleUpload)
		r.Post("/delete", h.handleDelete)
		r.Post("/restore", h.handleRestore)
		r.Post("/delete_permanent", h.handleDeletePermanent)
		r.Post("/empty_trash", h.handleEmptyTrash)
	})

	r.NotFound(h.requireSession(http.HandlerFunc(h.fallback)).ServeHTTP)
	r.MethodNotAllowed(h.requireSession(http.HandlerFunc(h.fallback)).ServeHTTP)

	return r
}

// observe traces, logs and counts every routed request.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if lc := logger.FromContext(ctx); lc != nil {
			ctx = logger.WithContext(ctx, lc.WithOperation(r.Method+" "+r.URL.Path))
		}
		ctx, span := telemetry.StartHTTPSpan(ctx, r.Method, r.URL.Path)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := routeLabel(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(telemetry.HTTPRoute(route), telemetry.HTTPStatus(status))

		h.recordRequest(route, status)
		if h.metrics != nil {
			h.metrics.RecordDuration(protocolName, route, time.Since(start))
		}
		logger.InfoCtx(ctx, "HTTP request",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Status(status),
			logger.Bytes(int64(ww.BytesWritten())),
			logger.DurationMs(logger.Duration(start)),
		)
	})
}

// routeLabel returns the matched pattern. Unmatched requests collapse into
// two labels so that metric cardinality stays bounded.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	if r.Method == http.MethodGet {
		return "static"
	}
	return "unmatched"
}

// requireSession answers 401 unless the request carries the session cookie.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httplite.HasSessionCookie(r.Header.Get("Cookie")) {
			writeHTML(w, http.StatusUnauthorized, []byte(unauthorizedPage))
			return
		}
		if sess := sessionFrom(r.Context()); sess != nil && !sess.IsAuthenticated() {
			sess.MarkAuthenticated("")
		}
		next.ServeHTTP(w, r)
	})
}
