package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/internal/protocol/command"
	"github.com/marmos91/fileshare/internal/protocol/httplite"
	"github.com/marmos91/fileshare/internal/telemetry"
	"github.com/marmos91/fileshare/pkg/adapter"
	"github.com/marmos91/fileshare/pkg/metrics"
	"github.com/marmos91/fileshare/pkg/storage"
)

// handleLoginPage serves www/login.html when present, else the built-in page.
func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	f, size, contentType, err := h.store.OpenStatic("/login.html")
	if err != nil {
		writeHTML(w, http.StatusOK, loginPage)
		return
	}
	defer f.Close()
	h.sendFile(w, r, f, size, contentType, nil)
}

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartSpan(r.Context(), telemetry.SpanAuth)
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, h.config.MaxFormBytes))
	if err != nil {
		logger.DebugCtx(ctx, "Login body read failed", logger.Err(err))
	}

	user, pass := httplite.ParseCredentials(r.Header.Get("Content-Type"), string(body))
	ok := user != "" && h.auth.Authenticate(user, pass)

	span.SetAttributes(telemetry.Protocol(protocolName), telemetry.Username(user), telemetry.AuthOK(ok))
	if h.metrics != nil {
		h.metrics.RecordAuth(protocolName, ok)
	}

	if !ok {
		logger.InfoCtx(ctx, "Login failed", logger.Username(user))
		writeText(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	if sess := sessionFrom(ctx); sess != nil {
		sess.MarkAuthenticated(user)
	}
	logger.InfoCtx(ctx, "Login successful", logger.Username(user))
	w.Header().Set("Set-Cookie", httplite.SetSessionCookie)
	writeHTML(w, http.StatusOK, []byte(loginSuccessPage))
}

func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Set-Cookie", httplite.ClearSessionCookie)
	writeHTML(w, http.StatusOK, []byte(logoutPage))
}

// handleRoot redirects anonymous visitors to the login page and serves the
// UI's index.html to everyone else.
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if !httplite.HasSessionCookie(r.Header.Get("Cookie")) {
		w.Header().Set("Content-Type", httplite.ContentTypeHTML)
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusFound)
		return
	}
	h.serveStatic(w, r, "/index.html")
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.writeListing(w, r, storage.AreaUpload, command.ListingHeaderFiles)
}

func (h *Handler) handleListTrash(w http.ResponseWriter, r *http.Request) {
	h.writeListing(w, r, storage.AreaTrash, command.ListingHeaderTrash)
}

func (h *Handler) writeListing(w http.ResponseWriter, r *http.Request, area storage.Area, header string) {
	names, err := h.store.Names(area)
	if err != nil {
		logger.WarnCtx(r.Context(), "Listing failed", logger.Area(area.String()), logger.Err(err))
		names = nil
	}

	writeText(w, http.StatusOK, command.FormatListing(header, names))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := httplite.ParseQuery(r.URL.RawQuery).Get("file")
	if name == "" {
		writeText(w, http.StatusBadRequest, msgMissingFileParam)
		return
	}

	f, size, err := h.store.Open(storage.AreaUpload, name)
	if err != nil {
		writeError(w, r, downloadError(err), "Download open failed", logger.Filename(name))
		return
	}
	defer f.Close()

	h.sendFile(w, r, f, size, httplite.ContentTypeBytes, map[string]string{
		"Content-Disposition": contentDisposition(name),
	})
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// contentDisposition names the download as a quoted-string. Open has already
// rejected names with control bytes.
func contentDisposition(name string) string {
	return `attachment; filename="` + quoteEscaper.Replace(name) + `"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := h.filenameParam(w, r)
	if !ok {
		return
	}

	replaced := h.store.Exists(storage.AreaUpload, name)
	f, err := h.store.Create(name)
	if err != nil {
		logger.WarnCtx(ctx, "Upload rejected", logger.Filename(name), logger.Err(err))
		writeText(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}

	n, err := h.store.ReceiveFile(f, r.Body)
	telemetry.SetAttributes(ctx, telemetry.Filename(name), telemetry.Bytes(n))
	if h.metrics != nil {
		h.metrics.RecordBytes(protocolName, metrics.DirectionIn, n)
	}
	if err != nil {
		logger.WarnCtx(ctx, "Upload interrupted", logger.Filename(name), logger.Bytes(n), logger.Err(err))
		writeText(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}

	if err := h.store.Supersede(name); err != nil {
		logger.WarnCtx(ctx, "Could not drop trashed copy", logger.Filename(name), logger.Err(err))
	}
	logger.InfoCtx(ctx, "File uploaded", logger.Filename(name), logger.Bytes(n), "replaced", replaced)
	writeText(w, http.StatusOK, msgUploaded)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.fileAction(w, r, h.store.MoveToTrash, msgTrashed, msgTrashFailed)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	h.fileAction(w, r, h.store.Restore, msgRestored, msgRestoreFailed)
}

func (h *Handler) handleDeletePermanent(w http.ResponseWriter, r *http.Request) {
	h.fileAction(w, r, h.store.DeletePermanent, msgDeleted, msgDeleteFailed)
}

// fileAction runs a single-file operation named by ?filename= and maps the
// outcome to 200 or 500.
func (h *Handler) fileAction(w http.ResponseWriter, r *http.Request, action func(string) error, okMsg, failMsg string) {
	name, ok := h.filenameParam(w, r)
	if !ok {
		return
	}
	if err := action(name); err != nil {
		logger.InfoCtx(r.Context(), "File operation failed", logger.Filename(name), logger.Err(err))
		writeText(w, http.StatusInternalServerError, failMsg)
		return
	}
	logger.InfoCtx(r.Context(), "File operation complete", logger.Filename(name))
	writeText(w, http.StatusOK, okMsg)
}

func (h *Handler) handleEmptyTrash(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.EmptyTrash()
	if err != nil {
		logger.WarnCtx(r.Context(), "Emptying trash stopped early", logger.Count(n), logger.Err(err))
	}
	telemetry.SetAttributes(r.Context(), telemetry.Count(n))
	writeText(w, http.StatusOK, fmt.Sprintf(msgEmptyTrashTemplate, n))
}

// fallback handles every request the route table does not name. It runs
// behind requireSession.
func (h *Handler) fallback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveStatic(w, r, r.URL.Path)
	case http.MethodPost:
		writeText(w, http.StatusNotFound, msgUnknownPOST)
	default:
		writeText(w, http.StatusBadRequest, msgUnsupportedMethod)
	}
}

func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request, urlPath string) {
	f, size, contentType, err := h.store.OpenStatic(urlPath)
	if err != nil {
		writeError(w, r, staticError(err), "Static file open failed", logger.Path(urlPath))
		return
	}
	defer f.Close()
	h.sendFile(w, r, f, size, contentType, nil)
}

// sendFile streams f with a declared Content-Length. A failed write ends the
// response silently: the peer is gone.
func (h *Handler) sendFile(w http.ResponseWriter, r *http.Request, f *os.File, size int64, contentType string, extra map[string]string) {
	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	hdr.Set("Content-Length", strconv.FormatInt(size, 10))
	for k, v := range extra {
		hdr.Set(k, v)
	}
	w.WriteHeader(http.StatusOK)

	n, err := h.store.SendFile(w, f)
	if h.metrics != nil {
		h.metrics.RecordBytes(protocolName, metrics.DirectionOut, n)
	}
	telemetry.SetAttributes(r.Context(), telemetry.Filename(filepath.Base(f.Name())), telemetry.Bytes(n))
	if err != nil {
		logger.DebugCtx(r.Context(), "Response aborted", logger.Bytes(n), logger.Err(err))
	}
}

func (h *Handler) filenameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := httplite.ParseQuery(r.URL.RawQuery).Get("filename")
	if name == "" {
		writeText(w, http.StatusBadRequest, msgMissingFilename)
		return "", false
	}
	return name, true
}

// downloadError translates an upload area open failure.
func downloadError(err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
		return adapter.NewProtocolError(http.StatusNotFound, msgFileNotFound, err)
	}
	return adapter.NewProtocolError(http.StatusInternalServerError, msgUnableToOpen, err)
}

// staticError translates a static area open failure.
func staticError(err error) error {
	switch {
	case errors.Is(err, storage.ErrForbidden):
		return adapter.NewProtocolError(http.StatusForbidden, msgForbidden, err)
	case errors.Is(err, storage.ErrNotFound):
		return adapter.NewProtocolError(http.StatusNotFound, msgNotFound, err)
	}
	return adapter.NewProtocolError(http.StatusInternalServerError, msgInternalServerError, err)
}

// writeError replies with the status and text carried by err. Server-side
// failures are logged with attrs.
func writeError(w http.ResponseWriter, r *http.Request, err error, logMsg string, attrs ...any) {
	status := adapter.StatusOf(err)
	msg := msgInternalServerError
	var pe *adapter.ProtocolError
	if errors.As(err, &pe) {
		msg = pe.Message
	}
	if status >= http.StatusInternalServerError {
		logger.WarnCtx(r.Context(), logMsg, append(attrs, logger.Err(err))...)
	}
	writeText(w, status, msg)
}
