// Package command serves the line-oriented command protocol of the file
// port: one credential line, one command, then the connection closes.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/internal/protocol/command"
	"github.com/marmos91/fileshare/internal/protocol/framing"
	"github.com/marmos91/fileshare/internal/telemetry"
	"github.com/marmos91/fileshare/pkg/adapter"
	"github.com/marmos91/fileshare/pkg/metrics"
	"github.com/marmos91/fileshare/pkg/session"
	"github.com/marmos91/fileshare/pkg/storage"
)

// ErrAuthFailed is returned by Serve when the credential line is rejected.
var ErrAuthFailed = errors.New("authentication failed")

// ErrNoCommand is returned by Serve when the peer sent nothing after AUTH OK.
var ErrNoCommand = errors.New("no command received")

const protocolName = string(session.ProtocolCommand)

// Config holds the timing knobs of the command protocol.
type Config struct {
	// CommandTimeout bounds the wait for the command line after AUTH OK.
	CommandTimeout time.Duration

	// UploadIdle ends an upload body after this much silence.
	UploadIdle time.Duration

	// WriteTimeout bounds every reply and download write. Zero disables it.
	WriteTimeout time.Duration

	// EndUploadOnShortRead also ends an upload body at the first read shorter
	// than the chunk size.
	EndUploadOnShortRead bool
}

// Handler runs the command protocol state machine. It is stateless across
// connections and safe to share.
type Handler struct {
	store   *storage.Store
	auth    adapter.CredentialChecker
	metrics metrics.GatewayMetrics
	config  Config
}

// NewHandler creates a Handler. m may be nil.
func NewHandler(store *storage.Store, auth adapter.CredentialChecker, m metrics.GatewayMetrics, cfg Config) *Handler {
	return &Handler{store: store, auth: auth, metrics: m, config: cfg}
}

// Serve authenticates the credential line waiting in r, then reads and
// executes exactly one command. The caller closes conn afterwards.
func (h *Handler) Serve(ctx context.Context, sess *session.Session, conn net.Conn, r *framing.Reader) error {
	credentials := h.nextLine(r)
	if !h.authenticate(ctx, sess, credentials) {
		_ = h.reply(conn, command.ReplyAuthFailed)
		return ErrAuthFailed
	}
	if err := h.reply(conn, command.ReplyAuthOK); err != nil {
		return fmt.Errorf("send auth ack: %w", err)
	}

	if len(r.Buffered()) == 0 {
		if _, err := r.Fill(r.ChunkSize(), h.config.CommandTimeout); err != nil {
			return fmt.Errorf("read command: %w", err)
		}
	}
	line := h.nextLine(r)
	if line == "" {
		logger.DebugCtx(ctx, "No command after authentication")
		return ErrNoCommand
	}

	cmd, err := command.Parse(line)
	if err != nil {
		logger.DebugCtx(ctx, "Unknown command", "line", truncate(line, 64))
		h.recordCommand("unknown", metrics.ResultFailure)
		return h.reply(conn, command.ReplyUnknownCommand)
	}

	return h.dispatch(ctx, conn, r, cmd)
}

// nextLine consumes the pending bytes up to and including the first newline.
// Anything after it stays pending for the next stage.
func (h *Handler) nextLine(r *framing.Reader) string {
	buf := r.Buffered()
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		return string(r.Consume(i + 1))
	}
	return string(r.Take())
}

func (h *Handler) authenticate(ctx context.Context, sess *session.Session, line string) bool {
	_, span := telemetry.StartSpan(ctx, telemetry.SpanAuth)
	defer span.End()

	user, pass, ok := command.ParseCredentials(line)
	ok = ok && h.auth.Authenticate(user, pass)

	span.SetAttributes(telemetry.Protocol(protocolName), telemetry.Username(user), telemetry.AuthOK(ok))
	if h.metrics != nil {
		h.metrics.RecordAuth(protocolName, ok)
	}

	if !ok {
		logger.InfoCtx(ctx, "Authentication failed", logger.Username(user))
		return false
	}
	sess.MarkAuthenticated(user)
	logger.DebugCtx(ctx, "Authenticated", logger.Username(user))
	return true
}

func (h *Handler) dispatch(ctx context.Context, conn net.Conn, r *framing.Reader, cmd command.Command) error {
	verb := string(cmd.Verb)
	if lc := logger.FromContext(ctx); lc != nil {
		ctx = logger.WithContext(ctx, lc.WithOperation(verb))
	}
	ctx, span := telemetry.StartCommandSpan(ctx, verb, cmd.Arg)
	defer span.End()

	start := time.Now()
	var err error
	switch cmd.Verb {
	case command.VerbUpload:
		err = h.handleUpload(ctx, conn, r, cmd.Arg)
	case command.VerbDownload:
		err = h.handleDownload(ctx, conn, cmd.Arg)
	case command.VerbList:
		err = h.handleList(ctx, conn, storage.AreaUpload, command.ListingHeaderFiles)
	case command.VerbListTrash:
		err = h.handleList(ctx, conn, storage.AreaTrash, command.ListingHeaderTrash)
	case command.VerbDelete:
		err = h.handleMove(ctx, conn, cmd, h.store.MoveToTrash, command.Trashed, command.TrashFailed)
	case command.VerbRestore:
		err = h.handleMove(ctx, conn, cmd, h.store.Restore, command.Restored, command.RestoreFailed)
	}

	if err != nil {
		telemetry.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if h.metrics != nil {
		h.metrics.RecordDuration(protocolName, verb, time.Since(start))
	}
	logger.DebugCtx(ctx, "Command complete", logger.Filename(cmd.Arg), logger.DurationMs(logger.Duration(start)), logger.Err(err))
	return err
}

func (h *Handler) handleUpload(ctx context.Context, conn net.Conn, r *framing.Reader, name string) error {
	if err := h.reply(conn, command.ReplyReady); err != nil {
		return fmt.Errorf("send ready: %w", err)
	}

	replaced := h.store.Exists(storage.AreaUpload, name)
	f, err := h.store.Create(name)
	if err != nil {
		logger.WarnCtx(ctx, "Upload rejected", logger.Filename(name), logger.Err(err))
		h.recordCommand(string(command.VerbUpload), metrics.ResultFailure)
		return h.reply(conn, command.ReplyCreateFailed)
	}

	policy := framing.EndOnIdle
	if h.config.EndUploadOnShortRead {
		policy = framing.EndOnShortRead
	}
	n, err := h.store.ReceiveFile(f, r.UntilIdle(h.config.UploadIdle, policy))
	telemetry.SetAttributes(ctx, telemetry.Bytes(n))
	if h.metrics != nil {
		h.metrics.RecordBytes(protocolName, metrics.DirectionIn, n)
	}
	if err != nil {
		h.recordCommand(string(command.VerbUpload), metrics.ResultFailure)
		logger.WarnCtx(ctx, "Upload interrupted", logger.Filename(name), logger.Bytes(n), logger.Err(err))
		return err
	}

	h.recordCommand(string(command.VerbUpload), metrics.ResultSuccess)
	logger.InfoCtx(ctx, "File uploaded", logger.Filename(name), logger.Bytes(n), "replaced", replaced)
	return h.reply(conn, command.Uploaded(name))
}

func (h *Handler) handleDownload(ctx context.Context, conn net.Conn, name string) error {
	f, _, err := h.store.Open(storage.AreaUpload, name)
	if err != nil {
		logger.DebugCtx(ctx, "Download of missing file", logger.Filename(name), logger.Err(err))
		h.recordCommand(string(command.VerbDownload), metrics.ResultFailure)
		return h.reply(conn, command.NotFound(name))
	}
	defer f.Close()

	n, err := h.store.SendFile(framing.NewDeadlineWriter(conn, h.config.WriteTimeout), f)
	telemetry.SetAttributes(ctx, telemetry.Bytes(n))
	if h.metrics != nil {
		h.metrics.RecordBytes(protocolName, metrics.DirectionOut, n)
	}
	if err != nil {
		// The peer went away mid-transfer; nothing more can be said to it.
		h.recordCommand(string(command.VerbDownload), metrics.ResultFailure)
		logger.DebugCtx(ctx, "Download aborted", logger.Filename(name), logger.Bytes(n), logger.Err(err))
		return nil
	}

	h.recordCommand(string(command.VerbDownload), metrics.ResultSuccess)
	logger.InfoCtx(ctx, "File downloaded", logger.Filename(name), logger.Bytes(n))
	return nil
}

func (h *Handler) handleList(ctx context.Context, conn net.Conn, area storage.Area, header string) error {
	verb := string(command.VerbList)
	if area == storage.AreaTrash {
		verb = string(command.VerbListTrash)
	}

	names, err := h.store.Names(area)
	if err != nil {
		logger.WarnCtx(ctx, "Listing failed", logger.Area(area.String()), logger.Err(err))
		h.recordCommand(verb, metrics.ResultFailure)
		names = nil
	} else {
		h.recordCommand(verb, metrics.ResultSuccess)
	}
	telemetry.SetAttributes(ctx, telemetry.Area(area.String()), telemetry.Count(len(names)))
	return h.reply(conn, command.FormatListing(header, names))
}

func (h *Handler) handleMove(
	ctx context.Context,
	conn net.Conn,
	cmd command.Command,
	move func(string) error,
	ok func(string) string,
	failed func(string) string,
) error {
	name, verb := cmd.Arg, string(cmd.Verb)

	if err := move(name); err != nil {
		logger.InfoCtx(ctx, "Move failed", logger.Filename(name), logger.Err(err))
		h.recordCommand(verb, metrics.ResultFailure)
		return h.reply(conn, failed(name))
	}
	h.recordCommand(verb, metrics.ResultSuccess)
	logger.InfoCtx(ctx, "File moved", logger.Filename(name))
	return h.reply(conn, ok(name))
}

func (h *Handler) recordCommand(verb, result string) {
	if h.metrics != nil {
		h.metrics.RecordCommand(verb, result)
	}
}

func (h *Handler) reply(conn net.Conn, text string) error {
	_, err := framing.NewDeadlineWriter(conn, h.config.WriteTimeout).Write([]byte(text))
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
