// Package client speaks the command protocol of the file port. Every
// operation opens its own connection, authenticates and sends one command,
// which is the only shape the server accepts.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/internal/protocol/command"
	"github.com/marmos91/fileshare/internal/protocol/framing"
	"github.com/marmos91/fileshare/pkg/bufpool"
)

// maxReply caps how much of a text reply (listing, acknowledgement) is kept.
const maxReply = 1 << 20

// Config holds the connection settings.
type Config struct {
	Address  string
	Username string
	Password string

	// ChunkSize is the size of each upload write and download read.
	ChunkSize int

	DialTimeout time.Duration

	// AckTimeout bounds the wait for AUTH OK, READY and the upload
	// acknowledgement.
	AckTimeout time.Duration

	// DownloadIdle ends a download after this much silence.
	DownloadIdle time.Duration
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = "localhost:8080"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = bufpool.ChunkSize
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 5 * time.Second
	}
	if c.DownloadIdle <= 0 {
		c.DownloadIdle = 2 * time.Second
	}
}

// Client is a file port client.
type Client struct {
	config Config
	dialer net.Dialer
}

// New creates a client. Zero fields take their defaults.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		config: cfg,
		dialer: net.Dialer{Timeout: cfg.DialTimeout},
	}
}

// Address returns the server address.
func (c *Client) Address() string { return c.config.Address }

// conn is one authenticated connection.
type conn struct {
	net.Conn
	r *framing.Reader
}

// open dials, sends the credential line and waits for AUTH OK.
func (c *Client) open(ctx context.Context) (*conn, error) {
	nc, err := c.dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.config.Address, err)
	}

	cn := &conn{Conn: nc, r: framing.NewReader(nc, c.config.ChunkSize)}
	cn.r.SetContext(ctx)

	if err := cn.send(command.FormatCredentials(c.config.Username, c.config.Password)); err != nil {
		_ = nc.Close()
		return nil, err
	}

	reply, err := cn.reply(c.config.AckTimeout)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	if !strings.Contains(reply, command.ReplyAuthOK) {
		_ = nc.Close()
		return nil, ErrAuthFailed
	}
	logger.Debug("Authenticated", logger.Addr(c.config.Address), logger.Username(c.config.Username))
	return cn, nil
}

func (cn *conn) send(line string) error {
	if _, err := io.WriteString(cn.Conn, line); err != nil {
		return fmt.Errorf("failed to send %q: %w", firstWord(line), err)
	}
	return nil
}

// reply waits up to timeout for one burst of reply bytes. Silence is
// ErrNoAck.
func (cn *conn) reply(timeout time.Duration) (string, error) {
	n, err := cn.r.Fill(0, timeout)
	if err != nil {
		return "", err
	}
	if n == 0 && len(cn.r.Buffered()) == 0 {
		return "", ErrNoAck
	}
	return string(cn.r.Take()), nil
}

// replyUntilClose collects the reply until the server closes or falls
// silent for idle.
func (cn *conn) replyUntilClose(idle time.Duration) (string, error) {
	data, err := cn.r.ReadUntilIdle(idle, maxReply, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Upload sends the local file at localPath and stores it as remoteName.
// It returns the number of payload bytes sent.
func (c *Client) Upload(ctx context.Context, localPath, remoteName string) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	cn, err := c.open(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = cn.Close() }()

	if err := cn.send(command.Command{Verb: command.VerbUpload, Arg: remoteName}.String()); err != nil {
		return 0, err
	}

	ready, err := cn.reply(c.config.AckTimeout)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(ready) != command.ReplyReady {
		return 0, &ReplyError{Op: "upload", Reply: ready}
	}

	buf := bufpool.Get(c.config.ChunkSize)
	defer bufpool.Put(buf)

	sent, err := copyChunks(cn.Conn, f, buf)
	if err != nil {
		return sent, fmt.Errorf("upload interrupted after %d bytes: %w", sent, err)
	}

	// Half-close so the server sees EOF instead of waiting for silence.
	if cw, ok := cn.Conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			logger.Debug("Half-close failed", logger.Err(err))
		}
	}

	ack, err := cn.replyUntilClose(c.config.AckTimeout)
	if err != nil {
		return sent, err
	}
	if ack == "" {
		return sent, ErrNoAck
	}
	if !command.IsUploaded(ack, remoteName) {
		return sent, &ReplyError{Op: "upload", Reply: ack}
	}
	return sent, nil
}

// Download writes the remote file name to w and returns the bytes written.
//
// The protocol has no length prefix: the payload ends when the server
// closes the connection or stays silent for DownloadIdle. A payload that is
// exactly the server's not-found reply is reported as ErrRemoteNotFound.
func (c *Client) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	cn, err := c.open(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = cn.Close() }()

	if err := cn.send(command.Command{Verb: command.VerbDownload, Arg: name}.String()); err != nil {
		return 0, err
	}

	body := cn.r.UntilIdle(c.config.DownloadIdle, framing.EndOnIdle)

	marker := command.NotFound(name)
	head := make([]byte, len(marker)+1)
	n, err := io.ReadFull(body, head)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if string(head[:n]) == marker {
			return 0, ErrRemoteNotFound
		}
		written, werr := w.Write(head[:n])
		return int64(written), werr
	case err != nil:
		return 0, err
	}

	written, err := w.Write(head)
	if err != nil {
		return int64(written), err
	}

	buf := bufpool.Get(c.config.ChunkSize)
	defer bufpool.Put(buf)

	rest, err := copyChunks(w, body, buf)
	return int64(written) + rest, err
}

// List returns the names in the upload area.
func (c *Client) List(ctx context.Context) ([]string, error) {
	return c.list(ctx, command.VerbList)
}

// ListTrash returns the names in the trash area.
func (c *Client) ListTrash(ctx context.Context) ([]string, error) {
	return c.list(ctx, command.VerbListTrash)
}

func (c *Client) list(ctx context.Context, verb command.Verb) ([]string, error) {
	payload, err := c.simple(ctx, command.Command{Verb: verb})
	if err != nil {
		return nil, err
	}
	return command.ParseListing(payload), nil
}

// Delete moves name to the trash and returns the server's reply.
func (c *Client) Delete(ctx context.Context, name string) (string, error) {
	return c.simple(ctx, command.Command{Verb: command.VerbDelete, Arg: name})
}

// Restore moves name back from the trash and returns the server's reply.
func (c *Client) Restore(ctx context.Context, name string) (string, error) {
	return c.simple(ctx, command.Command{Verb: command.VerbRestore, Arg: name})
}

// simple runs a command whose whole answer is text ending at close.
func (c *Client) simple(ctx context.Context, cmd command.Command) (string, error) {
	cn, err := c.open(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = cn.Close() }()

	if err := cn.send(cmd.String()); err != nil {
		return "", err
	}
	reply, err := cn.replyUntilClose(c.config.AckTimeout)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", ErrNoAck
	}
	return strings.TrimRight(reply, "\r\n"), nil
}

// copyChunks copies src to dst through buf, so no single write exceeds
// len(buf) even when dst or src could short-circuit the copy.
func copyChunks(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf)
}

func firstWord(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}
