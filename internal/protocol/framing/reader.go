// Package framing reads messages that carry no length prefix. A message ends
// when the peer goes quiet for an idle period, closes its write side, or a
// stop condition over the accumulated bytes holds.
//
// Reader keeps a pending buffer of bytes already taken off the wire and not
// yet handed to a caller. Every consumer drains pending bytes before touching
// the socket again, so a byte is never read twice and never lost between the
// protocol sniffer and the handler that follows it.
package framing

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/marmos91/fileshare/pkg/bufpool"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 4096

// Source is the subset of net.Conn the Reader needs.
type Source interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// StopFunc reports whether the accumulated bytes form a complete message.
type StopFunc func(buf []byte) bool

// errIdle marks a read that ended because the idle deadline expired.
var errIdle = errors.New("framing: idle")

// Reader wraps a connection with a pending buffer and idle-deadline reads.
// It is not safe for concurrent use.
type Reader struct {
	src     Source
	chunk   int
	pending []byte
	eof     bool
	ctx     context.Context
}

// NewReader wraps src. chunkSize bounds every individual socket read.
func NewReader(src Source, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reader{src: src, chunk: chunkSize, ctx: context.Background()}
}

// SetContext makes every subsequent wire read fail fast with ctx.Err() once
// ctx is done.
func (r *Reader) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.ctx = ctx
}

// ChunkSize returns the configured read size.
func (r *Reader) ChunkSize() int { return r.chunk }

// Buffered returns the pending bytes without consuming them.
func (r *Reader) Buffered() []byte { return r.pending }

// Take consumes and returns every pending byte.
func (r *Reader) Take() []byte {
	out := r.pending
	r.pending = nil
	return out
}

// Consume removes and returns up to n pending bytes.
func (r *Reader) Consume(n int) []byte {
	if n <= 0 {
		return nil
	}
	if n >= len(r.pending) {
		return r.Take()
	}
	out := make([]byte, n)
	copy(out, r.pending[:n])
	r.pending = r.pending[n:]
	return out
}

// Unread puts p back in front of the pending buffer. Callers use it to hand
// back bytes that belong to the next stage, such as body bytes that arrived
// with a header block.
func (r *Reader) Unread(p []byte) {
	if len(p) == 0 {
		return
	}
	merged := make([]byte, 0, len(p)+len(r.pending))
	merged = append(merged, p...)
	r.pending = append(merged, r.pending...)
}

// Fill performs a single read of at most max bytes, waiting up to timeout
// (zero waits forever), and appends the result to the pending buffer.
// Silence and EOF are not errors: they yield n == 0.
func (r *Reader) Fill(max int, timeout time.Duration) (int, error) {
	if max <= 0 {
		max = r.chunk
	}
	n, err := r.readOnce(max, timeout)
	if err == errIdle || err == io.EOF {
		return n, nil
	}
	return n, err
}

// ReadUntilIdle accumulates bytes until stop holds, limit bytes are held, the
// peer is silent for idle, or the peer closes. It consumes and returns at
// most limit bytes. Only transport failures are reported as errors.
func (r *Reader) ReadUntilIdle(idle time.Duration, limit int, stop StopFunc) ([]byte, error) {
	if limit <= 0 {
		limit = r.chunk
	}

	for {
		if stop != nil && stop(r.pending) {
			break
		}
		if len(r.pending) >= limit || r.eof {
			break
		}

		want := min(r.chunk, limit-len(r.pending))
		n, err := r.readOnce(want, idle)
		if err == errIdle || err == io.EOF {
			break
		}
		if err != nil {
			return r.Consume(limit), err
		}
		if n == 0 {
			break
		}
	}

	return r.Consume(limit), nil
}

// readOnce performs one deadline-guarded read of up to max bytes into the
// pending buffer. It returns errIdle when the deadline fired and io.EOF when
// the peer closed; any bytes read alongside either are kept.
func (r *Reader) readOnce(max int, timeout time.Duration) (int, error) {
	if r.eof {
		return 0, io.EOF
	}
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if err := r.arm(timeout); err != nil {
		return 0, err
	}

	buf := bufpool.Get(max)
	defer bufpool.Put(buf)

	n, err := r.src.Read(buf)
	if n > 0 {
		r.pending = append(r.pending, buf[:n]...)
	}
	return n, r.classify(err)
}

func (r *Reader) arm(timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	return r.src.SetReadDeadline(deadline)
}

func (r *Reader) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		r.eof = true
		return io.EOF
	case IsTimeout(err):
		return errIdle
	default:
		return err
	}
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
