package framing

import (
	"io"
	"time"
)

// EndPolicy selects what, besides silence and EOF, ends an idle stream.
type EndPolicy int

const (
	// EndOnIdle ends the stream only on idle expiry or EOF.
	EndOnIdle EndPolicy = iota

	// EndOnShortRead additionally ends the stream after the first socket
	// read that returns fewer bytes than the chunk size.
	EndOnShortRead
)

// UntilIdle returns a stream that yields the pending bytes first and then
// chunk-sized reads, each waiting at most idle. Silence or EOF is io.EOF.
func (r *Reader) UntilIdle(idle time.Duration, policy EndPolicy) io.Reader {
	return &idleStream{r: r, idle: idle, policy: policy}
}

type idleStream struct {
	r      *Reader
	idle   time.Duration
	policy EndPolicy
	done   bool
}

func (s *idleStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(s.r.pending) > 0 {
		n := copy(p, s.r.pending)
		s.r.pending = s.r.pending[n:]
		return n, nil
	}
	if s.done || s.r.eof {
		return 0, io.EOF
	}
	if err := s.r.ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.r.arm(s.idle); err != nil {
		return 0, err
	}

	want := min(len(p), s.r.chunk)
	n, err := s.r.src.Read(p[:want])
	switch err = s.r.classify(err); err {
	case nil:
		if s.policy == EndOnShortRead && n < s.r.chunk {
			s.done = true
		}
		return n, nil
	case errIdle, io.EOF:
		s.done = true
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	default:
		return n, err
	}
}

// LimitedBody returns a stream of at most n bytes: pending bytes first, then
// reads each waiting at most idle. A peer that stops early yields a short
// body ending in io.EOF.
func (r *Reader) LimitedBody(n int64, idle time.Duration) io.Reader {
	return &limitedBody{r: r, remaining: n, idle: idle}
}

type limitedBody struct {
	r         *Reader
	remaining int64
	idle      time.Duration
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}

	if len(b.r.pending) > 0 {
		n := copy(p, b.r.pending)
		b.r.pending = b.r.pending[n:]
		b.remaining -= int64(n)
		return n, nil
	}
	if b.r.eof {
		b.remaining = 0
		return 0, io.EOF
	}
	if err := b.r.ctx.Err(); err != nil {
		return 0, err
	}
	if err := b.r.arm(b.idle); err != nil {
		return 0, err
	}

	want := min(len(p), b.r.chunk)
	n, err := b.r.src.Read(p[:want])
	b.remaining -= int64(n)
	switch err = b.r.classify(err); err {
	case nil:
		return n, nil
	case errIdle, io.EOF:
		b.remaining = 0
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	default:
		return n, err
	}
}
