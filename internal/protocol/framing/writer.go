package framing

import (
	"io"
	"time"
)

// Sink is the subset of net.Conn a DeadlineWriter needs.
type Sink interface {
	io.Writer
	SetWriteDeadline(t time.Time) error
}

// DeadlineWriter re-arms the write deadline before every Write, so the
// timeout bounds a stalled peer rather than a whole transfer.
type DeadlineWriter struct {
	dst     Sink
	timeout time.Duration
}

// NewDeadlineWriter wraps dst. A zero timeout leaves deadlines untouched.
func NewDeadlineWriter(dst Sink, timeout time.Duration) *DeadlineWriter {
	return &DeadlineWriter{dst: dst, timeout: timeout}
}

func (w *DeadlineWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		if err := w.dst.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return 0, err
		}
	}
	return w.dst.Write(p)
}
