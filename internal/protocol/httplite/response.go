package httplite

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// headerNewlineToSpace keeps a header value on its own line.
var headerNewlineToSpace = strings.NewReplacer("\n", " ", "\r", " ")

// ResponseWriter is an http.ResponseWriter over a raw connection. Every
// response carries Content-Type, Content-Length and Connection: close.
//
// When a handler sets Content-Length before its first Write the head is sent
// immediately and the body streams straight through. Otherwise the body is
// buffered and the length computed when Finish is called.
type ResponseWriter struct {
	w       *bufio.Writer
	header  http.Header
	status  int
	body    bytes.Buffer
	stream  bool
	flushed bool
	written int64
	err     error
}

// NewResponseWriter wraps dst.
func NewResponseWriter(dst io.Writer) *ResponseWriter {
	return &ResponseWriter{
		w:      bufio.NewWriter(dst),
		header: make(http.Header),
	}
}

func (rw *ResponseWriter) Header() http.Header { return rw.header }

// WriteHeader records the status. Only the first call counts.
func (rw *ResponseWriter) WriteHeader(status int) {
	if rw.status != 0 {
		return
	}
	rw.status = status
	if rw.header.Get("Content-Length") != "" {
		rw.stream = true
	}
}

func (rw *ResponseWriter) Write(p []byte) (int, error) {
	if rw.status == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.err != nil {
		return 0, rw.err
	}
	if !rw.stream {
		return rw.body.Write(p)
	}

	if !rw.flushed {
		if err := rw.writeHead(-1); err != nil {
			return 0, err
		}
	}
	n, err := rw.w.Write(p)
	rw.written += int64(n)
	if err != nil {
		rw.err = err
	}
	return n, err
}

// Flush pushes buffered bytes of a streaming response to the connection.
func (rw *ResponseWriter) Flush() {
	if rw.stream && rw.flushed && rw.err == nil {
		rw.err = rw.w.Flush()
	}
}

// Status returns the recorded status, 200 if none was set.
func (rw *ResponseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// BytesWritten returns the number of body bytes sent so far.
func (rw *ResponseWriter) BytesWritten() int64 {
	if rw.stream {
		return rw.written
	}
	return int64(rw.body.Len())
}

// Finish sends whatever has not been sent yet and flushes the connection.
func (rw *ResponseWriter) Finish() error {
	if rw.status == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.err != nil {
		return rw.err
	}

	if !rw.flushed {
		length := -1
		if !rw.stream {
			length = rw.body.Len()
		}
		if err := rw.writeHead(length); err != nil {
			return err
		}
		if !rw.stream {
			n, err := rw.w.Write(rw.body.Bytes())
			rw.written = int64(n)
			if err != nil {
				rw.err = err
				return err
			}
		}
	}

	if err := rw.w.Flush(); err != nil {
		rw.err = err
		return err
	}
	return nil
}

// writeHead emits the status line and headers. A non-negative length
// overrides any Content-Length the handler set.
func (rw *ResponseWriter) writeHead(length int) error {
	rw.flushed = true

	h := rw.header
	ct := h.Get("Content-Type")
	if ct == "" {
		ct = ContentTypeText
	}
	cl := h.Get("Content-Length")
	if length >= 0 {
		cl = strconv.Itoa(length)
	}

	fmt.Fprintf(rw.w, "HTTP/1.1 %d %s\r\n", rw.status, statusText(rw.status))
	fmt.Fprintf(rw.w, "Content-Type: %s\r\n", headerNewlineToSpace.Replace(ct))
	fmt.Fprintf(rw.w, "Content-Length: %s\r\n", headerNewlineToSpace.Replace(cl))

	keys := make([]string, 0, len(h))
	for k := range h {
		switch k {
		case "Content-Type", "Content-Length", "Connection":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range h[k] {
			fmt.Fprintf(rw.w, "%s: %s\r\n", k, headerNewlineToSpace.Replace(v))
		}
	}

	if _, err := rw.w.WriteString("Connection: close\r\n\r\n"); err != nil {
		rw.err = err
		return err
	}
	return nil
}

func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return "Unknown"
}
