// Package httplite parses and writes the small HTTP/1.x subset spoken on the
// shared file port. It works on raw bytes so that the connection layer can
// accumulate a header block with idle-deadline reads, then hand the result
// to a regular net/http handler.
package httplite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedRequestLine is returned for a request line that does not carry
// at least a method and a target.
var ErrMalformedRequestLine = errors.New("malformed request line")

var headTerminator = []byte("\r\n\r\n")

// HeadComplete reports whether buf holds a full header block. It is the stop
// condition for header accumulation.
func HeadComplete(buf []byte) bool {
	return bytes.Contains(buf, headTerminator)
}

// SplitHead splits raw at the first blank line. head excludes the
// terminator; rest holds any body bytes that arrived with the headers.
func SplitHead(raw []byte) (head, rest []byte, ok bool) {
	i := bytes.Index(raw, headTerminator)
	if i < 0 {
		return raw, nil, false
	}
	return raw[:i], raw[i+len(headTerminator):], true
}

// ParseRequestLine splits "METHOD target [proto]".
func ParseRequestLine(line string) (method, target string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}
	return fields[0], fields[1], nil
}

// SplitTarget splits a request target at the first '?'.
func SplitTarget(target string) (path, rawQuery string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// Field is one header line.
type Field struct {
	Name  string
	Value string
}

// Header is the ordered list of header fields of a request.
type Header []Field

// Get returns the value of the first field named name, compared
// case-insensitively, or "".
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// HTTP converts h into a net/http header. Order is kept, so Get on the
// result also returns the first occurrence.
func (h Header) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, f := range h {
		key := textproto.CanonicalMIMEHeaderKey(f.Name)
		out[key] = append(out[key], f.Value)
	}
	return out
}

// ParseHeaders parses "Name: value" lines separated by CRLF. Lines without a
// colon are ignored. Values are trimmed of surrounding spaces and tabs.
func ParseHeaders(block string) Header {
	var h Header
	for _, line := range strings.Split(block, "\r\n") {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		h = append(h, Field{
			Name:  strings.TrimSpace(line[:colon]),
			Value: strings.Trim(line[colon+1:], " \t"),
		})
	}
	return h
}

// RequestHead is a parsed request line and header block.
type RequestHead struct {
	Method   string
	Target   string
	Path     string
	RawQuery string
	Proto    string
	Header   Header
}

// ParseHead parses a header block as returned by SplitHead.
func ParseHead(head []byte) (*RequestHead, error) {
	text := string(head)
	line, rest, _ := strings.Cut(text, "\r\n")

	method, target, err := ParseRequestLine(line)
	if err != nil {
		return nil, err
	}

	proto := "HTTP/1.0"
	if fields := strings.Fields(line); len(fields) == 3 {
		proto = fields[2]
	}

	path, rawQuery := SplitTarget(target)
	return &RequestHead{
		Method:   method,
		Target:   target,
		Path:     path,
		RawQuery: rawQuery,
		Proto:    proto,
		Header:   ParseHeaders(rest),
	}, nil
}

// ContentLength returns the declared body length, or 0 when the header is
// absent or not a non-negative integer.
func (h *RequestHead) ContentLength() int64 {
	v := h.Header.Get("Content-Length")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// NewRequest builds a server-side *http.Request from the head and a body
// stream. The URL is assembled from the raw pieces rather than re-parsed.
func (h *RequestHead) NewRequest(ctx context.Context, body io.Reader, remoteAddr string) *http.Request {
	if body == nil {
		body = http.NoBody
	}
	major, minor, ok := http.ParseHTTPVersion(h.Proto)
	if !ok {
		major, minor = 1, 0
	}

	req := &http.Request{
		Method:        h.Method,
		URL:           &url.URL{Path: h.Path, RawQuery: h.RawQuery},
		Proto:         h.Proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        h.Header.HTTP(),
		Body:          io.NopCloser(body),
		ContentLength: h.ContentLength(),
		Host:          h.Header.Get("Host"),
		RemoteAddr:    remoteAddr,
		RequestURI:    h.Target,
		Close:         true,
	}
	return req.WithContext(ctx)
}
