package logger

import "log/slog"

// Standard field keys. Use these consistently so that logs from the command
// and HTTP paths can be aggregated on the same columns.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	KeyConnID    = "conn_id"
	KeyProtocol  = "protocol"  // command, http
	KeyOperation = "operation" // UPLOAD, LIST, /download, ...
	KeyClientIP  = "client_ip"
	KeyUsername  = "username"

	KeyMethod = "method"
	KeyPath   = "path"
	KeyStatus = "status"

	KeyFilename = "filename"
	KeyArea     = "area" // uploads, trash, static
	KeyBytes    = "bytes"
	KeyCount    = "count"

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyAddr       = "addr"
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for an OpenTelemetry span ID
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// ConnID returns a slog.Attr for the connection session ID
func ConnID(id string) slog.Attr { return slog.String(KeyConnID, id) }

// Protocol returns a slog.Attr for the sniffed protocol
func Protocol(proto string) slog.Attr { return slog.String(KeyProtocol, proto) }

// Operation returns a slog.Attr for a command verb or HTTP route
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// ClientIP returns a slog.Attr for the peer address
func ClientIP(addr string) slog.Attr { return slog.String(KeyClientIP, addr) }

// Username returns a slog.Attr for the authenticated user
func Username(name string) slog.Attr { return slog.String(KeyUsername, name) }

// Method returns a slog.Attr for an HTTP method
func Method(m string) slog.Attr { return slog.String(KeyMethod, m) }

// Path returns a slog.Attr for a request path or filesystem path
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Status returns a slog.Attr for an HTTP status code
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// Filename returns a slog.Attr for a shared file name
func Filename(name string) slog.Attr { return slog.String(KeyFilename, name) }

// Area returns a slog.Attr for a storage area
func Area(a string) slog.Attr { return slog.String(KeyArea, a) }

// Bytes returns a slog.Attr for a transferred byte count
func Bytes(n int64) slog.Attr { return slog.Int64(KeyBytes, n) }

// Count returns a slog.Attr for an item count
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

// Addr returns a slog.Attr for a listen or dial address
func Addr(a string) slog.Attr { return slog.String(KeyAddr, a) }

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error. A nil error yields an empty Attr,
// which the handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
