package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Generic keys follow OpenTelemetry conventions; file
// operations use the "fs." prefix.
const (
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrConnID     = "connection.id"

	AttrProtocol  = "protocol.name" // http, command
	AttrOperation = "fs.operation"
	AttrArea      = "fs.area"
	AttrFilename  = "fs.filename"
	AttrBytes     = "fs.bytes"
	AttrResult    = "fs.result"
	AttrCount     = "fs.count"

	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"

	AttrUsername = "user.name"
	AttrAuthOK   = "auth.success"
)

// Span names.
const (
	// SpanConnection is the root span covering one accepted connection.
	SpanConnection = "fileshare.connection"

	SpanSniff = "fileshare.sniff"
	SpanAuth  = "fileshare.auth"

	// SpanCommandPrefix is joined with the verb: "command.UPLOAD".
	SpanCommandPrefix = "command."

	// SpanHTTPRequest covers one routed HTTP request.
	SpanHTTPRequest = "http.request"

	SpanStorageReceive = "storage.receive"
	SpanStorageSend    = "storage.send"
)

func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

func ConnID(id string) attribute.KeyValue {
	return attribute.String(AttrConnID, id)
}

func Protocol(name string) attribute.KeyValue {
	return attribute.String(AttrProtocol, name)
}

func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

func Area(name string) attribute.KeyValue {
	return attribute.String(AttrArea, name)
}

func Filename(name string) attribute.KeyValue {
	return attribute.String(AttrFilename, name)
}

func Bytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytes, n)
}

func Result(r string) attribute.KeyValue {
	return attribute.String(AttrResult, r)
}

func Count(n int) attribute.KeyValue {
	return attribute.Int(AttrCount, n)
}

func HTTPMethod(m string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, m)
}

func HTTPRoute(r string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, r)
}

func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

func AuthOK(ok bool) attribute.KeyValue {
	return attribute.Bool(AttrAuthOK, ok)
}

// StartConnectionSpan starts the root span of an accepted connection.
func StartConnectionSpan(ctx context.Context, connID, remoteAddr string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{ConnID(connID), ClientAddr(remoteAddr)}, attrs...)
	return StartSpan(ctx, SpanConnection, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(all...))
}

// StartCommandSpan starts a span for one command-protocol verb.
func StartCommandSpan(ctx context.Context, verb, filename string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := []attribute.KeyValue{Protocol("command"), Operation(verb)}
	if filename != "" {
		all = append(all, Filename(filename))
	}
	all = append(all, attrs...)
	return StartSpan(ctx, SpanCommandPrefix+verb, trace.WithAttributes(all...))
}

// StartHTTPSpan starts a span for one HTTP request.
func StartHTTPSpan(ctx context.Context, method, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Protocol("http"), HTTPMethod(method), HTTPRoute(path)}, attrs...)
	return StartSpan(ctx, SpanHTTPRequest, trace.WithAttributes(all...))
}

// StartProtocolSpan starts a span named protocol.operation.
func StartProtocolSpan(ctx context.Context, protocol, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Protocol(protocol), Operation(operation)}, attrs...)
	return StartSpan(ctx, protocol+"."+operation, trace.WithAttributes(all...))
}
