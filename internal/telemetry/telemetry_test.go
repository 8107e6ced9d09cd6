package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans swaps in an SDK tracer backed by an in-memory recorder.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	mu.Lock()
	prev := tracer
	tracer = provider.Tracer(instrumentationName)
	mu.Unlock()

	t.Cleanup(func() {
		mu.Lock()
		tracer = prev
		mu.Unlock()
		_ = provider.Shutdown(context.Background())
	})
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "fileshare", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
	assert.NotNil(t, Tracer())
}

func TestNoOpSpanHelpers(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.operation")
	require.NotNil(t, span)
	defer span.End()

	RecordError(ctx, errors.New("boom"))
	RecordError(ctx, nil)
	SetAttributes(ctx, Bytes(10))

	assert.Empty(t, TraceID(context.Background()))
	assert.Empty(t, SpanID(context.Background()))
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), samplerFor(0.25).Description())
}

func TestStartConnectionSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartConnectionSpan(context.Background(), "conn-1", "127.0.0.1:5000", ClientIP("127.0.0.1"))
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanConnection, spans[0].Name())

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "conn-1", attrs[AttrConnID])
	assert.Equal(t, "127.0.0.1:5000", attrs[AttrClientAddr])
	assert.Equal(t, "127.0.0.1", attrs[AttrClientIP])
}

func TestStartCommandSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartCommandSpan(context.Background(), "UPLOAD", "a.txt", Bytes(42))
	span.End()
	_, span = StartCommandSpan(context.Background(), "LIST", "")
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "command.UPLOAD", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "command", attrs[AttrProtocol])
	assert.Equal(t, "UPLOAD", attrs[AttrOperation])
	assert.Equal(t, "a.txt", attrs[AttrFilename])
	assert.Equal(t, "42", attrs[AttrBytes])

	assert.Equal(t, "command.LIST", spans[1].Name())
	_, hasFile := attrMap(spans[1].Attributes())[AttrFilename]
	assert.False(t, hasFile)
}

func TestStartHTTPSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartHTTPSpan(context.Background(), "POST", "/upload")
	SetAttributes(ctx, HTTPStatus(200))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "http", attrs[AttrProtocol])
	assert.Equal(t, "POST", attrs[AttrHTTPMethod])
	assert.Equal(t, "/upload", attrs[AttrHTTPRoute])
	assert.Equal(t, "200", attrs[AttrHTTPStatus])
}

func TestStartProtocolSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartProtocolSpan(context.Background(), "storage", "receive")
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "storage.receive", spans[0].Name())
}

func TestValidProfileType(t *testing.T) {
	for _, name := range ProfileTypeNames {
		assert.True(t, ValidProfileType(name), name)
	}
	assert.False(t, ValidProfileType("heap"))
}

func TestProfileTypeNamesMatchTable(t *testing.T) {
	assert.Len(t, ProfileTypeNames, len(profileTypes))
}

func TestInitProfilingRejectsUnknownType(t *testing.T) {
	_, err := InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"cpu", "heap"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"heap"`)
	assert.False(t, IsProfilingEnabled())
}

func TestRecordErrorMarksSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "op")
	RecordError(ctx, errors.New("boom"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}
