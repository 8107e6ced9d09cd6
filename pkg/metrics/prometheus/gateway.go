// Package prometheus implements the pkg/metrics interfaces on top of
// prometheus/client_golang.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/fileshare/pkg/metrics"
)

// gatewayMetrics is the Prometheus implementation of metrics.GatewayMetrics.
type gatewayMetrics struct {
	connectionsTotal       prometheus.Counter
	connectionsActive      prometheus.Gauge
	connectionsForceClosed prometheus.Counter
	protocolDetected       *prometheus.CounterVec
	authAttempts           *prometheus.CounterVec
	commands               *prometheus.CounterVec
	httpRequests           *prometheus.CounterVec
	transferBytes          *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
}

// NewGatewayMetrics creates a Prometheus-backed GatewayMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewGatewayMetrics() metrics.GatewayMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &gatewayMetrics{
		connectionsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "fileshare_connections_total",
				Help: "Total number of connections accepted on the file port",
			},
		),
		connectionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "fileshare_connections_active",
				Help: "Number of connections currently being served",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "fileshare_connections_force_closed_total",
				Help: "Connections closed because the shutdown timeout expired",
			},
		),
		protocolDetected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshare_protocol_detected_total",
				Help: "Connections by sniffed protocol",
			},
			[]string{"protocol"},
		),
		authAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshare_auth_attempts_total",
				Help: "Authentication attempts by protocol and result",
			},
			[]string{"protocol", "result"},
		),
		commands: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshare_commands_total",
				Help: "Command-protocol commands by verb and result",
			},
			[]string{"verb", "result"},
		),
		httpRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshare_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		transferBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fileshare_transfer_bytes_total",
				Help: "File bytes moved by protocol and direction",
			},
			[]string{"protocol", "direction"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "fileshare_request_duration_milliseconds",
				Help: "Duration of a connection's operation in milliseconds",
				Buckets: []float64{
					1,     // 1ms - listings, moves
					10,    // 10ms
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s - header/ack idle windows
					2000,  // 2s - upload idle window
					5000,  // 5s - body idle window
					30000, // 30s - large transfers
				},
			},
			[]string{"protocol", "operation"},
		),
	}
}

func (m *gatewayMetrics) RecordConnectionAccepted() {
	m.connectionsTotal.Inc()
}

func (m *gatewayMetrics) RecordConnectionClosed() {}

func (m *gatewayMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}

func (m *gatewayMetrics) SetActiveConnections(count int32) {
	m.connectionsActive.Set(float64(count))
}

func (m *gatewayMetrics) RecordProtocol(protocol string) {
	m.protocolDetected.WithLabelValues(protocol).Inc()
}

func (m *gatewayMetrics) RecordAuth(protocol string, success bool) {
	m.authAttempts.WithLabelValues(protocol, metrics.AuthResult(success)).Inc()
}

func (m *gatewayMetrics) RecordCommand(verb string, result string) {
	m.commands.WithLabelValues(verb, result).Inc()
}

func (m *gatewayMetrics) RecordHTTPRequest(route string, status int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *gatewayMetrics) RecordBytes(protocol string, direction string, bytes int64) {
	if bytes <= 0 {
		return
	}
	m.transferBytes.WithLabelValues(protocol, direction).Add(float64(bytes))
}

func (m *gatewayMetrics) RecordDuration(protocol string, operation string, duration time.Duration) {
	m.requestDuration.WithLabelValues(protocol, operation).Observe(float64(duration.Microseconds()) / 1000.0)
}
