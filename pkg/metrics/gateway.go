package metrics

import "time"

// Transfer directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Outcome labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// GatewayMetrics provides observability for the file port.
//
// It extends the connection lifecycle hooks of adapter.MetricsRecorder with
// protocol-level counters. Pass nil to disable collection; callers guard every
// call with a nil check.
//
// Example usage:
//
//	m := prometheus.NewGatewayMetrics() // nil unless InitRegistry was called
//	gw := gateway.New(cfg, store, auth, m)
type GatewayMetrics interface {
	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed is called when a handler returns.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed by a shutdown
	// timeout.
	RecordConnectionForceClosed()

	// SetActiveConnections updates the active connection gauge.
	SetActiveConnections(count int32)

	// RecordProtocol counts the sniffer's classification of a connection
	// ("http", "command" or "unknown").
	RecordProtocol(protocol string)

	// RecordAuth counts an authentication attempt.
	RecordAuth(protocol string, success bool)

	// RecordCommand counts a command-protocol verb and its outcome.
	RecordCommand(verb string, result string)

	// RecordHTTPRequest counts a routed HTTP request by route pattern and
	// status code.
	RecordHTTPRequest(route string, status int)

	// RecordBytes adds to the transferred bytes counter. direction is
	// DirectionIn for uploads and DirectionOut for downloads.
	RecordBytes(protocol string, direction string, bytes int64)

	// RecordDuration observes how long an operation took.
	RecordDuration(protocol string, operation string, duration time.Duration)
}

// AuthResult maps a boolean outcome to its label.
func AuthResult(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
