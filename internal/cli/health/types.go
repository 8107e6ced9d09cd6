// Package health decodes the health API replies for CLI commands.
package health

import "time"

// Liveness is the reply of GET /health.
type Liveness struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Area is one storage area as reported by GET /health/areas.
type Area struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	Status string `json:"status" yaml:"status"`
	Files  int    `json:"files" yaml:"files"`
	Bytes  int64  `json:"bytes" yaml:"bytes"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Areas is the reply of GET /health/areas. The data is present for both
// healthy and unhealthy replies.
type Areas struct {
	Status string `json:"status"`
	Data   struct {
		Areas []Area `json:"areas"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}
