package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/fileshare/pkg/storage"
)

// Listener reports whether the file port is accepting connections.
type Listener interface {
	IsListening() bool
	GetListenerAddr() string
}

// HealthHandler handles the health endpoints.
//
//   - Liveness: is the process serving HTTP?
//   - Readiness: do the storage areas exist and is the file port listening?
//   - Areas: file count and size of each storage area
type HealthHandler struct {
	store     *storage.Store
	listener  Listener
	startedAt time.Time
}

// NewHealthHandler creates a health handler. Either argument may be nil;
// readiness then reports unhealthy.
func NewHealthHandler(store *storage.Store, listener Listener) *HealthHandler {
	return &HealthHandler{store: store, listener: listener, startedAt: time.Now()}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "fileshare",
		"started_at": h.startedAt.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready. It returns 503 when an area
// directory is missing or the file port is not listening.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("storage not initialized"))
		return
	}
	if err := h.store.Ready(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}
	if h.listener == nil || !h.listener.IsListening() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("file port not listening"))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"areas":   len(storage.Areas),
		"address": h.listener.GetListenerAddr(),
	}))
}

// AreaHealth is the state of one storage area.
type AreaHealth struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Status  string `json:"status"`
	Files   int    `json:"files"`
	Bytes   int64  `json:"bytes"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// AreasResponse lists every storage area.
type AreasResponse struct {
	Areas []AreaHealth `json:"areas"`
}

// Areas handles GET /health/areas. It returns 503 when any area directory
// is missing or cannot be read.
func (h *HealthHandler) Areas(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("storage not initialized"))
		return
	}

	response := AreasResponse{Areas: make([]AreaHealth, 0, len(storage.Areas))}
	allHealthy := true

	for _, a := range storage.Areas {
		start := time.Now()
		err := h.store.Check(a)
		var usage storage.Usage
		if err == nil {
			usage, err = h.store.Usage(a)
		}

		health := AreaHealth{
			Name:    a.String(),
			Path:    h.store.Dir(a),
			Files:   usage.Files,
			Bytes:   usage.Bytes,
			Latency: time.Since(start).String(),
		}
		if err != nil {
			health.Status = StatusUnhealthy
			health.Error = err.Error()
			allHealthy = false
		} else {
			health.Status = StatusHealthy
		}
		response.Areas = append(response.Areas, health)
	}

	if allHealthy {
		writeJSON(w, http.StatusOK, healthyResponse(response))
	} else {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(response))
	}
}
