// Package healthprobe provides liveness and readiness handlers for the
// status server.
package healthprobe

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// HealthChecker provides health and readiness checks. Readiness flips on
// once the runtime's collaborators are wired and flips off during
// shutdown so orchestrators stop routing to a draining process.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Response is the probe payload.
type Response struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Message       string  `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks. Always 200 while the
// process runs.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, http.StatusOK, Response{
			Status:        "healthy",
			UptimeSeconds: time.Since(h.startTime).Seconds(),
		})
	}
}

// Ready returns an HTTP handler for readiness checks: 200 when ready,
// 503 otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			h.respond(w, http.StatusServiceUnavailable, Response{
				Status:  "not_ready",
				Message: "application is starting or draining",
			})
			return
		}
		h.respond(w, http.StatusOK, Response{
			Status:        "ready",
			UptimeSeconds: time.Since(h.startTime).Seconds(),
		})
	}
}

func (h *HealthChecker) respond(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
