package handlers

import (
	"net/http"
	"time"
)

// StatusHandler serves the liveness and status endpoints.
type StatusHandler struct {
	env     string
	started time.Time
}

func NewStatusHandler(env string) *StatusHandler {
	return &StatusHandler{env: env, started: time.Now().UTC()}
}

// Health is the load-balancer liveness probe.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports service identity and uptime for operators.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service":        "call-sync",
		"status":         "operational",
		"environment":    h.env,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
