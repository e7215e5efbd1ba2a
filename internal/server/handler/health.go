package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// StatusSource reports liveness details for the health endpoint.
type StatusSource interface {
	Running() bool
}

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	status    StatusSource
	clients   ClientCounter
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. status and clients may be nil.
func NewHealthHandler(status StatusSource, clients ClientCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		status:    status,
		clients:   clients,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// HealthCheck responds with process liveness and run state.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.status != nil {
		body["running"] = h.status.Running()
	}
	if h.clients != nil {
		body["ws_clients"] = h.clients.ClientCount()
	}
	writeJSON(w, http.StatusOK, body)
}
