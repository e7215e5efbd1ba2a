package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/polyconsole/internal/domain"
)

// Controller is the backend side of the console's control commands.
// simulator.Runtime implements it.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	ClosePosition(ctx context.Context, assetID string) error
	CloseAll(ctx context.Context) (int, error)
}

// ControlHandler serves the /api control endpoints. Responses are
// informational only; consoles watch the snapshot stream for effects.
type ControlHandler struct {
	ctrl   Controller
	logger *slog.Logger
}

// NewControlHandler creates a ControlHandler.
func NewControlHandler(ctrl Controller, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{ctrl: ctrl, logger: logger}
}

// Start handles POST /api/start.
func (h *ControlHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "start", h.ctrl.Start(r.Context()))
}

// Stop handles POST /api/stop.
func (h *ControlHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "stop", h.ctrl.Stop(r.Context()))
}

// Close handles POST /api/close with body {"asset_id": "..."}.
func (h *ControlHandler) Close(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AssetID string `json:"asset_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	assetID := strings.TrimSpace(body.AssetID)
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}
	h.respond(w, r, "close", h.ctrl.ClosePosition(r.Context(), assetID))
}

// CloseAll handles POST /api/close_all.
func (h *ControlHandler) CloseAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.ctrl.CloseAll(r.Context())
	if err != nil {
		h.respond(w, r, "close_all", err)
		return
	}
	logHandler(h.logger, r, "close_all").Info("control request", slog.Int("closed", n))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "closed": n})
}

func (h *ControlHandler) respond(w http.ResponseWriter, r *http.Request, name string, err error) {
	log := logHandler(h.logger, r, name)
	switch {
	case err == nil:
		log.Info("control request")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case errors.Is(err, domain.ErrNotFound):
		log.Warn("control request", slog.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Error("control request", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
