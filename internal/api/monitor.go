package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/educore/monitor/internal/service"
)

// ErrorResponse is returned by the JSON endpoints on failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// MonitorHandler serves the monitor state and settings as JSON
type MonitorHandler struct {
	monitor Monitor
	logger  *zap.Logger
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(monitor Monitor, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		logger:  logger,
	}
}

// getState handles GET /api/monitor/state
func (h *MonitorHandler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.State())
}

// getSettings handles GET /api/monitor/settings
func (h *MonitorHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Settings())
}

// putSettings handles PUT /api/monitor/settings. Fields missing from the
// body keep their current value.
func (h *MonitorHandler) putSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.monitor.Settings()

	// Limit request body size to prevent abuse
	decoder := json.NewDecoder(io.LimitReader(r.Body, 64*1024))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON payload"})
		return
	}

	if err := h.monitor.SaveSettings(r.Context(), settings); err != nil {
		if errors.Is(err, service.ErrInvalidSettings) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("Failed to save monitor settings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to save settings"})
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
