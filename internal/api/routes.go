package api

import (
	"net/http"

	"go.uber.org/zap"
)

// SetupRoutes configures the health and JSON routes on the given mux
func SetupRoutes(mux *http.ServeMux, monitor Monitor, logger *zap.Logger) {
	// Health check endpoints for Kubernetes
	mux.HandleFunc("GET /health/live", HealthLiveHandler)
	mux.HandleFunc("GET /health/ready", HealthReadyHandler(monitor))

	monitorHandler := NewMonitorHandler(monitor, logger)
	mux.HandleFunc("GET /api/monitor/state", monitorHandler.getState)
	mux.HandleFunc("GET /api/monitor/settings", monitorHandler.getSettings)
	mux.HandleFunc("PUT /api/monitor/settings", monitorHandler.putSettings)
}
