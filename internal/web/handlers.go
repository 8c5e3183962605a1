package web

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/render"
	"github.com/educore/monitor/internal/service"
	"github.com/educore/monitor/internal/utils"
)

// EventBroker is the SSE side of the web UI
type EventBroker interface {
	Publisher
	http.Handler
	OpenStream(stream string)
	CloseStream(stream string)
	Subscribers(stream string) int
}

// Handler manages web UI requests
type Handler struct {
	monitor  *service.MonitorService
	forms    *service.FormService
	renderer *render.Renderer
	broker   EventBroker
	logger   *zap.Logger
}

// NewHandler creates a new web UI handler and subscribes it to monitor and form updates
func NewHandler(monitor *service.MonitorService, forms *service.FormService, renderer *render.Renderer,
	broker EventBroker, logger *zap.Logger) *Handler {
	h := &Handler{
		monitor:  monitor,
		forms:    forms,
		renderer: renderer,
		broker:   broker,
		logger:   logger,
	}

	monitor.RegisterUpdateCallback(h.NotifyMonitorUpdate)
	forms.RegisterUpdateCallback(h.NotifyFormUpdate)

	return h
}

// SetupRoutes registers web UI routes on the given mux
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.Handle("GET /events", h.broker)

	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /partial/rooms", h.handlePartialRooms)
	mux.HandleFunc("GET /partial/alerts", h.handlePartialAlerts)
	mux.HandleFunc("GET /partial/summary", h.handlePartialSummary)

	mux.HandleFunc("POST /monitor/refresh", h.handleRefresh)
	mux.HandleFunc("POST /monitor/visibility", h.handleVisibility)
	mux.HandleFunc("GET /monitor/rooms/{id}", h.handleRoomDetail)
	mux.HandleFunc("GET /monitor/print", h.handlePrint)
	mux.HandleFunc("GET /monitor/settings", h.handleSettingsForm)
	mux.HandleFunc("POST /monitor/settings", h.handleSaveSettings)

	h.setupScheduleRoutes(mux)
}

func (h *Handler) writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Debug("Failed to write response", zap.Error(err))
	}
}

// renderHTML renders into a buffer first so a template error never leaves a half written page
func renderHTML[T any](h *Handler, w http.ResponseWriter, status int, fn func(io.Writer, T) error, data T) {
	var buf bytes.Buffer
	if err := fn(&buf, data); err != nil {
		h.logger.Error("Error rendering template", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	h.writeHTML(w, status, buf.Bytes())
}

// publishFragment renders a fragment and pushes it to an SSE stream
func publishFragment[T any](h *Handler, stream, event string, fn func(io.Writer, T) error, data T) {
	html, err := render.Bytes(fn, data)
	if err != nil {
		h.logger.Error("Error rendering fragment", zap.String("event", event), zap.Error(err))
		return
	}
	h.broker.Publish(stream, event, html)
}

// handleIndex renders the kiosk page with the current monitor state
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	renderHTML(h, w, http.StatusOK, h.renderer.MonitorPage, render.KioskPage{
		ClientID: uuid.NewString(),
		State:    h.monitor.State(),
	})
}

func (h *Handler) handlePartialRooms(w http.ResponseWriter, r *http.Request) {
	renderHTML(h, w, http.StatusOK, h.renderer.Rooms, h.monitor.State().Rooms)
}

func (h *Handler) handlePartialAlerts(w http.ResponseWriter, r *http.Request) {
	state := h.monitor.State()
	if !state.Settings.ShowAlerts {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	renderHTML(h, w, http.StatusOK, h.renderer.Alerts, service.AlertsView{Alerts: state.Alerts})
}

func (h *Handler) handlePartialSummary(w http.ResponseWriter, r *http.Request) {
	renderHTML(h, w, http.StatusOK, h.renderer.Summary, h.monitor.State().Summary)
}

// handleRefresh runs one poll now. A failed poll leaves the page as it is.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Refresh(r.Context()); err != nil {
		h.logger.Warn("Manual refresh failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVisibility receives the visibility of one monitor page
func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	visible, err := strconv.ParseBool(r.FormValue("visible"))
	if err != nil {
		http.Error(w, "visible must be true or false", http.StatusBadRequest)
		return
	}
	client := r.FormValue("client")
	if client == "" {
		http.Error(w, "client is required", http.StatusBadRequest)
		return
	}

	if err := h.monitor.SetClientVisible(client, visible); err != nil {
		if errors.Is(err, service.ErrUnknownClient) {
			http.Error(w, "client is not connected", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to update visibility", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRoomDetail renders the roster modal. Nothing is rendered when the fetch fails.
func (h *Handler) handleRoomDetail(w http.ResponseWriter, r *http.Request) {
	roomID := models.ID(r.PathValue("id"))
	detail, err := h.monitor.RoomDetail(r.Context(), roomID)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	renderHTML(h, w, http.StatusOK, h.renderer.RoomDetail, detail)
}

// handlePrint renders the standalone print document. Nothing is rendered when the fetch fails.
func (h *Handler) handlePrint(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.PrintReport(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	renderHTML(h, w, http.StatusOK, h.renderer.PrintDocument, report)
}

func (h *Handler) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	renderHTML(h, w, http.StatusOK, h.renderer.SettingsForm, render.SettingsForm{Settings: h.monitor.Settings()})
}

// handleSaveSettings saves the settings form. Checkboxes are only sent when checked.
func (h *Handler) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	interval, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("refreshInterval")))
	if err != nil {
		renderHTML(h, w, http.StatusUnprocessableEntity, h.renderer.SettingsForm, render.SettingsForm{
			Settings: h.monitor.Settings(),
			Error:    "فترة التحديث يجب أن تكون رقماً",
		})
		return
	}

	settings := models.MonitorSettings{
		RefreshInterval: interval,
		ShowAlerts:      formBool(r, "showAlerts"),
		EnableSounds:    formBool(r, "enableSounds"),
		KioskMode:       formBool(r, "kioskMode"),
	}

	if err := h.monitor.SaveSettings(r.Context(), settings); err != nil {
		if errors.Is(err, service.ErrInvalidSettings) {
			renderHTML(h, w, http.StatusUnprocessableEntity, h.renderer.SettingsForm, render.SettingsForm{
				Settings: settings,
				Error:    "فترة التحديث يجب أن تكون بين 1 و 3600 ثانية",
			})
			return
		}
		h.logger.Error("Failed to save monitor settings", zap.Error(err))
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	// Kiosk mode and the alerts panel are part of the page layout
	w.Header().Set("HX-Refresh", "true")
	renderHTML(h, w, http.StatusOK, h.renderer.SettingsForm, render.SettingsForm{Settings: settings, Saved: true})
}

func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(r.PostFormValue(key)) {
	case "true", "on", "1":
		return true
	}
	return false
}

// NotifyMonitorUpdate pushes the regions a poll changed to the monitor stream
func (h *Handler) NotifyMonitorUpdate(update service.MonitorUpdate) {
	publishFragment(h, MonitorStream, "summary", h.renderer.Summary, update.Summary)

	if update.RoomsChanged {
		h.logger.Debug("Publishing room grid", zap.Int("rooms", len(update.Rooms)))
		publishFragment(h, MonitorStream, "rooms", h.renderer.Rooms, update.Rooms)
	}

	if update.Alerts != nil {
		publishFragment(h, MonitorStream, "alerts", h.renderer.Alerts, *update.Alerts)
	}
}

// NotifyFormUpdate pushes the widgets of a schedule form to its stream
func (h *Handler) NotifyFormUpdate(view service.FormView) {
	h.logger.Debug("Publishing form widgets",
		utils.SafeString("form_id", view.ID), zap.Stringer("state", view.State))
	publishFragment(h, FormStream(view.ID), "form", h.renderer.FormWidgets, view)
}
