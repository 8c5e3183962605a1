package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/service"
)

// SubmissionBlockedMessage is shown to the user when a save is vetoed
const SubmissionBlockedMessage = "⛔ يوجد تعارض في الجدول! يرجى حل التعارض قبل الحفظ أو اختيار قاعة أخرى."

// setupScheduleRoutes registers the routes of the group schedule form
func (h *Handler) setupScheduleRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/schedule/forms", h.handleOpenForm)
	mux.HandleFunc("GET /admin/schedule/forms/{id}", h.handleFormPage)
	mux.HandleFunc("POST /admin/schedule/forms/{id}/fields", h.handleFormFields)
	mux.HandleFunc("POST /admin/schedule/forms/{id}/submit", h.handleFormSubmit)
	mux.HandleFunc("DELETE /admin/schedule/forms/{id}", h.handleCloseForm)
}

func scheduleFields(r *http.Request) models.ScheduleFields {
	return models.ScheduleFields{
		RoomID:   r.FormValue("room_id"),
		Day:      r.FormValue("day"),
		Time:     r.FormValue("time"),
		Duration: r.FormValue("duration"),
	}
}

// formChecker resolves the form session of the request or writes a 404
func (h *Handler) formChecker(w http.ResponseWriter, r *http.Request) (*service.ConflictChecker, bool) {
	checker, err := h.forms.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Form session not found", http.StatusNotFound)
		return nil, false
	}
	return checker, true
}

// handleOpenForm starts a conflict checker for a group form. The initial
// field values (the group being edited) are checked shortly after.
func (h *Handler) handleOpenForm(w http.ResponseWriter, r *http.Request) {
	var excludeGroupID *string
	if id := strings.TrimSpace(r.FormValue("exclude_group_id")); id != "" {
		excludeGroupID = &id
	}

	checker := h.forms.Open(r.Context(), scheduleFields(r), excludeGroupID)
	h.broker.OpenStream(FormStream(checker.ID()))

	w.Header().Set("Location", "/admin/schedule/forms/"+checker.ID())
	renderHTML(h, w, http.StatusCreated, h.renderer.FormPage, checker.View())
}

func (h *Handler) handleFormPage(w http.ResponseWriter, r *http.Request) {
	checker, ok := h.formChecker(w, r)
	if !ok {
		return
	}
	renderHTML(h, w, http.StatusOK, h.renderer.FormPage, checker.View())
}

// handleFormFields receives every edit of the watched fields
func (h *Handler) handleFormFields(w http.ResponseWriter, r *http.Request) {
	checker, ok := h.formChecker(w, r)
	if !ok {
		return
	}
	checker.Change(scheduleFields(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleFormSubmit vetoes the save while the conflict banner is shown
func (h *Handler) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	checker, ok := h.formChecker(w, r)
	if !ok {
		return
	}

	if err := checker.Submit(); err != nil {
		if errors.Is(err, service.ErrSubmissionBlocked) {
			h.logger.Info("Schedule form submission blocked", zap.String("form_id", checker.ID()))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(SubmissionBlockedMessage))
			return
		}
		http.Error(w, "Submission failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCloseForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.forms.Close(id); err != nil {
		http.Error(w, "Form session not found", http.StatusNotFound)
		return
	}
	h.broker.CloseStream(FormStream(id))
	w.WriteHeader(http.StatusNoContent)
}

// ExpireForms closes abandoned schedule form sessions every interval until
// ctx is done. A session with a connected event stream is never expired.
func (h *Handler) ExpireForms(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.expireForms(maxIdle)
		}
	}
}

func (h *Handler) expireForms(maxIdle time.Duration) []string {
	expired := h.forms.Expire(maxIdle, func(id string) bool {
		return h.broker.Subscribers(FormStream(id)) > 0
	})
	for _, id := range expired {
		h.broker.CloseStream(FormStream(id))
	}
	return expired
}
