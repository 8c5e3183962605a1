// Package render turns view models into HTML fragments and pages
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded templates
type Renderer struct {
	templates *template.Template
	pulse     time.Duration
}

// MonitorPage is the view model of the kiosk page
type MonitorPage struct {
	ClientID string
	Settings models.MonitorSettings
	Summary  service.SummaryView
	Rooms    []models.RoomSnapshot
	Alerts   service.AlertsView
	PulseMS  int64
}

// SettingsForm is the view model of the settings dialog
type SettingsForm struct {
	Settings models.MonitorSettings
	Error    string
	Saved    bool
}

// New parses the embedded templates. pulse is the length of the counter animation.
func New(pulse time.Duration) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"checkIn":  checkIn,
		"weekdays": weekdays,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{templates: tmpl, pulse: pulse}, nil
}

func checkIn(t *string) string {
	if t == nil || *t == "" {
		return "-"
	}
	return *t
}

func weekdays() []models.Weekday {
	return []models.Weekday{
		models.Saturday, models.Sunday, models.Monday, models.Tuesday,
		models.Wednesday, models.Thursday, models.Friday,
	}
}

// KioskPage is one monitor page load. ClientID identifies the page on the
// event stream and in its visibility reports.
type KioskPage struct {
	ClientID string
	State    service.MonitorState
}

// MonitorPage renders the whole monitor page from a state snapshot
func (r *Renderer) MonitorPage(w io.Writer, kiosk KioskPage) error {
	state := kiosk.State
	page := MonitorPage{
		ClientID: kiosk.ClientID,
		Settings: state.Settings,
		Summary:  state.Summary,
		Rooms:    state.Rooms,
		Alerts:   service.AlertsView{Alerts: state.Alerts},
		PulseMS:  r.pulse.Milliseconds(),
	}
	return r.templates.ExecuteTemplate(w, "monitor_page", page)
}

// Summary renders the counters
func (r *Renderer) Summary(w io.Writer, summary service.SummaryView) error {
	return r.templates.ExecuteTemplate(w, "summary", summary)
}

// Rooms renders the room grid
func (r *Renderer) Rooms(w io.Writer, rooms []models.RoomSnapshot) error {
	return r.templates.ExecuteTemplate(w, "rooms", rooms)
}

// Alerts renders the alerts panel
func (r *Renderer) Alerts(w io.Writer, alerts service.AlertsView) error {
	return r.templates.ExecuteTemplate(w, "alerts", alerts)
}

// RoomDetail renders the room roster modal
func (r *Renderer) RoomDetail(w io.Writer, detail *models.RoomDetail) error {
	return r.templates.ExecuteTemplate(w, "room_detail", detail)
}

// PrintDocument renders the standalone print document
func (r *Renderer) PrintDocument(w io.Writer, report *models.PrintReport) error {
	return r.templates.ExecuteTemplate(w, "print_document", report)
}

// SettingsForm renders the settings dialog
func (r *Renderer) SettingsForm(w io.Writer, form SettingsForm) error {
	return r.templates.ExecuteTemplate(w, "settings_form", form)
}

// FormPage renders the schedule form page of a form session
func (r *Renderer) FormPage(w io.Writer, view service.FormView) error {
	return r.templates.ExecuteTemplate(w, "form_page", view)
}

// FormWidgets renders the banners, loading indicator and rooms panel of a form
func (r *Renderer) FormWidgets(w io.Writer, view service.FormView) error {
	return r.templates.ExecuteTemplate(w, "form_widgets", view)
}

// Bytes runs one of the render functions into a buffer
func Bytes[T any](fn func(io.Writer, T) error, data T) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
