package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/repository"
	"github.com/educore/monitor/internal/utils"
)

// ErrInvalidSettings is returned by SaveSettings for out of range values
var ErrInvalidSettings = errors.New("invalid monitor settings")

// ErrUnknownClient is returned for visibility reports of a page that is not connected
var ErrUnknownClient = errors.New("unknown monitor client")

// MonitorAPI is the part of the EDUCORE API used by the live monitor
type MonitorAPI interface {
	LiveStatus(ctx context.Context) (*models.LiveStatus, error)
	RoomDetail(ctx context.Context, roomID models.ID) (*models.RoomDetail, error)
	PrintReport(ctx context.Context) (*models.PrintReport, error)
}

// Counter is a summary counter. Pulse is set when the value changed in this update.
type Counter struct {
	Value int  `json:"value"`
	Pulse bool `json:"pulse"`
}

// SummaryView holds the dashboard counters and clock
type SummaryView struct {
	TotalPresent   Counter `json:"total_present"`
	ActiveSessions Counter `json:"active_sessions"`
	TotalRooms     int     `json:"total_rooms"`
	CurrentTime    string  `json:"current_time"`
	CurrentDate    string  `json:"current_date"`
	CurrentDayAr   string  `json:"current_day_ar"`
}

// AlertsView is the alerts panel
type AlertsView struct {
	Alerts []models.Alert
	// PlaySound is set when the update brought a danger alert that was not shown before
	PlaySound bool
}

// MonitorUpdate describes what a successful poll changed
type MonitorUpdate struct {
	Summary SummaryView
	// Rooms is only meaningful when RoomsChanged is set
	Rooms        []models.RoomSnapshot
	RoomsChanged bool
	// Alerts is nil when alerts are hidden by the settings
	Alerts *AlertsView
}

// MonitorUpdateCallback is called after every successful poll
type MonitorUpdateCallback func(MonitorUpdate)

// MonitorState is a snapshot of the monitor used to render whole pages
type MonitorState struct {
	Settings    models.MonitorSettings `json:"settings"`
	Summary     SummaryView            `json:"summary"`
	Rooms       []models.RoomSnapshot  `json:"rooms"`
	Alerts      []models.Alert         `json:"alerts"`
	LastUpdated time.Time              `json:"last_updated"`
	Visible     bool                   `json:"visible"`
	Clients     int                    `json:"clients"`
	Ready       bool                   `json:"ready"`
}

// MonitorService polls the live status endpoint and reconciles the
// results against what was last rendered.
type MonitorService struct {
	api      MonitorAPI
	repo     repository.Repository
	logger   *zap.Logger
	defaults models.MonitorSettings

	// intervalUnit scales RefreshInterval, which is in seconds
	intervalUnit time.Duration

	mu              sync.Mutex
	ctx             context.Context
	settings        models.MonitorSettings
	clients         map[string]*kioskClient
	stopTimer       func()
	activeTimers    int
	issued          uint64
	applied         uint64
	lastData        *models.LiveStatus
	lastRooms       []models.RoomSnapshot
	roomsRendered   bool
	totalPresent    int
	activeSessions  int
	alerts          []models.Alert
	lastUpdated     time.Time
	updateCallbacks []MonitorUpdateCallback
}

// NewMonitorService creates a new MonitorService. defaults are used for every
// setting that was never saved.
func NewMonitorService(api MonitorAPI, repo repository.Repository, defaults models.MonitorSettings, logger *zap.Logger) *MonitorService {
	return &MonitorService{
		api:             api,
		repo:            repo,
		logger:          logger,
		defaults:        defaults,
		intervalUnit:    time.Second,
		ctx:             context.Background(),
		settings:        defaults,
		clients:         make(map[string]*kioskClient),
		updateCallbacks: make([]MonitorUpdateCallback, 0),
	}
}

// RegisterUpdateCallback registers a callback function to be called when monitor data changes
func (s *MonitorService) RegisterUpdateCallback(callback MonitorUpdateCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCallbacks = append(s.updateCallbacks, callback)
}

// notifyLocked calls all registered callbacks in poll order
func (s *MonitorService) notifyLocked(update MonitorUpdate) {
	for _, callback := range s.updateCallbacks {
		callback(update)
	}
}

// LoadSettings reads the saved settings and merges them over the defaults
func (s *MonitorService) LoadSettings(ctx context.Context) {
	settings := s.defaults

	saved, err := s.repo.LoadSettings(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Debug("No saved monitor settings, using defaults")
	case err != nil:
		s.logger.Warn("Failed to load monitor settings, using defaults", zap.Error(err))
	default:
		settings = saved.Apply(s.defaults)
		if err := models.Validate(settings); err != nil {
			s.logger.Warn("Saved refresh interval out of range, using default", zap.Error(err))
			settings.RefreshInterval = s.defaults.RefreshInterval
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.restartTimerLocked()
}

// Run loads the settings, polls once and keeps the monitor alive until ctx is done
func (s *MonitorService) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.LoadSettings(ctx)

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("Initial live status poll failed", zap.Error(err))
	}

	<-ctx.Done()

	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	return nil
}

// kioskClient is one monitor page. A page may hold more than one stream
// connection while the browser reconnects.
type kioskClient struct {
	connections int
	hidden      bool
}

// Attach records a page connecting to the monitor stream. Connections without
// a client id share the anonymous entry, which is always visible.
func (s *MonitorService) Attach(client string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[client]
	if !ok {
		c = &kioskClient{}
		s.clients[client] = c
	}
	c.connections++
	s.updateTimerLocked()
}

// Detach records a page leaving the monitor stream
func (s *MonitorService) Detach(client string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[client]
	if !ok {
		return
	}
	c.connections--
	if c.connections <= 0 {
		delete(s.clients, client)
	}
	s.updateTimerLocked()
}

// SetClientVisible records the page visibility reported by one client. The
// refresh timer runs while at least one connected client is visible.
func (s *MonitorService) SetClientVisible(client string, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[client]
	if !ok || client == "" {
		return ErrUnknownClient
	}
	c.hidden = !visible
	s.updateTimerLocked()
	return nil
}

func (s *MonitorService) watchedLocked() bool {
	for _, c := range s.clients {
		if c.connections > 0 && !c.hidden {
			return true
		}
	}
	return false
}

// updateTimerLocked starts or tears down the refresh timer. Repeated calls
// never create a second timer.
func (s *MonitorService) updateTimerLocked() {
	if s.watchedLocked() {
		s.startTimerLocked()
	} else {
		s.stopTimerLocked()
	}
}

func (s *MonitorService) startTimerLocked() {
	if s.stopTimer != nil {
		return
	}

	ctx := s.ctx
	ticker := time.NewTicker(time.Duration(s.settings.RefreshInterval) * s.intervalUnit)
	done := make(chan struct{})
	s.stopTimer = func() {
		ticker.Stop()
		close(done)
	}
	s.activeTimers++

	go func() {
		for {
			select {
			case <-ticker.C:
				// Ticks do not wait for a slow poll to finish
				go s.poll(ctx)
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *MonitorService) stopTimerLocked() {
	if s.stopTimer == nil {
		return
	}
	s.stopTimer()
	s.stopTimer = nil
	s.activeTimers--
}

// restartTimerLocked picks up a new interval without changing visibility
func (s *MonitorService) restartTimerLocked() {
	if s.stopTimer == nil {
		return
	}
	s.stopTimerLocked()
	s.startTimerLocked()
}

func (s *MonitorService) poll(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("Live status poll failed", zap.Error(err))
	}
}

// Refresh fetches the live status once and reconciles it
func (s *MonitorService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	status, err := s.api.LiveStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch live status: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.applied {
		s.logger.Debug("Dropping stale live status response",
			zap.Uint64("seq", seq), zap.Uint64("applied", s.applied))
		return nil
	}
	s.applied = seq

	s.notifyLocked(s.reconcileLocked(status))
	return nil
}

func (s *MonitorService) reconcileLocked(status *models.LiveStatus) MonitorUpdate {
	rooms := status.Rooms
	if rooms == nil {
		rooms = []models.RoomSnapshot{}
	}
	alerts := status.Alerts
	if alerts == nil {
		alerts = []models.Alert{}
	}

	update := MonitorUpdate{
		Summary: SummaryView{
			TotalPresent:   updateCounter(&s.totalPresent, status.Summary.TotalPresentToday),
			ActiveSessions: updateCounter(&s.activeSessions, status.Summary.ActiveSessions),
			TotalRooms:     status.Summary.TotalRooms,
			CurrentTime:    status.Summary.CurrentTime,
			CurrentDate:    status.Summary.CurrentDate,
			CurrentDayAr:   status.Summary.CurrentDayAr,
		},
	}

	if !s.roomsRendered || !reflect.DeepEqual(s.lastRooms, rooms) {
		update.Rooms = rooms
		update.RoomsChanged = true
		s.lastRooms = rooms
		s.roomsRendered = true
	}

	if s.settings.ShowAlerts {
		playSound := s.settings.EnableSounds && hasNewDangerAlert(s.alerts, alerts)
		update.Alerts = &AlertsView{Alerts: alerts, PlaySound: playSound}
		if playSound {
			s.logger.Info("New danger alert", utils.SafeString("message", firstDanger(alerts)))
		}
	}
	s.alerts = alerts

	s.lastData = status
	s.lastUpdated = time.Now()
	return update
}

func updateCounter(current *int, value int) Counter {
	pulse := *current != value
	*current = value
	return Counter{Value: value, Pulse: pulse}
}

func hasNewDangerAlert(previous, current []models.Alert) bool {
	for _, alert := range current {
		if !alert.IsDanger() {
			continue
		}
		seen := false
		for _, old := range previous {
			if old == alert {
				seen = true
				break
			}
		}
		if !seen {
			return true
		}
	}
	return false
}

func firstDanger(alerts []models.Alert) string {
	for _, alert := range alerts {
		if alert.IsDanger() {
			return alert.Message
		}
	}
	return ""
}

// State returns a snapshot of the monitor
func (s *MonitorService) State() MonitorState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := MonitorState{
		Settings:    s.settings,
		Rooms:       append([]models.RoomSnapshot{}, s.lastRooms...),
		Alerts:      []models.Alert{},
		LastUpdated: s.lastUpdated,
		Visible:     s.watchedLocked(),
		Clients:     len(s.clients),
		Ready:       s.lastData != nil,
	}
	if s.settings.ShowAlerts {
		state.Alerts = append(state.Alerts, s.alerts...)
	}
	if s.lastData != nil {
		state.Summary = SummaryView{
			TotalPresent:   Counter{Value: s.totalPresent},
			ActiveSessions: Counter{Value: s.activeSessions},
			TotalRooms:     s.lastData.Summary.TotalRooms,
			CurrentTime:    s.lastData.Summary.CurrentTime,
			CurrentDate:    s.lastData.Summary.CurrentDate,
			CurrentDayAr:   s.lastData.Summary.CurrentDayAr,
		}
	}
	return state
}

// Ready reports whether at least one poll succeeded
func (s *MonitorService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastData != nil
}

// Settings returns the current settings
func (s *MonitorService) Settings() models.MonitorSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SaveSettings validates and persists the settings and restarts the refresh
// timer with the new interval.
func (s *MonitorService) SaveSettings(ctx context.Context, settings models.MonitorSettings) error {
	if err := models.Validate(settings); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := s.repo.SaveSettings(ctx, &settings); err != nil {
		return fmt.Errorf("failed to save monitor settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	s.restartTimerLocked()
	s.logger.Info("Monitor settings saved",
		zap.Duration("refresh_interval", settings.Interval()),
		zap.Bool("show_alerts", settings.ShowAlerts),
		zap.Bool("enable_sounds", settings.EnableSounds),
		zap.Bool("kiosk_mode", settings.KioskMode))
	return nil
}

// RoomDetail fetches the roster of one room on demand
func (s *MonitorService) RoomDetail(ctx context.Context, roomID models.ID) (*models.RoomDetail, error) {
	detail, err := s.api.RoomDetail(ctx, roomID)
	if err != nil {
		s.logger.Warn("Failed to load room detail",
			utils.SafeString("room_id", roomID.String()), zap.Error(err))
		return nil, err
	}
	return detail, nil
}

// PrintReport fetches the data of the printable report
func (s *MonitorService) PrintReport(ctx context.Context) (*models.PrintReport, error) {
	report, err := s.api.PrintReport(ctx)
	if err != nil {
		s.logger.Warn("Failed to load print report", zap.Error(err))
		return nil, err
	}
	return report, nil
}
