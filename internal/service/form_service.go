package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/educore/monitor/internal/models"
)

// ErrFormNotFound is returned for an unknown or closed form session
var ErrFormNotFound = errors.New("form session not found")

// formSession is an open schedule form and when it was last used
type formSession struct {
	checker  *ConflictChecker
	lastUsed time.Time
}

// FormService keeps one conflict checker per open schedule form
type FormService struct {
	api    ConflictAPI
	cfg    CheckerConfig
	logger *zap.Logger

	mu              sync.RWMutex
	forms           map[string]*formSession
	updateCallbacks []FormUpdateCallback
}

// NewFormService creates a new FormService
func NewFormService(api ConflictAPI, cfg CheckerConfig, logger *zap.Logger) *FormService {
	return &FormService{
		api:             api,
		cfg:             cfg,
		logger:          logger,
		forms:           make(map[string]*formSession),
		updateCallbacks: make([]FormUpdateCallback, 0),
	}
}

// RegisterUpdateCallback registers a callback called with every form view change
func (s *FormService) RegisterUpdateCallback(callback FormUpdateCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCallbacks = append(s.updateCallbacks, callback)
}

func (s *FormService) notifyUpdate(view FormView) {
	s.mu.RLock()
	callbacks := s.updateCallbacks
	s.mu.RUnlock()

	for _, callback := range callbacks {
		callback(view)
	}
}

// Open starts a checker for a new form session. The credentials found in ctx
// are used for every request of the session.
func (s *FormService) Open(ctx context.Context, fields models.ScheduleFields, excludeGroupID *string) *ConflictChecker {
	id := uuid.NewString()
	// Requests outlive the HTTP request that opened the form
	reqCtx := context.WithoutCancel(ctx)

	checker := NewConflictChecker(reqCtx, id, s.api, s.cfg, s.logger, fields, excludeGroupID, s.notifyUpdate)

	s.mu.Lock()
	s.forms[id] = &formSession{checker: checker, lastUsed: time.Now()}
	s.mu.Unlock()

	checker.Start()
	s.logger.Debug("Opened schedule form session", zap.String("form_id", id))
	return checker
}

// Get returns the checker of an open form session
func (s *FormService) Get(id string) (*ConflictChecker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	session.lastUsed = time.Now()
	return session.checker, nil
}

// Close stops and forgets a form session
func (s *FormService) Close(id string) error {
	s.mu.Lock()
	session, ok := s.forms[id]
	delete(s.forms, id)
	s.mu.Unlock()

	if !ok {
		return ErrFormNotFound
	}
	session.checker.Close()
	return nil
}

// CloseAll stops every open form session
func (s *FormService) CloseAll() {
	s.mu.Lock()
	forms := s.forms
	s.forms = make(map[string]*formSession)
	s.mu.Unlock()

	for _, session := range forms {
		session.checker.Close()
	}
}

// Expire closes the sessions that have not been used for longer than maxIdle
// and returns their ids. A session for which inUse reports true counts as
// used now; inUse may be nil.
func (s *FormService) Expire(maxIdle time.Duration, inUse func(id string) bool) []string {
	now := time.Now()
	var expired []string
	var checkers []*ConflictChecker

	s.mu.Lock()
	for id, session := range s.forms {
		if inUse != nil && inUse(id) {
			session.lastUsed = now
			continue
		}
		if now.Sub(session.lastUsed) > maxIdle {
			delete(s.forms, id)
			expired = append(expired, id)
			checkers = append(checkers, session.checker)
		}
	}
	s.mu.Unlock()

	for _, checker := range checkers {
		checker.Close()
	}
	if len(expired) > 0 {
		s.logger.Info("Expired idle schedule form sessions", zap.Int("count", len(expired)))
	}
	return expired
}

// Count returns the number of open form sessions
func (s *FormService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forms)
}
