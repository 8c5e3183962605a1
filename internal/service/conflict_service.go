package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/educore/monitor/internal/debounce"
	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/utils"
)

// ErrSubmissionBlocked is returned by Submit while the conflict banner is visible
var ErrSubmissionBlocked = errors.New("submission blocked by room conflict")

// ConflictAPI is the part of the EDUCORE API used by the conflict checker
type ConflictAPI interface {
	CheckConflict(ctx context.Context, q models.ConflictQuery) (*models.ConflictResult, error)
	AvailableRooms(ctx context.Context, slot models.Slot) ([]models.AvailableRoom, error)
}

// CheckState is the state of a conflict checker
type CheckState int

const (
	StateIdle CheckState = iota
	StateChecking
	StateConflict
	StateAvailable
)

func (s CheckState) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateConflict:
		return "conflict"
	case StateAvailable:
		return "available"
	default:
		return "idle"
	}
}

// FormView is everything needed to render the schedule form widgets
type FormView struct {
	ID     string
	Fields models.ScheduleFields
	State  CheckState
	// Loading is shown while a check is outstanding
	Loading bool
	// Conflict is non-nil while the conflict banner is visible
	Conflict       *models.Conflict
	ShowSuccess    bool
	AvailableRooms []models.AvailableRoom
}

// ConflictVisible reports whether the conflict banner is shown
func (v FormView) ConflictVisible() bool {
	return v.Conflict != nil
}

// FieldsMarked reports whether room, day and time carry the invalid marker
func (v FormView) FieldsMarked() bool {
	return v.Conflict != nil
}

// SubmitBlocked reports whether Submit would be vetoed
func (v FormView) SubmitBlocked() bool {
	return v.Conflict != nil
}

// FormUpdateCallback receives the view after every state change
type FormUpdateCallback func(FormView)

// CheckerConfig holds the timings of a conflict checker
type CheckerConfig struct {
	DebounceDelay     time.Duration
	SuccessBannerTTL  time.Duration
	InitialCheckDelay time.Duration
}

// ConflictChecker watches the schedule fields of one group form and checks
// the settled values against the conflict endpoint.
type ConflictChecker struct {
	id             string
	api            ConflictAPI
	cfg            CheckerConfig
	logger         *zap.Logger
	ctx            context.Context
	excludeGroupID *string
	notify         FormUpdateCallback

	mu             sync.Mutex
	fields         models.ScheduleFields
	state          CheckState
	prevState      CheckState
	conflict       *models.Conflict
	showSuccess    bool
	availableRooms []models.AvailableRoom
	seq            uint64
	successGen     uint64
	successTimer   *time.Timer
	initialTimer   *time.Timer
	initialPending bool
	debouncer      *debounce.Debouncer
	closed         bool
}

// NewConflictChecker creates a checker. ctx carries the credentials used for
// every request the checker makes; notify may be nil.
func NewConflictChecker(ctx context.Context, id string, api ConflictAPI, cfg CheckerConfig, logger *zap.Logger,
	fields models.ScheduleFields, excludeGroupID *string, notify FormUpdateCallback) *ConflictChecker {
	c := &ConflictChecker{
		id:             id,
		api:            api,
		cfg:            cfg,
		logger:         logger.With(zap.String("form_id", id)),
		ctx:            ctx,
		excludeGroupID: excludeGroupID,
		notify:         notify,
		fields:         fields,
	}
	c.debouncer = debounce.New(cfg.DebounceDelay, func() { c.check(false) })
	return c
}

// ID returns the form session id
func (c *ConflictChecker) ID() string {
	return c.id
}

// Start schedules the initial check for prefilled fields
func (c *ConflictChecker) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.initialTimer != nil {
		return
	}
	c.initialPending = true
	c.initialTimer = time.AfterFunc(c.cfg.InitialCheckDelay, func() { c.check(true) })
}

// Change replaces the watched field values and re-arms the debounce timer
func (c *ConflictChecker) Change(fields models.ScheduleFields) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.fields = fields
	// The debounced check replaces the initial one
	c.initialPending = false
	if c.initialTimer != nil {
		c.initialTimer.Stop()
	}
	c.mu.Unlock()

	c.debouncer.Trigger()
}

// Submit returns ErrSubmissionBlocked while the conflict banner is visible
func (c *ConflictChecker) Submit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conflict != nil {
		return ErrSubmissionBlocked
	}
	return nil
}

// View returns the current view
func (c *ConflictChecker) View() FormView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Close cancels every pending timer. Responses arriving afterwards are dropped.
func (c *ConflictChecker) Close() {
	c.debouncer.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.initialTimer != nil {
		c.initialTimer.Stop()
	}
	if c.successTimer != nil {
		c.successTimer.Stop()
	}
}

func (c *ConflictChecker) viewLocked() FormView {
	var rooms []models.AvailableRoom
	if c.availableRooms != nil {
		rooms = append([]models.AvailableRoom(nil), c.availableRooms...)
	}
	var conflict *models.Conflict
	if c.conflict != nil {
		cp := *c.conflict
		conflict = &cp
	}
	return FormView{
		ID:             c.id,
		Fields:         c.fields,
		State:          c.state,
		Loading:        c.state == StateChecking,
		Conflict:       conflict,
		ShowSuccess:    c.showSuccess,
		AvailableRooms: rooms,
	}
}

// publishLocked hands the view to the listener while the lock is held so
// listeners see views in state order.
func (c *ConflictChecker) publishLocked() {
	if c.notify != nil {
		c.notify(c.viewLocked())
	}
}

// clearLocked hides both banners and the available rooms panel
func (c *ConflictChecker) clearLocked() {
	c.conflict = nil
	c.showSuccess = false
	c.availableRooms = nil
	c.successGen++
	if c.successTimer != nil {
		c.successTimer.Stop()
		c.successTimer = nil
	}
	c.state = StateIdle
	// Outstanding responses belong to values that are no longer settled
	c.seq++
}

// check runs one conflict check on the current fields. The initial check is
// skipped once a field change has taken over.
func (c *ConflictChecker) check(initial bool) {
	c.mu.Lock()
	if c.closed || (initial && !c.initialPending) {
		c.mu.Unlock()
		return
	}
	if initial {
		c.initialPending = false
	}

	fields := c.fields
	if !fields.Complete() {
		c.clearLocked()
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	query := fields.Query(c.excludeGroupID)
	if err := models.Validate(query); err != nil {
		c.logger.Info("Skipping conflict check for invalid input",
			utils.SafeString("room_id", query.RoomID),
			utils.SafeString("day", query.Day),
			utils.SafeString("time", query.Time),
			zap.Error(err))
		c.clearLocked()
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	c.seq++
	seq := c.seq
	if c.state != StateChecking {
		c.prevState = c.state
	}
	c.state = StateChecking
	c.publishLocked()
	c.mu.Unlock()

	result, err := c.api.CheckConflict(c.ctx, query)

	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.logger.Debug("Dropping stale conflict check response", zap.Uint64("seq", seq))
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.logger.Warn("Conflict check failed", zap.Error(err))
		c.state = c.prevState
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	if result.HasConflict {
		conflict := result.Conflict
		if conflict == nil {
			conflict = &models.Conflict{}
		}
		c.state = StateConflict
		c.conflict = conflict
		c.showSuccess = false
		c.successGen++
		if c.successTimer != nil {
			c.successTimer.Stop()
			c.successTimer = nil
		}
		c.logger.Debug("Room conflict detected",
			utils.SafeString("group", conflict.GroupName))
	} else {
		c.state = StateAvailable
		c.conflict = nil
		c.showSuccessLocked()
	}
	c.publishLocked()
	c.mu.Unlock()

	c.fetchAvailableRooms(seq, query.Slot())
}

func (c *ConflictChecker) showSuccessLocked() {
	c.showSuccess = true
	c.successGen++
	gen := c.successGen
	if c.successTimer != nil {
		c.successTimer.Stop()
	}
	c.successTimer = time.AfterFunc(c.cfg.SuccessBannerTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed || gen != c.successGen {
			return
		}
		c.showSuccess = false
		c.successTimer = nil
		c.publishLocked()
	})
}

func (c *ConflictChecker) fetchAvailableRooms(seq uint64, slot models.Slot) {
	rooms, err := c.api.AvailableRooms(c.ctx, slot)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.seq {
		return
	}
	if err != nil {
		c.logger.Warn("Failed to load available rooms", zap.Error(err))
		return
	}
	if rooms == nil {
		rooms = []models.AvailableRoom{}
	}
	c.availableRooms = rooms
	c.publishLocked()
}
