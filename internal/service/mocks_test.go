package service_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/service"
)

// MockConflictAPI is a mock of the conflict endpoints that also records the
// requests it received
type MockConflictAPI struct {
	mock.Mock

	mu      sync.Mutex
	queries []models.ConflictQuery
	slots   []models.Slot
}

func (m *MockConflictAPI) CheckConflict(ctx context.Context, q models.ConflictQuery) (*models.ConflictResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()

	args := m.Called(ctx, q)
	result, _ := args.Get(0).(*models.ConflictResult)
	return result, args.Error(1)
}

func (m *MockConflictAPI) AvailableRooms(ctx context.Context, slot models.Slot) ([]models.AvailableRoom, error) {
	m.mu.Lock()
	m.slots = append(m.slots, slot)
	m.mu.Unlock()

	args := m.Called(ctx, slot)
	rooms, _ := args.Get(0).([]models.AvailableRoom)
	return rooms, args.Error(1)
}

func (m *MockConflictAPI) Queries() []models.ConflictQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ConflictQuery(nil), m.queries...)
}

func (m *MockConflictAPI) Slots() []models.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Slot(nil), m.slots...)
}

// viewRecorder collects the views published by a checker
type viewRecorder struct {
	mu    sync.Mutex
	views []service.FormView
}

func (r *viewRecorder) OnUpdate(view service.FormView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
}

func (r *viewRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *viewRecorder) Last() service.FormView {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return service.FormView{}
	}
	return r.views[len(r.views)-1]
}

// fakeMonitorAPI serves queued live status responses. A response with a
// non-nil gate blocks until the gate is closed.
type fakeMonitorAPI struct {
	mu        sync.Mutex
	responses []liveResponse
	fallback  liveResponse
	calls     int

	detail    *models.RoomDetail
	detailErr error
	report    *models.PrintReport
	reportErr error
}

type liveResponse struct {
	status *models.LiveStatus
	err    error
	gate   chan struct{}
}

func (f *fakeMonitorAPI) Queue(status *models.LiveStatus, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, liveResponse{status: status, err: err})
}

func (f *fakeMonitorAPI) QueueGated(status *models.LiveStatus, gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, liveResponse{status: status, gate: gate})
}

func (f *fakeMonitorAPI) SetFallback(status *models.LiveStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = liveResponse{status: status}
}

func (f *fakeMonitorAPI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeMonitorAPI) LiveStatus(ctx context.Context) (*models.LiveStatus, error) {
	f.mu.Lock()
	f.calls++
	resp := f.fallback
	if len(f.responses) > 0 {
		resp = f.responses[0]
		f.responses = f.responses[1:]
	}
	f.mu.Unlock()

	if resp.gate != nil {
		<-resp.gate
	}
	if resp.err != nil {
		return nil, resp.err
	}
	if resp.status == nil {
		return &models.LiveStatus{}, nil
	}
	status := *resp.status
	return &status, nil
}

func (f *fakeMonitorAPI) RoomDetail(ctx context.Context, roomID models.ID) (*models.RoomDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeMonitorAPI) PrintReport(ctx context.Context) (*models.PrintReport, error) {
	return f.report, f.reportErr
}

// updateRecorder collects monitor updates
type updateRecorder struct {
	mu      sync.Mutex
	updates []service.MonitorUpdate
}

func (r *updateRecorder) OnUpdate(update service.MonitorUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
}

func (r *updateRecorder) All() []service.MonitorUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.MonitorUpdate(nil), r.updates...)
}

func (r *updateRecorder) RoomRenders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.updates {
		if u.RoomsChanged {
			n++
		}
	}
	return n
}
