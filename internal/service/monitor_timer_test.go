package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/repository/memory"
)

type countingAPI struct {
	calls atomic.Int32
}

func (c *countingAPI) LiveStatus(ctx context.Context) (*models.LiveStatus, error) {
	c.calls.Add(1)
	return &models.LiveStatus{}, nil
}

func (c *countingAPI) RoomDetail(ctx context.Context, roomID models.ID) (*models.RoomDetail, error) {
	return nil, nil
}

func (c *countingAPI) PrintReport(ctx context.Context) (*models.PrintReport, error) {
	return nil, nil
}

func newTickingMonitor(api MonitorAPI) *MonitorService {
	settings := models.DefaultMonitorSettings()
	settings.RefreshInterval = 2
	s := NewMonitorService(api, memory.NewRepository(), settings, zap.NewNop())
	s.intervalUnit = 10 * time.Millisecond
	return s
}

func (s *MonitorService) timers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTimers
}

func TestAttach_SingleTimer(t *testing.T) {
	api := &countingAPI{}
	s := newTickingMonitor(api)

	s.Attach("kiosk-a")
	s.Attach("kiosk-a")
	s.Attach("kiosk-b")
	assert.Equal(t, 1, s.timers())

	require.Eventually(t, func() bool { return api.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Detach("kiosk-a")
	s.Detach("kiosk-a")
	assert.Equal(t, 1, s.timers())
	s.Detach("kiosk-b")
	assert.Equal(t, 0, s.timers())
	s.Detach("kiosk-b")
	assert.Equal(t, 0, s.timers())

	// Allow a tick that was already dispatched to land
	time.Sleep(30 * time.Millisecond)
	stopped := api.calls.Load()
	assert.Never(t, func() bool { return api.calls.Load() > stopped }, 100*time.Millisecond, 10*time.Millisecond)

	s.Attach("")
	assert.Equal(t, 1, s.timers())
	assert.Eventually(t, func() bool { return api.calls.Load() > stopped }, time.Second, 5*time.Millisecond)
	s.Detach("")
	assert.Equal(t, 0, s.timers())
}

func TestSetClientVisible_OneHiddenKioskKeepsOthersPolling(t *testing.T) {
	api := &countingAPI{}
	s := newTickingMonitor(api)

	s.Attach("kiosk-a")
	s.Attach("kiosk-b")

	require.NoError(t, s.SetClientVisible("kiosk-a", false))
	assert.Equal(t, 1, s.timers())
	assert.True(t, s.State().Visible)

	before := api.calls.Load()
	assert.Eventually(t, func() bool { return api.calls.Load() >= before+3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.SetClientVisible("kiosk-b", false))
	assert.Equal(t, 0, s.timers())
	assert.False(t, s.State().Visible)

	require.NoError(t, s.SetClientVisible("kiosk-a", true))
	assert.Equal(t, 1, s.timers())

	// The visible kiosk leaves; the remaining one is hidden
	s.Detach("kiosk-a")
	assert.Equal(t, 0, s.timers())
	assert.Equal(t, 1, s.State().Clients)

	assert.ErrorIs(t, s.SetClientVisible("kiosk-a", true), ErrUnknownClient)
	assert.ErrorIs(t, s.SetClientVisible("", false), ErrUnknownClient)
	s.Detach("kiosk-b")
	assert.Equal(t, 0, s.State().Clients)
}

func TestAttach_TickRate(t *testing.T) {
	api := &countingAPI{}
	s := newTickingMonitor(api)

	// Ticks every 20ms; duplicated timers would roughly double the rate
	s.Attach("kiosk-a")
	s.Attach("kiosk-b")
	require.NoError(t, s.SetClientVisible("kiosk-a", true))
	time.Sleep(210 * time.Millisecond)
	s.Detach("kiosk-a")
	s.Detach("kiosk-b")

	calls := api.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(5))
	assert.LessOrEqual(t, calls, int32(12))
}

func TestSaveSettings_RestartsTimer(t *testing.T) {
	api := &countingAPI{}
	s := newTickingMonitor(api)
	ctx := context.Background()

	require.NoError(t, s.SaveSettings(ctx, models.MonitorSettings{RefreshInterval: 3, ShowAlerts: true}))
	assert.Equal(t, 0, s.timers(), "unwatched monitor stays stopped")

	s.Attach("kiosk-a")
	require.NoError(t, s.SaveSettings(ctx, models.MonitorSettings{RefreshInterval: 1, ShowAlerts: true}))
	assert.Equal(t, 1, s.timers())
	assert.Eventually(t, func() bool { return api.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Detach("kiosk-a")
}
