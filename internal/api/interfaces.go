package api

import (
	"context"

	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/service"
)

// Monitor defines the monitor operations needed by the API handlers
type Monitor interface {
	Ready() bool
	State() service.MonitorState
	Settings() models.MonitorSettings
	SaveSettings(ctx context.Context, settings models.MonitorSettings) error
}
