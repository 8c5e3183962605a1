// Package memory provides an in-memory implementation of the repository interface
package memory

import (
	"context"
	"sync"

	"github.com/educore/monitor/internal/models"
)

// ErrNotFound is returned when no settings have been saved
var ErrNotFound = models.ErrNotFound

// Repository implements the repository interface with in-memory storage
type Repository struct {
	settings *models.MonitorSettings
	mu       sync.RWMutex
}

// NewRepository creates a new in-memory repository
func NewRepository() *Repository {
	return &Repository{}
}

// LoadSettings returns a copy of the saved settings
func (r *Repository) LoadSettings(ctx context.Context) (*models.SettingsPatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.settings == nil {
		return nil, ErrNotFound
	}

	return models.PatchOf(*r.settings), nil
}

// SaveSettings stores a copy of the settings
func (r *Repository) SaveSettings(ctx context.Context, settings *models.MonitorSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *settings
	r.settings = &stored
	return nil
}

// Close is a no-op for the in-memory store
func (r *Repository) Close() error {
	return nil
}
