// Package repository defines interfaces for data storage
package repository

import (
	"context"

	"github.com/educore/monitor/internal/config"
	"github.com/educore/monitor/internal/models"
)

// ErrNotFound is returned when no settings have been saved yet
var ErrNotFound = models.ErrNotFound

// Repository defines the interface for persisting monitor settings
type Repository interface {
	// LoadSettings returns the saved settings or ErrNotFound. Keys missing
	// from the stored value are nil in the patch.
	LoadSettings(ctx context.Context) (*models.SettingsPatch, error)
	// SaveSettings replaces the saved settings (last write wins)
	SaveSettings(ctx context.Context, settings *models.MonitorSettings) error
	Close() error
}

// Constructors are registered by factory.go
var (
	newRedisRepository  func(cfg config.RedisConfig) (Repository, error)
	newMemoryRepository func() Repository
)

// NewRepository returns the redis backend when enabled, otherwise the in-memory one
func NewRepository(cfg config.RedisConfig) (Repository, error) {
	if cfg.Enabled {
		return newRedisRepository(cfg)
	}
	return newMemoryRepository(), nil
}
