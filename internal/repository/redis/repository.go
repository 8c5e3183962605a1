// Package redis provides a Redis/Valkey implementation of the repository interface
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/educore/monitor/internal/config"
	"github.com/educore/monitor/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no settings have been saved
var ErrNotFound = models.ErrNotFound

// Repository implements the repository interface with Redis storage
type Repository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRepository creates a new Redis repository
func NewRepository(cfg config.RedisConfig) (*Repository, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}

		// Use DB from config if not specified in the URI
		if opt.DB == 0 {
			opt.DB = cfg.DB
		}

		if opt.Password == "" && cfg.Password != "" {
			opt.Password = cfg.Password
		}

		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Repository{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.SettingsTTL,
	}, nil
}

// Close closes the Redis connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// settingsKey returns the Redis key holding the monitor settings
func (r *Repository) settingsKey() string {
	return r.keyPrefix + "monitor_settings"
}

// LoadSettings reads the stored settings blob. Keys missing from the blob are
// left nil so the caller can fill them from its own defaults.
func (r *Repository) LoadSettings(ctx context.Context) (*models.SettingsPatch, error) {
	data, err := r.client.Get(ctx, r.settingsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var patch models.SettingsPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &patch, nil
}

// SaveSettings writes the settings blob, replacing any previous value. The
// blob holds the four user settings and nothing else, so it stays compatible
// with what browsers kept in local storage under the same key.
func (r *Repository) SaveSettings(ctx context.Context, settings *models.MonitorSettings) error {
	data, err := json.Marshal(models.PatchOf(*settings))
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := r.client.Set(ctx, r.settingsKey(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}
