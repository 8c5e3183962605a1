// Package redis_test provides tests for the Redis repository
package redis_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educore/monitor/internal/config"
	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/repository/redis"
)

func setupTestRedis(t *testing.T) (*redis.Repository, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cfg := config.RedisConfig{
		Enabled:     true,
		Host:        mr.Host(),
		Port:        mr.Port(),
		KeyPrefix:   "test:",
		SettingsTTL: time.Hour,
	}

	repo, err := redis.NewRepository(cfg)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		mr.Close()
	}

	return repo, mr, cleanup
}

// TestRedisWithURI tests connection with URI format
func TestRedisWithURI(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := config.RedisConfig{
		Enabled:   true,
		URI:       fmt.Sprintf("redis://%s:%s", mr.Host(), mr.Port()),
		KeyPrefix: "test:",
	}

	repo, err := redis.NewRepository(cfg)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.SaveSettings(ctx, &models.MonitorSettings{RefreshInterval: 8}))

	loaded, err := repo.LoadSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded.RefreshInterval)
	assert.Equal(t, 8, *loaded.RefreshInterval)
}

func TestSettingsRoundTrip(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("NothingSaved", func(t *testing.T) {
		_, err := repo.LoadSettings(ctx)
		assert.ErrorIs(t, err, redis.ErrNotFound)
	})

	saved := &models.MonitorSettings{RefreshInterval: 15, ShowAlerts: false, EnableSounds: true, KioskMode: false}

	t.Run("PersistsExactlyFourFields", func(t *testing.T) {
		require.NoError(t, repo.SaveSettings(ctx, saved))

		raw, err := mr.Get("test:monitor_settings")
		require.NoError(t, err)

		var blob map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &blob))
		assert.Len(t, blob, 4)
		assert.Equal(t, float64(15), blob["refreshInterval"])
		assert.Equal(t, false, blob["showAlerts"])
		assert.Equal(t, true, blob["enableSounds"])
		assert.Equal(t, false, blob["kioskMode"])

		assert.Equal(t, time.Hour, mr.TTL("test:monitor_settings"))
	})

	t.Run("ReloadReproducesSettings", func(t *testing.T) {
		loaded, err := repo.LoadSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, *saved, loaded.Apply(models.DefaultMonitorSettings()))
	})

	t.Run("PartialBlobLeavesMissingKeysUnset", func(t *testing.T) {
		require.NoError(t, mr.Set("test:monitor_settings", `{"refreshInterval": 9, "kioskMode": false}`))

		loaded, err := repo.LoadSettings(ctx)
		require.NoError(t, err)

		require.NotNil(t, loaded.RefreshInterval)
		assert.Equal(t, 9, *loaded.RefreshInterval)
		require.NotNil(t, loaded.KioskMode)
		assert.False(t, *loaded.KioskMode)
		assert.Nil(t, loaded.ShowAlerts)
		assert.Nil(t, loaded.EnableSounds)
	})

	t.Run("CorruptBlob", func(t *testing.T) {
		require.NoError(t, mr.Set("test:monitor_settings", `not json`))

		_, err := repo.LoadSettings(ctx)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, redis.ErrNotFound)
	})
}

func TestConnectionFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err = redis.NewRepository(config.RedisConfig{Enabled: true, Host: host, Port: port})
	assert.Error(t, err)
}
