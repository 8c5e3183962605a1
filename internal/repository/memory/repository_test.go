package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educore/monitor/internal/models"
	"github.com/educore/monitor/internal/repository/memory"
)

func TestSettingsRepository(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	t.Run("NothingSaved", func(t *testing.T) {
		_, err := repo.LoadSettings(ctx)
		assert.ErrorIs(t, err, memory.ErrNotFound)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		settings := &models.MonitorSettings{RefreshInterval: 10, ShowAlerts: false, EnableSounds: true, KioskMode: false}
		require.NoError(t, repo.SaveSettings(ctx, settings))

		loaded, err := repo.LoadSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, *settings, loaded.Apply(models.DefaultMonitorSettings()))

		// The store keeps its own copy
		settings.RefreshInterval = 99
		loaded, err = repo.LoadSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, *loaded.RefreshInterval)
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		require.NoError(t, repo.SaveSettings(ctx, &models.MonitorSettings{RefreshInterval: 3}))
		require.NoError(t, repo.SaveSettings(ctx, &models.MonitorSettings{RefreshInterval: 7, KioskMode: true}))

		loaded, err := repo.LoadSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.MonitorSettings{RefreshInterval: 7, KioskMode: true}, loaded.Apply(models.DefaultMonitorSettings()))
	})
}
