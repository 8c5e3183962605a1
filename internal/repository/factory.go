// Package repository provides the initialization for repository implementations
package repository

import (
	"github.com/educore/monitor/internal/config"
	"github.com/educore/monitor/internal/repository/memory"
	"github.com/educore/monitor/internal/repository/redis"
)

// init registers the actual repository implementations
func init() {
	newRedisRepository = func(cfg config.RedisConfig) (Repository, error) {
		return redis.NewRepository(cfg)
	}

	newMemoryRepository = func() Repository {
		return memory.NewRepository()
	}
}
