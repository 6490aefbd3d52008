package cache

import (
	"fmt"

	"github.com/jaennil/guide_helper/backend/offline/pkg/config"
	"github.com/jaennil/guide_helper/backend/offline/pkg/logger"
)

const (
	BackendMap        = "map"
	BackendSQLite     = "sqlite"
	BackendRedis      = "redis"
	BackendFilesystem = "filesystem"
)

// NewStorage creates the configured backend, wrapped with metrics.
func NewStorage(cfg config.Cache, redisCfg config.Redis, l logger.Logger) (Storage, error) {
	var (
		s   Storage
		err error
	)

	switch cfg.Backend {
	case BackendMap:
		l.Info("using in-memory cache")
		s = NewMapStorage()
	case BackendSQLite:
		l.Info("using sqlite cache", "path", cfg.SQLitePath)
		s, err = NewSQLiteStorage(cfg.SQLitePath, l)
	case BackendRedis:
		l.Info("using redis cache", "addr", redisCfg.Addr, "db", redisCfg.DB)
		s, err = NewRedisStorage(RedisConfig{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Prefix:   redisCfg.Prefix,
		})
	case BackendFilesystem:
		l.Info("using filesystem cache", "dir", cfg.FilesystemDir)
		s, err = NewFilesystemStorage(cfg.FilesystemDir)
	default:
		return nil, fmt.Errorf("%w: %s (supported: map, sqlite, redis, filesystem)", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return Instrument(s, cfg.Backend), nil
}
