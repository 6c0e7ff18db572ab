package storage

import (
	"context"
	"fmt"

	"github.com/motia-studio/engine/pkg/config"
	"github.com/motia-studio/engine/pkg/database"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

const (
	DriverAuto     = "auto"
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// ResolveDriver applies the selection policy. An explicit driver wins;
// "auto" picks the volatile adapter when invocations may run in fresh
// isolated processes and the file adapter otherwise.
func ResolveDriver(cfg *config.Config) string {
	if cfg.StorageDriver != "" && cfg.StorageDriver != DriverAuto {
		return cfg.StorageDriver
	}
	if cfg.IsServerless() {
		return DriverMemory
	}
	return DriverFile
}

// Select builds the adapter chosen by ResolveDriver.
func Select(ctx context.Context, cfg *config.Config) (Adapter, error) {
	driver := ResolveDriver(cfg)
	logger.L().Info("storage adapter selected",
		zap.String("driver", driver), zap.Bool("serverless", cfg.IsServerless()))

	switch driver {
	case DriverFile:
		return NewFileAdapter(cfg.DataDir)
	case DriverMemory:
		return NewMemoryAdapter(), nil
	case DriverRedis:
		rdb, err := database.OpenRedis(ctx, database.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return NewRedisAdapter(rdb), nil
	case DriverPostgres:
		db, err := database.OpenPostgres(ctx, PostgresOptions(cfg))
		if err != nil {
			return nil, err
		}
		return NewPostgresAdapter(db), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", driver)
}
