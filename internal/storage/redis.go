package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/motia-studio/engine/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisAdapterName = "redis"
	redisKeyPrefix   = "motia:collection:"
)

// RedisAdapter stores each collection document under one string key, which
// lets independent serverless invocations share state.
type RedisAdapter struct {
	rdb *redis.Client
}

var _ Adapter = (*RedisAdapter)(nil)

func NewRedisAdapter(rdb *redis.Client) *RedisAdapter {
	return &RedisAdapter{rdb: rdb}
}

func (a *RedisAdapter) Name() string { return redisAdapterName }

func (a *RedisAdapter) Close() error { return a.rdb.Close() }

func redisKey(c Collection) string { return redisKeyPrefix + string(c) }

func (a *RedisAdapter) LoadCollection(ctx context.Context, c Collection) (Snapshot, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	data, err := a.rdb.Get(ctx, redisKey(c)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", c, err)
	}
	snap, err := decodeDocument(data)
	if err != nil {
		logger.L().Warn("collection key is corrupt, treating as empty",
			zap.String("collection", string(c)), zap.String("key", redisKey(c)), zap.Error(err))
	}
	return snap, nil
}

func (a *RedisAdapter) SaveCollection(ctx context.Context, c Collection, snap Snapshot) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if snap == nil {
		snap = Snapshot{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	if err := a.rdb.Set(ctx, redisKey(c), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c, err)
	}
	return nil
}
