package storage

import (
	"context"
	"os"
	"testing"

	"github.com/motia-studio/engine/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRedisAdapter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := database.OpenRedis(ctx, database.RedisOptions{Addr: addr, DB: 15})
	require.NoError(t, err)
	for _, c := range Collections {
		require.NoError(t, rdb.Del(ctx, redisKey(c)).Err())
	}
	a := NewRedisAdapter(rdb)
	t.Cleanup(func() { _ = a.Close() })

	exerciseAdapter(t, a)

	require.NoError(t, rdb.Set(ctx, redisKey(Templates), "{broken", 0).Err())
	snap, err := a.LoadCollection(ctx, Templates)
	require.NoError(t, err)
	require.Empty(t, snap)
}

func TestPostgresAdapter(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, database.PostgresOptions{
		DSN:          dsn,
		AppEnv:       "test",
		AfterConnect: func(_ context.Context, db *gorm.DB) error { return Migrate(db) },
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec("DELETE FROM collection_snapshots").Error)

	a := NewPostgresAdapter(db)
	t.Cleanup(func() { _ = a.Close() })

	exerciseAdapter(t, a)
}
