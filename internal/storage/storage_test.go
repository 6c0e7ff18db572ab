package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/motia-studio/engine/pkg/config"
	"github.com/motia-studio/engine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	os.Exit(m.Run())
}

func sample() Snapshot {
	return Snapshot{
		"proj_a": json.RawMessage(`{"id":"proj_a","name":"Todo API","createdAt":"2025-01-02T03:04:05.678Z"}`),
		"proj_b": json.RawMessage(`{"id":"proj_b","name":"Webhook Handler"}`),
	}
}

// exerciseAdapter runs the behaviour every adapter shares.
func exerciseAdapter(t *testing.T, a Adapter) {
	t.Helper()
	ctx := context.Background()

	for _, c := range Collections {
		snap, err := a.LoadCollection(ctx, c)
		require.NoError(t, err)
		require.Empty(t, snap, c)
	}

	require.NoError(t, a.SaveCollection(ctx, Projects, sample()))
	got, err := a.LoadCollection(ctx, Projects)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, string(sample()["proj_a"]), string(got["proj_a"]))

	// Saves replace the whole document.
	require.NoError(t, a.SaveCollection(ctx, Projects, Snapshot{"proj_c": json.RawMessage(`{"id":"proj_c"}`)}))
	got, err = a.LoadCollection(ctx, Projects)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Contains(t, got, "proj_c")

	other, err := a.LoadCollection(ctx, Deployments)
	require.NoError(t, err)
	require.Empty(t, other)

	_, err = a.LoadCollection(ctx, Collection("users"))
	require.Error(t, err)
}

func TestFileAdapter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".data")
	a, err := NewFileAdapter(dir)
	require.NoError(t, err)

	for _, c := range Collections {
		b, err := os.ReadFile(filepath.Join(dir, string(c)+".json"))
		require.NoError(t, err)
		require.Equal(t, "{}", string(b))
	}
	exerciseAdapter(t, a)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3, "no temp files are left behind")
}

func TestFileAdapterKeepsExistingData(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileAdapter(dir)
	require.NoError(t, err)
	require.NoError(t, a.SaveCollection(context.Background(), Templates, sample()))

	b, err := NewFileAdapter(dir)
	require.NoError(t, err)
	got, err := b.LoadCollection(context.Background(), Templates)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestFileAdapterToleratesCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileAdapter(dir)
	require.NoError(t, err)

	for _, content := range []string{"", "   \n", "{not json", "[1,2,3]", "null"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.json"), []byte(content), 0o644))
		snap, err := a.LoadCollection(context.Background(), Projects)
		require.NoError(t, err, "content %q", content)
		require.NotNil(t, snap)
		require.Empty(t, snap)
	}

	require.NoError(t, os.Remove(filepath.Join(dir, "deployments.json")))
	snap, err := a.LoadCollection(context.Background(), Deployments)
	require.NoError(t, err)
	require.Empty(t, snap)
}

func TestMemoryAdapter(t *testing.T) {
	a := NewMemoryAdapter()
	exerciseAdapter(t, a)

	// Callers cannot mutate stored bytes through a loaded snapshot.
	ctx := context.Background()
	require.NoError(t, a.SaveCollection(ctx, Templates, sample()))
	snap, err := a.LoadCollection(ctx, Templates)
	require.NoError(t, err)
	snap["proj_a"][2] = 'X'
	delete(snap, "proj_b")

	again, err := a.LoadCollection(ctx, Templates)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.JSONEq(t, string(sample()["proj_a"]), string(again["proj_a"]))
}

func TestResolveDriver(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"local default", config.Config{StorageDriver: "auto", AppEnv: "development"}, DriverFile},
		{"vercel", config.Config{StorageDriver: "auto", AppEnv: "development", Vercel: true}, DriverMemory},
		{"serverless flag", config.Config{StorageDriver: "auto", Serverless: true}, DriverMemory},
		{"production", config.Config{StorageDriver: "auto", AppEnv: "production"}, DriverMemory},
		{"explicit wins", config.Config{StorageDriver: "redis", Vercel: true}, DriverRedis},
		{"explicit file in production", config.Config{StorageDriver: "file", AppEnv: "production"}, DriverFile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveDriver(&tc.cfg))
		})
	}
}

func TestSelectBuildsLocalAdapters(t *testing.T) {
	cfg := &config.Config{StorageDriver: "auto", AppEnv: "test", DataDir: t.TempDir()}
	a, err := Select(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "file", a.Name())

	cfg.Serverless = true
	a, err = Select(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "memory", a.Name())
}

func TestPostgresOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		AppEnv:            "test",
		DatabaseURL:       "postgres://u:p@localhost:5432/motia",
		DBMaxOpenConns:    4,
		DBMaxIdleConns:    2,
		DBConnMaxLifetime: time.Minute,
		DBSlowQuery:       50 * time.Millisecond,
	}
	opts := PostgresOptions(cfg)
	assert.Equal(t, cfg.DatabaseURL, opts.DSN)
	assert.Equal(t, "test", opts.AppEnv)
	assert.Equal(t, 4, opts.MaxOpenConns)
	assert.Equal(t, 2, opts.MaxIdleConns)
	assert.Equal(t, time.Minute, opts.ConnMaxLifetime)
	assert.Equal(t, 50*time.Millisecond, opts.SlowQuery)
	require.NotNil(t, opts.AfterConnect, "the snapshot table is migrated on connect")
}
