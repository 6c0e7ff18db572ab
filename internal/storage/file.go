package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

const fileAdapterName = "file"

// FileAdapter keeps one JSON document per collection under a data
// directory. Writes go through a temporary file and a rename, so readers
// never observe a partially written document.
type FileAdapter struct {
	dir string
	// mu serializes writers within this process. Cooperating processes on
	// the same directory still race, with the last rename winning.
	mu sync.Mutex
}

var _ Adapter = (*FileAdapter)(nil)

// NewFileAdapter creates dir if needed and initialises every missing
// collection file with an empty document.
func NewFileAdapter(dir string) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	a := &FileAdapter{dir: dir}
	for _, c := range Collections {
		path := a.path(c)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if err := writeAtomic(path, []byte("{}")); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *FileAdapter) Name() string { return fileAdapterName }

// Dir returns the data directory.
func (a *FileAdapter) Dir() string { return a.dir }

func (a *FileAdapter) Close() error { return nil }

func (a *FileAdapter) path(c Collection) string {
	return filepath.Join(a.dir, string(c)+".json")
}

func (a *FileAdapter) LoadCollection(ctx context.Context, c Collection) (Snapshot, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.path(c))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c, err)
	}
	snap, err := decodeDocument(data)
	if err != nil {
		logger.L().Warn("collection file is corrupt, treating as empty",
			zap.String("collection", string(c)), zap.String("path", a.path(c)), zap.Error(err))
	}
	return snap, nil
}

func (a *FileAdapter) SaveCollection(ctx context.Context, c Collection, snap Snapshot) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		snap = Snapshot{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return writeAtomic(a.path(c), data)
}

// writeAtomic writes data to a temporary file in the destination directory,
// syncs it, renames it over path and syncs the directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Best effort: some filesystems do not support syncing a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
