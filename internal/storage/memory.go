package storage

import (
	"context"
	"sync"
)

const memoryAdapterName = "memory"

// MemoryAdapter holds snapshots in process memory. Nothing survives a
// restart and nothing is shared with other processes.
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[Collection]Snapshot
}

var _ Adapter = (*MemoryAdapter)(nil)

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: make(map[Collection]Snapshot, len(Collections))}
}

func (a *MemoryAdapter) Name() string { return memoryAdapterName }

func (a *MemoryAdapter) Close() error { return nil }

func (a *MemoryAdapter) LoadCollection(ctx context.Context, c Collection) (Snapshot, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data[c].Clone(), nil
}

func (a *MemoryAdapter) SaveCollection(ctx context.Context, c Collection, snap Snapshot) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[c] = snap.Clone()
	return nil
}
