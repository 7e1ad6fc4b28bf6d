package repository

import (
	"context"
	"sync"
)

// MemorySlotRepository keeps snapshots in process memory.
type MemorySlotRepository struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemorySlotRepository() *MemorySlotRepository {
	return &MemorySlotRepository{slots: make(map[string][]byte)}
}

func (r *MemorySlotRepository) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.slots[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (r *MemorySlotRepository) Save(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[key] = append([]byte(nil), value...)
	return nil
}

func (r *MemorySlotRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, key)
	return nil
}

func (r *MemorySlotRepository) Ping(context.Context) error { return nil }
func (r *MemorySlotRepository) Driver() string            { return DriverMemory }
func (r *MemorySlotRepository) Close() error               { return nil }
