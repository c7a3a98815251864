package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemorySaveRepository keeps saves in process memory. Used by tests and by
// servers started without a database.
type MemorySaveRepository struct {
	mu    sync.RWMutex
	slots map[string]SaveRecord
}

func NewMemorySaveRepository() *MemorySaveRepository {
	return &MemorySaveRepository{slots: make(map[string]SaveRecord)}
}

func (r *MemorySaveRepository) Save(_ context.Context, slot string, data []byte, savedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot] = SaveRecord{
		Slot:    slot,
		Version: saveVersion(data),
		SavedAt: savedAt,
		Data:    slices.Clone(data),
	}
	return nil
}

func (r *MemorySaveRepository) Load(_ context.Context, slot string) (SaveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.slots[slot]
	if !ok {
		return SaveRecord{}, ErrNoSave
	}
	rec.Data = slices.Clone(rec.Data)
	return rec, nil
}

func (r *MemorySaveRepository) Delete(_ context.Context, slot string) error {
	r.mu.Lock()
	delete(r.slots, slot)
	r.mu.Unlock()
	return nil
}
