package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/engine"
	"github.com/MRamiBalles/CosmicClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/metrics"
)

// saver serializes autosaves and save deletion so a reset can never be
// overwritten by a snapshot taken before it.
type saver struct {
	mu     sync.Mutex
	repo   storage.SaveRepository
	slot   string
	engine *engine.Engine
	logger *logger.Logger
}

// Run saves every interval until ctx is done.
func (sv *saver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sv.Save()
		}
	}
}

// Save writes the latest snapshot, stamping it with the current time.
func (sv *saver) Save() {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	now := time.Now()
	data, err := state.Encode(sv.engine.Snapshot(), now.UnixMilli())
	if err != nil {
		metrics.Get().RecordSave(0, err)
		sv.logger.Error("Failed to encode save: " + err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = sv.repo.Save(ctx, sv.slot, data, now)
	metrics.Get().RecordSave(len(data), err)
	if err != nil {
		sv.logger.Error("Failed to write save: " + err.Error())
		return
	}
	if n := atomic.LoadInt64(&metrics.Get().SavesWritten); n%60 == 1 {
		sv.logger.Infof("Autosave #%d: %s", n, humanize.Bytes(uint64(len(data))))
	}
}

// Delete removes the save slot after a hard reset.
func (sv *saver) Delete() {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sv.repo.Delete(ctx, sv.slot); err != nil {
		sv.logger.Error("Failed to delete save after reset: " + err.Error())
		return
	}
	sv.logger.Info("Save slot " + sv.slot + " deleted after reset.")
}
