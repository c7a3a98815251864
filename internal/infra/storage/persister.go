package storage

import (
	"context"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/metrics"
)

// EventPersister adapts an AnalyticsRepository to events.EventPersister for
// one save slot.
type EventPersister struct {
	repo    AnalyticsRepository
	slot    string
	timeout time.Duration
}

// NewEventPersister binds repo to slot. Each write is bounded by timeout.
func NewEventPersister(repo AnalyticsRepository, slot string, timeout time.Duration) *EventPersister {
	return &EventPersister{repo: repo, slot: slot, timeout: timeout}
}

// Append implements events.EventPersister.
func (p *EventPersister) Append(e events.AnalyticsEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err := p.repo.Append(ctx, p.slot, e)
	metrics.Get().RecordEventPersist(time.Since(start), err)
	return err
}
