// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// ErrNoSave is returned by SaveRepository.Load when the slot has never been saved.
var ErrNoSave = errors.New("no save found")

// SaveRecord is one stored save slot. Data is the uncompressed state.SaveFile JSON.
type SaveRecord struct {
	Slot    string
	Version int
	SavedAt time.Time
	Data    []byte
}

// SaveRepository defines the interface for save persistence.
// The domain never sees this; the server wires it to the engine.
type SaveRepository interface {
	// Save replaces the slot's contents.
	Save(ctx context.Context, slot string, data []byte, savedAt time.Time) error

	// Load returns the slot's contents or ErrNoSave.
	Load(ctx context.Context, slot string) (SaveRecord, error)

	// Delete removes the slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, slot string) error
}

// AnalyticsRepository defines the interface for analytics event persistence.
type AnalyticsRepository interface {
	// Append adds a new event to the immutable ledger of a slot.
	Append(ctx context.Context, slot string, event events.AnalyticsEvent) error

	// ListBySlot retrieves all events of a slot in timestamp order.
	ListBySlot(ctx context.Context, slot string) ([]events.AnalyticsEvent, error)

	// ListByType retrieves all events of a specific type.
	ListByType(ctx context.Context, slot string, eventType events.EventType) ([]events.AnalyticsEvent, error)

	// ListSince retrieves the events of a slot at or after since.
	ListSince(ctx context.Context, slot string, since time.Time) ([]events.AnalyticsEvent, error)

	// DeleteSlot drops every event of a slot.
	DeleteSlot(ctx context.Context, slot string) error
}
