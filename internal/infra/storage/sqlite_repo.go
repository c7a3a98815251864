package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// ---------------------------------------------------------
// SQLiteSaveRepository
// ---------------------------------------------------------

// SQLiteSaveRepository implements SaveRepository for SQLite. Payloads are
// stored LZ4-compressed.
type SQLiteSaveRepository struct {
	db *sql.DB
}

func NewSQLiteSaveRepository(db *sql.DB) *SQLiteSaveRepository {
	return &SQLiteSaveRepository{db: db}
}

func (r *SQLiteSaveRepository) Save(ctx context.Context, slot string, data []byte, savedAt time.Time) error {
	blob, err := Compress(data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO saves (slot, version, saved_at, codec, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			version=excluded.version,
			saved_at=excluded.saved_at,
			codec=excluded.codec,
			payload=excluded.payload,
			updated_at=excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		slot, saveVersion(data), savedAt.UnixMilli(), CodecLZ4, blob, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write save %q: %w", slot, err)
	}
	return nil
}

func (r *SQLiteSaveRepository) Load(ctx context.Context, slot string) (SaveRecord, error) {
	query := `SELECT version, saved_at, codec, payload FROM saves WHERE slot = ?`
	var (
		rec     = SaveRecord{Slot: slot}
		savedAt int64
		codec   string
		blob    []byte
	)
	err := r.db.QueryRowContext(ctx, query, slot).Scan(&rec.Version, &savedAt, &codec, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SaveRecord{}, ErrNoSave
		}
		return SaveRecord{}, fmt.Errorf("failed to read save %q: %w", slot, err)
	}

	switch codec {
	case CodecLZ4:
		if rec.Data, err = Decompress(blob); err != nil {
			return SaveRecord{}, err
		}
	default:
		return SaveRecord{}, fmt.Errorf("save %q: unknown codec %q", slot, codec)
	}
	rec.SavedAt = time.UnixMilli(savedAt)
	return rec, nil
}

func (r *SQLiteSaveRepository) Delete(ctx context.Context, slot string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("failed to delete save %q: %w", slot, err)
	}
	return nil
}

// saveVersion peeks the version header of a save file; 0 when absent.
func saveVersion(data []byte) int {
	var hdr struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		return 0
	}
	return hdr.Version
}

// ---------------------------------------------------------
// SQLiteAnalyticsRepository
// ---------------------------------------------------------

// SQLiteAnalyticsRepository implements AnalyticsRepository for SQLite.
type SQLiteAnalyticsRepository struct {
	db *sql.DB
}

func NewSQLiteAnalyticsRepository(db *sql.DB) *SQLiteAnalyticsRepository {
	return &SQLiteAnalyticsRepository{db: db}
}

func (r *SQLiteAnalyticsRepository) Append(ctx context.Context, slot string, event events.AnalyticsEvent) error {
	payload := string(event.Payload)
	if payload == "" {
		payload = "{}"
	}
	query := `
		INSERT INTO analytics_events (id, slot, timestamp, event_type, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, event.ID, slot, event.Timestamp, string(event.Type), payload)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteAnalyticsRepository) getMany(ctx context.Context, query string, args ...any) ([]events.AnalyticsEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.AnalyticsEvent
	for rows.Next() {
		var (
			e       events.AnalyticsEvent
			payload string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &payload); err != nil {
			return nil, err
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectEvents = `SELECT id, timestamp, event_type, payload FROM analytics_events`

func (r *SQLiteAnalyticsRepository) ListBySlot(ctx context.Context, slot string) ([]events.AnalyticsEvent, error) {
	return r.getMany(ctx, selectEvents+` WHERE slot = ? ORDER BY timestamp ASC, rowid ASC`, slot)
}

func (r *SQLiteAnalyticsRepository) ListByType(ctx context.Context, slot string, eventType events.EventType) ([]events.AnalyticsEvent, error) {
	return r.getMany(ctx, selectEvents+` WHERE slot = ? AND event_type = ? ORDER BY timestamp ASC, rowid ASC`, slot, string(eventType))
}

func (r *SQLiteAnalyticsRepository) ListSince(ctx context.Context, slot string, since time.Time) ([]events.AnalyticsEvent, error) {
	return r.getMany(ctx, selectEvents+` WHERE slot = ? AND timestamp >= ? ORDER BY timestamp ASC, rowid ASC`, slot, since.UnixMilli())
}

func (r *SQLiteAnalyticsRepository) DeleteSlot(ctx context.Context, slot string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analytics_events WHERE slot = ?`, slot)
	return err
}
