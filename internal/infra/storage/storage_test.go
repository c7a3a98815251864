package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

func openTestDB(t *testing.T) *SQLiteSaveRepository {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "data", "cosmic.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteSaveRepository(db)
}

func TestCodecRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat(`{"stardust":12345.5,"prestiges":0}`, 64))
	packed, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(packed) >= len(data) {
		t.Errorf("compressed %d bytes into %d", len(data), len(packed))
	}
	unpacked, err := Decompress(packed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(unpacked, data) {
		t.Error("round trip changed the payload")
	}
}

func testSaveRepository(t *testing.T, repo SaveRepository) {
	ctx := context.Background()
	if _, err := repo.Load(ctx, "main"); !errors.Is(err, ErrNoSave) {
		t.Fatalf("load of empty slot: %v, want ErrNoSave", err)
	}

	savedAt := time.UnixMilli(1_700_000_000_000)
	first := []byte(`{"version":1,"stardust":10}`)
	second := []byte(`{"version":1,"stardust":20}`)
	if err := repo.Save(ctx, "main", first, savedAt); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "main", second, savedAt.Add(5*time.Second)); err != nil {
		t.Fatal(err)
	}

	rec, err := repo.Load(ctx, "main")
	if err != nil {
		t.Fatal(err)
	}
	want := SaveRecord{Slot: "main", Version: 1, SavedAt: savedAt.Add(5 * time.Second), Data: second}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("loaded record mismatch (-want +got):\n%s", diff)
	}

	if err := repo.Delete(ctx, "main"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "main"); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if _, err := repo.Load(ctx, "main"); !errors.Is(err, ErrNoSave) {
		t.Errorf("load after delete: %v, want ErrNoSave", err)
	}
}

func TestSQLiteSaveRepository(t *testing.T) {
	testSaveRepository(t, openTestDB(t))
}

func TestMemorySaveRepository(t *testing.T) {
	testSaveRepository(t, NewMemorySaveRepository())
}

func TestSQLiteAnalyticsRepository(t *testing.T) {
	repo := NewSQLiteAnalyticsRepository(openTestDB(t).db)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	evs := []events.AnalyticsEvent{
		events.NewEvent(events.EventTypePurchaseUpgrade, base, events.PurchasePayload{ItemID: "star-gatherer", Cost: 10, Count: 1}),
		events.NewEvent(events.EventTypeCollectArtifact, base.Add(time.Second), events.CollectPayload{GeneratorID: "asteroid-miner", Payout: 5}),
		events.NewEvent(events.EventTypePurchaseUpgrade, base.Add(2*time.Second), events.PurchasePayload{ItemID: "star-gatherer", Cost: 11.5, Count: 2}),
	}
	for _, e := range evs {
		if err := repo.Append(ctx, "main", e); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.Append(ctx, "other", events.NewEvent(events.EventTypeGameReset, base, nil)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, "main", evs[0]); err == nil {
		t.Error("duplicate event id accepted")
	}

	all, err := repo.ListBySlot(ctx, "main")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(evs, all); diff != "" {
		t.Errorf("ListBySlot mismatch (-want +got):\n%s", diff)
	}

	purchases, err := repo.ListByType(ctx, "main", events.EventTypePurchaseUpgrade)
	if err != nil {
		t.Fatal(err)
	}
	if len(purchases) != 2 {
		t.Errorf("ListByType = %d events, want 2", len(purchases))
	}

	recent, err := repo.ListSince(ctx, "main", base.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Type != events.EventTypeCollectArtifact {
		t.Errorf("ListSince = %+v", recent)
	}

	if err := repo.DeleteSlot(ctx, "main"); err != nil {
		t.Fatal(err)
	}
	if all, _ := repo.ListBySlot(ctx, "main"); len(all) != 0 {
		t.Errorf("%d events left after DeleteSlot", len(all))
	}
	if other, _ := repo.ListBySlot(ctx, "other"); len(other) != 1 {
		t.Errorf("DeleteSlot touched another slot: %d events", len(other))
	}
}

func TestEventPersisterWritesThrough(t *testing.T) {
	repo := NewSQLiteAnalyticsRepository(openTestDB(t).db)
	el := events.NewEventLog(NewEventPersister(repo, "main", time.Second))

	el.Append(
		events.NewEvent(events.EventTypeCastSpell, time.UnixMilli(1000), events.SpellPayload{SpellID: "wizards-might"}),
		events.NewEvent(events.EventTypeMilestoneCompleted, time.UnixMilli(2000), events.MilestonePayload{MilestoneID: "stardust-1k"}),
	)
	el.Wait()

	stored, err := repo.ListBySlot(context.Background(), "main")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(el.Replay(), stored); diff != "" {
		t.Errorf("persisted ledger mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateRecap(t *testing.T) {
	repo := NewSQLiteAnalyticsRepository(openTestDB(t).db)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	for _, e := range []events.AnalyticsEvent{
		events.NewEvent(events.EventTypeDynamicEventClicked, base.Add(-time.Minute), events.DynamicEventPayload{Reward: 999}),
		events.NewEvent(events.EventTypeOfflineGainsClaimed, base, events.OfflineClaimPayload{Stardust: 48000}),
		events.NewEvent(events.EventTypePurchaseGenerator, base.Add(time.Second), events.PurchasePayload{ItemID: "comet-catcher", Cost: 2.5e6, Count: 3}),
		events.NewEvent(events.EventTypeDynamicEventClicked, base.Add(2*time.Second), events.DynamicEventPayload{Reward: 60}),
	} {
		if err := repo.Append(ctx, "main", e); err != nil {
			t.Fatal(err)
		}
	}

	recap, err := NewReconstructor(repo).GenerateRecap(ctx, "main", base)
	if err != nil {
		t.Fatal(err)
	}
	if len(recap.Entries) != 3 {
		t.Fatalf("recap has %d entries, want 3", len(recap.Entries))
	}
	if recap.WindfallStardust != 48060 {
		t.Errorf("windfall = %v, want 48060", recap.WindfallStardust)
	}
	if recap.Counts[events.EventTypeDynamicEventClicked] != 1 {
		t.Errorf("counts = %v", recap.Counts)
	}

	want := []RecapEntry{
		{Timestamp: base.UnixMilli(), EventType: events.EventTypeOfflineGainsClaimed, Summary: "Claimed 48,000 stardust earned offline.", Impact: ImpactGain},
		{Timestamp: base.Add(time.Second).UnixMilli(), EventType: events.EventTypePurchaseGenerator, Summary: "Bought comet-catcher #3 for 2.5 M.", Impact: ImpactSpend},
		{Timestamp: base.Add(2 * time.Second).UnixMilli(), EventType: events.EventTypeDynamicEventClicked, Summary: "Caught a shooting star worth 60.", Impact: ImpactGain},
	}
	if diff := cmp.Diff(want, recap.Entries); diff != "" {
		t.Errorf("recap entries mismatch (-want +got):\n%s", diff)
	}
}
