package state

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

func TestNewState(t *testing.T) {
	cat := economy.DefaultCatalog()
	s := New(cat)

	if s.MaxMana != economy.InitialMaxMana {
		t.Errorf("MaxMana = %v", s.MaxMana)
	}
	if len(s.Upgrades) != len(cat.Upgrades) || len(s.Generators) != len(cat.Generators) {
		t.Fatalf("fresh state does not mirror the catalog")
	}
	if s.Settings != DefaultSettings() {
		t.Errorf("Settings = %+v", s.Settings)
	}
}

func TestCreditAndDebit(t *testing.T) {
	s := New(economy.DefaultCatalog())

	s.Credit(economy.ResourceStardust, 50)
	s.Credit(economy.ResourceNebulaGas, 5)
	if s.Stardust != 50 || s.TotalStardustEver != 50 || s.NebulaGas != 5 {
		t.Fatalf("after credit: %+v", s)
	}
	if s.Debit(economy.ResourceStardust, 51) {
		t.Error("debit above balance succeeded")
	}
	if !s.Debit(economy.ResourceStardust, 50) || s.Stardust != 0 {
		t.Errorf("debit failed, stardust = %v", s.Stardust)
	}
	if s.TotalStardustEver != 50 {
		t.Errorf("debit touched the lifetime total: %v", s.TotalStardustEver)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(economy.DefaultCatalog())
	s.Log(events.NewEvent(events.EventTypeGameReset, time.Now(), nil))
	s.DynamicEvent = &DynamicEvent{ID: "e"}
	s.Milestones["stardust-1k"] = true

	c := s.Clone()
	if diff := cmp.Diff(s, c); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	c.Generators[0].Count = 9
	c.Milestones["sps-10"] = true
	c.DynamicEvent.X = 42
	c.Log(events.NewEvent(events.EventTypeGameReset, time.Now(), nil))
	s.Log(events.NewEvent(events.EventTypeCastSpell, time.Now(), nil))

	if s.Generators[0].Count != 0 || s.Milestones["sps-10"] || s.DynamicEvent.X != 0 {
		t.Error("mutating the clone leaked into the original")
	}
	if c.Analytics[1].Type != events.EventTypeGameReset || s.Analytics[1].Type != events.EventTypeCastSpell {
		t.Error("analytics appends interfered across the clone boundary")
	}
}

func TestAppendCapped(t *testing.T) {
	var s []int
	for i := 1; i <= 5; i++ {
		s = AppendCapped(s, i, 3)
	}
	if diff := cmp.Diff([]int{3, 4, 5}, s); diff != "" {
		t.Errorf("ring buffer (-want +got):\n%s", diff)
	}
}

func TestEncodeRestoreRoundTrip(t *testing.T) {
	cat := economy.DefaultCatalog()
	s := New(cat)
	s.Stardust = 1234
	s.TotalStardustEver = 5000
	s.Antimatter = 10
	s.Prestiges = 1
	s.Mana = 40
	s.Upgrades[0].Level = 3
	s.Generators[0].Count = 2
	s.Generators[0].ChargeTimer = 1.5
	s.Spells = cat.SpellIDs()
	s.ActiveSpellEffects = []ActiveSpellEffect{{SpellID: "wizards-might", RemainingDuration: 12}}
	s.CompletedResearch = []string{"basic-optics"}
	s.PurchasedAscensionUpgrades = []string{"cosmic-start"}
	s.ActiveChallenge = "trial-of-silence"
	s.Milestones["stardust-1k"] = true
	s.Settings.Theme = ThemeWizarding
	s.Log(events.NewEvent(events.EventTypePurchaseUpgrade, time.UnixMilli(1000), events.PurchasePayload{ItemID: "star-gatherer", Cost: 10, Count: 1}))

	// Session-local fields must not survive.
	s.ClickCombo = 7
	s.ClickTimestamps = []int64{1, 2, 3}
	s.DynamicEvent = &DynamicEvent{ID: "x"}
	s.History = []ResourceSample{{Time: 1}}
	s.StatsHistory = []RateSample{{Time: 1}}

	data, err := Encode(s, 99_000)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	restored, err := Restore(cat, data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	want := s.Clone()
	want.LastSaveTimestamp = 99_000
	want.ClickCombo = 0
	want.ClickTimestamps = []int64{}
	want.DynamicEvent = nil
	want.History = []ResourceSample{}
	want.StatsHistory = []RateSample{}

	if diff := cmp.Diff(want, restored); diff != "" {
		t.Errorf("restored state differs (-want +got):\n%s", diff)
	}
}

func TestRestoreMergesOverDefaults(t *testing.T) {
	cat := economy.DefaultCatalog()

	// A save from an older version: no generators, no settings.language, unknown ids.
	raw := map[string]any{
		"stardust":            -5,
		"prestiges":           2,
		"mana":                500,
		"upgrades":            []any{},
		"completedResearch":   []string{"basic-optics", "time-travel", "basic-optics"},
		"activeChallenge":     "trial-of-scarcity",
		"completedChallenges": []string{"trial-of-scarcity"},
		"settings":            map[string]any{"compactMode": true},
		"lastSaveTimestamp":   42,
	}
	data, _ := json.Marshal(raw)

	s, err := Restore(cat, data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if s.Stardust != 0 {
		t.Errorf("negative stardust not clamped: %v", s.Stardust)
	}
	if s.Mana != economy.InitialMaxMana {
		t.Errorf("mana not clamped to cap: %v", s.Mana)
	}
	if len(s.Generators) != len(cat.Generators) || len(s.Upgrades) != len(cat.Upgrades) {
		t.Error("missing catalogs were not replaced with defaults")
	}
	if diff := cmp.Diff([]string{"basic-optics"}, s.CompletedResearch); diff != "" {
		t.Errorf("research not sanitized:\n%s", diff)
	}
	if s.ActiveChallenge != "" {
		t.Errorf("completed challenge left active: %q", s.ActiveChallenge)
	}
	if !s.Settings.CompactMode || s.Settings.Language != LanguageEnglish || s.Settings.Theme != ThemeCosmic {
		t.Errorf("settings not merged: %+v", s.Settings)
	}
	if len(s.Spells) != len(cat.Spells) {
		t.Errorf("prestiged save without spells was not granted the spell catalog: %v", s.Spells)
	}
	if s.LastSaveTimestamp != 42 {
		t.Errorf("LastSaveTimestamp = %d", s.LastSaveTimestamp)
	}
}

func TestRestoreClampsChargeTimers(t *testing.T) {
	cat := economy.DefaultCatalog()
	data := []byte(`{"generators":[{"id":"asteroid-miner","count":1,"chargeTimer":99},{"id":"ghost","count":3}]}`)

	s, err := Restore(cat, data)
	if err != nil {
		t.Fatal(err)
	}
	g := s.Generator("asteroid-miner")
	if g.ChargeTimer != 3 || g.Count != 1 {
		t.Errorf("asteroid-miner = %+v", g)
	}
	if s.Generator("ghost") != nil {
		t.Error("unknown generator survived restore")
	}
}

func TestRestoreMalformedFallsBackToFresh(t *testing.T) {
	cat := economy.DefaultCatalog()
	s, err := Restore(cat, []byte("{not json"))
	if err == nil {
		t.Fatal("expected a decode error")
	}
	if s == nil || s.Stardust != 0 || len(s.Generators) != len(cat.Generators) {
		t.Error("malformed save did not yield a fresh state")
	}
	if math.IsNaN(s.Mana) {
		t.Error("fresh state has NaN mana")
	}
}
