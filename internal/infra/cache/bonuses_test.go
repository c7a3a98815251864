package cache

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
)

func TestBonusCacheMatchesReducer(t *testing.T) {
	cat := economy.DefaultCatalog()
	c := NewBonusCache(cat, 8)
	s := state.New(cat)
	s.CompletedResearch = []string{"basic-optics"}
	s.ActiveChallenge = "trial-of-scarcity"

	if diff := cmp.Diff(rules.ComputeBonuses(cat, s), c.Get(s)); diff != "" {
		t.Errorf("cached bundle mismatch (-want +got):\n%s", diff)
	}
	c.Get(s)
	if c.Len() != 1 {
		t.Errorf("len = %d after repeated reads, want 1", c.Len())
	}
}

func TestBonusCacheKeysOnSources(t *testing.T) {
	cat := economy.DefaultCatalog()
	c := NewBonusCache(cat, 0)
	s := state.New(cat)

	before := c.Get(s)
	s.Stardust = 1e9
	s.Generator("asteroid-miner").Count = 40
	c.Get(s)
	if c.Len() != 1 {
		t.Errorf("len = %d, balances must not change the key", c.Len())
	}

	s.CompletedResearch = append(s.CompletedResearch, "basic-optics")
	after := c.Get(s)
	if c.Len() != 2 {
		t.Errorf("len = %d, research must change the key", c.Len())
	}
	if cmp.Equal(before, after) {
		t.Error("research did not change the bundle")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("len = %d after purge", c.Len())
	}
}
