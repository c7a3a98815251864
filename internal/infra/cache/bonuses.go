// Package cache memoizes derived data that is expensive to recompute on every
// read but cheap to key.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
)

// DefaultBonusCacheSize covers every research/ascension/challenge/spell mix a
// single save goes through in a long session.
const DefaultBonusCacheSize = 256

// BonusCache provides fast access to bonus bundles. Bundles depend only on
// the catalog and the bonus sources of a state, so rules.Signature is a
// complete key. Safe for concurrent use; returned bundles are shared and
// must not be mutated.
type BonusCache struct {
	cat     *economy.Catalog
	entries *lru.Cache[string, rules.Bonuses]
}

// NewBonusCache creates a cache bound to cat. A non-positive size falls back
// to DefaultBonusCacheSize.
func NewBonusCache(cat *economy.Catalog, size int) *BonusCache {
	if size <= 0 {
		size = DefaultBonusCacheSize
	}
	entries, err := lru.New[string, rules.Bonuses](size)
	if err != nil {
		// Only returned for non-positive sizes.
		panic(err)
	}
	return &BonusCache{cat: cat, entries: entries}
}

// Get returns the bonus bundle for s, computing it on a miss.
func (c *BonusCache) Get(s *state.GameState) rules.Bonuses {
	key := rules.Signature(s)
	if b, ok := c.entries.Get(key); ok {
		return b
	}
	b := rules.ComputeBonuses(c.cat, s)
	c.entries.Add(key, b)
	return b
}

// Len returns the number of cached bundles.
func (c *BonusCache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached bundle.
func (c *BonusCache) Purge() {
	c.entries.Purge()
}
