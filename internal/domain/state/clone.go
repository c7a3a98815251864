package state

import "maps"

// Clone returns a copy that shares no mutable memory with s. The analytics log is
// append-only and its entries are immutable, so the copy reuses the backing array
// capped at its current length: appends on either side reallocate.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Upgrades = cloneSlice(s.Upgrades)
	c.Generators = cloneSlice(s.Generators)
	c.Spells = cloneSlice(s.Spells)
	c.ActiveSpellEffects = cloneSlice(s.ActiveSpellEffects)
	c.Milestones = maps.Clone(s.Milestones)
	if c.Milestones == nil {
		c.Milestones = map[string]bool{}
	}
	c.CompletedResearch = cloneSlice(s.CompletedResearch)
	c.PurchasedAscensionUpgrades = cloneSlice(s.PurchasedAscensionUpgrades)
	c.CompletedChallenges = cloneSlice(s.CompletedChallenges)
	c.Analytics = s.Analytics[:len(s.Analytics):len(s.Analytics)]
	c.ClickTimestamps = cloneSlice(s.ClickTimestamps)
	c.History = cloneSlice(s.History)
	c.StatsHistory = cloneSlice(s.StatsHistory)
	if s.DynamicEvent != nil {
		ev := *s.DynamicEvent
		c.DynamicEvent = &ev
	}
	if s.PendingOffline != nil {
		g := *s.PendingOffline
		c.PendingOffline = &g
	}
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// AppendCapped appends v and evicts the oldest entries so that at most limit remain.
func AppendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if over := len(s) - limit; over > 0 {
		s = append(s[:0:0], s[over:]...)
	}
	return s
}
