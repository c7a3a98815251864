// Package rules contains the pure calculation logic for game mechanics: the bonus
// reducers and the derived rates built on top of them.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"
	"slices"
	"strings"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
)

// ResearchBonuses are folded over completed research.
type ResearchBonuses struct {
	ClickPowerMultiplier  float64            `json:"clickPowerMultiplier"`
	SPSMultiplier         float64            `json:"spsMultiplier"`
	GeneratorMultipliers  map[string]float64 `json:"generatorMultipliers"`
	AutoCollectorUnlocked bool               `json:"autoCollectorUnlocked"`
}

// GeneratorMultiplier returns the research multiplier for a generator, 1 if none applies.
func (b ResearchBonuses) GeneratorMultiplier(id string) float64 {
	if m, ok := b.GeneratorMultipliers[id]; ok {
		return m
	}
	return 1
}

// AscensionBonuses are folded over purchased ascension upgrades. StartingStardust,
// StartingUpgradeLevels and FlatSPSBoost are reported but feed no formula.
type AscensionBonuses struct {
	AntimatterGainMultiplier     float64        `json:"antimatterGainMultiplier"`
	CriticalClickChanceBoost     float64        `json:"criticalClickChanceBoost"`
	ResearchPointsGainMultiplier float64        `json:"researchPointsGainMultiplier"`
	StartingStardust             float64        `json:"startingStardust"`
	StartingUpgradeLevels        map[string]int `json:"startingUpgradeLevels"`
	FlatSPSBoost                 float64        `json:"flatSpsBoost"`
}

// ChallengeBonuses are the handicaps of the active challenge. A nil ClickPowerCap
// means click power is unbounded.
type ChallengeBonuses struct {
	SPSMultiplier        float64  `json:"spsMultiplier"`
	ClickPowerCap        *float64 `json:"clickPowerCap"`
	CostGrowthMultiplier float64  `json:"costGrowthMultiplier"`
}

// CapClickPower applies the click-power cap, if any.
func (b ChallengeBonuses) CapClickPower(power float64) float64 {
	if b.ClickPowerCap == nil {
		return power
	}
	return math.Min(power, *b.ClickPowerCap)
}

// ChallengeRewardBonuses are folded over completed challenges.
type ChallengeRewardBonuses struct {
	FlatSPSBoost             float64 `json:"flatSpsBoost"`
	AntimatterGainMultiplier float64 `json:"antimatterGainMultiplier"`
}

// SpellBonuses are folded over running spell effects.
type SpellBonuses struct {
	ClickPowerMultiplier float64 `json:"clickPowerMultiplier"`
}

// Bonuses bundles every reducer output for one snapshot.
type Bonuses struct {
	Research        ResearchBonuses        `json:"research"`
	Ascension       AscensionBonuses       `json:"ascension"`
	Challenge       ChallengeBonuses       `json:"challenge"`
	ChallengeReward ChallengeRewardBonuses `json:"challengeReward"`
	Spell           SpellBonuses           `json:"spell"`
}

// ComputeBonuses runs all reducers against s.
func ComputeBonuses(cat *economy.Catalog, s *state.GameState) Bonuses {
	return Bonuses{
		Research:        ComputeResearchBonuses(cat, s.CompletedResearch),
		Ascension:       ComputeAscensionBonuses(cat, s.PurchasedAscensionUpgrades),
		Challenge:       ComputeChallengeBonuses(cat, s.ActiveChallenge),
		ChallengeReward: ComputeChallengeRewardBonuses(cat, s.CompletedChallenges),
		Spell:           ComputeSpellBonuses(cat, s.ActiveSpellEffects),
	}
}

// ComputeResearchBonuses folds the effects of the completed research ids.
func ComputeResearchBonuses(cat *economy.Catalog, completed []string) ResearchBonuses {
	b := ResearchBonuses{
		ClickPowerMultiplier: 1,
		SPSMultiplier:        1,
		GeneratorMultipliers: map[string]float64{},
	}
	for _, id := range completed {
		item, ok := cat.ResearchItem(id)
		if !ok {
			continue
		}
		e := item.Effect
		switch e.Kind {
		case economy.ResearchClickPowerMultiplier:
			b.ClickPowerMultiplier += e.Value
		case economy.ResearchSPSMultiplier:
			b.SPSMultiplier += e.Value
		case economy.ResearchGeneratorMultiplier:
			b.GeneratorMultipliers[e.GeneratorID] = b.GeneratorMultiplier(e.GeneratorID) + e.Value
		case economy.ResearchUnlockAutoCollector:
			b.AutoCollectorUnlocked = true
		}
	}
	return b
}

// ComputeAscensionBonuses folds the effects of the purchased ascension upgrades.
func ComputeAscensionBonuses(cat *economy.Catalog, purchased []string) AscensionBonuses {
	b := AscensionBonuses{
		AntimatterGainMultiplier:     1,
		ResearchPointsGainMultiplier: 1,
		StartingUpgradeLevels:        map[string]int{},
	}
	for _, id := range purchased {
		u, ok := cat.AscensionUpgrade(id)
		if !ok {
			continue
		}
		e := u.Effect
		switch e.Kind {
		case economy.AscensionAntimatterGainMultiplier:
			b.AntimatterGainMultiplier += e.Value
		case economy.AscensionCriticalClickChanceBoost:
			b.CriticalClickChanceBoost += e.Value
		case economy.AscensionResearchPointsGainMultiplier:
			b.ResearchPointsGainMultiplier += e.Value
		case economy.AscensionStartingStardust:
			b.StartingStardust += e.Value
		case economy.AscensionStartingUpgradeLevel:
			b.StartingUpgradeLevels[e.UpgradeID] += int(e.Value)
		case economy.AscensionFlatSPSBoost:
			b.FlatSPSBoost += e.Value
		}
	}
	return b
}

// ComputeChallengeBonuses derives the handicaps of the active challenge, or
// neutral values when none is active.
func ComputeChallengeBonuses(cat *economy.Catalog, active string) ChallengeBonuses {
	b := ChallengeBonuses{SPSMultiplier: 1, CostGrowthMultiplier: 1}
	if active == "" {
		return b
	}
	ch, ok := cat.Challenge(active)
	if !ok {
		return b
	}
	switch h := ch.Handicap; h.Kind {
	case economy.HandicapSPSReduction:
		b.SPSMultiplier = 1 - h.Value
	case economy.HandicapClickPowerCap:
		limit := h.Value
		b.ClickPowerCap = &limit
	case economy.HandicapCostGrowthIncrease:
		b.CostGrowthMultiplier = 1 + h.Value
	}
	return b
}

// ComputeChallengeRewardBonuses folds the rewards of every completed challenge.
func ComputeChallengeRewardBonuses(cat *economy.Catalog, completed []string) ChallengeRewardBonuses {
	b := ChallengeRewardBonuses{AntimatterGainMultiplier: 1}
	for _, id := range completed {
		ch, ok := cat.Challenge(id)
		if !ok {
			continue
		}
		switch r := ch.Reward; r.Kind {
		case economy.AscensionFlatSPSBoost:
			b.FlatSPSBoost += r.Value
		case economy.AscensionAntimatterGainMultiplier:
			b.AntimatterGainMultiplier += r.Value
		case economy.AscensionStartingUpgradeLevel, economy.AscensionStartingStardust,
			economy.AscensionCriticalClickChanceBoost, economy.AscensionResearchPointsGainMultiplier:
			// Only meaningful on the ascension tree.
		}
	}
	return b
}

// ComputeSpellBonuses multiplies the boosts of every running spell effect.
func ComputeSpellBonuses(cat *economy.Catalog, active []state.ActiveSpellEffect) SpellBonuses {
	b := SpellBonuses{ClickPowerMultiplier: 1}
	for _, e := range active {
		sp, ok := cat.Spell(e.SpellID)
		if !ok {
			continue
		}
		switch sp.Effect.Kind {
		case economy.SpellClickPowerBoost:
			b.ClickPowerMultiplier *= sp.Effect.Multiplier
		case economy.SpellInstantCharge:
		}
	}
	return b
}

// Signature identifies the inputs of ComputeBonuses. Two states with the same
// signature produce identical bundles.
func Signature(s *state.GameState) string {
	var sb strings.Builder
	writeSet := func(ids []string) {
		sorted := slices.Clone(ids)
		slices.Sort(sorted)
		sb.WriteString(strings.Join(sorted, ","))
		sb.WriteByte('|')
	}
	writeSet(s.CompletedResearch)
	writeSet(s.PurchasedAscensionUpgrades)
	sb.WriteString(s.ActiveChallenge)
	sb.WriteByte('|')
	writeSet(s.CompletedChallenges)
	spells := make([]string, len(s.ActiveSpellEffects))
	for i, e := range s.ActiveSpellEffects {
		spells[i] = e.SpellID
	}
	writeSet(spells)
	return sb.String()
}
