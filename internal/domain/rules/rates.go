package rules

import (
	"math"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
)

// Rates are the derived values the tick engine and the views read.
type Rates struct {
	ClickPower         float64 `json:"clickPower"`
	StardustPerSecond  float64 `json:"stardustPerSecond"`
	NebulaGasPerSecond float64 `json:"nebulaGasPerSecond"`
	ResearchPerSecond  float64 `json:"researchPerSecond"`
	PrestigeMultiplier float64 `json:"prestigeMultiplier"`
	ComboMultiplier    float64 `json:"comboMultiplier"`
	FrenzyMultiplier   float64 `json:"frenzyMultiplier"`
	ClicksPerMinute    int     `json:"clicksPerMinute"`
}

// ComputeRates derives every rate from s and its bonus bundle as of now.
func ComputeRates(cat *economy.Catalog, s *state.GameState, b Bonuses, now time.Time) Rates {
	cpm := ClicksPerMinute(s.ClickTimestamps, now)
	sps := AvgStardustPerSecond(cat, s, b)
	return Rates{
		ClickPower:         ClickPower(cat, s, b, cpm),
		StardustPerSecond:  sps,
		NebulaGasPerSecond: AvgGasPerSecond(cat, s, b),
		ResearchPerSecond:  ResearchRate(sps, b),
		PrestigeMultiplier: PrestigeMultiplier(s.Antimatter),
		ComboMultiplier:    ComboMultiplier(s.ClickCombo),
		FrenzyMultiplier:   FrenzyMultiplier(cpm),
		ClicksPerMinute:    cpm,
	}
}

// PrestigeMultiplier is 1 + antimatter * 0.02, uncapped.
func PrestigeMultiplier(antimatter float64) float64 {
	return 1 + antimatter*economy.AntimatterBonusPerUnit
}

// ComboMultiplier is 1% per combo point.
func ComboMultiplier(combo int) float64 {
	return 1 + float64(combo)*economy.ComboIncrement
}

// FrenzyMultiplier doubles per tier of clicks above the frenzy threshold.
func FrenzyMultiplier(cpm int) float64 {
	if cpm < economy.FrenzyThreshold {
		return 1
	}
	tiers := (cpm - economy.FrenzyThreshold) / economy.FrenzyTierSize
	return math.Pow(2, float64(tiers+1))
}

// ClicksPerMinute counts the click timestamps (Unix ms) inside the trailing frenzy window.
func ClicksPerMinute(timestamps []int64, now time.Time) int {
	cutoff := now.Add(-economy.FrenzyWindow).UnixMilli()
	n := 0
	for _, ts := range timestamps {
		if ts > cutoff {
			n++
		}
	}
	return n
}

// ClickPower is the stardust awarded by one non-critical click.
func ClickPower(cat *economy.Catalog, s *state.GameState, b Bonuses, cpm int) float64 {
	base := 1.0
	for _, u := range s.Upgrades {
		if tmpl, ok := cat.Upgrade(u.ID); ok {
			base += float64(u.Level) * tmpl.Power
		}
	}
	power := base *
		PrestigeMultiplier(s.Antimatter) *
		b.Research.ClickPowerMultiplier *
		b.Spell.ClickPowerMultiplier *
		FrenzyMultiplier(cpm) *
		ComboMultiplier(s.ClickCombo)
	return b.Challenge.CapClickPower(power)
}

// AvgStardustPerSecond is the average stardust output of all generators including
// the flat reward boost.
func AvgStardustPerSecond(cat *economy.Catalog, s *state.GameState, b Bonuses) float64 {
	raw := generatorOutput(cat, s, b, economy.ResourceStardust) + b.ChallengeReward.FlatSPSBoost
	return raw * productionMultiplier(s, b)
}

// AvgGasPerSecond is the average nebula gas output. The flat reward boost is
// stardust-only and does not apply.
func AvgGasPerSecond(cat *economy.Catalog, s *state.GameState, b Bonuses) float64 {
	return generatorOutput(cat, s, b, economy.ResourceNebulaGas) * productionMultiplier(s, b)
}

// ResearchRate is (1 + log10(1 + sps)) * ascension research multiplier.
func ResearchRate(stardustPerSecond float64, b Bonuses) float64 {
	return (1 + math.Log10(1+stardustPerSecond)) * b.Ascension.ResearchPointsGainMultiplier
}

// BaseStardustRate is the raw stardust output of all generators with no bonus applied.
func BaseStardustRate(cat *economy.Catalog, s *state.GameState) float64 {
	var total float64
	for _, g := range s.Generators {
		if tmpl, ok := cat.Generator(g.ID); ok && tmpl.Produces == economy.ResourceStardust {
			total += tmpl.RatePerSecond(g.Count)
		}
	}
	return total
}

// CollectPayout is what one full charge of count units pays at the given antimatter balance.
func CollectPayout(g economy.Generator, count int, antimatter float64) float64 {
	return g.BasePayout * float64(count) * PrestigeMultiplier(antimatter)
}

// PrestigeGain previews the antimatter a prestige would grant now. Zero means
// prestige is not available.
func PrestigeGain(s *state.GameState, b Bonuses) float64 {
	if s.TotalStardustEver < economy.PrestigeRequirement {
		return 0
	}
	return math.Floor(economy.PrestigeBaseGain(s.TotalStardustEver) *
		b.ChallengeReward.AntimatterGainMultiplier *
		b.Ascension.AntimatterGainMultiplier)
}

// AscensionGain previews the singularity essence an ascension would grant now.
// Zero means ascension is not available.
func AscensionGain(s *state.GameState) float64 {
	if s.Antimatter < economy.AscensionRequirement {
		return 0
	}
	return economy.AscensionGain(s.Antimatter)
}

// CriticalChance is the probability that a click is critical.
func CriticalChance(b Bonuses) float64 {
	return economy.CriticalClickChance + b.Ascension.CriticalClickChanceBoost
}

// GeneratorCost prices the next unit of a generator under the active challenge.
func GeneratorCost(g economy.Generator, count int, b Bonuses) float64 {
	return g.CostAt(count, b.Challenge.CostGrowthMultiplier)
}

func generatorOutput(cat *economy.Catalog, s *state.GameState, b Bonuses, r economy.Resource) float64 {
	var total float64
	for _, g := range s.Generators {
		tmpl, ok := cat.Generator(g.ID)
		if !ok || tmpl.Produces != r {
			continue
		}
		total += tmpl.RatePerSecond(g.Count) * b.Research.GeneratorMultiplier(g.ID)
	}
	return total
}

func productionMultiplier(s *state.GameState, b Bonuses) float64 {
	return PrestigeMultiplier(s.Antimatter) * b.Research.SPSMultiplier * b.Challenge.SPSMultiplier
}
