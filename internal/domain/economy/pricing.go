package economy

import "math"

// Cost returns the price of the purchase that takes ownership from owned to owned+1:
// baseCost * (costGrowth * growthMultiplier)^owned.
func Cost(baseCost, costGrowth float64, owned int, growthMultiplier float64) float64 {
	return baseCost * math.Pow(costGrowth*growthMultiplier, float64(owned))
}

// CostAt prices the next level of the upgrade. Challenge cost-growth handicaps never
// apply to upgrades.
func (u Upgrade) CostAt(level int) float64 {
	return Cost(u.BaseCost, u.CostGrowth, level, 1)
}

// CostAt prices the next unit of the generator under the given challenge
// cost-growth multiplier (1 when no challenge is active).
func (g Generator) CostAt(count int, growthMultiplier float64) float64 {
	return Cost(g.BaseCost, g.CostGrowth, count, growthMultiplier)
}

// RatePerSecond is the average output of count units with no bonus applied.
func (g Generator) RatePerSecond(count int) float64 {
	if g.BaseChargeTime <= 0 {
		return 0
	}
	return float64(count) * g.BasePayout / g.BaseChargeTime
}

// PrestigeBaseGain is floor(150 * sqrt(totalStardustEver / 1e15)), before multipliers.
func PrestigeBaseGain(totalStardustEver float64) float64 {
	if totalStardustEver <= 0 {
		return 0
	}
	return math.Floor(PrestigeBase * math.Sqrt(totalStardustEver/PrestigeScale))
}

// AscensionGain is floor(sqrt(antimatter / 1000)).
func AscensionGain(antimatter float64) float64 {
	if antimatter <= 0 {
		return 0
	}
	return math.Floor(math.Sqrt(antimatter / AscensionScale))
}
