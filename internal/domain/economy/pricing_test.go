package economy

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func TestCostFormula(t *testing.T) {
	cases := []struct {
		name       string
		base       float64
		growth     float64
		owned      int
		multiplier float64
		want       float64
	}{
		{"first purchase", 10, 1.15, 0, 1, 10},
		{"second purchase", 10, 1.15, 1, 1, 11.5},
		{"tenth purchase", 25, 1.1, 9, 1, 25 * math.Pow(1.1, 9)},
		{"challenge growth", 100, 1.2, 3, 1.5, 100 * math.Pow(1.8, 3)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Cost(tc.base, tc.growth, tc.owned, tc.multiplier)
			if !almostEqual(got, tc.want) {
				t.Errorf("Cost() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUpgradeCostIgnoresChallengeGrowth(t *testing.T) {
	u := Upgrade{ID: "u", BaseCost: 10, CostGrowth: 1.15, Currency: ResourceStardust}
	g := Generator{ID: "g", BaseCost: 10, CostGrowth: 1.15, BaseChargeTime: 1, Currency: ResourceStardust}

	if !almostEqual(u.CostAt(2), 10*1.15*1.15) {
		t.Errorf("upgrade cost = %v", u.CostAt(2))
	}
	if !almostEqual(g.CostAt(2, 2), 10*2.3*2.3) {
		t.Errorf("generator cost under challenge = %v", g.CostAt(2, 2))
	}
}

func TestResetGains(t *testing.T) {
	if got := PrestigeBaseGain(1e15); got != 150 {
		t.Errorf("PrestigeBaseGain(1e15) = %v, want 150", got)
	}
	if got := PrestigeBaseGain(4e15); got != 300 {
		t.Errorf("PrestigeBaseGain(4e15) = %v, want 300", got)
	}
	if got := PrestigeBaseGain(0); got != 0 {
		t.Errorf("PrestigeBaseGain(0) = %v, want 0", got)
	}
	if got := AscensionGain(1e6); got != 31 {
		t.Errorf("AscensionGain(1e6) = %v, want 31", got)
	}
	if got := AscensionGain(999); got != 0 {
		t.Errorf("AscensionGain(999) = %v, want 0", got)
	}
}

func TestGeneratorRate(t *testing.T) {
	g := Generator{BasePayout: 5, BaseChargeTime: 3}
	if got := g.RatePerSecond(6); got != 10 {
		t.Errorf("RatePerSecond(6) = %v, want 10", got)
	}
}
