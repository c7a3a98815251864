package economy

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := DefaultCatalog()

	if len(c.Upgrades) != 3 || len(c.Generators) != 8 || len(c.Spells) != 2 {
		t.Fatalf("unexpected catalog sizes: %d upgrades, %d generators, %d spells",
			len(c.Upgrades), len(c.Generators), len(c.Spells))
	}
	if len(c.Research) != 5 || len(c.Ascension) != 4 || len(c.Challenges) != 2 || len(c.Milestones) != 4 {
		t.Fatalf("unexpected tree sizes")
	}

	g, ok := c.Generator("asteroid-miner")
	if !ok {
		t.Fatal("asteroid-miner missing")
	}
	if g.BasePayout != 5 || g.BaseChargeTime != 3 || g.BaseCost != 25 {
		t.Errorf("asteroid-miner = %+v", g)
	}

	r, ok := c.ResearchItem("self-casting-charm")
	if !ok || len(r.Dependencies) != 2 || r.Effect.Kind != ResearchUnlockAutoCollector {
		t.Errorf("self-casting-charm = %+v", r)
	}

	if _, ok := c.Spell("no-such-spell"); ok {
		t.Error("lookup of unknown spell succeeded")
	}
	if c.Milestones[0].ID != "stardust-1k" || c.Milestones[0].Reward == nil || c.Milestones[0].Reward.Amount != 100 {
		t.Errorf("first milestone = %+v", c.Milestones[0])
	}
}

func TestLoadCatalogRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "duplicate id",
			yaml: `
upgrades:
  - { id: a, power: 1, baseCost: 1, costGrowth: 1.1, currency: stardust }
  - { id: a, power: 1, baseCost: 1, costGrowth: 1.1, currency: stardust }
`,
			want: "duplicate upgrade id",
		},
		{
			name: "dangling dependency",
			yaml: `
research:
  - { id: a, cost: 1, dependencies: [missing], effect: { kind: SPS_MULTIPLIER, value: 1 } }
`,
			want: "depends on unknown",
		},
		{
			name: "cycle",
			yaml: `
ascension:
  - { id: a, cost: 1, dependencies: [b], effect: { kind: STARTING_STARDUST, value: 1 } }
  - { id: b, cost: 1, dependencies: [a], effect: { kind: STARTING_STARDUST, value: 1 } }
`,
			want: "dependency cycle",
		},
		{
			name: "generator multiplier on unknown generator",
			yaml: `
research:
  - { id: a, cost: 1, effect: { kind: GENERATOR_MULTIPLIER, generatorId: ghost, value: 1 } }
`,
			want: "unknown generator",
		},
		{
			name: "unknown handicap",
			yaml: `
challenges:
  - { id: c, handicap: { kind: NO_CLICKS, value: 1 }, reward: { kind: FLAT_SPS_BOOST, value: 1 } }
`,
			want: "unknown handicap",
		},
		{
			name: "zero charge time",
			yaml: `
generators:
  - { id: g, produces: stardust, basePayout: 1, baseChargeTime: 0, baseCost: 1, costGrowth: 1.1, currency: stardust }
`,
			want: "non-positive charge time",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCatalog([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("error %v does not wrap ErrInvalidCatalog", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadCatalogRejectsUnknownFields(t *testing.T) {
	_, err := LoadCatalog([]byte("upgrades:\n  - { id: a, pwr: 1 }\n"))
	if err == nil {
		t.Fatal("expected decode error for unknown field")
	}
}
