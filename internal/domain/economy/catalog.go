package economy

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ErrInvalidCatalog is wrapped by every validation failure of LoadCatalog.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the static economy supplied at startup. Slice order is significant:
// it is the display order and, for milestones, the evaluation order.
type Catalog struct {
	Upgrades   []Upgrade          `yaml:"upgrades" json:"upgrades"`
	Generators []Generator        `yaml:"generators" json:"generators"`
	Spells     []Spell            `yaml:"spells" json:"spells"`
	Research   []ResearchItem     `yaml:"research" json:"research"`
	Ascension  []AscensionUpgrade `yaml:"ascension" json:"ascension"`
	Challenges []Challenge        `yaml:"challenges" json:"challenges"`
	Milestones []Milestone        `yaml:"milestones" json:"milestones"`

	upgradeIdx   map[string]int
	generatorIdx map[string]int
	spellIdx     map[string]int
	researchIdx  map[string]int
	ascensionIdx map[string]int
	challengeIdx map[string]int
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML)
})

// DefaultCatalog returns the embedded economy. It is shared and must be treated as read-only.
func DefaultCatalog() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog parses a YAML catalog and validates it.
func LoadCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids, references, effect payloads and that both trees are acyclic,
// then builds the lookup indexes.
func (c *Catalog) Validate() error {
	var err error
	if c.upgradeIdx, err = indexIDs("upgrade", len(c.Upgrades), func(i int) string { return c.Upgrades[i].ID }); err != nil {
		return err
	}
	if c.generatorIdx, err = indexIDs("generator", len(c.Generators), func(i int) string { return c.Generators[i].ID }); err != nil {
		return err
	}
	if c.spellIdx, err = indexIDs("spell", len(c.Spells), func(i int) string { return c.Spells[i].ID }); err != nil {
		return err
	}
	if c.researchIdx, err = indexIDs("research", len(c.Research), func(i int) string { return c.Research[i].ID }); err != nil {
		return err
	}
	if c.ascensionIdx, err = indexIDs("ascension upgrade", len(c.Ascension), func(i int) string { return c.Ascension[i].ID }); err != nil {
		return err
	}
	if c.challengeIdx, err = indexIDs("challenge", len(c.Challenges), func(i int) string { return c.Challenges[i].ID }); err != nil {
		return err
	}
	if _, err = indexIDs("milestone", len(c.Milestones), func(i int) string { return c.Milestones[i].ID }); err != nil {
		return err
	}

	for _, u := range c.Upgrades {
		if err := checkPriced("upgrade", u.ID, u.BaseCost, u.CostGrowth, u.Currency); err != nil {
			return err
		}
	}
	for _, g := range c.Generators {
		if err := checkPriced("generator", g.ID, g.BaseCost, g.CostGrowth, g.Currency); err != nil {
			return err
		}
		if g.BaseChargeTime <= 0 {
			return fmt.Errorf("%w: generator %q has non-positive charge time", ErrInvalidCatalog, g.ID)
		}
		if g.Produces != ResourceStardust && g.Produces != ResourceNebulaGas {
			return fmt.Errorf("%w: generator %q produces unsupported resource %q", ErrInvalidCatalog, g.ID, g.Produces)
		}
	}
	for _, s := range c.Spells {
		switch s.Effect.Kind {
		case SpellClickPowerBoost:
			if s.Effect.Duration <= 0 || s.Effect.Multiplier <= 0 {
				return fmt.Errorf("%w: spell %q needs a positive duration and multiplier", ErrInvalidCatalog, s.ID)
			}
		case SpellInstantCharge:
		default:
			return fmt.Errorf("%w: spell %q has unknown effect %q", ErrInvalidCatalog, s.ID, s.Effect.Kind)
		}
	}

	researchDeps := make(map[string][]string, len(c.Research))
	for _, r := range c.Research {
		switch r.Effect.Kind {
		case ResearchClickPowerMultiplier, ResearchSPSMultiplier, ResearchUnlockAutoCollector:
		case ResearchGeneratorMultiplier:
			if _, ok := c.generatorIdx[r.Effect.GeneratorID]; !ok {
				return fmt.Errorf("%w: research %q targets unknown generator %q", ErrInvalidCatalog, r.ID, r.Effect.GeneratorID)
			}
		default:
			return fmt.Errorf("%w: research %q has unknown effect %q", ErrInvalidCatalog, r.ID, r.Effect.Kind)
		}
		researchDeps[r.ID] = r.Dependencies
	}
	if err := checkTree("research", researchDeps); err != nil {
		return err
	}

	ascensionDeps := make(map[string][]string, len(c.Ascension))
	for _, a := range c.Ascension {
		if err := c.checkAscensionEffect("ascension upgrade", a.ID, a.Effect); err != nil {
			return err
		}
		ascensionDeps[a.ID] = a.Dependencies
	}
	if err := checkTree("ascension", ascensionDeps); err != nil {
		return err
	}

	for _, ch := range c.Challenges {
		switch ch.Handicap.Kind {
		case HandicapClickPowerCap, HandicapSPSReduction, HandicapCostGrowthIncrease:
		default:
			return fmt.Errorf("%w: challenge %q has unknown handicap %q", ErrInvalidCatalog, ch.ID, ch.Handicap.Kind)
		}
		if err := c.checkAscensionEffect("challenge", ch.ID, ch.Reward); err != nil {
			return err
		}
	}

	for _, m := range c.Milestones {
		switch m.Requirement.Kind {
		case MilestoneResourceAtLeast:
			if !isLedgerResource(m.Requirement.Resource) {
				return fmt.Errorf("%w: milestone %q watches unknown resource %q", ErrInvalidCatalog, m.ID, m.Requirement.Resource)
			}
		case MilestoneBaseStardustRateAtLeast, MilestonePrestigesAtLeast, MilestoneAscensionsAtLeast:
		default:
			return fmt.Errorf("%w: milestone %q has unknown requirement %q", ErrInvalidCatalog, m.ID, m.Requirement.Kind)
		}
		if m.Reward != nil && !isLedgerResource(m.Reward.Resource) {
			return fmt.Errorf("%w: milestone %q rewards unknown resource %q", ErrInvalidCatalog, m.ID, m.Reward.Resource)
		}
	}
	return nil
}

func (c *Catalog) checkAscensionEffect(what, id string, e AscensionEffect) error {
	switch e.Kind {
	case AscensionFlatSPSBoost, AscensionAntimatterGainMultiplier, AscensionStartingStardust,
		AscensionCriticalClickChanceBoost, AscensionResearchPointsGainMultiplier:
	case AscensionStartingUpgradeLevel:
		if _, ok := c.upgradeIdx[e.UpgradeID]; !ok {
			return fmt.Errorf("%w: %s %q targets unknown upgrade %q", ErrInvalidCatalog, what, id, e.UpgradeID)
		}
	default:
		return fmt.Errorf("%w: %s %q has unknown effect %q", ErrInvalidCatalog, what, id, e.Kind)
	}
	return nil
}

func indexIDs(what string, n int, id func(int) string) (map[string]int, error) {
	idx := make(map[string]int, n)
	for i := 0; i < n; i++ {
		key := id(i)
		if key == "" {
			return nil, fmt.Errorf("%w: %s #%d has no id", ErrInvalidCatalog, what, i)
		}
		if _, dup := idx[key]; dup {
			return nil, fmt.Errorf("%w: duplicate %s id %q", ErrInvalidCatalog, what, key)
		}
		idx[key] = i
	}
	return idx, nil
}

func checkPriced(what, id string, baseCost, growth float64, currency Resource) error {
	if baseCost <= 0 {
		return fmt.Errorf("%w: %s %q has non-positive base cost", ErrInvalidCatalog, what, id)
	}
	if growth < 1 {
		return fmt.Errorf("%w: %s %q has cost growth below 1", ErrInvalidCatalog, what, id)
	}
	if currency != ResourceStardust && currency != ResourceNebulaGas {
		return fmt.Errorf("%w: %s %q is priced in unsupported currency %q", ErrInvalidCatalog, what, id, currency)
	}
	return nil
}

// checkTree rejects dangling dependencies and cycles with a three-colour DFS.
func checkTree(tree string, deps map[string][]string) error {
	for id, ds := range deps {
		for _, d := range ds {
			if _, ok := deps[d]; !ok {
				return fmt.Errorf("%w: %s node %q depends on unknown %q", ErrInvalidCatalog, tree, id, d)
			}
		}
	}

	const (
		white = iota
		grey
		black
	)
	colour := make(map[string]int, len(deps))
	var visit func(id string) error
	visit = func(id string) error {
		switch colour[id] {
		case grey:
			return fmt.Errorf("%w: %s dependency cycle through %q", ErrInvalidCatalog, tree, id)
		case black:
			return nil
		}
		colour[id] = grey
		for _, d := range deps[id] {
			if err := visit(d); err != nil {
				return err
			}
		}
		colour[id] = black
		return nil
	}

	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if colour[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func isLedgerResource(r Resource) bool {
	switch r {
	case ResourceStardust, ResourceNebulaGas, ResourceAntimatter, ResourceResearchPoints, ResourceSingularityEssence:
		return true
	}
	return false
}

// Upgrade looks up an upgrade template by id.
func (c *Catalog) Upgrade(id string) (Upgrade, bool) {
	i, ok := c.upgradeIdx[id]
	if !ok {
		return Upgrade{}, false
	}
	return c.Upgrades[i], true
}

// Generator looks up a generator template by id.
func (c *Catalog) Generator(id string) (Generator, bool) {
	i, ok := c.generatorIdx[id]
	if !ok {
		return Generator{}, false
	}
	return c.Generators[i], true
}

// Spell looks up a spell by id.
func (c *Catalog) Spell(id string) (Spell, bool) {
	i, ok := c.spellIdx[id]
	if !ok {
		return Spell{}, false
	}
	return c.Spells[i], true
}

// ResearchItem looks up a research node by id.
func (c *Catalog) ResearchItem(id string) (ResearchItem, bool) {
	i, ok := c.researchIdx[id]
	if !ok {
		return ResearchItem{}, false
	}
	return c.Research[i], true
}

// AscensionUpgrade looks up an ascension tree node by id.
func (c *Catalog) AscensionUpgrade(id string) (AscensionUpgrade, bool) {
	i, ok := c.ascensionIdx[id]
	if !ok {
		return AscensionUpgrade{}, false
	}
	return c.Ascension[i], true
}

// Challenge looks up a challenge by id.
func (c *Catalog) Challenge(id string) (Challenge, bool) {
	i, ok := c.challengeIdx[id]
	if !ok {
		return Challenge{}, false
	}
	return c.Challenges[i], true
}

// SpellIDs lists every spell id in catalog order.
func (c *Catalog) SpellIDs() []string {
	ids := make([]string, len(c.Spells))
	for i, s := range c.Spells {
		ids[i] = s.ID
	}
	return ids
}
