// Package economy defines the static definitions of everything the player can buy,
// research, cast or unlock, and the formulas that price them.
// This package is PURE and must NOT import any infrastructure packages.
package economy

// Resource names one of the counters in the player's ledger.
type Resource string

const (
	ResourceStardust           Resource = "stardust"
	ResourceNebulaGas          Resource = "nebulaGas"
	ResourceAntimatter         Resource = "antimatter"
	ResourceResearchPoints     Resource = "researchPoints"
	ResourceSingularityEssence Resource = "singularityEssence"
)

// ResearchEffectKind discriminates ResearchEffect.
type ResearchEffectKind string

const (
	ResearchClickPowerMultiplier ResearchEffectKind = "CLICK_POWER_MULTIPLIER"
	ResearchSPSMultiplier        ResearchEffectKind = "SPS_MULTIPLIER"
	ResearchGeneratorMultiplier  ResearchEffectKind = "GENERATOR_MULTIPLIER"
	ResearchUnlockAutoCollector  ResearchEffectKind = "UNLOCK_AUTOCLICKER"
)

// ResearchEffect is the permanent effect of a completed research item.
// GeneratorID is only meaningful for ResearchGeneratorMultiplier.
type ResearchEffect struct {
	Kind        ResearchEffectKind `yaml:"kind" json:"kind"`
	Value       float64            `yaml:"value,omitempty" json:"value,omitempty"`
	GeneratorID string             `yaml:"generatorId,omitempty" json:"generatorId,omitempty"`
}

// AscensionEffectKind discriminates AscensionEffect. Challenge rewards use the same set.
type AscensionEffectKind string

const (
	AscensionFlatSPSBoost                 AscensionEffectKind = "FLAT_SPS_BOOST"
	AscensionAntimatterGainMultiplier     AscensionEffectKind = "ANTIMATTER_GAIN_MULTIPLIER"
	AscensionStartingUpgradeLevel         AscensionEffectKind = "STARTING_UPGRADE_LEVEL"
	AscensionStartingStardust             AscensionEffectKind = "STARTING_STARDUST"
	AscensionCriticalClickChanceBoost     AscensionEffectKind = "CRITICAL_CLICK_CHANCE_BOOST"
	AscensionResearchPointsGainMultiplier AscensionEffectKind = "RESEARCH_POINTS_GAIN_MULTIPLIER"
)

// AscensionEffect is the effect of an ascension upgrade or a challenge reward.
// UpgradeID is only meaningful for AscensionStartingUpgradeLevel.
type AscensionEffect struct {
	Kind      AscensionEffectKind `yaml:"kind" json:"kind"`
	Value     float64             `yaml:"value" json:"value"`
	UpgradeID string              `yaml:"upgradeId,omitempty" json:"upgradeId,omitempty"`
}

// HandicapKind discriminates Handicap.
type HandicapKind string

const (
	HandicapClickPowerCap      HandicapKind = "CLICK_POWER_CAP"
	HandicapSPSReduction       HandicapKind = "SPS_REDUCTION"
	HandicapCostGrowthIncrease HandicapKind = "COST_GROWTH_INCREASE"
)

// Handicap is the penalty applied while a challenge is active.
type Handicap struct {
	Kind  HandicapKind `yaml:"kind" json:"kind"`
	Value float64      `yaml:"value" json:"value"`
}

// SpellEffectKind discriminates SpellEffect.
type SpellEffectKind string

const (
	SpellClickPowerBoost SpellEffectKind = "CLICK_POWER_BOOST"
	SpellInstantCharge   SpellEffectKind = "INSTANT_CHARGE"
)

// SpellEffect describes what a cast does. Duration is in seconds and, together with
// Multiplier, only applies to SpellClickPowerBoost.
type SpellEffect struct {
	Kind       SpellEffectKind `yaml:"kind" json:"kind"`
	Duration   float64         `yaml:"duration,omitempty" json:"duration,omitempty"`
	Multiplier float64         `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
}

// Upgrade is the immutable template of a click-power upgrade.
type Upgrade struct {
	ID         string   `yaml:"id" json:"id"`
	Power      float64  `yaml:"power" json:"power"`
	BaseCost   float64  `yaml:"baseCost" json:"baseCost"`
	CostGrowth float64  `yaml:"costGrowth" json:"costGrowth"`
	Currency   Resource `yaml:"currency" json:"currency"`
}

// Generator is the immutable template of a passive producer.
// BaseChargeTime is in seconds.
type Generator struct {
	ID             string   `yaml:"id" json:"id"`
	Produces       Resource `yaml:"produces" json:"produces"`
	BasePayout     float64  `yaml:"basePayout" json:"basePayout"`
	BaseChargeTime float64  `yaml:"baseChargeTime" json:"baseChargeTime"`
	BaseCost       float64  `yaml:"baseCost" json:"baseCost"`
	CostGrowth     float64  `yaml:"costGrowth" json:"costGrowth"`
	Currency       Resource `yaml:"currency" json:"currency"`
}

// ResearchItem is a node of the research tree, paid in research points.
type ResearchItem struct {
	ID           string         `yaml:"id" json:"id"`
	Cost         float64        `yaml:"cost" json:"cost"`
	Dependencies []string       `yaml:"dependencies,omitempty" json:"dependencies"`
	Effect       ResearchEffect `yaml:"effect" json:"effect"`
}

// Position places a node on the ascension tree canvas.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// AscensionUpgrade is a node of the ascension tree, paid in singularity essence.
type AscensionUpgrade struct {
	ID           string          `yaml:"id" json:"id"`
	Cost         float64         `yaml:"cost" json:"cost"`
	Dependencies []string        `yaml:"dependencies,omitempty" json:"dependencies"`
	Effect       AscensionEffect `yaml:"effect" json:"effect"`
	Position     Position        `yaml:"position" json:"position"`
}

// Challenge imposes Handicap while active and grants Reward once completed.
type Challenge struct {
	ID       string          `yaml:"id" json:"id"`
	Handicap Handicap        `yaml:"handicap" json:"handicap"`
	Reward   AscensionEffect `yaml:"reward" json:"reward"`
}

// Spell costs mana and is never consumed by casting.
type Spell struct {
	ID       string      `yaml:"id" json:"id"`
	ManaCost float64     `yaml:"manaCost" json:"manaCost"`
	Effect   SpellEffect `yaml:"effect" json:"effect"`
}

// MilestoneRequirementKind selects the predicate a milestone is evaluated with.
type MilestoneRequirementKind string

const (
	// MilestoneResourceAtLeast compares a ledger counter against Threshold.
	MilestoneResourceAtLeast         MilestoneRequirementKind = "RESOURCE_AT_LEAST"
	// MilestoneBaseStardustRateAtLeast compares the raw stardust rate of all generators,
	// without any bonus applied, against Threshold.
	MilestoneBaseStardustRateAtLeast MilestoneRequirementKind = "BASE_STARDUST_RATE_AT_LEAST"
	MilestonePrestigesAtLeast        MilestoneRequirementKind = "PRESTIGES_AT_LEAST"
	MilestoneAscensionsAtLeast       MilestoneRequirementKind = "ASCENSIONS_AT_LEAST"
)

// MilestoneRequirement is the completion predicate of a milestone.
type MilestoneRequirement struct {
	Kind      MilestoneRequirementKind `yaml:"kind" json:"kind"`
	Resource  Resource                 `yaml:"resource,omitempty" json:"resource,omitempty"`
	Threshold float64                  `yaml:"threshold" json:"threshold"`
}

// Reward is a one-off resource grant.
type Reward struct {
	Resource Resource `yaml:"resource" json:"resource"`
	Amount   float64  `yaml:"amount" json:"amount"`
}

// Milestone is a one-time achievement evaluated every tick until completed.
type Milestone struct {
	ID          string               `yaml:"id" json:"id"`
	Requirement MilestoneRequirement `yaml:"requirement" json:"requirement"`
	Reward      *Reward              `yaml:"reward,omitempty" json:"reward,omitempty"`
}
