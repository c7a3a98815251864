// Package state defines the GameState aggregate: the single mutable snapshot of a
// player's progress, owned exclusively by the engine.
// This package is PURE and must NOT import any infrastructure packages.
package state

import (
	"slices"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// Language is a presentation locale.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguagePolish  Language = "pl"
)

// Theme is a presentation theme.
type Theme string

const (
	ThemeCosmic    Theme = "cosmic"
	ThemeWizarding Theme = "wizarding"
)

// Settings are player preferences. Only AutoCollectorActive influences the simulation.
type Settings struct {
	CompactMode         bool     `json:"compactMode"`
	Language            Language `json:"language"`
	Theme               Theme    `json:"theme"`
	AutoCollectorActive bool     `json:"autoCollectorActive"`
}

// DefaultSettings returns the preferences of a fresh game.
func DefaultSettings() Settings {
	return Settings{Language: LanguageEnglish, Theme: ThemeCosmic}
}

// UpgradeState is the mutable part of an upgrade; the template lives in the catalog.
type UpgradeState struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// GeneratorState is the mutable part of a generator. ChargeTimer is in seconds
// and stays within [0, BaseChargeTime].
type GeneratorState struct {
	ID          string  `json:"id"`
	Count       int     `json:"count"`
	ChargeTimer float64 `json:"chargeTimer"`
}

// ActiveSpellEffect is a running timed buff. RemainingDuration is in seconds.
type ActiveSpellEffect struct {
	SpellID           string  `json:"spellId"`
	RemainingDuration float64 `json:"remainingDuration"`
}

// DynamicEvent is a transient clickable bonus. Position is in percent of the play
// field, velocity in percent per second, CreatedAt in Unix milliseconds.
type DynamicEvent struct {
	ID        string  `json:"id"`
	CreatedAt int64   `json:"createdAt"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
}

// ResourceSample is one point of the resource chart.
type ResourceSample struct {
	Time      int64   `json:"time"`
	Stardust  float64 `json:"stardust"`
	NebulaGas float64 `json:"nebulaGas"`
}

// RateSample is one point of the production-rate chart.
type RateSample struct {
	Time int64   `json:"time"`
	SPS  float64 `json:"sps"`
}

// OfflineGains are staged on load and credited only when claimed.
// TimeAwaySeconds is the uncapped gap.
type OfflineGains struct {
	Stardust        float64 `json:"stardust"`
	NebulaGas       float64 `json:"nebulaGas"`
	ResearchPoints  float64 `json:"researchPoints"`
	TimeAwaySeconds float64 `json:"timeAwaySeconds"`
}

// GameState is the root aggregate.
type GameState struct {
	Stardust           float64 `json:"stardust"`
	NebulaGas          float64 `json:"nebulaGas"`
	Antimatter         float64 `json:"antimatter"`
	ResearchPoints     float64 `json:"researchPoints"`
	SingularityEssence float64 `json:"singularityEssence"`
	TotalStardustEver  float64 `json:"totalStardustEver"`

	Prestiges  int `json:"prestiges"`
	Ascensions int `json:"ascensions"`

	Mana    float64 `json:"mana"`
	MaxMana float64 `json:"maxMana"`

	Upgrades           []UpgradeState      `json:"upgrades"`
	Generators         []GeneratorState    `json:"generators"`
	Spells             []string            `json:"spells"`
	ActiveSpellEffects []ActiveSpellEffect `json:"activeSpellEffects"`

	Milestones                 map[string]bool `json:"milestones"`
	CompletedResearch          []string        `json:"completedResearch"`
	PurchasedAscensionUpgrades []string        `json:"purchasedAscensionUpgrades"`
	ActiveChallenge            string          `json:"activeChallenge,omitempty"`
	CompletedChallenges        []string        `json:"completedChallenges"`

	Settings          Settings                `json:"settings"`
	Analytics         []events.AnalyticsEvent `json:"-"`
	LastSaveTimestamp int64                   `json:"lastSaveTimestamp"`

	// Session-local: never persisted, reset on load.
	DynamicEvent       *DynamicEvent    `json:"dynamicEvent"`
	ClickTimestamps    []int64          `json:"-"`
	ClickCombo         int              `json:"clickCombo"`
	LastClickTimestamp int64            `json:"lastClickTimestamp"`
	History            []ResourceSample `json:"history"`
	StatsHistory       []RateSample     `json:"statsHistory"`
	PendingOffline     *OfflineGains    `json:"pendingOffline"`
}

// New returns the state of a brand-new game for the given catalog.
func New(cat *economy.Catalog) *GameState {
	return &GameState{
		MaxMana:                    economy.InitialMaxMana,
		Upgrades:                   FreshUpgrades(cat),
		Generators:                 FreshGenerators(cat),
		Spells:                     []string{},
		ActiveSpellEffects:         []ActiveSpellEffect{},
		Milestones:                 map[string]bool{},
		CompletedResearch:          []string{},
		PurchasedAscensionUpgrades: []string{},
		CompletedChallenges:        []string{},
		Settings:                   DefaultSettings(),
		Analytics:                  []events.AnalyticsEvent{},
		ClickTimestamps:            []int64{},
		History:                    []ResourceSample{},
		StatsHistory:               []RateSample{},
	}
}

// FreshUpgrades returns every catalog upgrade at level 0.
func FreshUpgrades(cat *economy.Catalog) []UpgradeState {
	out := make([]UpgradeState, len(cat.Upgrades))
	for i, u := range cat.Upgrades {
		out[i] = UpgradeState{ID: u.ID}
	}
	return out
}

// FreshGenerators returns every catalog generator with count 0 and an empty charge.
func FreshGenerators(cat *economy.Catalog) []GeneratorState {
	out := make([]GeneratorState, len(cat.Generators))
	for i, g := range cat.Generators {
		out[i] = GeneratorState{ID: g.ID}
	}
	return out
}

// Upgrade returns a pointer to the upgrade entry with the given id.
func (s *GameState) Upgrade(id string) *UpgradeState {
	for i := range s.Upgrades {
		if s.Upgrades[i].ID == id {
			return &s.Upgrades[i]
		}
	}
	return nil
}

// Generator returns a pointer to the generator entry with the given id.
func (s *GameState) Generator(id string) *GeneratorState {
	for i := range s.Generators {
		if s.Generators[i].ID == id {
			return &s.Generators[i]
		}
	}
	return nil
}

func (s *GameState) HasResearch(id string) bool  { return slices.Contains(s.CompletedResearch, id) }
func (s *GameState) HasAscension(id string) bool { return slices.Contains(s.PurchasedAscensionUpgrades, id) }
func (s *GameState) HasCompleted(id string) bool { return slices.Contains(s.CompletedChallenges, id) }
func (s *GameState) HasSpell(id string) bool     { return slices.Contains(s.Spells, id) }

// Balance returns the ledger counter for r.
func (s *GameState) Balance(r economy.Resource) float64 {
	switch r {
	case economy.ResourceStardust:
		return s.Stardust
	case economy.ResourceNebulaGas:
		return s.NebulaGas
	case economy.ResourceAntimatter:
		return s.Antimatter
	case economy.ResourceResearchPoints:
		return s.ResearchPoints
	case economy.ResourceSingularityEssence:
		return s.SingularityEssence
	}
	return 0
}

// Credit adds amount to the counter for r. Stardust credits also raise the lifetime total.
func (s *GameState) Credit(r economy.Resource, amount float64) {
	if r == economy.ResourceStardust {
		s.TotalStardustEver += amount
	}
	s.Grant(r, amount)
}

// Grant adds amount to the balance of r without counting it as earned, so
// lifetime stardust is left alone.
func (s *GameState) Grant(r economy.Resource, amount float64) {
	switch r {
	case economy.ResourceStardust:
		s.Stardust += amount
	case economy.ResourceNebulaGas:
		s.NebulaGas += amount
	case economy.ResourceAntimatter:
		s.Antimatter += amount
	case economy.ResourceResearchPoints:
		s.ResearchPoints += amount
	case economy.ResourceSingularityEssence:
		s.SingularityEssence += amount
	}
}

// Debit subtracts amount from the counter for r if the balance covers it.
func (s *GameState) Debit(r economy.Resource, amount float64) bool {
	if amount < 0 || s.Balance(r) < amount {
		return false
	}
	switch r {
	case economy.ResourceStardust:
		s.Stardust -= amount
	case economy.ResourceNebulaGas:
		s.NebulaGas -= amount
	case economy.ResourceAntimatter:
		s.Antimatter -= amount
	case economy.ResourceResearchPoints:
		s.ResearchPoints -= amount
	case economy.ResourceSingularityEssence:
		s.SingularityEssence -= amount
	default:
		return false
	}
	return true
}

// Log appends an analytics event to the session log.
func (s *GameState) Log(e events.AnalyticsEvent) {
	s.Analytics = append(s.Analytics, e)
}
