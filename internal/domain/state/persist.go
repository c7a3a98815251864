package state

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// SaveVersion is written into every save file.
const SaveVersion = 1

// SaveFile is the persisted form of GameState. Session-local fields have no
// counterpart here, so they can never be written. Pointer fields distinguish
// "absent" from "zero" when merging over defaults.
type SaveFile struct {
	Version int `json:"version"`

	Stardust           float64  `json:"stardust"`
	NebulaGas          float64  `json:"nebulaGas"`
	Antimatter         float64  `json:"antimatter"`
	ResearchPoints     float64  `json:"researchPoints"`
	SingularityEssence float64  `json:"singularityEssence"`
	TotalStardustEver  float64  `json:"totalStardustEver"`
	Prestiges          int      `json:"prestiges"`
	Ascensions         int      `json:"ascensions"`
	Mana               float64  `json:"mana"`
	MaxMana            *float64 `json:"maxMana,omitempty"`

	Upgrades           []UpgradeState      `json:"upgrades,omitempty"`
	Generators         []GeneratorState    `json:"generators,omitempty"`
	Spells             []string            `json:"spells,omitempty"`
	ActiveSpellEffects []ActiveSpellEffect `json:"activeSpellEffects,omitempty"`

	Milestones                 map[string]bool `json:"milestones,omitempty"`
	CompletedResearch          []string        `json:"completedResearch,omitempty"`
	PurchasedAscensionUpgrades []string        `json:"purchasedAscensionUpgrades,omitempty"`
	ActiveChallenge            *string         `json:"activeChallenge"`
	CompletedChallenges        []string        `json:"completedChallenges,omitempty"`

	Settings          *savedSettings          `json:"settings,omitempty"`
	Analytics         []events.AnalyticsEvent `json:"analytics,omitempty"`
	LastSaveTimestamp int64                   `json:"lastSaveTimestamp"`
}

type savedSettings struct {
	CompactMode         *bool     `json:"compactMode,omitempty"`
	Language            *Language `json:"language,omitempty"`
	Theme               *Theme    `json:"theme,omitempty"`
	AutoCollectorActive *bool     `json:"autoCollectorActive,omitempty"`
}

// Encode serializes the persistent part of s, stamping savedAtMillis as the save time.
func Encode(s *GameState, savedAtMillis int64) ([]byte, error) {
	maxMana := s.MaxMana
	settings := s.Settings
	sf := SaveFile{
		Version:                    SaveVersion,
		Stardust:                   s.Stardust,
		NebulaGas:                  s.NebulaGas,
		Antimatter:                 s.Antimatter,
		ResearchPoints:             s.ResearchPoints,
		SingularityEssence:         s.SingularityEssence,
		TotalStardustEver:          s.TotalStardustEver,
		Prestiges:                  s.Prestiges,
		Ascensions:                 s.Ascensions,
		Mana:                       s.Mana,
		MaxMana:                    &maxMana,
		Upgrades:                   s.Upgrades,
		Generators:                 s.Generators,
		Spells:                     s.Spells,
		ActiveSpellEffects:         s.ActiveSpellEffects,
		Milestones:                 s.Milestones,
		CompletedResearch:          s.CompletedResearch,
		PurchasedAscensionUpgrades: s.PurchasedAscensionUpgrades,
		CompletedChallenges:        s.CompletedChallenges,
		Settings: &savedSettings{
			CompactMode:         &settings.CompactMode,
			Language:            &settings.Language,
			Theme:               &settings.Theme,
			AutoCollectorActive: &settings.AutoCollectorActive,
		},
		Analytics:         s.Analytics,
		LastSaveTimestamp: savedAtMillis,
	}
	if s.ActiveChallenge != "" {
		id := s.ActiveChallenge
		sf.ActiveChallenge = &id
	}
	return json.Marshal(sf)
}

// Restore rebuilds a GameState from a save by merging it over a fresh state.
// A save that cannot be decoded yields a fresh state together with the decode error.
func Restore(cat *economy.Catalog, data []byte) (*GameState, error) {
	var sf SaveFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return New(cat), fmt.Errorf("failed to decode save: %w", err)
	}

	s := New(cat)
	s.Stardust = sf.Stardust
	s.NebulaGas = sf.NebulaGas
	s.Antimatter = sf.Antimatter
	s.ResearchPoints = sf.ResearchPoints
	s.SingularityEssence = sf.SingularityEssence
	s.TotalStardustEver = sf.TotalStardustEver
	s.Prestiges = sf.Prestiges
	s.Ascensions = sf.Ascensions
	s.Mana = sf.Mana
	if sf.MaxMana != nil {
		s.MaxMana = *sf.MaxMana
	}
	s.LastSaveTimestamp = sf.LastSaveTimestamp

	// Catalog-shaped collections are replaced wholesale when missing; otherwise
	// saved progress is laid over the current templates by id.
	if len(sf.Upgrades) > 0 {
		for _, u := range sf.Upgrades {
			if cur := s.Upgrade(u.ID); cur != nil {
				cur.Level = u.Level
			}
		}
	}
	if len(sf.Generators) > 0 {
		for _, g := range sf.Generators {
			if cur := s.Generator(g.ID); cur != nil {
				cur.Count = g.Count
				cur.ChargeTimer = g.ChargeTimer
			}
		}
	}

	if sf.Spells != nil {
		s.Spells = sf.Spells
	}
	if sf.ActiveSpellEffects != nil {
		s.ActiveSpellEffects = sf.ActiveSpellEffects
	}
	if sf.Milestones != nil {
		s.Milestones = sf.Milestones
	}
	if sf.CompletedResearch != nil {
		s.CompletedResearch = sf.CompletedResearch
	}
	if sf.PurchasedAscensionUpgrades != nil {
		s.PurchasedAscensionUpgrades = sf.PurchasedAscensionUpgrades
	}
	if sf.CompletedChallenges != nil {
		s.CompletedChallenges = sf.CompletedChallenges
	}
	if sf.ActiveChallenge != nil {
		s.ActiveChallenge = *sf.ActiveChallenge
	}
	if sf.Analytics != nil {
		s.Analytics = sf.Analytics
	}
	if ss := sf.Settings; ss != nil {
		if ss.CompactMode != nil {
			s.Settings.CompactMode = *ss.CompactMode
		}
		if ss.Language != nil {
			s.Settings.Language = *ss.Language
		}
		if ss.Theme != nil {
			s.Settings.Theme = *ss.Theme
		}
		if ss.AutoCollectorActive != nil {
			s.Settings.AutoCollectorActive = *ss.AutoCollectorActive
		}
	}

	Normalize(cat, s)
	return s, nil
}

// Normalize repairs a state so that every invariant holds before the first tick:
// non-negative finite counters, clamped charge timers, only known ids, a valid
// active challenge and a mana pool within its cap. Session-local fields are reset.
func Normalize(cat *economy.Catalog, s *GameState) {
	for _, p := range []*float64{
		&s.Stardust, &s.NebulaGas, &s.Antimatter, &s.ResearchPoints,
		&s.SingularityEssence, &s.TotalStardustEver, &s.Mana,
	} {
		*p = nonNegative(*p)
	}
	if s.Prestiges < 0 {
		s.Prestiges = 0
	}
	if s.Ascensions < 0 {
		s.Ascensions = 0
	}
	if s.MaxMana = nonNegative(s.MaxMana); s.MaxMana == 0 {
		s.MaxMana = economy.InitialMaxMana
	}
	s.Mana = math.Min(s.Mana, s.MaxMana)

	for i := range s.Upgrades {
		if s.Upgrades[i].Level < 0 {
			s.Upgrades[i].Level = 0
		}
	}
	for i := range s.Generators {
		g := &s.Generators[i]
		if g.Count < 0 {
			g.Count = 0
		}
		tmpl, _ := cat.Generator(g.ID)
		g.ChargeTimer = math.Min(nonNegative(g.ChargeTimer), tmpl.BaseChargeTime)
	}

	s.Spells = dedupKnown(s.Spells, func(id string) bool { _, ok := cat.Spell(id); return ok })
	s.CompletedResearch = dedupKnown(s.CompletedResearch, func(id string) bool { _, ok := cat.ResearchItem(id); return ok })
	s.PurchasedAscensionUpgrades = dedupKnown(s.PurchasedAscensionUpgrades, func(id string) bool { _, ok := cat.AscensionUpgrade(id); return ok })
	s.CompletedChallenges = dedupKnown(s.CompletedChallenges, func(id string) bool { _, ok := cat.Challenge(id); return ok })

	effects := s.ActiveSpellEffects[:0]
	for _, e := range s.ActiveSpellEffects {
		if sp, ok := cat.Spell(e.SpellID); ok && sp.Effect.Kind == economy.SpellClickPowerBoost && e.RemainingDuration > 0 {
			effects = append(effects, e)
		}
	}
	s.ActiveSpellEffects = effects

	if s.ActiveChallenge != "" {
		if _, ok := cat.Challenge(s.ActiveChallenge); !ok || s.HasCompleted(s.ActiveChallenge) {
			s.ActiveChallenge = ""
		}
	}

	if s.Prestiges > 0 && len(s.Spells) == 0 {
		s.Spells = cat.SpellIDs()
	}

	if s.Settings.Language != LanguageEnglish && s.Settings.Language != LanguagePolish {
		s.Settings.Language = LanguageEnglish
	}
	if s.Settings.Theme != ThemeCosmic && s.Settings.Theme != ThemeWizarding {
		s.Settings.Theme = ThemeCosmic
	}

	s.DynamicEvent = nil
	s.ClickTimestamps = []int64{}
	s.ClickCombo = 0
	s.LastClickTimestamp = 0
	s.History = []ResourceSample{}
	s.StatsHistory = []RateSample{}
	s.PendingOffline = nil
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func dedupKnown(ids []string, known func(string) bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if known(id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
