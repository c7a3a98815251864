package engine

import (
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
)

// ItemPrice is the next price of a purchasable item and whether it can be bought now.
type ItemPrice struct {
	ID         string           `json:"id"`
	Cost       float64          `json:"cost"`
	Currency   economy.Resource `json:"currency"`
	Affordable bool             `json:"affordable"`
}

// View is the read-only projection handed to the presentation layer.
type View struct {
	ServerTime     int64               `json:"serverTime"`
	State          *state.GameState    `json:"state"`
	Bonuses        rules.Bonuses       `json:"bonuses"`
	Rates          rules.Rates         `json:"rates"`
	Upgrades       []ItemPrice         `json:"upgrades"`
	Generators     []ItemPrice         `json:"generators"`
	Research       []ItemPrice         `json:"research"`
	Ascension      []ItemPrice         `json:"ascension"`
	PrestigeGain   float64             `json:"prestigeGain"`
	AscensionGain  float64             `json:"ascensionGain"`
	PendingOffline *state.OfflineGains `json:"pendingOffline"`
}

// BuildView projects s. It reads s only.
func BuildView(cat *economy.Catalog, s *state.GameState, b rules.Bonuses, now time.Time) View {
	v := View{
		ServerTime:     now.UnixMilli(),
		State:          s,
		Bonuses:        b,
		Rates:          rules.ComputeRates(cat, s, b, now),
		Upgrades:       make([]ItemPrice, 0, len(s.Upgrades)),
		Generators:     make([]ItemPrice, 0, len(s.Generators)),
		Research:       make([]ItemPrice, 0, len(cat.Research)),
		Ascension:      make([]ItemPrice, 0, len(cat.Ascension)),
		PrestigeGain:   rules.PrestigeGain(s, b),
		AscensionGain:  rules.AscensionGain(s),
		PendingOffline: s.PendingOffline,
	}
	price := func(id string, cost float64, r economy.Resource, unlocked bool) ItemPrice {
		return ItemPrice{ID: id, Cost: cost, Currency: r, Affordable: unlocked && s.Balance(r) >= cost}
	}

	for _, u := range s.Upgrades {
		if tmpl, ok := cat.Upgrade(u.ID); ok {
			v.Upgrades = append(v.Upgrades, price(u.ID, tmpl.CostAt(u.Level), tmpl.Currency, true))
		}
	}
	for _, g := range s.Generators {
		if tmpl, ok := cat.Generator(g.ID); ok {
			v.Generators = append(v.Generators, price(g.ID, rules.GeneratorCost(tmpl, g.Count, b), tmpl.Currency, true))
		}
	}
	for _, r := range cat.Research {
		open := !s.HasResearch(r.ID) && allIn(r.Dependencies, s.HasResearch)
		v.Research = append(v.Research, price(r.ID, r.Cost, economy.ResourceResearchPoints, open))
	}
	for _, a := range cat.Ascension {
		open := !s.HasAscension(a.ID) && allIn(a.Dependencies, s.HasAscension)
		v.Ascension = append(v.Ascension, price(a.ID, a.Cost, economy.ResourceSingularityEssence, open))
	}
	return v
}
