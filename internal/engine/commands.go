package engine

import (
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// Command handlers. Each returns false and leaves the state untouched when a
// precondition does not hold.

// PurchaseUpgrade buys one level of an upgrade.
func (sim *Simulation) PurchaseUpgrade(id string, now time.Time) bool {
	tmpl, ok := sim.cat.Upgrade(id)
	u := sim.s.Upgrade(id)
	if !ok || u == nil {
		return false
	}
	cost := tmpl.CostAt(u.Level)
	if !sim.s.Debit(tmpl.Currency, cost) {
		return false
	}
	u.Level++
	sim.log(events.EventTypePurchaseUpgrade, now, events.PurchasePayload{ItemID: id, Cost: cost, Count: u.Level})
	return true
}

// PurchaseGenerator buys one unit of a generator at the challenge-adjusted price.
func (sim *Simulation) PurchaseGenerator(id string, now time.Time) bool {
	tmpl, ok := sim.cat.Generator(id)
	g := sim.s.Generator(id)
	if !ok || g == nil {
		return false
	}
	cost := rules.GeneratorCost(tmpl, g.Count, sim.Bonuses())
	if !sim.s.Debit(tmpl.Currency, cost) {
		return false
	}
	g.Count++
	sim.log(events.EventTypePurchaseGenerator, now, events.PurchasePayload{ItemID: id, Cost: cost, Count: g.Count})
	return true
}

// Collect drains a fully charged generator. The payout is not credited here: it
// is returned as a PendingCredit for the caller to apply after the presentation
// delay. A generator whose previous credit is still pending cannot be collected.
func (sim *Simulation) Collect(id string, now time.Time) (PendingCredit, bool) {
	tmpl, ok := sim.cat.Generator(id)
	g := sim.s.Generator(id)
	if !ok || g == nil || g.Count <= 0 || g.ChargeTimer < tmpl.BaseChargeTime {
		return PendingCredit{}, false
	}
	if _, busy := sim.pending[id]; busy {
		return PendingCredit{}, false
	}
	payout := rules.CollectPayout(tmpl, g.Count, sim.s.Antimatter)
	g.ChargeTimer = 0
	sim.log(events.EventTypeCollectArtifact, now, events.CollectPayload{GeneratorID: id, Payout: payout})
	return sim.schedule(id, tmpl.Produces, payout), true
}

// CastSpell spends mana on a granted spell. Casting a running boost restarts its duration.
func (sim *Simulation) CastSpell(id string, now time.Time) bool {
	sp, ok := sim.cat.Spell(id)
	if !ok || !sim.s.HasSpell(id) || sim.s.Mana < sp.ManaCost {
		return false
	}
	sim.s.Mana -= sp.ManaCost

	switch sp.Effect.Kind {
	case economy.SpellClickPowerBoost:
		sim.s.ActiveSpellEffects = slices.DeleteFunc(sim.s.ActiveSpellEffects, func(e state.ActiveSpellEffect) bool {
			return e.SpellID == id
		})
		sim.s.ActiveSpellEffects = append(sim.s.ActiveSpellEffects, state.ActiveSpellEffect{
			SpellID:           id,
			RemainingDuration: sp.Effect.Duration,
		})
	case economy.SpellInstantCharge:
		for i := range sim.s.Generators {
			g := &sim.s.Generators[i]
			if tmpl, ok := sim.cat.Generator(g.ID); ok && g.Count > 0 {
				g.ChargeTimer = tmpl.BaseChargeTime
			}
		}
	}
	sim.log(events.EventTypeCastSpell, now, events.SpellPayload{SpellID: id})
	return true
}

// Prestige trades the run's lifetime stardust for antimatter.
func (sim *Simulation) Prestige(now time.Time) bool {
	gain := rules.PrestigeGain(sim.s, sim.Bonuses())
	if gain <= 0 {
		return false
	}
	s := sim.s
	total := s.TotalStardustEver

	s.Stardust, s.NebulaGas, s.ResearchPoints, s.TotalStardustEver = 0, 0, 0, 0
	s.Prestiges++
	s.Antimatter += gain
	s.Upgrades = state.FreshUpgrades(sim.cat)
	s.Generators = state.FreshGenerators(sim.cat)
	s.Mana = 0
	if len(s.Spells) == 0 {
		s.Spells = sim.cat.SpellIDs()
	}
	s.ActiveSpellEffects = []state.ActiveSpellEffect{}

	sim.log(events.EventTypePrestige, now, events.PrestigePayload{AntimatterGain: gain, TotalStardust: total})
	sim.logger.Infof("Prestige #%d: +%s antimatter", s.Prestiges, humanize.Commaf(gain))
	return true
}

// Ascend trades antimatter for singularity essence and completes the active challenge.
func (sim *Simulation) Ascend(now time.Time) bool {
	gain := rules.AscensionGain(sim.s)
	if gain <= 0 {
		return false
	}
	s := sim.s
	antimatter := s.Antimatter

	s.Stardust, s.NebulaGas, s.Antimatter, s.ResearchPoints, s.TotalStardustEver = 0, 0, 0, 0, 0
	s.Prestiges = 0
	s.Mana = 0
	s.Ascensions++
	s.SingularityEssence += gain
	s.Upgrades = state.FreshUpgrades(sim.cat)
	s.Generators = state.FreshGenerators(sim.cat)
	s.Spells = []string{}
	s.ActiveSpellEffects = []state.ActiveSpellEffect{}
	s.CompletedResearch = []string{}
	if s.ActiveChallenge != "" && !s.HasCompleted(s.ActiveChallenge) {
		s.CompletedChallenges = append(s.CompletedChallenges, s.ActiveChallenge)
	}
	s.ActiveChallenge = ""

	sim.log(events.EventTypeAscend, now, events.AscendPayload{EssenceGain: gain, Antimatter: antimatter})
	sim.logger.Infof("Ascension #%d: +%s essence from %s antimatter",
		s.Ascensions, humanize.Commaf(gain), humanize.SIWithDigits(antimatter, 2, ""))
	return true
}

// PurchaseAscensionUpgrade buys a node of the ascension tree.
func (sim *Simulation) PurchaseAscensionUpgrade(id string, now time.Time) bool {
	u, ok := sim.cat.AscensionUpgrade(id)
	if !ok || sim.s.HasAscension(id) || !allIn(u.Dependencies, sim.s.HasAscension) {
		return false
	}
	if !sim.s.Debit(economy.ResourceSingularityEssence, u.Cost) {
		return false
	}
	sim.s.PurchasedAscensionUpgrades = append(sim.s.PurchasedAscensionUpgrades, id)
	sim.log(events.EventTypePurchaseAscensionUpgrade, now, events.AscensionUpgradePayload{UpgradeID: id})
	return true
}

// PurchaseResearch completes a node of the research tree.
func (sim *Simulation) PurchaseResearch(id string, now time.Time) bool {
	r, ok := sim.cat.ResearchItem(id)
	if !ok || sim.s.HasResearch(id) || !allIn(r.Dependencies, sim.s.HasResearch) {
		return false
	}
	if !sim.s.Debit(economy.ResourceResearchPoints, r.Cost) {
		return false
	}
	sim.s.CompletedResearch = append(sim.s.CompletedResearch, id)
	sim.log(events.EventTypePurchaseResearch, now, events.ResearchPayload{ResearchID: id, Cost: r.Cost})
	return true
}

// ActivateChallenge selects the active challenge; an empty id clears it.
// Unknown and already completed challenges cannot be selected.
func (sim *Simulation) ActivateChallenge(id string, now time.Time) bool {
	var payload events.ChallengePayload
	if id != "" {
		if _, ok := sim.cat.Challenge(id); !ok || sim.s.HasCompleted(id) {
			return false
		}
		payload.ChallengeID = &id
	}
	sim.s.ActiveChallenge = id
	sim.log(events.EventTypeActivateChallenge, now, payload)
	return true
}

// ClickResult describes one manual click.
type ClickResult struct {
	Amount float64 `json:"amount"`
	Crit   bool    `json:"crit"`
}

// ClickStar credits one manual click and updates the combo and frenzy bookkeeping.
func (sim *Simulation) ClickStar(now time.Time) ClickResult {
	b := sim.Bonuses()
	sim.pruneClicks(now)
	cpm := rules.ClicksPerMinute(sim.s.ClickTimestamps, now)

	res := ClickResult{Amount: rules.ClickPower(sim.cat, sim.s, b, cpm)}
	if sim.rng.Float64() < rules.CriticalChance(b) {
		res.Crit = true
		res.Amount *= economy.CriticalClickMultiplier
	}
	sim.s.Credit(economy.ResourceStardust, res.Amount)

	ms := now.UnixMilli()
	if sim.s.LastClickTimestamp != 0 && ms-sim.s.LastClickTimestamp < economy.ComboTimeout.Milliseconds() {
		sim.s.ClickCombo = min(sim.s.ClickCombo+1, economy.ComboMax)
	} else {
		sim.s.ClickCombo = 1
	}
	sim.s.LastClickTimestamp = ms
	sim.s.ClickTimestamps = append(sim.s.ClickTimestamps, ms)
	return res
}

// ClickDynamicEvent claims the live dynamic event, worth a minute of stardust production.
func (sim *Simulation) ClickDynamicEvent(now time.Time) bool {
	if sim.s.DynamicEvent == nil {
		return false
	}
	reward := rules.AvgStardustPerSecond(sim.cat, sim.s, sim.Bonuses()) * economy.DynamicEventRewardRateMultiple
	sim.s.Credit(economy.ResourceStardust, reward)
	sim.s.DynamicEvent = nil
	sim.log(events.EventTypeDynamicEventClicked, now, events.DynamicEventPayload{Reward: reward})
	return true
}

func (sim *Simulation) SetCompactMode(on bool) {
	sim.s.Settings.CompactMode = on
}

func (sim *Simulation) SetAutoCollector(on bool) {
	sim.s.Settings.AutoCollectorActive = on
}

func (sim *Simulation) SetLanguage(l state.Language) bool {
	if l != state.LanguageEnglish && l != state.LanguagePolish {
		return false
	}
	sim.s.Settings.Language = l
	return true
}

func (sim *Simulation) SetTheme(t state.Theme) bool {
	if t != state.ThemeCosmic && t != state.ThemeWizarding {
		return false
	}
	sim.s.Settings.Theme = t
	return true
}

// Reset wipes all progress. The fresh log starts with the GAME_RESET entry, and
// pending collect credits are dropped.
func (sim *Simulation) Reset(now time.Time) {
	fresh := state.New(sim.cat)
	fresh.Log(events.NewEvent(events.EventTypeGameReset, now, nil))
	sim.s = fresh
	sim.pending = make(map[string]PendingCredit)
	sim.drained = 0
	sim.logger.Warn("Game reset: all progress discarded")
}

func allIn(ids []string, has func(string) bool) bool {
	for _, id := range ids {
		if !has(id) {
			return false
		}
	}
	return true
}
