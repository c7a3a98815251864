package engine

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// epsilon absorbs float drift from summing fixed tick lengths.
const epsilon = 1e-9

func (sim *Simulation) manaUnlocked() bool {
	return sim.s.Prestiges > 0 || sim.s.Ascensions > 0
}

func (sim *Simulation) regenMana(dt float64) {
	if !sim.manaUnlocked() {
		sim.s.Mana = 0
		return
	}
	sim.s.Mana = math.Min(sim.s.MaxMana, sim.s.Mana+economy.ManaRegenPerSecond*dt)
}

func (sim *Simulation) expireSpells(dt float64) {
	kept := sim.s.ActiveSpellEffects[:0]
	for _, e := range sim.s.ActiveSpellEffects {
		e.RemainingDuration -= dt
		if e.RemainingDuration > epsilon {
			kept = append(kept, e)
		}
	}
	sim.s.ActiveSpellEffects = kept
}

func (sim *Simulation) chargeGenerators(dt float64) {
	for i := range sim.s.Generators {
		g := &sim.s.Generators[i]
		if g.Count <= 0 {
			continue
		}
		tmpl, ok := sim.cat.Generator(g.ID)
		if !ok {
			continue
		}
		g.ChargeTimer += dt
		if g.ChargeTimer >= tmpl.BaseChargeTime-epsilon {
			g.ChargeTimer = tmpl.BaseChargeTime
		}
	}
}

func (sim *Simulation) accrueResearch(b rules.Bonuses, dt float64) {
	sps := rules.AvgStardustPerSecond(sim.cat, sim.s, b)
	sim.s.ResearchPoints += rules.ResearchRate(sps, b) * dt
}

func (sim *Simulation) pruneClicks(now time.Time) {
	cutoff := now.Add(-economy.FrenzyWindow).UnixMilli()
	ts := sim.s.ClickTimestamps
	i := 0
	for i < len(ts) && ts[i] <= cutoff {
		i++
	}
	if i > 0 {
		sim.s.ClickTimestamps = append(ts[:0:0], ts[i:]...)
	}
}

func (sim *Simulation) decayCombo(now time.Time) {
	if sim.s.ClickCombo == 0 {
		return
	}
	if now.UnixMilli()-sim.s.LastClickTimestamp > economy.ComboTimeout.Milliseconds() {
		sim.s.ClickCombo = 0
	}
}

func (sim *Simulation) autoCollect(b rules.Bonuses) {
	if !b.Research.AutoCollectorUnlocked || !sim.s.Settings.AutoCollectorActive {
		return
	}
	for i := range sim.s.Generators {
		g := &sim.s.Generators[i]
		tmpl, ok := sim.cat.Generator(g.ID)
		if !ok || g.Count <= 0 || g.ChargeTimer < tmpl.BaseChargeTime {
			continue
		}
		if _, busy := sim.pending[g.ID]; busy {
			continue
		}
		g.ChargeTimer = 0
		sim.s.Credit(tmpl.Produces, rules.CollectPayout(tmpl, g.Count, sim.s.Antimatter))
	}
}

func (sim *Simulation) updateDynamicEvent(now time.Time) {
	if ev := sim.s.DynamicEvent; ev != nil {
		if now.UnixMilli()-ev.CreatedAt > economy.DynamicEventLifetime.Milliseconds() {
			sim.s.DynamicEvent = nil
		}
		return
	}
	if sim.rng.Float64() >= economy.DynamicEventChancePerTick {
		return
	}
	sim.s.DynamicEvent = &state.DynamicEvent{
		ID:        uuid.NewString(),
		CreatedAt: now.UnixMilli(),
		X:         10 + sim.rng.Float64()*80,
		Y:         10 + sim.rng.Float64()*80,
		VX:        sim.rng.Float64()*20 - 10,
		VY:        sim.rng.Float64()*20 - 10,
	}
}

// evaluateMilestones completes, in catalog order, every milestone whose
// requirement now holds. A reward can satisfy a later milestone in the same pass.
func (sim *Simulation) evaluateMilestones(now time.Time) {
	for _, m := range sim.cat.Milestones {
		if sim.s.Milestones[m.ID] || !sim.milestoneMet(m.Requirement) {
			continue
		}
		sim.s.Milestones[m.ID] = true
		if m.Reward != nil {
			sim.s.Grant(m.Reward.Resource, m.Reward.Amount)
		}
		sim.log(events.EventTypeMilestoneCompleted, now, events.MilestonePayload{MilestoneID: m.ID})
	}
}

func (sim *Simulation) milestoneMet(r economy.MilestoneRequirement) bool {
	switch r.Kind {
	case economy.MilestoneResourceAtLeast:
		return sim.s.Balance(r.Resource) >= r.Threshold
	case economy.MilestoneBaseStardustRateAtLeast:
		return rules.BaseStardustRate(sim.cat, sim.s) >= r.Threshold
	case economy.MilestonePrestigesAtLeast:
		return float64(sim.s.Prestiges) >= r.Threshold
	case economy.MilestoneAscensionsAtLeast:
		return float64(sim.s.Ascensions) >= r.Threshold
	}
	return false
}
