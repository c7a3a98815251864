package engine

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// ComputeOfflineGains approximates what the generators produced between the last
// save and now without replaying ticks: whole charge cycles per generator, with no
// bonus other than count, and research at the current rate. It reports false when
// there is no prior save or the gap is below the minimum.
func ComputeOfflineGains(cat *economy.Catalog, s *state.GameState, b rules.Bonuses, now time.Time) (state.OfflineGains, bool) {
	if s.LastSaveTimestamp <= 0 {
		return state.OfflineGains{}, false
	}
	gap := now.Sub(time.UnixMilli(s.LastSaveTimestamp))
	if gap <= economy.OfflineMinGap {
		return state.OfflineGains{}, false
	}
	elapsed := cappedSeconds(gap)

	gains := state.OfflineGains{TimeAwaySeconds: gap.Seconds()}
	for _, g := range s.Generators {
		tmpl, ok := cat.Generator(g.ID)
		if !ok || g.Count <= 0 {
			continue
		}
		cycles := math.Floor((g.ChargeTimer + elapsed) / tmpl.BaseChargeTime)
		amount := cycles * tmpl.BasePayout * float64(g.Count)
		switch tmpl.Produces {
		case economy.ResourceStardust:
			gains.Stardust += amount
		case economy.ResourceNebulaGas:
			gains.NebulaGas += amount
		}
	}
	sps := rules.AvgStardustPerSecond(cat, s, b)
	gains.ResearchPoints = rules.ResearchRate(sps, b) * elapsed
	return gains, true
}

func cappedSeconds(gap time.Duration) float64 {
	return min(gap, economy.OfflineCap).Seconds()
}

// StageOfflineGains computes offline gains and parks them until claimed. It is
// called once, right after a save is restored.
func (sim *Simulation) StageOfflineGains(now time.Time) bool {
	gains, ok := ComputeOfflineGains(sim.cat, sim.s, sim.Bonuses(), now)
	if !ok {
		return false
	}
	sim.s.PendingOffline = &gains
	sim.logger.Infof("Offline for %s: staged %s stardust, %s nebula gas, %s research",
		time.Duration(gains.TimeAwaySeconds*float64(time.Second)).Round(time.Second),
		humanize.Commaf(math.Floor(gains.Stardust)),
		humanize.Commaf(math.Floor(gains.NebulaGas)),
		humanize.Commaf(math.Floor(gains.ResearchPoints)))
	return true
}

// ClaimOfflineGains credits the staged gains exactly once and moves every charging
// generator forward by the same capped time so partial charges keep their phase.
func (sim *Simulation) ClaimOfflineGains(now time.Time) bool {
	gains := sim.s.PendingOffline
	if gains == nil {
		return false
	}
	elapsed := cappedSeconds(time.Duration(gains.TimeAwaySeconds * float64(time.Second)))
	for i := range sim.s.Generators {
		g := &sim.s.Generators[i]
		tmpl, ok := sim.cat.Generator(g.ID)
		if !ok || g.Count <= 0 {
			continue
		}
		g.ChargeTimer = math.Mod(g.ChargeTimer+elapsed, tmpl.BaseChargeTime)
	}
	sim.s.Credit(economy.ResourceStardust, gains.Stardust)
	sim.s.Credit(economy.ResourceNebulaGas, gains.NebulaGas)
	sim.s.Credit(economy.ResourceResearchPoints, gains.ResearchPoints)
	sim.s.PendingOffline = nil

	sim.log(events.EventTypeOfflineGainsClaimed, now, events.OfflineClaimPayload{
		Stardust:       gains.Stardust,
		NebulaGas:      gains.NebulaGas,
		ResearchPoints: gains.ResearchPoints,
	})
	return true
}
