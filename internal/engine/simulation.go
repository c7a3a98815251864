package engine

import (
	"math/rand/v2"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/rules"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
)

// BonusFunc derives the bonus bundle of a snapshot. It must be pure.
type BonusFunc func(*state.GameState) rules.Bonuses

// Simulation is the single-writer state machine behind the engine: every tick
// and every command is a method call on it. It is NOT safe for concurrent use.
type Simulation struct {
	cat     *economy.Catalog
	s       *state.GameState
	rng     *rand.Rand
	bonuses BonusFunc
	logger  *logger.Logger

	// pending holds the deferred collect credits not yet applied, keyed by generator.
	pending map[string]PendingCredit
	// drained is the number of analytics entries already handed out by DrainEvents.
	drained int
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRand sets the random source used for critical clicks and dynamic events.
func WithRand(r *rand.Rand) Option {
	return func(sim *Simulation) { sim.rng = r }
}

// WithBonusFunc replaces the default bonus reducer, e.g. with a memoized one.
func WithBonusFunc(fn BonusFunc) Option {
	return func(sim *Simulation) { sim.bonuses = fn }
}

// WithLogger sets the logger for lifecycle messages.
func WithLogger(l *logger.Logger) Option {
	return func(sim *Simulation) { sim.logger = l }
}

// NewSimulation takes ownership of s. Pass state.New(cat) for a fresh game or
// the result of state.Restore for a loaded one.
func NewSimulation(cat *economy.Catalog, s *state.GameState, opts ...Option) *Simulation {
	sim := &Simulation{
		cat:     cat,
		s:       s,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x636f736d6963)),
		logger:  logger.Discard(),
		pending: make(map[string]PendingCredit),
	}
	sim.bonuses = func(gs *state.GameState) rules.Bonuses { return rules.ComputeBonuses(cat, gs) }
	for _, opt := range opts {
		opt(sim)
	}
	sim.drained = len(s.Analytics)
	return sim
}

// Catalog returns the static economy the simulation runs on.
func (sim *Simulation) Catalog() *economy.Catalog { return sim.cat }

// State exposes the live state. Callers must not retain or mutate it.
func (sim *Simulation) State() *state.GameState { return sim.s }

// Snapshot returns an independent copy of the current state.
func (sim *Simulation) Snapshot() *state.GameState { return sim.s.Clone() }

// Bonuses derives the bonus bundle of the current state.
func (sim *Simulation) Bonuses() rules.Bonuses { return sim.bonuses(sim.s) }

// Rates derives the current rates.
func (sim *Simulation) Rates(now time.Time) rules.Rates {
	return rules.ComputeRates(sim.cat, sim.s, sim.Bonuses(), now)
}

// DrainEvents returns the analytics events logged since the previous call.
func (sim *Simulation) DrainEvents() []events.AnalyticsEvent {
	log := sim.s.Analytics
	if sim.drained >= len(log) {
		return nil
	}
	out := make([]events.AnalyticsEvent, len(log)-sim.drained)
	copy(out, log[sim.drained:])
	sim.drained = len(log)
	return out
}

// Tick advances the simulation by one TickInterval ending at now.
func (sim *Simulation) Tick(now time.Time) {
	dt := economy.TickInterval.Seconds()

	sim.regenMana(dt)
	sim.expireSpells(dt)
	sim.chargeGenerators(dt)

	b := sim.Bonuses()
	sim.accrueResearch(b, dt)
	sim.pruneClicks(now)
	sim.decayCombo(now)
	sim.autoCollect(b)
	sim.updateDynamicEvent(now)
	sim.evaluateMilestones(now)
}

// Advance runs as many ticks as fit in d starting after from, and returns the
// time of the last tick. Used by headless runs and tests.
func (sim *Simulation) Advance(from time.Time, d time.Duration) time.Time {
	now := from
	for n := int(d / economy.TickInterval); n > 0; n-- {
		now = now.Add(economy.TickInterval)
		sim.Tick(now)
	}
	return now
}

// SampleResources appends a point to the resource chart.
func (sim *Simulation) SampleResources(now time.Time) {
	sim.s.History = state.AppendCapped(sim.s.History, state.ResourceSample{
		Time:      now.UnixMilli(),
		Stardust:  sim.s.Stardust,
		NebulaGas: sim.s.NebulaGas,
	}, economy.ResourceHistoryCap)
}

// SampleRates appends a point to the production-rate chart.
func (sim *Simulation) SampleRates(now time.Time) {
	sim.s.StatsHistory = state.AppendCapped(sim.s.StatsHistory, state.RateSample{
		Time: now.UnixMilli(),
		SPS:  rules.AvgStardustPerSecond(sim.cat, sim.s, sim.Bonuses()),
	}, economy.RateHistoryCap)
}

func (sim *Simulation) log(t events.EventType, now time.Time, payload any) {
	sim.s.Log(events.NewEvent(t, now, payload))
}
