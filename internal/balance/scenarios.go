// Package balance replays scripted play sessions against a headless
// Simulation and checks the economy lands where it is tuned to land.
package balance

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/engine"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
)

// Epoch is the fake wall clock every scenario starts from.
var Epoch = time.UnixMilli(1_700_000_000_000)

const tolerance = 1e-9

// Result captures the outcome of one scenario.
type Result struct {
	Scenario string `json:"scenario"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
	Reason   string `json:"reason,omitempty"`
}

// Scenario is a scripted session. Run receives a fresh simulation and the
// time it starts at.
type Scenario struct {
	Name        string
	Description string
	Run         func(sim *engine.Simulation, start time.Time) Result
}

// neverRoll pins every random draw to just under 1, so crits and dynamic
// events never fire and runs are reproducible.
type neverRoll struct{}

func (neverRoll) Uint64() uint64 { return math.MaxUint64 }

// Runner executes scenarios against one catalog.
type Runner struct {
	cat    *economy.Catalog
	logger *logger.Logger
}

func NewRunner(cat *economy.Catalog, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{cat: cat, logger: log}
}

func (r *Runner) newSim() *engine.Simulation {
	return engine.NewSimulation(r.cat, state.New(r.cat),
		engine.WithRand(rand.New(neverRoll{})),
		engine.WithLogger(logger.Discard()))
}

// Run executes each scenario on its own fresh game.
func (r *Runner) Run(scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		if sc.Description != "" {
			r.logger.Infof("BALANCE: %s: %s", sc.Name, sc.Description)
		}
		res := r.runOne(sc)
		if res.Passed {
			r.logger.Infof("BALANCE: %s ok (%s)", sc.Name, res.Actual)
		} else {
			r.logger.Warnf("BALANCE: %s failed: %s", sc.Name, res.Reason)
		}
		results = append(results, res)
	}
	return results
}

func (r *Runner) runOne(sc Scenario) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Scenario: sc.Name, Reason: fmt.Sprintf("panic: %v", p)}
		}
	}()
	res = sc.Run(r.newSim(), Epoch)
	res.Scenario = sc.Name
	return res
}

// Summary counts passed and failed results.
func Summary(results []Result) (passed, failed int) {
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

func check(expected, actual string, ok bool, reason string) Result {
	res := Result{Expected: expected, Actual: actual, Passed: ok}
	if !ok {
		res.Reason = reason
	}
	return res
}

func fail(expected, reason string) Result {
	return Result{Expected: expected, Actual: "-", Reason: reason}
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Abs(b))
}

// Scenarios returns the standard tuning checks for the default catalog.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "first-purchase", Description: "10 stardust buys the first star-gatherer", Run: firstPurchase},
		{Name: "first-collect", Description: "one asteroid-miner charges in 3s and pays 5", Run: firstCollect},
		{Name: "offline-4h", Description: "two miners away for four hours", Run: offlineFourHours},
		{Name: "prestige-threshold", Description: "prestige at exactly the requirement", Run: prestigeAtThreshold},
		{Name: "frenzy-tiers", Description: "click bursts cross the frenzy tiers", Run: frenzyTiers},
		{Name: "autocollector-loop", Description: "auto-collect pays miners every charge cycle", Run: autoCollectorLoop},
	}
}

func firstPurchase(sim *engine.Simulation, now time.Time) Result {
	const expected = "stardust 0, level 1, next cost 11.5"
	s := sim.State()
	s.Credit(economy.ResourceStardust, 10)
	if !sim.PurchaseUpgrade("star-gatherer", now) {
		return fail(expected, "purchase rejected with 10 stardust")
	}
	tmpl, ok := sim.Catalog().Upgrade("star-gatherer")
	if !ok {
		return fail(expected, "star-gatherer missing from catalog")
	}
	level := s.Upgrade("star-gatherer").Level
	next := tmpl.CostAt(level)
	actual := fmt.Sprintf("stardust %g, level %d, next cost %g", s.Stardust, level, next)
	return check(expected, actual, s.Stardust == 0 && level == 1 && near(next, 11.5),
		"first upgrade did not land on the tuned cost curve")
}

func firstCollect(sim *engine.Simulation, now time.Time) Result {
	const expected = "charged after 3s, payout 5"
	s := sim.State()
	s.Generator("asteroid-miner").Count = 1

	now = sim.Advance(now, 3*time.Second)
	credit, ok := sim.Collect("asteroid-miner", now)
	if !ok {
		return fail(expected, fmt.Sprintf("collect rejected at chargeTimer %g", s.Generator("asteroid-miner").ChargeTimer))
	}
	if !sim.ApplyCredit(credit) {
		return fail(expected, "credit was not applied")
	}
	actual := fmt.Sprintf("charged after 3s, payout %g", s.Stardust)
	return check(expected, actual, near(s.Stardust, 5), "collect payout drifted from the tuned value")
}

func offlineFourHours(sim *engine.Simulation, now time.Time) Result {
	const expected = "48000 stardust over 14400s"
	s := sim.State()
	s.Generator("asteroid-miner").Count = 2
	s.LastSaveTimestamp = now.UnixMilli()
	back := now.Add(4 * time.Hour)

	if !sim.StageOfflineGains(back) {
		return fail(expected, "nothing staged after four hours away")
	}
	away := s.PendingOffline.TimeAwaySeconds
	if !sim.ClaimOfflineGains(back) {
		return fail(expected, "claim rejected")
	}
	actual := fmt.Sprintf("%g stardust over %gs", s.Stardust, away)
	return check(expected, actual, near(s.Stardust, 48000) && away == 14400,
		"offline gains drifted from the tuned value")
}

func prestigeAtThreshold(sim *engine.Simulation, now time.Time) Result {
	const expected = "150 antimatter, 1 prestige"
	s := sim.State()
	s.TotalStardustEver = economy.PrestigeRequirement
	s.Stardust = economy.PrestigeRequirement / 2
	if !sim.Prestige(now) {
		return fail(expected, "prestige rejected at the requirement")
	}
	actual := fmt.Sprintf("%g antimatter, %d prestige", s.Antimatter, s.Prestiges)
	return check(expected, actual, near(s.Antimatter, 150) && s.Prestiges == 1,
		"antimatter payout at the threshold drifted")
}

func frenzyTiers(sim *engine.Simulation, now time.Time) Result {
	const expected = "x1 idle, x2 at 300 cpm, x4 at 360 cpm"
	idle := sim.Rates(now).FrenzyMultiplier

	for range 300 {
		now = now.Add(100 * time.Millisecond)
		sim.ClickStar(now)
	}
	tier1 := sim.Rates(now).FrenzyMultiplier
	for range 60 {
		sim.ClickStar(now)
	}
	tier2 := sim.Rates(now).FrenzyMultiplier

	actual := fmt.Sprintf("x%g idle, x%g at 300 cpm, x%g at 360 cpm", idle, tier1, tier2)
	return check(expected, actual, idle == 1 && tier1 == 2 && tier2 == 4,
		"frenzy tiers do not match the click thresholds")
}

func autoCollectorLoop(sim *engine.Simulation, now time.Time) Result {
	const expected = "10 cycles, 100 stardust"
	s := sim.State()
	s.Generator("asteroid-miner").Count = 2
	s.CompletedResearch = []string{"basic-optics", "improved-miners", "advanced-lensing", "stellar-dynamics", "self-casting-charm"}
	sim.SetAutoCollector(true)

	// Research ticks in alongside, so only stardust is checked.
	sim.Advance(now, 30*time.Second+economy.TickInterval)
	cycles := s.Stardust / 10
	actual := fmt.Sprintf("%g cycles, %g stardust", cycles, s.Stardust)
	return check(expected, actual, near(s.Stardust, 100),
		"auto-collector did not pay once per charge cycle")
}
