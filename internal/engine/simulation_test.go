package engine

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
)

// fixedSource makes every Float64 draw land on the same value: 0 means
// "always crit, always spawn", math.MaxUint64 means "never".
type fixedSource uint64

func (f fixedSource) Uint64() uint64 { return uint64(f) }

var epoch = time.UnixMilli(1_700_000_000_000)

func newSim(t *testing.T, src rand.Source) *Simulation {
	t.Helper()
	cat := economy.DefaultCatalog()
	return NewSimulation(cat, state.New(cat), WithRand(rand.New(src)))
}

func quietSim(t *testing.T) *Simulation {
	return newSim(t, fixedSource(math.MaxUint64))
}

func TestFirstPurchaseScenario(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Credit(economy.ResourceStardust, 10)

	if !sim.PurchaseUpgrade("star-gatherer", epoch) {
		t.Fatal("purchase rejected")
	}
	if s.Stardust != 0 || s.Upgrade("star-gatherer").Level != 1 {
		t.Fatalf("after purchase: stardust=%v level=%d", s.Stardust, s.Upgrade("star-gatherer").Level)
	}
	tmpl, _ := sim.Catalog().Upgrade("star-gatherer")
	if got := tmpl.CostAt(1); math.Abs(got-11.5) > 1e-9 {
		t.Errorf("next cost = %v, want 11.5", got)
	}
	if sim.PurchaseUpgrade("star-gatherer", epoch) {
		t.Error("purchase without funds succeeded")
	}
}

func TestPurchaseDebitsExactCost(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	tmpl, _ := sim.Catalog().Generator("asteroid-miner")
	s.Generator("asteroid-miner").Count = 4
	s.Credit(economy.ResourceStardust, 1000)

	want := tmpl.BaseCost * math.Pow(tmpl.CostGrowth, 4)
	if !sim.PurchaseGenerator("asteroid-miner", epoch) {
		t.Fatal("purchase rejected")
	}
	if got := 1000 - s.Stardust; math.Abs(got-want) > 1e-9 {
		t.Errorf("debited %v, want %v", got, want)
	}
	if s.Generator("asteroid-miner").Count != 5 {
		t.Errorf("count = %d, want 5", s.Generator("asteroid-miner").Count)
	}
}

func TestChallengeCostGrowthAppliesToGenerators(t *testing.T) {
	cat := *economy.DefaultCatalog()
	cat.Challenges = append(slices.Clone(cat.Challenges), economy.Challenge{
		ID:       "trial-of-greed",
		Handicap: economy.Handicap{Kind: economy.HandicapCostGrowthIncrease, Value: 0.5},
		Reward:   economy.AscensionEffect{Kind: economy.AscensionFlatSPSBoost, Value: 1},
	})
	if err := cat.Validate(); err != nil {
		t.Fatal(err)
	}
	s := state.New(&cat)
	sim := NewSimulation(&cat, s, WithRand(rand.New(fixedSource(math.MaxUint64))))
	s.Generator("asteroid-miner").Count = 1
	s.ActiveChallenge = "trial-of-greed"
	s.Credit(economy.ResourceStardust, 100)

	want := 25 * 1.1 * 1.5
	sim.PurchaseGenerator("asteroid-miner", epoch)
	if got := 100 - s.Stardust; math.Abs(got-want) > 1e-9 {
		t.Errorf("debited %v, want %v", got, want)
	}
}

func TestChargeAndCollectScenario(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Generator("asteroid-miner").Count = 1

	now := sim.Advance(epoch, 3*time.Second)
	if got := s.Generator("asteroid-miner").ChargeTimer; got != 3 {
		t.Fatalf("chargeTimer = %v, want 3", got)
	}

	credit, ok := sim.Collect("asteroid-miner", now)
	if !ok {
		t.Fatal("collect rejected")
	}
	if s.Generator("asteroid-miner").ChargeTimer != 0 {
		t.Error("timer not reset on collect")
	}
	if s.Stardust != 0 {
		t.Error("collect credited before the deferred credit was applied")
	}
	if credit.Amount != 5 || credit.Resource != economy.ResourceStardust {
		t.Errorf("credit = %+v", credit)
	}

	if !sim.ApplyCredit(credit) {
		t.Fatal("credit not applied")
	}
	if sim.ApplyCredit(credit) {
		t.Error("credit applied twice")
	}
	if s.Stardust != 5 || s.TotalStardustEver != 5 {
		t.Errorf("stardust=%v total=%v, want 5", s.Stardust, s.TotalStardustEver)
	}
}

func TestCollectRejectsPartialCharge(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	for i := range s.Generators {
		s.Generators[i].Count = 3
		s.Generators[i].ChargeTimer = 0.5
	}
	before := s.Clone()

	for _, g := range sim.Catalog().Generators {
		if _, ok := sim.Collect(g.ID, epoch); ok {
			t.Errorf("collected %s with a partial charge", g.ID)
		}
	}
	if _, ok := sim.Collect("ghost", epoch); ok {
		t.Error("collected an unknown generator")
	}
	if diff := cmp.Diff(before, s); diff != "" {
		t.Errorf("rejected collect changed state:\n%s", diff)
	}
}

func TestCollectGuardWhileCreditPending(t *testing.T) {
	sim := quietSim(t)
	g := sim.State().Generator("asteroid-miner")
	g.Count = 1
	g.ChargeTimer = 3

	first, ok := sim.Collect("asteroid-miner", epoch)
	if !ok {
		t.Fatal("first collect rejected")
	}
	g.ChargeTimer = 3
	if _, ok := sim.Collect("asteroid-miner", epoch); ok {
		t.Fatal("re-collect allowed while the previous credit is pending")
	}
	sim.ApplyCredit(first)
	if _, ok := sim.Collect("asteroid-miner", epoch); !ok {
		t.Error("collect still blocked after the credit landed")
	}
}

func TestCreditMergesOntoLatestState(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	g := s.Generator("asteroid-miner")
	g.Count = 1
	g.ChargeTimer = 3
	credit, _ := sim.Collect("asteroid-miner", epoch)

	// Other mutations during the presentation delay must survive the credit.
	s.Credit(economy.ResourceStardust, 100)
	sim.PurchaseUpgrade("star-gatherer", epoch)

	sim.ApplyCredit(credit)
	if s.Stardust != 95 {
		t.Errorf("stardust = %v, want 100 - 10 + 5", s.Stardust)
	}
}

func TestChargeTimersStayClamped(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	for i := range s.Generators {
		s.Generators[i].Count = i % 3
	}
	now := epoch
	for step := 0; step < 200; step++ {
		now = sim.Advance(now, 700*time.Millisecond)
		for _, g := range s.Generators {
			tmpl, _ := sim.Catalog().Generator(g.ID)
			if g.ChargeTimer < 0 || g.ChargeTimer > tmpl.BaseChargeTime {
				t.Fatalf("%s timer %v outside [0, %v]", g.ID, g.ChargeTimer, tmpl.BaseChargeTime)
			}
			if g.Count == 0 && g.ChargeTimer != 0 {
				t.Fatalf("%s charged with no units", g.ID)
			}
		}
		if step%5 == 0 {
			sim.Collect("asteroid-miner", now)
			sim.FlushCredits()
		}
	}
}

func TestPrestigeAtThreshold(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Stardust = 5e14
	s.TotalStardustEver = economy.PrestigeRequirement
	s.Upgrade("star-gatherer").Level = 7
	s.Generator("comet-catcher").Count = 2

	if !sim.Prestige(epoch) {
		t.Fatal("prestige rejected at threshold")
	}
	if s.Antimatter != 150 {
		t.Errorf("antimatter = %v, want 150", s.Antimatter)
	}
	if s.TotalStardustEver != 0 || s.Stardust != 0 || s.Prestiges != 1 || s.Mana != 0 {
		t.Errorf("after prestige: %+v", s)
	}
	if s.Upgrade("star-gatherer").Level != 0 || s.Generator("comet-catcher").Count != 0 {
		t.Error("upgrades and generators were not reset")
	}
	if diff := cmp.Diff(sim.Catalog().SpellIDs(), s.Spells); diff != "" {
		t.Errorf("spells not granted:\n%s", diff)
	}
	if got := s.Analytics[len(s.Analytics)-1]; got.Type != events.EventTypePrestige {
		t.Errorf("last event = %s", got.Type)
	}
}

func TestPrestigeBelowThresholdIsNoop(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.TotalStardustEver = economy.PrestigeRequirement - 1
	s.Stardust = 123
	before := s.Clone()

	if sim.Prestige(epoch) {
		t.Fatal("prestige below threshold succeeded")
	}
	if diff := cmp.Diff(before, s); diff != "" {
		t.Errorf("rejected prestige changed state:\n%s", diff)
	}
}

func TestAscendCompletesActiveChallenge(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Antimatter = 4e6
	s.Prestiges = 3
	s.Spells = sim.Catalog().SpellIDs()
	s.CompletedResearch = []string{"basic-optics"}
	s.ActiveChallenge = "trial-of-silence"

	if !sim.Ascend(epoch) {
		t.Fatal("ascend rejected")
	}
	if s.SingularityEssence != 63 || s.Ascensions != 1 {
		t.Errorf("essence=%v ascensions=%d", s.SingularityEssence, s.Ascensions)
	}
	if s.Antimatter != 0 || s.Prestiges != 0 || len(s.Spells) != 0 || len(s.CompletedResearch) != 0 {
		t.Errorf("ascension did not reset the run: %+v", s)
	}
	if s.ActiveChallenge != "" || !s.HasCompleted("trial-of-silence") {
		t.Errorf("challenge not completed: active=%q completed=%v", s.ActiveChallenge, s.CompletedChallenges)
	}

	s.Antimatter = economy.AscensionRequirement - 1
	if sim.Ascend(epoch) {
		t.Error("ascend below threshold succeeded")
	}
}

func TestResearchDependencyGating(t *testing.T) {
	cat := economy.DefaultCatalog()
	for _, r := range cat.Research {
		if len(r.Dependencies) == 0 {
			continue
		}
		sim := quietSim(t)
		s := sim.State()
		s.ResearchPoints = 1e9
		before := s.Clone()
		if sim.PurchaseResearch(r.ID, epoch) {
			t.Errorf("%s purchased without its dependencies", r.ID)
		}
		if diff := cmp.Diff(before, s); diff != "" {
			t.Errorf("%s: rejected purchase changed state:\n%s", r.ID, diff)
		}
	}
}

func TestResearchPurchase(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.ResearchPoints = 700

	if !sim.PurchaseResearch("basic-optics", epoch) || !sim.PurchaseResearch("advanced-lensing", epoch) {
		t.Fatal("purchase with satisfied dependencies rejected")
	}
	if s.ResearchPoints != 100 {
		t.Errorf("research points = %v, want 100", s.ResearchPoints)
	}
	if sim.PurchaseResearch("basic-optics", epoch) {
		t.Error("research bought twice")
	}
}

func TestAscensionUpgradePurchase(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.SingularityEssence = 3

	if sim.PurchaseAscensionUpgrade("alchemical-purity", epoch) {
		t.Error("bought a node before its dependency")
	}
	if !sim.PurchaseAscensionUpgrade("cosmic-start", epoch) || !sim.PurchaseAscensionUpgrade("alchemical-purity", epoch) {
		t.Fatal("purchase rejected")
	}
	if s.SingularityEssence != 0 {
		t.Errorf("essence = %v", s.SingularityEssence)
	}
	if sim.PurchaseAscensionUpgrade("cosmic-start", epoch) {
		t.Error("node bought twice")
	}
}

func TestActivateChallenge(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.CompletedChallenges = []string{"trial-of-scarcity"}

	if sim.ActivateChallenge("trial-of-nothing", epoch) {
		t.Error("activated an unknown challenge")
	}
	if sim.ActivateChallenge("trial-of-scarcity", epoch) {
		t.Error("activated a completed challenge")
	}
	if !sim.ActivateChallenge("trial-of-silence", epoch) || s.ActiveChallenge != "trial-of-silence" {
		t.Fatal("activation failed")
	}
	if !sim.ActivateChallenge("", epoch) || s.ActiveChallenge != "" {
		t.Error("clearing the challenge failed")
	}
}

func TestCastSpell(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Prestiges = 1
	s.Spells = sim.Catalog().SpellIDs()
	s.Mana = 100

	if sim.CastSpell("fireball", epoch) {
		t.Error("cast an unknown spell")
	}
	if !sim.CastSpell("wizards-might", epoch) || !sim.CastSpell("wizards-might", epoch) {
		t.Fatal("cast rejected")
	}
	if s.Mana != 0 {
		t.Errorf("mana = %v, want 0", s.Mana)
	}
	want := []state.ActiveSpellEffect{{SpellID: "wizards-might", RemainingDuration: 30}}
	if diff := cmp.Diff(want, s.ActiveSpellEffects); diff != "" {
		t.Errorf("recast should replace, not stack (-want +got):\n%s", diff)
	}
	if sim.CastSpell("wizards-might", epoch) {
		t.Error("cast without mana")
	}

	now := sim.Advance(epoch, 29900*time.Millisecond)
	if len(s.ActiveSpellEffects) != 1 {
		t.Fatal("effect expired early")
	}
	sim.Tick(now.Add(economy.TickInterval))
	if len(s.ActiveSpellEffects) != 0 {
		t.Errorf("effect outlived its duration: %+v", s.ActiveSpellEffects)
	}
}

func TestCastRequiresGrantedSpell(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Antimatter = 4e6
	s.Prestiges = 1
	s.Spells = sim.Catalog().SpellIDs()

	if !sim.Ascend(epoch) {
		t.Fatal("ascend rejected")
	}
	now := sim.Advance(epoch, 60*time.Second)
	if s.Mana <= 50 {
		t.Fatalf("mana = %v, want it regenerated past the spell cost", s.Mana)
	}
	mana := s.Mana

	if sim.CastSpell("wizards-might", now) {
		t.Error("cast a spell that was never granted")
	}
	if s.Mana != mana || len(s.ActiveSpellEffects) != 0 {
		t.Errorf("rejected cast changed state: mana=%v effects=%+v", s.Mana, s.ActiveSpellEffects)
	}
}

func TestInstantCharge(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Prestiges = 1
	s.Spells = sim.Catalog().SpellIDs()
	s.Mana = 100
	s.Generator("comet-catcher").Count = 1

	if !sim.CastSpell("temporal-haste", epoch) {
		t.Fatal("cast rejected")
	}
	if s.Generator("comet-catcher").ChargeTimer != 10 {
		t.Errorf("comet-catcher timer = %v", s.Generator("comet-catcher").ChargeTimer)
	}
	if s.Generator("asteroid-miner").ChargeTimer != 0 {
		t.Error("charged a generator with no units")
	}
}

func TestManaPinnedBeforeUnlock(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Mana = 40
	sim.Tick(epoch)
	if s.Mana != 0 {
		t.Errorf("mana = %v before first prestige", s.Mana)
	}

	s.Prestiges = 1
	sim.Advance(epoch, 10*time.Second)
	if math.Abs(s.Mana-10) > 1e-9 {
		t.Errorf("mana = %v after 10s, want 10", s.Mana)
	}
	sim.Advance(epoch, 200*time.Second)
	if s.Mana != s.MaxMana {
		t.Errorf("mana = %v, want capped at %v", s.Mana, s.MaxMana)
	}
}

func TestComboDecay(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()

	sim.ClickStar(epoch)
	sim.ClickStar(epoch.Add(500 * time.Millisecond))
	if s.ClickCombo != 2 {
		t.Fatalf("combo = %d, want 2", s.ClickCombo)
	}
	sim.Tick(epoch.Add(1200 * time.Millisecond))
	if s.ClickCombo != 2 {
		t.Errorf("combo decayed inside the timeout")
	}

	s.ClickCombo = 77
	sim.Tick(epoch.Add(1600 * time.Millisecond))
	if s.ClickCombo != 0 {
		t.Errorf("combo = %d after idle timeout, want 0", s.ClickCombo)
	}
}

func TestClickStar(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()

	res := sim.ClickStar(epoch)
	if res.Crit || res.Amount != 1 {
		t.Errorf("first click = %+v, want 1 non-crit", res)
	}
	res = sim.ClickStar(epoch.Add(100 * time.Millisecond))
	if math.Abs(res.Amount-1.01) > 1e-9 {
		t.Errorf("second click = %v, want combo-boosted 1.01", res.Amount)
	}
	if math.Abs(s.Stardust-2.01) > 1e-9 || s.TotalStardustEver != s.Stardust {
		t.Errorf("stardust=%v total=%v", s.Stardust, s.TotalStardustEver)
	}
	if len(s.ClickTimestamps) != 2 {
		t.Errorf("timestamps = %v", s.ClickTimestamps)
	}

	crit := newSim(t, fixedSource(0))
	if res := crit.ClickStar(epoch); !res.Crit || res.Amount != economy.CriticalClickMultiplier {
		t.Errorf("crit click = %+v", res)
	}
}

func TestFrenzyThroughClicks(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	for i := 0; i < 300; i++ {
		s.ClickTimestamps = append(s.ClickTimestamps, epoch.Add(time.Duration(i)*100*time.Millisecond).UnixMilli())
	}
	now := epoch.Add(30 * time.Second)
	if got := sim.Rates(now).FrenzyMultiplier; got != 2 {
		t.Errorf("frenzy at 300 cpm = %v, want 2", got)
	}
	for i := 0; i < 60; i++ {
		s.ClickTimestamps = append(s.ClickTimestamps, now.UnixMilli())
	}
	if got := sim.Rates(now).FrenzyMultiplier; got != 4 {
		t.Errorf("frenzy at 360 cpm = %v, want 4", got)
	}

	sim.Tick(epoch.Add(90 * time.Second))
	for _, ts := range s.ClickTimestamps {
		if ts <= epoch.Add(30*time.Second).UnixMilli() {
			t.Fatalf("timestamp %d survived pruning", ts)
		}
	}
}

func TestAutoCollector(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	g := s.Generator("asteroid-miner")
	g.Count = 2
	g.ChargeTimer = 3

	sim.Tick(epoch)
	if s.Stardust != 0 {
		t.Fatal("auto-collected without the research")
	}

	s.CompletedResearch = []string{"basic-optics", "improved-miners", "advanced-lensing", "stellar-dynamics", "self-casting-charm"}
	sim.Tick(epoch)
	if s.Stardust != 0 {
		t.Fatal("auto-collected with the setting off")
	}

	sim.SetAutoCollector(true)
	sim.Tick(epoch)
	if s.Stardust != 10 || g.ChargeTimer != 0 {
		t.Errorf("auto-collect: stardust=%v timer=%v", s.Stardust, g.ChargeTimer)
	}
}

func TestMilestonesAwardOnce(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	s.Credit(economy.ResourceStardust, 1000)

	sim.Tick(epoch)
	if !s.Milestones["stardust-1k"] {
		t.Fatal("milestone not completed in the tick it became eligible")
	}
	if s.Stardust != 1100 {
		t.Errorf("stardust = %v, want 1000 + 100 reward", s.Stardust)
	}
	if s.TotalStardustEver != 1000 {
		t.Errorf("lifetime stardust = %v, want the reward left out of it", s.TotalStardustEver)
	}
	sim.Tick(epoch.Add(economy.TickInterval))
	if s.Stardust != 1100 {
		t.Error("milestone rewarded twice")
	}
	if got := len(s.Analytics); got != 1 || s.Analytics[0].Type != events.EventTypeMilestoneCompleted {
		t.Errorf("analytics = %+v", s.Analytics)
	}
}

func TestDynamicEventLifecycle(t *testing.T) {
	sim := newSim(t, fixedSource(0))
	s := sim.State()
	s.Generator("asteroid-miner").Count = 3 // 5 stardust/s

	sim.Tick(epoch)
	ev := s.DynamicEvent
	if ev == nil {
		t.Fatal("no event spawned with a certain roll")
	}
	if ev.X < 10 || ev.X >= 90 || ev.VX < -10 || ev.VX >= 10 {
		t.Errorf("event out of bounds: %+v", ev)
	}

	if !sim.ClickDynamicEvent(epoch) {
		t.Fatal("click rejected")
	}
	if math.Abs(s.Stardust-300) > 1e-9 || s.DynamicEvent != nil {
		t.Errorf("stardust=%v event=%v, want 300 and cleared", s.Stardust, s.DynamicEvent)
	}
	if sim.ClickDynamicEvent(epoch) {
		t.Error("clicked a missing event")
	}

	quiet := quietSim(t)
	quiet.State().DynamicEvent = &state.DynamicEvent{ID: "x", CreatedAt: epoch.UnixMilli()}
	quiet.Tick(epoch.Add(economy.DynamicEventLifetime))
	if quiet.State().DynamicEvent == nil {
		t.Fatal("event expired at exactly its lifetime")
	}
	quiet.Tick(epoch.Add(economy.DynamicEventLifetime + economy.TickInterval))
	if quiet.State().DynamicEvent != nil {
		t.Error("event outlived its lifetime")
	}
}

func TestOfflineGainsScenario(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()
	g := s.Generator("asteroid-miner")
	g.Count = 2
	now := epoch.Add(4 * time.Hour)
	s.LastSaveTimestamp = epoch.UnixMilli()

	if !sim.StageOfflineGains(now) {
		t.Fatal("nothing staged after 4 hours")
	}
	pending := s.PendingOffline
	if pending.Stardust != 48000 {
		t.Errorf("staged stardust = %v, want 48000", pending.Stardust)
	}
	if pending.TimeAwaySeconds != 14400 || pending.ResearchPoints <= 0 {
		t.Errorf("staged = %+v", pending)
	}
	if s.Stardust != 0 {
		t.Fatal("offline gains credited before the claim")
	}

	if !sim.ClaimOfflineGains(now) {
		t.Fatal("claim rejected")
	}
	if s.Stardust != 48000 || s.PendingOffline != nil || g.ChargeTimer != 0 {
		t.Errorf("after claim: stardust=%v pending=%v timer=%v", s.Stardust, s.PendingOffline, g.ChargeTimer)
	}
	if sim.ClaimOfflineGains(now) {
		t.Error("claimed twice")
	}
}

func TestOfflineGainsBounds(t *testing.T) {
	cat := economy.DefaultCatalog()
	s := state.New(cat)
	s.Generator("asteroid-miner").Count = 1
	s.Generator("asteroid-miner").ChargeTimer = 2
	s.LastSaveTimestamp = epoch.UnixMilli()
	b := NewSimulation(cat, s).Bonuses()

	if _, ok := ComputeOfflineGains(cat, s, b, epoch.Add(30*time.Second)); ok {
		t.Error("staged gains for a short gap")
	}

	gains, ok := ComputeOfflineGains(cat, s, b, epoch.Add(48*time.Hour))
	if !ok {
		t.Fatal("nothing staged")
	}
	cycles := math.Floor((2 + economy.OfflineCap.Seconds()) / 3)
	if gains.Stardust != cycles*5 {
		t.Errorf("stardust = %v, want %v (capped at 8h)", gains.Stardust, cycles*5)
	}
	if gains.TimeAwaySeconds != (48 * time.Hour).Seconds() {
		t.Errorf("time away = %v, want uncapped", gains.TimeAwaySeconds)
	}

	sim := NewSimulation(cat, s)
	sim.StageOfflineGains(epoch.Add(61 * time.Second))
	sim.ClaimOfflineGains(epoch.Add(61 * time.Second))
	if got := s.Generator("asteroid-miner").ChargeTimer; math.Abs(got-0) > 1e-9 {
		t.Errorf("timer phase = %v, want (2+61) mod 3 = 0", got)
	}
}

func TestSettingsCommands(t *testing.T) {
	sim := quietSim(t)
	s := sim.State()

	if sim.SetLanguage("de") || sim.SetTheme("neon") {
		t.Error("accepted an unknown language or theme")
	}
	sim.SetCompactMode(true)
	if !sim.SetLanguage(state.LanguagePolish) || !sim.SetTheme(state.ThemeWizarding) {
		t.Fatal("valid settings rejected")
	}
	want := state.Settings{CompactMode: true, Language: state.LanguagePolish, Theme: state.ThemeWizarding}
	if s.Settings != want {
		t.Errorf("settings = %+v", s.Settings)
	}
}

func TestResetStartsFreshLog(t *testing.T) {
	sim := quietSim(t)
	sim.State().Credit(economy.ResourceStardust, 50)
	sim.PurchaseUpgrade("star-gatherer", epoch)
	sim.DrainEvents()

	g := sim.State().Generator("asteroid-miner")
	g.Count, g.ChargeTimer = 1, 3
	credit, _ := sim.Collect("asteroid-miner", epoch)

	sim.Reset(epoch)
	s := sim.State()
	if s.Stardust != 0 || s.Upgrade("star-gatherer").Level != 0 {
		t.Errorf("state not fresh: %+v", s)
	}
	if len(s.Analytics) != 1 || s.Analytics[0].Type != events.EventTypeGameReset {
		t.Fatalf("analytics = %+v", s.Analytics)
	}
	if sim.ApplyCredit(credit) {
		t.Error("a credit from before the reset landed")
	}
	if got := sim.DrainEvents(); len(got) != 1 || got[0].Type != events.EventTypeGameReset {
		t.Errorf("drained %+v", got)
	}
}

func TestExecuteDispatch(t *testing.T) {
	sim := quietSim(t)
	sim.State().Credit(economy.ResourceStardust, 10)

	if res := sim.Execute(NewCommand(CommandPurchaseUpgrade, "star-gatherer"), epoch); !res.Applied {
		t.Error("PURCHASE_UPGRADE rejected")
	}
	if res := sim.Execute(Command{Type: CommandClickStar}, epoch); !res.Applied || res.Click == nil {
		t.Errorf("CLICK_STAR = %+v", res)
	}
	if res := sim.Execute(Command{Type: CommandActivateChallenge}, epoch); !res.Applied {
		t.Error("clearing the challenge through a nil id failed")
	}
	if res := sim.Execute(Command{Type: "TELEPORT"}, epoch); res.Applied {
		t.Error("unknown command applied")
	}
	if res := sim.Execute(Command{Type: CommandReset}, epoch); !res.Reset {
		t.Error("RESET not reported")
	}
}

func TestSamplersAreBounded(t *testing.T) {
	sim := quietSim(t)
	for i := 0; i < economy.ResourceHistoryCap+20; i++ {
		sim.SampleResources(epoch.Add(time.Duration(i) * economy.ResourceHistoryInterval))
		sim.SampleRates(epoch.Add(time.Duration(i) * economy.RateHistoryInterval))
	}
	s := sim.State()
	if len(s.History) != economy.ResourceHistoryCap || len(s.StatsHistory) != economy.RateHistoryCap {
		t.Errorf("history=%d stats=%d", len(s.History), len(s.StatsHistory))
	}
	if s.History[0].Time != epoch.Add(20*economy.ResourceHistoryInterval).UnixMilli() {
		t.Error("oldest samples were not evicted first")
	}
}
