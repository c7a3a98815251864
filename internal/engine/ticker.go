// Package engine contains the game loop and simulation logic.
//
// ARCHITECTURAL RULE: GameState is mutated only by the Simulation, and the
// Simulation is driven only by the Engine goroutine. Everyone else reads
// published snapshots and submits commands.
package engine

import (
	"sync"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
)

// Clock is the engine's source of wall-clock time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is a manually advanced Clock for tests and headless runs.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Add moves the clock forward by d and returns the new time.
func (c *FakeClock) Add(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Cadence holds the intervals of the three periodic jobs the engine runs.
type Cadence struct {
	Tick            time.Duration
	ResourceHistory time.Duration
	RateHistory     time.Duration
}

// DefaultCadence is the production schedule.
func DefaultCadence() Cadence {
	return Cadence{
		Tick:            economy.TickInterval,
		ResourceHistory: economy.ResourceHistoryInterval,
		RateHistory:     economy.RateHistoryInterval,
	}
}

// tickers bundles the running heartbeats of a Cadence.
type tickers struct {
	tick     *time.Ticker
	resource *time.Ticker
	rate     *time.Ticker
}

func (c Cadence) start() *tickers {
	return &tickers{
		tick:     time.NewTicker(c.Tick),
		resource: time.NewTicker(c.ResourceHistory),
		rate:     time.NewTicker(c.RateHistory),
	}
}

// Stop halts all heartbeats.
func (t *tickers) Stop() {
	t.tick.Stop()
	t.resource.Stop()
	t.rate.Stop()
}
