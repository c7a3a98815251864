package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/metrics"
)

// ErrEngineStopped is returned by Submit once the engine loop has exited.
var ErrEngineStopped = errors.New("engine stopped")

type request struct {
	cmd   Command
	reply chan CommandResult
}

// Engine is the central orchestrator: one goroutine owns the Simulation and
// serializes ticks, history samples, commands and deferred credits through a
// single select loop. Readers get immutable snapshots.
type Engine struct {
	sim      *Simulation
	eventLog *events.EventLog
	logger   *logger.Logger
	clock    Clock
	cadence  Cadence

	commands chan request
	credits  chan PendingCredit
	done     chan struct{}

	snapshot atomic.Pointer[state.GameState]

	mu      sync.Mutex
	timers  map[string]*time.Timer
	onReset func()
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithClock(c Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

func WithCadence(c Cadence) EngineOption {
	return func(e *Engine) { e.cadence = c }
}

// WithCommandBuffer sizes the command queue.
func WithCommandBuffer(n int) EngineOption {
	return func(e *Engine) { e.commands = make(chan request, n) }
}

// OnReset registers a hook run on the engine goroutine after a hard reset,
// once the fresh state is published.
func OnReset(fn func()) EngineOption {
	return func(e *Engine) { e.onReset = fn }
}

// NewEngine wraps sim. The engine takes exclusive ownership of sim.
func NewEngine(sim *Simulation, eventLog *events.EventLog, log *logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		sim:      sim,
		eventLog: eventLog,
		logger:   log,
		clock:    RealClock{},
		cadence:  DefaultCadence(),
		commands: make(chan request, 64),
		credits:  make(chan PendingCredit, 64),
		done:     make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.publish()
	return e
}

// Run drives the simulation until ctx is cancelled. Pending credits are
// applied before it returns so the final snapshot contains every payout.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Starting game engine...")
	t := e.cadence.start()
	defer t.Stop()
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case <-t.tick.C:
			start := time.Now()
			e.sim.Tick(e.clock.Now())
			e.commit()
			metrics.Get().RecordTick(time.Since(start))
		case <-t.resource.C:
			e.sim.SampleResources(e.clock.Now())
			e.commit()
		case <-t.rate.C:
			e.sim.SampleRates(e.clock.Now())
			e.commit()
		case req := <-e.commands:
			req.reply <- e.execute(req.cmd)
		case c := <-e.credits:
			e.forgetTimer(c.ID)
			if e.sim.ApplyCredit(c) {
				metrics.Get().RecordCreditApplied()
				e.commit()
			}
		}
	}
}

func (e *Engine) execute(cmd Command) CommandResult {
	res := e.sim.Execute(cmd, e.clock.Now())
	metrics.Get().RecordCommand(res.Applied)
	if !res.Applied {
		return res
	}
	if res.Credit != nil {
		e.scheduleCredit(*res.Credit)
	}
	if res.Reset {
		e.cancelTimers()
	}
	e.commit()
	if res.Reset && e.onReset != nil {
		e.onReset()
	}
	return res
}

func (e *Engine) scheduleCredit(c PendingCredit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timers[c.ID] = time.AfterFunc(economy.CollectCreditDelay, func() {
		select {
		case e.credits <- c:
		case <-e.done:
		}
	})
}

func (e *Engine) forgetTimer(id string) {
	e.mu.Lock()
	delete(e.timers, id)
	e.mu.Unlock()
}

func (e *Engine) cancelTimers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}

func (e *Engine) shutdown() {
	e.cancelTimers()
	if n := e.sim.FlushCredits(); n > 0 {
		e.logger.Infof("Flushed %d pending collect credits on shutdown", n)
	}
	e.commit()
	e.logger.Info("Game engine stopped.")
}

// commit publishes the new state and forwards fresh analytics events.
func (e *Engine) commit() {
	if evs := e.sim.DrainEvents(); len(evs) > 0 && e.eventLog != nil {
		e.eventLog.Append(evs...)
	}
	e.publish()
}

func (e *Engine) publish() {
	e.snapshot.Store(e.sim.Snapshot())
}

// Submit queues a command and waits for its result.
func (e *Engine) Submit(ctx context.Context, cmd Command) (CommandResult, error) {
	req := request{cmd: cmd, reply: make(chan CommandResult, 1)}
	select {
	case e.commands <- req:
	case <-e.done:
		return CommandResult{}, ErrEngineStopped
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-e.done:
		return CommandResult{}, ErrEngineStopped
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

// Snapshot returns the latest published state. It must be treated as read-only.
func (e *Engine) Snapshot() *state.GameState {
	return e.snapshot.Load()
}

// View projects the latest snapshot.
func (e *Engine) View() View {
	s := e.Snapshot()
	return BuildView(e.sim.cat, s, e.sim.bonuses(s), e.clock.Now())
}

// Catalog returns the economy the engine runs on.
func (e *Engine) Catalog() *economy.Catalog {
	return e.sim.cat
}

// Done is closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}
