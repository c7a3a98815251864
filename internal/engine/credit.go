package engine

import (
	"github.com/google/uuid"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
)

// PendingCredit is a collect payout scheduled to land after the presentation delay.
// It carries the computed amount so applying it never reads a stale snapshot.
type PendingCredit struct {
	ID          string           `json:"id"`
	GeneratorID string           `json:"generatorId"`
	Resource    economy.Resource `json:"resource"`
	Amount      float64          `json:"amount"`
}

func (sim *Simulation) schedule(generatorID string, r economy.Resource, amount float64) PendingCredit {
	c := PendingCredit{
		ID:          uuid.NewString(),
		GeneratorID: generatorID,
		Resource:    r,
		Amount:      amount,
	}
	sim.pending[generatorID] = c
	return c
}

// ApplyCredit merges a pending credit onto the current state. Each credit lands
// exactly once; unknown or already-applied credits are ignored.
func (sim *Simulation) ApplyCredit(c PendingCredit) bool {
	cur, ok := sim.pending[c.GeneratorID]
	if !ok || cur.ID != c.ID {
		return false
	}
	delete(sim.pending, c.GeneratorID)
	sim.s.Credit(cur.Resource, cur.Amount)
	return true
}

// PendingCredits lists credits scheduled but not yet applied.
func (sim *Simulation) PendingCredits() []PendingCredit {
	out := make([]PendingCredit, 0, len(sim.pending))
	for _, c := range sim.pending {
		out = append(out, c)
	}
	return out
}

// FlushCredits applies every pending credit immediately and returns how many landed.
func (sim *Simulation) FlushCredits() int {
	n := 0
	for _, c := range sim.PendingCredits() {
		if sim.ApplyCredit(c) {
			n++
		}
	}
	return n
}
