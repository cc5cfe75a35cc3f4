// Package trade drives ship trade agents: picking profitable buy/sell routes,
// traveling, and settling cargo against station markets through the ledger.
package trade

import (
	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
)

// GoalKind is the agent's state machine phase.
type GoalKind string

const (
	// GoalIdle means no route; the agent re-polls on its eval cadence.
	GoalIdle GoalKind = "idle"
	// GoalToBuy means traveling to the buy station.
	GoalToBuy GoalKind = "to_buy"
	// GoalToSell means cargo aboard, traveling to the sell station.
	GoalToSell GoalKind = "to_sell"
)

// Goal is the agent's current route commitment.
type Goal struct {
	Kind        GoalKind     `json:"kind"`
	BuyStation  ecs.EntityID `json:"buy_station"`
	SellStation ecs.EntityID `json:"sell_station"`
	Resource    string       `json:"resource"`
	Qty         int          `json:"qty"`
	ETA         uint64       `json:"eta"` // arrival tick for the current leg
}

// Agent is the trade-ship component.
type Agent struct {
	FactionID string             `json:"faction_id"`
	Capacity  int                `json:"capacity"`
	Cargo     *economy.Inventory `json:"cargo"`
	Speed     float64            `json:"speed"` // AU per tick
	Goal      Goal               `json:"goal"`
	NextEval  uint64             `json:"next_eval"` // earliest tick for the next route poll
}

// NewAgent creates an idle agent with empty cargo.
func NewAgent(factionID string, capacity int, speed float64) *Agent {
	return &Agent{
		FactionID: factionID,
		Capacity:  capacity,
		Cargo:     economy.NewInventory(capacity),
		Speed:     speed,
		Goal:      Goal{Kind: GoalIdle},
	}
}

// AgentOf fetches the trade agent component of an entity.
func AgentOf(w *ecs.World, id ecs.EntityID) (*Agent, error) {
	c, err := w.Get(id, ecs.KindTradeAgent)
	if err != nil {
		return nil, err
	}
	return c.(*Agent), nil
}
