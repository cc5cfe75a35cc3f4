package economy

import (
	"log/slog"
	"sync"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/event"
)

// Params are the pricing-system tunables, filled from config.
type Params struct {
	Elasticity       float64 // k in the price rule
	PopulationPeriod uint64  // ticks between population rounds
	DividendPeriod   uint64  // ticks between dividend sweeps
	DividendFloor    float64 // credits a station keeps as operating capital
	DividendRate     float64 // fraction of the surplus swept per period
	Workers          int     // price computation fan-out, 0 means serial
}

// System reprices every station market each tick and runs the population and
// dividend cadences. Owner resolution is injected so the package stays free
// of a faction dependency.
type System struct {
	World *ecs.World
	Bus   *event.Bus
	P     Params

	// OwnerOf reports the owning faction of a station, if any.
	OwnerOf func(ecs.EntityID) (string, bool)
	// PayFaction credits a faction treasury directly.
	PayFaction func(faction string, amount float64)
}

type priceChange struct {
	station  ecs.EntityID
	resource string
	old, new float64
	raw      float64
}

// Run executes one tick of the economy pass.
func (s *System) Run(tick uint64) {
	if s.P.PopulationPeriod > 0 && tick%s.P.PopulationPeriod == 0 {
		s.runPopulation()
	}

	s.reprice(tick)

	if s.P.DividendPeriod > 0 && tick%s.P.DividendPeriod == 0 {
		s.runDividends(tick)
	}
}

// reprice computes new prices for every listed resource. Computation may fan
// out across workers; application and event emission happen in sorted station
// order so the event log is identical regardless of worker count.
func (s *System) reprice(tick uint64) {
	stations := s.World.Query(ecs.KindMarket, ecs.KindInventory)
	changesPer := make([][]priceChange, len(stations))

	work := func(i int) {
		id := stations[i]
		market, err := MarketOf(s.World, id)
		if err != nil {
			return
		}
		inv, err := InventoryOf(s.World, id)
		if err != nil {
			return
		}
		var changes []priceChange
		for _, res := range market.Listed() {
			e := market.Entries[res]
			raw := ComputePrice(e, inv.Count(res), s.P.Elasticity)
			oldR, newR := RoundCents(e.Price), RoundCents(raw)
			changes = append(changes, priceChange{
				station: id, resource: res,
				old: oldR, new: newR, raw: raw,
			})
		}
		changesPer[i] = changes
	}

	if s.P.Workers > 1 && len(stations) > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, s.P.Workers)
		for i := range stations {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				work(i)
				<-sem
			}(i)
		}
		wg.Wait()
	} else {
		for i := range stations {
			work(i)
		}
	}

	// Apply in sorted station order (Query already sorts).
	for i, id := range stations {
		market, err := MarketOf(s.World, id)
		if err != nil {
			continue
		}
		for _, ch := range changesPer[i] {
			e := market.Entries[ch.resource]
			e.Price = ch.raw
			e.Flow.Record(e.pendingFlow)
			e.pendingFlow = 0
			if ch.new != ch.old {
				s.Bus.Publish(event.PriceChanged{
					AtTick:   tick,
					Station:  id,
					Resource: ch.resource,
					OldPrice: ch.old,
					NewPrice: ch.new,
				})
			}
		}
	}
}

func (s *System) runPopulation() {
	for _, id := range s.World.Query(ecs.KindPopulation, ecs.KindInventory, ecs.KindMarket) {
		pop, err := PopulationOf(s.World, id)
		if err != nil {
			continue
		}
		inv, err := InventoryOf(s.World, id)
		if err != nil {
			continue
		}
		market, err := MarketOf(s.World, id)
		if err != nil {
			continue
		}
		earned := pop.step(inv)
		market.Credits += earned
	}
}

// runDividends sweeps surplus station credits to the owning faction.
func (s *System) runDividends(tick uint64) {
	if s.OwnerOf == nil || s.PayFaction == nil {
		return
	}
	for _, id := range s.World.Query(ecs.KindMarket) {
		owner, ok := s.OwnerOf(id)
		if !ok {
			continue
		}
		market, err := MarketOf(s.World, id)
		if err != nil {
			continue
		}
		surplus := market.Credits - s.P.DividendFloor
		if surplus <= 0 {
			continue
		}
		amount := surplus * s.P.DividendRate
		market.Credits -= amount
		s.PayFaction(owner, amount)
		slog.Debug("dividend paid", "station", id, "faction", owner, "amount", amount)
		s.Bus.Publish(event.DividendPaid{
			AtTick:  tick,
			Station: id,
			Faction: owner,
			Amount:  amount,
		})
	}
}
