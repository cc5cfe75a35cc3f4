package trade

import (
	"errors"
	"log/slog"
	"math"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/event"
	"github.com/talgya/solsim/internal/ledger"
	"github.com/talgya/solsim/internal/sector"
)

// Params are the trade-system tunables, filled from config.
type Params struct {
	Horizon       float64 // candidate station radius, AU
	FuelRate      float64 // credits per cargo unit per AU of planned route
	RepollTicks   uint64  // idle re-poll cadence
	RouteCacheTTL uint64  // ticks a cached evaluation stays valid
	RouteCacheLen int     // LRU entries
}

// System advances every trade agent one tick: route selection for idle
// ships, travel, and arrival settlement through the ledger.
type System struct {
	World  *ecs.World
	Bus    *event.Bus
	Ledger *ledger.Ledger
	P      Params

	// PartyOf resolves a faction id to its treasury party.
	PartyOf func(factionID string) (ledger.Party, bool)
	// OwnerOf reports the owning faction of a station.
	OwnerOf func(ecs.EntityID) (string, bool)

	cache *routeCache
}

// NewSystem wires a trade system with its route cache.
func NewSystem(w *ecs.World, bus *event.Bus, led *ledger.Ledger, p Params,
	partyOf func(string) (ledger.Party, bool), ownerOf func(ecs.EntityID) (string, bool)) *System {
	return &System{
		World: w, Bus: bus, Ledger: led, P: p,
		PartyOf: partyOf, OwnerOf: ownerOf,
		cache: newRouteCache(p.RouteCacheLen, p.RouteCacheTTL),
	}
}

// Run executes one trade tick in sorted ship order.
func (s *System) Run(tick uint64) {
	for _, ship := range s.World.Query(ecs.KindTradeAgent, ecs.KindTransform) {
		agent, err := AgentOf(s.World, ship)
		if err != nil {
			continue
		}
		switch agent.Goal.Kind {
		case GoalIdle:
			s.evaluate(tick, ship, agent)
		case GoalToBuy:
			if tick >= agent.Goal.ETA {
				s.arriveBuy(tick, ship, agent)
			}
		case GoalToSell:
			if tick >= agent.Goal.ETA {
				s.arriveSell(tick, ship, agent)
			}
		}
	}
}

func (s *System) evaluate(tick uint64, ship ecs.EntityID, agent *Agent) {
	if tick < agent.NextEval {
		return
	}

	route, ok, cached := s.cache.get(ship, tick)
	if !cached {
		route, ok = s.bestRoute(ship, agent, tick)
		s.cache.put(ship, tick, route, ok)
	}
	if !ok {
		agent.NextEval = tick + s.P.RepollTicks
		return
	}

	eta, err := s.travelETA(tick, ship, route.BuyStation, agent.Speed)
	if err != nil {
		agent.NextEval = tick + s.P.RepollTicks
		return
	}
	agent.Goal = Goal{
		Kind:        GoalToBuy,
		BuyStation:  route.BuyStation,
		SellStation: route.SellStation,
		Resource:    route.Resource,
		Qty:         route.Qty,
		ETA:         eta,
	}
}

// travelETA returns the arrival tick for a leg to the destination entity.
func (s *System) travelETA(tick uint64, from, to ecs.EntityID, speed float64) (uint64, error) {
	a, err := sector.TransformOf(s.World, from)
	if err != nil {
		return 0, err
	}
	b, err := sector.TransformOf(s.World, to)
	if err != nil {
		return 0, err
	}
	if speed <= 0 {
		speed = 1
	}
	ticks := uint64(math.Ceil(sector.Distance(a, b) / speed))
	if ticks == 0 {
		ticks = 1
	}
	return tick + ticks, nil
}

// arriveBuy settles the buy leg: faction treasury pays the station owner,
// station stock moves into cargo. Quantities are re-clamped at arrival since
// the market moved while the ship was in transit.
func (s *System) arriveBuy(tick uint64, ship ecs.EntityID, agent *Agent) {
	station := agent.Goal.BuyStation
	if !s.World.Alive(station) {
		s.abort(tick, agent)
		return
	}
	s.moveTo(ship, station)

	market, err := economy.MarketOf(s.World, station)
	if err != nil {
		s.abort(tick, agent)
		return
	}
	stationInv, err := economy.InventoryOf(s.World, station)
	if err != nil {
		s.abort(tick, agent)
		return
	}
	price, ok := market.Price(agent.Goal.Resource)
	if !ok {
		s.abort(tick, agent)
		return
	}
	buyer, okB := s.PartyOf(agent.FactionID)
	ownerID, okO := s.OwnerOf(station)
	if !okB || !okO {
		s.abort(tick, agent)
		return
	}
	seller, okS := s.PartyOf(ownerID)
	if !okS {
		s.abort(tick, agent)
		return
	}

	qty := min(agent.Goal.Qty, stationInv.Count(agent.Goal.Resource))
	qty = min(qty, agent.Cargo.Free())
	if price > 0 {
		qty = min(qty, int(math.Floor(buyer.TreasuryBalance()/price)))
	}

	unlock, lockErr := s.World.Lock2(ship, station)
	if lockErr != nil {
		slog.Warn("trade lock conflict", "ship", ship, "station", station, "err", lockErr)
		s.abort(tick, agent)
		return
	}
	err = s.Ledger.ExecuteTrade(ledger.Trade{
		Tick: tick, Resource: agent.Goal.Resource, Quantity: qty, UnitPrice: price,
		SellerInv: stationInv, BuyerInv: agent.Cargo,
		BuyerName: agent.FactionID, Buyer: buyer,
		SellerName: ownerID, Seller: seller,
		Station: station, Ship: ship,
	})
	unlock()

	if err != nil {
		if !errors.Is(err, ledger.ErrInsufficientResources) {
			slog.Debug("buy leg failed", "ship", ship, "station", station, "err", err)
		}
		s.abort(tick, agent)
		return
	}

	market.RecordTrade(agent.Goal.Resource, -qty)
	s.Bus.Publish(event.TradeExecuted{
		AtTick: tick, Ship: ship, Station: station,
		Resource: agent.Goal.Resource, Quantity: qty,
		Credits: float64(qty) * price, Side: "buy",
	})

	eta, etaErr := s.travelETA(tick, ship, agent.Goal.SellStation, agent.Speed)
	if etaErr != nil {
		s.abort(tick, agent)
		return
	}
	agent.Goal.Kind = GoalToSell
	agent.Goal.Qty = qty
	agent.Goal.ETA = eta
}

// arriveSell settles the sell leg: cargo moves into the station, the station
// owner's treasury pays the ship's faction.
func (s *System) arriveSell(tick uint64, ship ecs.EntityID, agent *Agent) {
	station := agent.Goal.SellStation
	if !s.World.Alive(station) {
		s.abort(tick, agent)
		return
	}
	s.moveTo(ship, station)

	market, err := economy.MarketOf(s.World, station)
	if err != nil {
		s.abort(tick, agent)
		return
	}
	stationInv, err := economy.InventoryOf(s.World, station)
	if err != nil {
		s.abort(tick, agent)
		return
	}
	price, ok := market.Price(agent.Goal.Resource)
	if !ok {
		s.abort(tick, agent)
		return
	}
	seller, okS := s.PartyOf(agent.FactionID)
	ownerID, okO := s.OwnerOf(station)
	if !okS || !okO {
		s.abort(tick, agent)
		return
	}
	buyer, okB := s.PartyOf(ownerID)
	if !okB {
		s.abort(tick, agent)
		return
	}

	qty := min(agent.Cargo.Count(agent.Goal.Resource), stationInv.Free())
	if price > 0 {
		qty = min(qty, int(math.Floor(buyer.TreasuryBalance()/price)))
	}

	unlock, lockErr := s.World.Lock2(ship, station)
	if lockErr != nil {
		slog.Warn("trade lock conflict", "ship", ship, "station", station, "err", lockErr)
		s.abort(tick, agent)
		return
	}
	err = s.Ledger.ExecuteTrade(ledger.Trade{
		Tick: tick, Resource: agent.Goal.Resource, Quantity: qty, UnitPrice: price,
		SellerInv: agent.Cargo, BuyerInv: stationInv,
		BuyerName: ownerID, Buyer: buyer,
		SellerName: agent.FactionID, Seller: seller,
		Station: station, Ship: ship,
	})
	unlock()

	if err == nil {
		market.RecordTrade(agent.Goal.Resource, qty)
		s.Bus.Publish(event.TradeExecuted{
			AtTick: tick, Ship: ship, Station: station,
			Resource: agent.Goal.Resource, Quantity: qty,
			Credits: float64(qty) * price, Side: "sell",
		})
	}
	s.abort(tick, agent)
}

// abort drops the route and schedules the next poll.
func (s *System) abort(tick uint64, agent *Agent) {
	agent.Goal = Goal{Kind: GoalIdle}
	agent.NextEval = tick + s.P.RepollTicks
}

func (s *System) moveTo(ship, station ecs.EntityID) {
	shipPos, err := sector.TransformOf(s.World, ship)
	if err != nil {
		return
	}
	stPos, err := sector.TransformOf(s.World, station)
	if err != nil {
		return
	}
	shipPos.X, shipPos.Y = stPos.X, stPos.Y
}
