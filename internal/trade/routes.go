package trade

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/sector"
)

// Route is a fully scored buy/sell plan.
type Route struct {
	BuyStation  ecs.EntityID
	SellStation ecs.EntityID
	Resource    string
	Qty         int
	Profit      float64
	TotalDist   float64
}

type cachedRoute struct {
	tick  uint64
	route Route
	ok    bool
}

// routeCache memoizes per-ship evaluations for a few ticks so idle fleets do
// not rescan the whole sector every poll.
type routeCache struct {
	lru *lru.Cache[ecs.EntityID, cachedRoute]
	ttl uint64
}

func newRouteCache(size int, ttl uint64) *routeCache {
	c, _ := lru.New[ecs.EntityID, cachedRoute](max(size, 1))
	return &routeCache{lru: c, ttl: ttl}
}

func (c *routeCache) get(ship ecs.EntityID, tick uint64) (Route, bool, bool) {
	entry, ok := c.lru.Get(ship)
	if !ok || tick-entry.tick > c.ttl {
		return Route{}, false, false
	}
	return entry.route, entry.ok, true
}

func (c *routeCache) put(ship ecs.EntityID, tick uint64, r Route, ok bool) {
	c.lru.Add(ship, cachedRoute{tick: tick, route: r, ok: ok})
}

// bestRoute scans station pairs within the horizon and returns the most
// profitable plan, or ok=false when nothing clears a positive profit.
// Candidate order is fully determined (sorted stations, sorted resources),
// and ties break by shorter total distance, then lower resource id, then
// lower station ids, so every run picks the same route.
func (s *System) bestRoute(ship ecs.EntityID, agent *Agent, tick uint64) (Route, bool) {
	shipPos, err := sector.TransformOf(s.World, ship)
	if err != nil {
		return Route{}, false
	}

	treasury := 0.0
	if party, ok := s.PartyOf(agent.FactionID); ok {
		treasury = party.TreasuryBalance()
	}

	stations := s.World.Query(ecs.KindMarket, ecs.KindInventory, ecs.KindTransform)

	type candidate struct {
		id     ecs.EntityID
		pos    *sector.Transform
		market *economy.Market
		inv    *economy.Inventory
		dist   float64
	}
	var nearby []candidate
	for _, id := range stations {
		pos, err := sector.TransformOf(s.World, id)
		if err != nil {
			continue
		}
		d := sector.Distance(shipPos, pos)
		if d > s.P.Horizon {
			continue
		}
		market, err := economy.MarketOf(s.World, id)
		if err != nil {
			continue
		}
		inv, err := economy.InventoryOf(s.World, id)
		if err != nil {
			continue
		}
		nearby = append(nearby, candidate{id: id, pos: pos, market: market, inv: inv, dist: d})
	}

	var best Route
	found := false
	better := func(r Route) bool {
		if !found {
			return true
		}
		if r.Profit != best.Profit {
			return r.Profit > best.Profit
		}
		if r.TotalDist != best.TotalDist {
			return r.TotalDist < best.TotalDist
		}
		if r.Resource != best.Resource {
			return r.Resource < best.Resource
		}
		if r.BuyStation != best.BuyStation {
			return r.BuyStation < best.BuyStation
		}
		return r.SellStation < best.SellStation
	}

	for _, a := range nearby {
		for _, b := range nearby {
			if a.id == b.id {
				continue
			}
			legDist := a.dist + sector.Distance(a.pos, b.pos)
			// Fuel is paid per cargo unit hauled over the full leg, so a
			// fat margin on a small lot can beat a thin margin on a full
			// hold.
			fuelPerUnit := s.P.FuelRate * legDist
			for _, res := range a.market.Listed() {
				buyPrice, _ := a.market.Price(res)
				sellPrice, ok := b.market.Price(res)
				if !ok {
					continue
				}
				margin := sellPrice - buyPrice - fuelPerUnit
				if margin <= 0 {
					continue
				}
				qty := min(agent.Capacity, a.inv.Count(res))
				qty = min(qty, b.inv.Free())
				if buyPrice > 0 {
					qty = min(qty, int(math.Floor(treasury/buyPrice)))
				}
				if qty <= 0 {
					continue
				}
				profit := margin * float64(qty)
				r := Route{
					BuyStation:  a.id,
					SellStation: b.id,
					Resource:    res,
					Qty:         qty,
					Profit:      profit,
					TotalDist:   legDist,
				}
				if better(r) {
					best = r
					found = true
				}
			}
		}
	}
	return best, found
}
