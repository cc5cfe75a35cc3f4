// Package engine ties the systems together and advances the world tick by
// tick in a fixed order, so that a given seed and starting state always
// produce the same run. See design doc Section 2.
package engine

import (
	"math/rand"

	"github.com/talgya/solsim/internal/config"
	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/event"
	"github.com/talgya/solsim/internal/faction"
	"github.com/talgya/solsim/internal/industry"
	"github.com/talgya/solsim/internal/ledger"
	"github.com/talgya/solsim/internal/registry"
	"github.com/talgya/solsim/internal/sector"
	"github.com/talgya/solsim/internal/trade"
)

// Simulation owns the world and the system pipeline.
type Simulation struct {
	World    *ecs.World
	Registry *registry.Registry
	Bus      *event.Bus
	Ledger   *ledger.Ledger
	Factions *faction.Manager
	Sites    []*sector.Site

	Cfg  config.Config
	Seed int64
	Tick uint64

	production *industry.System
	economy    *economy.System
	trade      *trade.System
	factionAI  *faction.AI
}

// New wires an empty simulation. Populate it with BuildWorld or Restore.
func New(cfg config.Config, reg *registry.Registry) *Simulation {
	s := &Simulation{
		World:    ecs.NewWorld(),
		Registry: reg,
		Bus:      event.NewBus(cfg.Engine.EventLogLimit),
		Ledger:   ledger.New(cfg.Engine.AuditLimit),
		Factions: faction.NewManager(),
		Cfg:      cfg,
		Seed:     cfg.Seed,
	}
	s.wire()
	return s
}

// wire builds the system pipeline against the current world and roster.
// Called again after Restore since the world object is replaced.
func (s *Simulation) wire() {
	ownerOf := s.Factions.OwnerOf(s.World)
	partyOf := func(id string) (ledger.Party, bool) {
		f, ok := s.Factions.Get(id)
		if !ok {
			return nil, false
		}
		return f, true
	}
	payFaction := func(id string, amount float64) {
		if f, ok := s.Factions.Get(id); ok {
			f.AdjustTreasury(amount)
		}
	}

	s.production = &industry.System{
		World:    s.World,
		Registry: s.Registry,
		Bus:      s.Bus,
	}
	s.economy = &economy.System{
		World: s.World,
		Bus:   s.Bus,
		P: economy.Params{
			Elasticity:       s.Cfg.Economy.Elasticity,
			PopulationPeriod: s.Cfg.Economy.PopulationPeriod,
			DividendPeriod:   s.Cfg.Economy.DividendPeriod,
			DividendFloor:    s.Cfg.Economy.DividendFloor,
			DividendRate:     s.Cfg.Economy.DividendRate,
			Workers:          s.Cfg.Engine.Workers,
		},
		OwnerOf:    ownerOf,
		PayFaction: payFaction,
	}
	s.trade = trade.NewSystem(s.World, s.Bus, s.Ledger, trade.Params{
		Horizon:       s.Cfg.Trade.Horizon,
		FuelRate:      s.Cfg.Trade.FuelRate,
		RepollTicks:   s.Cfg.Trade.RepollTicks,
		RouteCacheTTL: s.Cfg.Trade.RouteCacheTTL,
		RouteCacheLen: s.Cfg.Trade.RouteCacheLen,
	}, partyOf, ownerOf)
	s.factionAI = &faction.AI{
		World:    s.World,
		Registry: s.Registry,
		Bus:      s.Bus,
		Ledger:   s.Ledger,
		Manager:  s.Factions,
		Sites:    s.Sites,
		P: faction.Params{
			PeriodTicks:     s.Cfg.Faction.PeriodTicks,
			StationCost:     s.Cfg.Faction.StationCost,
			StationCapacity: s.Cfg.Faction.StationCapacity,
			StationCredits:  s.Cfg.Faction.StationCredits,
			TargetStock:     s.Cfg.Economy.TargetStock,
			PriceFloorMult:  s.Cfg.Economy.PriceFloorMult,
			PriceCeilMult:   s.Cfg.Economy.PriceCeilMult,
			ShipCost:        s.Cfg.Faction.ShipCost,
			ShipCapacity:    s.Cfg.Faction.ShipCapacity,
			ShipSpeed:       s.Cfg.Faction.ShipSpeed,
			ExtractRate:     s.Cfg.Faction.ExtractRate,
			ExtractPeriod:   s.Cfg.Faction.ExtractPeriod,
		},
	}
}

// Step advances the world one tick. System order is fixed: production,
// economy, trade, faction strategy, then the deferred entity flush. Effects
// of a pass become visible to later passes this tick and to everyone next
// tick; nothing observes a half-applied pass.
func (s *Simulation) Step() {
	s.Tick++
	tick := s.Tick

	s.production.Run(tick)
	s.economy.Run(tick)
	s.trade.Run(tick)
	s.factionAI.Run(tick)

	for _, id := range s.World.FlushDeferred() {
		s.Bus.Publish(event.EntityDestroyed{AtTick: tick, Entity: id})
	}
}

// StepN advances n ticks.
func (s *Simulation) StepN(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// TickRNG returns a generator whose stream depends only on (seed, tick), so
// a restored run draws the same numbers without serializing RNG state.
func (s *Simulation) TickRNG(tick uint64) *rand.Rand {
	return rand.New(rand.NewSource(s.Seed ^ int64(tick)*0x9e3779b9))
}
