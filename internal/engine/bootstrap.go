package engine

import (
	"log/slog"

	"github.com/talgya/solsim/internal/config"
	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/faction"
	"github.com/talgya/solsim/internal/industry"
	"github.com/talgya/solsim/internal/registry"
	"github.com/talgya/solsim/internal/sector"
	"github.com/talgya/solsim/internal/trade"
)

// starterFaction describes one bootstrap faction.
type starterFaction struct {
	id       string
	name     string
	kind     faction.Kind
	treasury float64
	posture  float64
}

// The starting roster. Treasuries and temperaments differ so the factions
// diverge early instead of mirroring each other.
var starterFactions = []starterFaction{
	{"belt_alliance", "Belt Alliance", faction.KindIndependent, 30000, 0.3},
	{"earth_coalition", "Earth Coalition", faction.KindGovernment, 100000, 0.5},
	{"mars_republic", "Mars Republic", faction.KindGovernment, 50000, 0.6},
	{"outer_consortium", "Outer Planets Consortium", faction.KindCorporation, 75000, 0.7},
}

// BuildWorld generates sites and populates a fresh simulation: one home
// station and one trade ship per starter faction, with a populated capital
// for the first. Fully determined by the config seed.
func BuildWorld(cfg config.Config, reg *registry.Registry) *Simulation {
	s := New(cfg, reg)
	s.Sites = sector.GenerateSites(sector.GenConfig{
		Seed:   cfg.Seed,
		Count:  cfg.Sector.SiteCount,
		Radius: cfg.Sector.Radius,
	}, reg.ResourceIDs())

	rng := s.TickRNG(0)

	for i, sf := range starterFactions {
		f := &faction.Faction{
			ID:       sf.id,
			Name:     sf.name,
			Kind:     sf.kind,
			Treasury: sf.treasury,
			Posture:  sf.posture,
		}
		s.Factions.Add(f)

		if i >= len(s.Sites) {
			continue
		}
		site := s.Sites[i]
		station := s.seedStation(f, site, rng.Intn(50))
		f.HomeStation = station
		s.seedShip(f, station)

		if i == 0 {
			s.World.Attach(station, ecs.KindPopulation, &economy.Population{
				Count: 10,
				Max:   1000,
				Consumption: map[string]int{
					"life_support": 1,
					"water":        2,
				},
				CreditsPerCount: 10,
				Satisfaction:    1,
			})
		}
	}

	// Rewire so the faction AI sees the generated sites.
	s.wire()

	slog.Info("world built", "seed", cfg.Seed,
		"factions", len(s.Factions.IDs()),
		"stations", len(s.StationIDs()),
		"sites", len(s.Sites))
	return s
}

// seedStation builds a home station on a site with starting stock of the
// site's richest resource plus the jitter amount of iron ore.
func (s *Simulation) seedStation(f *faction.Faction, site *sector.Site, jitter int) ecs.EntityID {
	id := s.World.CreateEntity()
	s.World.Attach(id, ecs.KindTransform, site.Transform())
	s.World.Attach(id, ecs.KindFactionMember, &faction.Member{FactionID: f.ID})

	inv := economy.NewInventory(s.Cfg.Faction.StationCapacity)
	market := economy.NewMarket(s.Cfg.Faction.StationCredits)
	for _, res := range s.Registry.ResourceIDs() {
		def, _ := s.Registry.Resource(res)
		market.List(res, def.BaseValue, s.Cfg.Economy.TargetStock,
			s.Cfg.Economy.PriceFloorMult, s.Cfg.Economy.PriceCeilMult)
	}

	richest, richness := "", -1.0
	for _, res := range s.Registry.ResourceIDs() {
		if r := site.Richness[res]; r > richness {
			richest, richness = res, r
		}
	}
	if richest != "" {
		inv.Add(richest, s.Cfg.Economy.TargetStock/2)
		def, _ := s.Registry.Resource(richest)
		if def.Tier == 0 {
			rate := 1 + int(richness*s.Cfg.Faction.ExtractRate)
			s.World.Attach(id, ecs.KindExtractor, &industry.Extractor{
				Resource: richest, Rate: rate, Period: s.Cfg.Faction.ExtractPeriod,
			})
		} else if recipes := s.Registry.RecipesProducing(richest); len(recipes) > 0 {
			s.World.Attach(id, ecs.KindProduction, &industry.Production{
				RecipeID: recipes[0], State: industry.StateIdle,
			})
		}
	}
	inv.Add("iron_ore", 20+jitter)

	s.World.Attach(id, ecs.KindInventory, inv)
	s.World.Attach(id, ecs.KindMarket, market)
	site.Claimed = true
	return id
}

func (s *Simulation) seedShip(f *faction.Faction, home ecs.EntityID) ecs.EntityID {
	pos, err := sector.TransformOf(s.World, home)
	if err != nil {
		return 0
	}
	id := s.World.CreateEntity()
	s.World.Attach(id, ecs.KindTransform, &sector.Transform{X: pos.X, Y: pos.Y})
	s.World.Attach(id, ecs.KindTradeAgent,
		trade.NewAgent(f.ID, s.Cfg.Faction.ShipCapacity, s.Cfg.Faction.ShipSpeed))
	s.World.Attach(id, ecs.KindFactionMember, &faction.Member{FactionID: f.ID})
	return id
}
