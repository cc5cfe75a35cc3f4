package faction

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/event"
	"github.com/talgya/solsim/internal/industry"
	"github.com/talgya/solsim/internal/ledger"
	"github.com/talgya/solsim/internal/registry"
	"github.com/talgya/solsim/internal/sector"
	"github.com/talgya/solsim/internal/trade"
)

// Params are the strategic-AI tunables, filled from config.
type Params struct {
	PeriodTicks uint64

	StationCost     float64
	StationCapacity int
	StationCredits  float64
	TargetStock     int
	PriceFloorMult  float64
	PriceCeilMult   float64

	ShipCost     float64
	ShipCapacity int
	ShipSpeed    float64

	ExtractRate   float64 // units per extract period at richness 1.0
	ExtractPeriod uint64
}

// AI runs each faction's strategic round on the faction period: founding
// outposts on scored sites or commissioning trade ships, posture-weighted.
type AI struct {
	World    *ecs.World
	Registry *registry.Registry
	Bus      *event.Bus
	Ledger   *ledger.Ledger
	Manager  *Manager
	Sites    []*sector.Site
	P        Params
}

// Run executes the strategic round when the faction period elapses.
// Factions act in sorted id order.
func (a *AI) Run(tick uint64) {
	if a.P.PeriodTicks == 0 || tick%a.P.PeriodTicks != 0 || tick == 0 {
		return
	}
	for _, id := range a.Manager.IDs() {
		f, ok := a.Manager.Get(id)
		if !ok {
			continue
		}
		a.decide(tick, f)
	}
}

func (a *AI) decide(tick uint64, f *Faction) {
	if f.Posture*f.Treasury >= a.P.StationCost {
		err := a.FoundStation(tick, f)
		if err == nil {
			return
		}
		if !errors.Is(err, ledger.ErrInsufficientFunds) && !errors.Is(err, errNoSite) {
			slog.Warn("expansion failed", "faction", f.ID, "err", err)
		}
		// Fall through to the fleet side; funds may still cover a ship.
	}
	if (1-f.Posture)*f.Treasury >= a.P.ShipCost {
		if err := a.DeployShip(tick, f); err != nil &&
			!errors.Is(err, ledger.ErrInsufficientFunds) {
			slog.Warn("ship deployment failed", "faction", f.ID, "err", err)
		}
	}
}

var errNoSite = errors.New("faction: no viable expansion site")

// ownedStations returns the faction's stations in sorted id order.
func (a *AI) ownedStations(f *Faction) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range a.World.Query(ecs.KindMarket, ecs.KindFactionMember) {
		member, err := MemberOf(a.World, id)
		if err != nil || member.FactionID != f.ID {
			continue
		}
		out = append(out, id)
	}
	return out
}

// scarcity maps resource id → how far below target the faction's stations
// sit, summed across stations. Drives site scoring.
func (a *AI) scarcity(stations []ecs.EntityID) map[string]float64 {
	scarce := make(map[string]float64)
	for _, id := range stations {
		market, err := economy.MarketOf(a.World, id)
		if err != nil {
			continue
		}
		inv, err := economy.InventoryOf(a.World, id)
		if err != nil {
			continue
		}
		for _, res := range market.Listed() {
			e := market.Entries[res]
			if e.TargetStock <= 0 {
				continue
			}
			deficit := float64(e.TargetStock-inv.Count(res)) / float64(e.TargetStock)
			if deficit > 0 {
				scarce[res] += deficit
			}
		}
	}
	return scarce
}

// bestSite scores unclaimed sites by scarce-resource richness discounted by
// distance to the faction's nearest station. Ties break on lower site index.
func (a *AI) bestSite(f *Faction, stations []ecs.EntityID) (*sector.Site, bool) {
	if len(stations) == 0 {
		return nil, false
	}
	scarce := a.scarcity(stations)
	if len(scarce) == 0 {
		return nil, false
	}
	resources := make([]string, 0, len(scarce))
	for res := range scarce {
		resources = append(resources, res)
	}
	sort.Strings(resources)

	positions := make([]*sector.Transform, 0, len(stations))
	for _, id := range stations {
		if pos, err := sector.TransformOf(a.World, id); err == nil {
			positions = append(positions, pos)
		}
	}
	if len(positions) == 0 {
		return nil, false
	}

	var best *sector.Site
	bestScore := 0.0
	for _, site := range a.Sites {
		if site.Claimed {
			continue
		}
		nearest := sector.Distance(site.Transform(), positions[0])
		for _, pos := range positions[1:] {
			if d := sector.Distance(site.Transform(), pos); d < nearest {
				nearest = d
			}
		}
		score := 0.0
		for _, res := range resources {
			score += scarce[res] * site.Richness[res] / (1 + nearest)
		}
		if score > bestScore {
			best, bestScore = site, score
		}
	}
	return best, best != nil
}

// FoundStation atomically builds an outpost on the faction's best site:
// treasury charge, entity creation, and site claim happen together or not
// at all. ErrInsufficientFunds means try again next period.
func (a *AI) FoundStation(tick uint64, f *Faction) error {
	stations := a.ownedStations(f)
	site, ok := a.bestSite(f, stations)
	if !ok {
		return errNoSite
	}

	if err := a.Ledger.Charge(tick, f.ID, f, a.P.StationCost); err != nil {
		return err
	}

	id := a.World.CreateEntity()
	a.World.Attach(id, ecs.KindTransform, site.Transform())
	a.World.Attach(id, ecs.KindInventory, economy.NewInventory(a.P.StationCapacity))
	a.World.Attach(id, ecs.KindFactionMember, &Member{FactionID: f.ID})

	market := economy.NewMarket(a.P.StationCredits)
	for _, res := range a.Registry.ResourceIDs() {
		def, _ := a.Registry.Resource(res)
		market.List(res, def.BaseValue, a.P.TargetStock, a.P.PriceFloorMult, a.P.PriceCeilMult)
	}
	a.World.Attach(id, ecs.KindMarket, market)

	a.outfit(id, site)
	site.Claimed = true

	slog.Info("station founded", "faction", f.ID, "station", id,
		"x", site.X, "y", site.Y, "cost", a.P.StationCost)
	a.Bus.Publish(event.StationFounded{
		AtTick: tick, Station: id, Faction: f.ID,
		Cost: a.P.StationCost, X: site.X, Y: site.Y,
	})
	return nil
}

// outfit gives a new station its industry: an extractor when the site's
// richest resource is raw, otherwise a production binding for it.
func (a *AI) outfit(id ecs.EntityID, site *sector.Site) {
	richest, richness := "", -1.0
	for _, res := range a.Registry.ResourceIDs() {
		if r := site.Richness[res]; r > richness {
			richest, richness = res, r
		}
	}
	if richest == "" {
		return
	}
	def, _ := a.Registry.Resource(richest)
	if def.Tier == 0 {
		rate := 1 + int(richness*a.P.ExtractRate)
		a.World.Attach(id, ecs.KindExtractor, &industry.Extractor{
			Resource: richest, Rate: rate, Period: a.P.ExtractPeriod,
		})
		return
	}
	if recipes := a.Registry.RecipesProducing(richest); len(recipes) > 0 {
		a.World.Attach(id, ecs.KindProduction, &industry.Production{
			RecipeID: recipes[0], State: industry.StateIdle,
		})
	}
}

// DeployShip commissions a trade ship at the faction's home station.
func (a *AI) DeployShip(tick uint64, f *Faction) error {
	home := f.HomeStation
	if !a.World.Alive(home) {
		stations := a.ownedStations(f)
		if len(stations) == 0 {
			return ecs.ErrNotFound
		}
		home = stations[0]
	}
	pos, err := sector.TransformOf(a.World, home)
	if err != nil {
		return err
	}

	if err := a.Ledger.Charge(tick, f.ID, f, a.P.ShipCost); err != nil {
		return err
	}

	id := a.World.CreateEntity()
	a.World.Attach(id, ecs.KindTransform, &sector.Transform{X: pos.X, Y: pos.Y})
	a.World.Attach(id, ecs.KindTradeAgent, trade.NewAgent(f.ID, a.P.ShipCapacity, a.P.ShipSpeed))
	a.World.Attach(id, ecs.KindFactionMember, &Member{FactionID: f.ID})

	slog.Info("ship commissioned", "faction", f.ID, "ship", id, "cost", a.P.ShipCost)
	a.Bus.Publish(event.ShipCommissioned{
		AtTick: tick, Ship: id, Faction: f.ID, HomeStation: home, Cost: a.P.ShipCost,
	})
	return nil
}
