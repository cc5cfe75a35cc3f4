package engine

import (
	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/faction"
	"github.com/talgya/solsim/internal/industry"
	"github.com/talgya/solsim/internal/sector"
	"github.com/talgya/solsim/internal/trade"
)

// StationView is a read-only observation of one station.
type StationView struct {
	ID       ecs.EntityID       `json:"id"`
	Faction  string             `json:"faction,omitempty"`
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	Stock    map[string]int     `json:"stock"`
	Capacity int                `json:"capacity"`
	Prices   map[string]float64 `json:"prices"`
	Credits  float64            `json:"credits"`

	Recipe     string `json:"recipe,omitempty"`
	Production string `json:"production,omitempty"`
	Population int    `json:"population,omitempty"`
}

// ShipView is a read-only observation of one trade ship.
type ShipView struct {
	ID       ecs.EntityID   `json:"id"`
	Faction  string         `json:"faction"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Capacity int            `json:"capacity"`
	Cargo    map[string]int `json:"cargo"`
	Goal     trade.Goal     `json:"goal"`
}

// FactionView is a read-only observation of one faction.
type FactionView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Treasury float64 `json:"treasury"`
	Posture  float64 `json:"posture"`
	Stations int     `json:"stations"`
	Ships    int     `json:"ships"`
}

// StationIDs returns all station entity ids, sorted.
func (s *Simulation) StationIDs() []ecs.EntityID {
	return s.World.Query(ecs.KindMarket, ecs.KindInventory)
}

// ShipIDs returns all trade ship entity ids, sorted.
func (s *Simulation) ShipIDs() []ecs.EntityID {
	return s.World.Query(ecs.KindTradeAgent)
}

// StationMarket returns the observation view of a station, or
// ecs.ErrNotFound if the entity is missing or not a station.
func (s *Simulation) StationMarket(id ecs.EntityID) (StationView, error) {
	inv, err := economy.InventoryOf(s.World, id)
	if err != nil {
		return StationView{}, err
	}
	market, err := economy.MarketOf(s.World, id)
	if err != nil {
		return StationView{}, err
	}

	v := StationView{
		ID:       id,
		Stock:    inv.Clone().Stock,
		Capacity: inv.Capacity,
		Prices:   make(map[string]float64, len(market.Entries)),
		Credits:  market.Credits,
	}
	for _, res := range market.Listed() {
		v.Prices[res] = economy.RoundCents(market.Entries[res].Price)
	}
	if pos, err := sector.TransformOf(s.World, id); err == nil {
		v.X, v.Y = pos.X, pos.Y
	}
	if member, err := faction.MemberOf(s.World, id); err == nil {
		v.Faction = member.FactionID
	}
	if prod, err := industry.ProductionOf(s.World, id); err == nil {
		v.Recipe = prod.RecipeID
		v.Production = string(prod.State)
	}
	if pop, err := economy.PopulationOf(s.World, id); err == nil {
		v.Population = pop.Count
	}
	return v, nil
}

// ShipState returns the observation view of a trade ship.
func (s *Simulation) ShipState(id ecs.EntityID) (ShipView, error) {
	agent, err := trade.AgentOf(s.World, id)
	if err != nil {
		return ShipView{}, err
	}
	v := ShipView{
		ID:       id,
		Faction:  agent.FactionID,
		Capacity: agent.Capacity,
		Cargo:    agent.Cargo.Clone().Stock,
		Goal:     agent.Goal,
	}
	if pos, err := sector.TransformOf(s.World, id); err == nil {
		v.X, v.Y = pos.X, pos.Y
	}
	return v, nil
}

// FactionSummary returns the observation view of a faction.
func (s *Simulation) FactionSummary(id string) (FactionView, error) {
	f, ok := s.Factions.Get(id)
	if !ok {
		return FactionView{}, ecs.ErrNotFound
	}
	v := FactionView{
		ID:       f.ID,
		Name:     f.Name,
		Treasury: f.Treasury,
		Posture:  f.Posture,
	}
	for _, st := range s.StationIDs() {
		if m, err := faction.MemberOf(s.World, st); err == nil && m.FactionID == id {
			v.Stations++
		}
	}
	for _, sh := range s.ShipIDs() {
		if a, err := trade.AgentOf(s.World, sh); err == nil && a.FactionID == id {
			v.Ships++
		}
	}
	return v, nil
}
