package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/faction"
	"github.com/talgya/solsim/internal/industry"
	"github.com/talgya/solsim/internal/sector"
	"github.com/talgya/solsim/internal/trade"
)

// EntitySnap is the serialized component set of one entity. Absent
// components are nil and omitted from the wire form.
type EntitySnap struct {
	ID         ecs.EntityID         `json:"id"`
	Transform  *sector.Transform    `json:"transform,omitempty"`
	Inventory  *economy.Inventory   `json:"inventory,omitempty"`
	Market     *economy.Market      `json:"market,omitempty"`
	Population *economy.Population  `json:"population,omitempty"`
	Production *industry.Production `json:"production,omitempty"`
	Extractor  *industry.Extractor  `json:"extractor,omitempty"`
	Agent      *trade.Agent         `json:"agent,omitempty"`
	Member     *faction.Member      `json:"member,omitempty"`
}

// Snapshot is the full resumable state of a run. Restoring it and stepping
// reproduces the original run tick for tick.
type Snapshot struct {
	Tick           uint64             `json:"tick"`
	Seed           int64              `json:"seed"`
	RegistryDigest string             `json:"registry_digest"`
	Entities       []EntitySnap       `json:"entities"`
	Factions       []*faction.Faction `json:"factions"`
	Sites          []*sector.Site     `json:"sites"`
}

// Snapshot captures the current state. Entities are emitted in id order so
// the serialized form is canonical. The result aliases live component
// pointers, so callers must serialize or clone it before the next Step.
func (s *Simulation) Snapshot() *Snapshot {
	snap := &Snapshot{
		Tick:           s.Tick,
		Seed:           s.Seed,
		RegistryDigest: s.Registry.Digest(),
		Sites:          s.Sites,
	}

	for _, id := range s.World.Query() {
		es := EntitySnap{ID: id}
		if c, err := s.World.Get(id, ecs.KindTransform); err == nil {
			es.Transform = c.(*sector.Transform)
		}
		if c, err := s.World.Get(id, ecs.KindInventory); err == nil {
			es.Inventory = c.(*economy.Inventory)
		}
		if c, err := s.World.Get(id, ecs.KindMarket); err == nil {
			es.Market = c.(*economy.Market)
		}
		if c, err := s.World.Get(id, ecs.KindPopulation); err == nil {
			es.Population = c.(*economy.Population)
		}
		if c, err := s.World.Get(id, ecs.KindProduction); err == nil {
			es.Production = c.(*industry.Production)
		}
		if c, err := s.World.Get(id, ecs.KindExtractor); err == nil {
			es.Extractor = c.(*industry.Extractor)
		}
		if c, err := s.World.Get(id, ecs.KindTradeAgent); err == nil {
			es.Agent = c.(*trade.Agent)
		}
		if c, err := s.World.Get(id, ecs.KindFactionMember); err == nil {
			es.Member = c.(*faction.Member)
		}
		snap.Entities = append(snap.Entities, es)
	}

	for _, id := range s.Factions.IDs() {
		f, _ := s.Factions.Get(id)
		snap.Factions = append(snap.Factions, f)
	}
	return snap
}

// Restore replaces the simulation state with the snapshot's. The registry
// digest must match the loaded registry; a drifted data set would silently
// change the run.
func (s *Simulation) Restore(snap *Snapshot) error {
	if snap.RegistryDigest != "" && snap.RegistryDigest != s.Registry.Digest() {
		return fmt.Errorf("engine: snapshot registry digest %.8s does not match loaded %.8s",
			snap.RegistryDigest, s.Registry.Digest())
	}

	s.World = ecs.NewWorld()
	s.Factions = faction.NewManager()
	s.Tick = snap.Tick
	s.Seed = snap.Seed
	s.Sites = snap.Sites

	for _, f := range snap.Factions {
		s.Factions.Add(f)
	}

	entities := append([]EntitySnap(nil), snap.Entities...)
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })
	for _, es := range entities {
		s.World.CreateEntityWithID(es.ID)
		if es.Transform != nil {
			s.World.Attach(es.ID, ecs.KindTransform, es.Transform)
		}
		if es.Inventory != nil {
			s.World.Attach(es.ID, ecs.KindInventory, es.Inventory)
		}
		if es.Market != nil {
			s.World.Attach(es.ID, ecs.KindMarket, es.Market)
		}
		if es.Population != nil {
			s.World.Attach(es.ID, ecs.KindPopulation, es.Population)
		}
		if es.Production != nil {
			s.World.Attach(es.ID, ecs.KindProduction, es.Production)
		}
		if es.Extractor != nil {
			s.World.Attach(es.ID, ecs.KindExtractor, es.Extractor)
		}
		if es.Agent != nil {
			s.World.Attach(es.ID, ecs.KindTradeAgent, es.Agent)
		}
		if es.Member != nil {
			s.World.Attach(es.ID, ecs.KindFactionMember, es.Member)
		}
	}

	s.wire()
	return nil
}

// StateDigest hashes the canonical snapshot serialization. Two runs with
// equal digests are in the same state. Map keys serialize sorted, entities
// are emitted in id order, so the encoding is stable.
func (s *Simulation) StateDigest() string {
	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
