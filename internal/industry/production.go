// Package industry runs the production pipeline: stations with a recipe
// binding convert inputs to outputs over fixed cycles, and extractors pull
// raw material out of the sites they sit on.
package industry

import (
	"log/slog"
	"sort"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/event"
	"github.com/talgya/solsim/internal/registry"
)

// State is a production binding's lifecycle phase.
type State string

const (
	// StateActive means a cycle is in progress.
	StateActive State = "active"
	// StateIdle means inputs were missing at cycle boundary. Nothing was
	// consumed; the binding re-checks inputs every tick.
	StateIdle State = "idle"
	// StateStalled means a finished cycle could not place its outputs.
	// Progress is held and conversion retried every tick. No work is lost.
	StateStalled State = "stalled"
)

// Production binds a station to one recipe.
type Production struct {
	RecipeID string `json:"recipe_id"`
	Progress int    `json:"progress"`
	State    State  `json:"state"`
}

// ProductionOf fetches the production component of an entity.
func ProductionOf(w *ecs.World, id ecs.EntityID) (*Production, error) {
	c, err := w.Get(id, ecs.KindProduction)
	if err != nil {
		return nil, err
	}
	return c.(*Production), nil
}

// Extractor adds raw resource units on a fixed cadence, representing mining
// of the site the station was founded on. Rate already folds in site richness.
type Extractor struct {
	Resource string `json:"resource"`
	Rate     int    `json:"rate"`
	Period   uint64 `json:"period"`
}

// ExtractorOf fetches the extractor component of an entity.
func ExtractorOf(w *ecs.World, id ecs.EntityID) (*Extractor, error) {
	c, err := w.Get(id, ecs.KindExtractor)
	if err != nil {
		return nil, err
	}
	return c.(*Extractor), nil
}

// System advances every production binding and extractor once per tick.
type System struct {
	World    *ecs.World
	Registry *registry.Registry
	Bus      *event.Bus
}

// Run executes one production tick in sorted station order.
func (s *System) Run(tick uint64) {
	s.runExtractors(tick)

	for _, id := range s.World.Query(ecs.KindProduction, ecs.KindInventory) {
		prod, err := ProductionOf(s.World, id)
		if err != nil {
			continue
		}
		inv, err := economy.InventoryOf(s.World, id)
		if err != nil {
			continue
		}
		recipe, ok := s.Registry.Recipe(prod.RecipeID)
		if !ok {
			slog.Warn("production binding references unknown recipe",
				"station", id, "recipe", prod.RecipeID)
			continue
		}
		s.step(tick, id, prod, inv, recipe)
	}
}

func (s *System) step(tick uint64, id ecs.EntityID, prod *Production, inv *economy.Inventory, recipe registry.RecipeDef) {
	switch prod.State {
	case StateIdle:
		if !inv.HasAll(recipe.Inputs) {
			return
		}
		prod.State = StateActive
		prod.Progress = 0
		fallthrough

	case StateActive:
		prod.Progress++
		if prod.Progress < recipe.CycleTicks {
			return
		}
		s.complete(tick, id, prod, inv, recipe)

	case StateStalled:
		// Progress held at cycle end, retry placement only.
		s.complete(tick, id, prod, inv, recipe)
	}
}

// complete attempts the atomic input→output conversion at cycle end.
func (s *System) complete(tick uint64, id ecs.EntityID, prod *Production, inv *economy.Inventory, recipe registry.RecipeDef) {
	if !inv.HasAll(recipe.Inputs) {
		// Nothing was consumed up front, so missing inputs cost nothing.
		prod.State = StateIdle
		prod.Progress = 0
		return
	}

	inTotal, outTotal := 0, 0
	for _, n := range recipe.Inputs {
		inTotal += n
	}
	for _, n := range recipe.Outputs {
		outTotal += n
	}
	if inv.Free()+inTotal < outTotal {
		prod.State = StateStalled
		return
	}

	for _, res := range sortedKeys(recipe.Inputs) {
		inv.Remove(res, recipe.Inputs[res])
	}
	produced := make(map[string]int, len(recipe.Outputs))
	for _, res := range sortedKeys(recipe.Outputs) {
		inv.Add(res, recipe.Outputs[res])
		produced[res] = recipe.Outputs[res]
	}

	prod.State = StateActive
	prod.Progress = 0

	s.Bus.Publish(event.ProductionCompleted{
		AtTick:  tick,
		Station: id,
		Recipe:  recipe.ID,
		Outputs: produced,
	})
}

func (s *System) runExtractors(tick uint64) {
	for _, id := range s.World.Query(ecs.KindExtractor, ecs.KindInventory) {
		ext, err := ExtractorOf(s.World, id)
		if err != nil {
			continue
		}
		if ext.Period == 0 || tick%ext.Period != 0 {
			continue
		}
		inv, err := economy.InventoryOf(s.World, id)
		if err != nil {
			continue
		}
		inv.Add(ext.Resource, ext.Rate)
	}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
