// Package registry holds the static resource and recipe definitions the
// simulation runs on. Everything is loaded and validated once at startup;
// tick-time lookups are plain map reads on interned ids, never reflective.
// See design doc Section 4.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidData marks a malformed or self-inconsistent registry document.
// Fatal at load; no partial registry is ever returned.
var ErrInvalidData = errors.New("registry: invalid data")

// ResourceDef is an immutable resource definition.
type ResourceDef struct {
	ID        string  `json:"-"`
	Name      string  `json:"name"`
	Tier      int     `json:"tier"` // 0 raw .. 3 complex
	BaseValue float64 `json:"base_value"`
	Category  string  `json:"category"`
}

// RecipeDef is an immutable production recipe: inputs consumed, outputs
// produced, over a fixed number of ticks at a station with enough capacity.
type RecipeDef struct {
	ID         string         `json:"-"`
	Name       string         `json:"name"`
	Inputs     map[string]int `json:"inputs"`
	Outputs    map[string]int `json:"outputs"`
	CycleTicks int            `json:"cycle_ticks"`
	Capacity   int            `json:"capacity"`
	Category   string         `json:"category"`
}

// Registry is the read-only lookup surface for resources and recipes.
type Registry struct {
	resources map[string]ResourceDef
	recipes   map[string]RecipeDef

	resourceIDs []string // sorted, for deterministic iteration
	recipeIDs   []string

	producing map[string][]string // resource id → recipe ids (sorted)

	digest string
}

// FromDefs builds a registry from in-memory definitions, applying the same
// validation as a file load. Used by tests and programmatic world setup.
func FromDefs(resources []ResourceDef, recipes []RecipeDef) (*Registry, error) {
	r := &Registry{
		resources: make(map[string]ResourceDef, len(resources)),
		recipes:   make(map[string]RecipeDef, len(recipes)),
		producing: make(map[string][]string),
	}

	for _, res := range resources {
		if res.ID == "" {
			return nil, fmt.Errorf("%w: resource with empty id", ErrInvalidData)
		}
		if _, dup := r.resources[res.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate resource %q", ErrInvalidData, res.ID)
		}
		if res.Tier < 0 || res.Tier > 3 {
			return nil, fmt.Errorf("%w: resource %q tier %d out of range", ErrInvalidData, res.ID, res.Tier)
		}
		if res.BaseValue <= 0 {
			return nil, fmt.Errorf("%w: resource %q non-positive base value", ErrInvalidData, res.ID)
		}
		r.resources[res.ID] = res
		r.resourceIDs = append(r.resourceIDs, res.ID)
	}
	sort.Strings(r.resourceIDs)

	for _, rec := range recipes {
		if err := r.validateRecipe(rec); err != nil {
			return nil, err
		}
		r.recipes[rec.ID] = rec
		r.recipeIDs = append(r.recipeIDs, rec.ID)
		for out := range rec.Outputs {
			r.producing[out] = append(r.producing[out], rec.ID)
		}
	}
	sort.Strings(r.recipeIDs)
	for out := range r.producing {
		sort.Strings(r.producing[out])
	}

	r.digest = computeDigest(r)
	return r, nil
}

func (r *Registry) validateRecipe(rec RecipeDef) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: recipe with empty id", ErrInvalidData)
	}
	if _, dup := r.recipes[rec.ID]; dup {
		return fmt.Errorf("%w: duplicate recipe %q", ErrInvalidData, rec.ID)
	}
	if rec.CycleTicks <= 0 {
		return fmt.Errorf("%w: recipe %q non-positive cycle_ticks", ErrInvalidData, rec.ID)
	}
	if rec.Capacity <= 0 {
		return fmt.Errorf("%w: recipe %q non-positive capacity", ErrInvalidData, rec.ID)
	}
	if len(rec.Inputs) == 0 || len(rec.Outputs) == 0 {
		return fmt.Errorf("%w: recipe %q must have inputs and outputs", ErrInvalidData, rec.ID)
	}
	for res, qty := range rec.Inputs {
		if _, ok := r.resources[res]; !ok {
			return fmt.Errorf("%w: recipe %q input references unknown resource %q", ErrInvalidData, rec.ID, res)
		}
		if qty <= 0 {
			return fmt.Errorf("%w: recipe %q non-positive input quantity for %q", ErrInvalidData, rec.ID, res)
		}
	}
	for res, qty := range rec.Outputs {
		if _, ok := r.resources[res]; !ok {
			return fmt.Errorf("%w: recipe %q output references unknown resource %q", ErrInvalidData, rec.ID, res)
		}
		if qty <= 0 {
			return fmt.Errorf("%w: recipe %q non-positive output quantity for %q", ErrInvalidData, rec.ID, res)
		}
	}
	return nil
}

// Resource returns a resource definition by id.
func (r *Registry) Resource(id string) (ResourceDef, bool) {
	def, ok := r.resources[id]
	return def, ok
}

// Recipe returns a recipe definition by id.
func (r *Registry) Recipe(id string) (RecipeDef, bool) {
	def, ok := r.recipes[id]
	return def, ok
}

// RecipesProducing returns the ids of recipes whose outputs include the
// given resource, sorted.
func (r *Registry) RecipesProducing(resourceID string) []string {
	ids := r.producing[resourceID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// ResourceIDs returns all resource ids, sorted.
func (r *Registry) ResourceIDs() []string {
	out := make([]string, len(r.resourceIDs))
	copy(out, r.resourceIDs)
	return out
}

// RecipeIDs returns all recipe ids, sorted.
func (r *Registry) RecipeIDs() []string {
	out := make([]string, len(r.recipeIDs))
	copy(out, r.recipeIDs)
	return out
}

// Digest returns a content hash of the loaded definitions, recorded in
// snapshots so a resumed run can detect registry drift.
func (r *Registry) Digest() string {
	return r.digest
}

func computeDigest(r *Registry) string {
	h := sha256.New()
	for _, id := range r.resourceIDs {
		res := r.resources[id]
		fmt.Fprintf(h, "res|%s|%d|%g|%s\n", id, res.Tier, res.BaseValue, res.Category)
	}
	for _, id := range r.recipeIDs {
		rec := r.recipes[id]
		fmt.Fprintf(h, "rec|%s|%d|%d\n", id, rec.CycleTicks, rec.Capacity)
		for _, in := range sortedKeys(rec.Inputs) {
			fmt.Fprintf(h, "in|%s|%d\n", in, rec.Inputs[in])
		}
		for _, out := range sortedKeys(rec.Outputs) {
			fmt.Fprintf(h, "out|%s|%d\n", out, rec.Outputs[out])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
