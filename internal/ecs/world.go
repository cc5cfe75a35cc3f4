// Package ecs provides the entity-component world store.
// Entities are dense identifiers; components are plain data attached by kind.
// "Station vs ship" is a component-set question, never a type hierarchy.
// See design doc Section 3.
package ecs

import (
	"errors"
	"sort"
	"sync"
)

// EntityID identifies an entity. IDs are dense, monotonically assigned,
// and never reused within a run.
type EntityID uint64

// Kind enumerates the component slots an entity can carry.
type Kind uint8

const (
	KindTransform Kind = iota
	KindInventory
	KindMarket
	KindProduction
	KindTradeAgent
	KindFactionMember
	KindPopulation
	KindExtractor
	kindCount
)

// String returns the component kind name for logs and errors.
func (k Kind) String() string {
	switch k {
	case KindTransform:
		return "transform"
	case KindInventory:
		return "inventory"
	case KindMarket:
		return "market"
	case KindProduction:
		return "production"
	case KindTradeAgent:
		return "trade_agent"
	case KindFactionMember:
		return "faction_member"
	case KindPopulation:
		return "population"
	case KindExtractor:
		return "extractor"
	}
	return "unknown"
}

var (
	// ErrNotFound is returned when an entity or component is absent.
	// Callers treat it as a skip, not a failure.
	ErrNotFound = errors.New("ecs: not found")

	// ErrConflict is returned when exclusive access to an entity's
	// components cannot be obtained within a pass. Under the fixed-order
	// scheduler this indicates a scheduling bug.
	ErrConflict = errors.New("ecs: conflicting component access")
)

// World owns all entities and component storage. Systems receive it by
// reference; there is no ambient global state.
type World struct {
	mu     sync.Mutex
	nextID EntityID

	entities   map[EntityID]struct{}
	components [kindCount]map[EntityID]any

	// Per-entity access locks for cross-entity transactions inside a
	// data-parallel pass. See Lock2.
	guards map[EntityID]*sync.Mutex

	// Destruction is deferred to end-of-tick so no pass observes a
	// dangling entity mid-query.
	pendingDestroy []EntityID
}

// NewWorld creates an empty world store.
func NewWorld() *World {
	w := &World{
		nextID:   0,
		entities: make(map[EntityID]struct{}),
		guards:   make(map[EntityID]*sync.Mutex),
	}
	for k := range w.components {
		w.components[k] = make(map[EntityID]any)
	}
	return w
}

// CreateEntity allocates a fresh entity with no components.
func (w *World) CreateEntity() EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	w.entities[id] = struct{}{}
	w.guards[id] = &sync.Mutex{}
	return id
}

// CreateEntityWithID registers an entity under a specific id. Used when
// restoring a snapshot; the id counter advances past it.
func (w *World) CreateEntityWithID(id EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[id] = struct{}{}
	w.guards[id] = &sync.Mutex{}
	if id > w.nextID {
		w.nextID = id
	}
}

// Attach sets the component of the given kind on an entity, replacing any
// previous value.
func (w *World) Attach(id EntityID, kind Kind, component any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return ErrNotFound
	}
	w.components[kind][id] = component
	return nil
}

// Detach removes a component from an entity. Detaching an absent component
// is a no-op.
func (w *World) Detach(id EntityID, kind Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.components[kind], id)
}

// Get returns the component of the given kind, or ErrNotFound.
func (w *World) Get(id EntityID, kind Kind) (any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.components[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Has reports whether an entity carries a component of the given kind.
func (w *World) Has(id EntityID, kind Kind) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.components[kind][id]
	return ok
}

// Alive reports whether an entity exists and is not pending destruction.
func (w *World) Alive(id EntityID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.entities[id]
	return ok
}

// Query returns the ids of all entities carrying every listed kind, in
// ascending order. The result is a snapshot taken at call time: entities
// created afterwards never join an iteration already in flight, and
// destroyed entities stay queryable until the deferred flush.
func (w *World) Query(kinds ...Kind) []EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []EntityID
	for id := range w.entities {
		match := true
		for _, k := range kinds {
			if _, ok := w.components[k][id]; !ok {
				match = false
				break
			}
		}
		if match {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DeferDestroy queues an entity for removal at the end of the current tick.
// The entity and its components remain queryable until FlushDeferred runs.
func (w *World) DeferDestroy(id EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingDestroy = append(w.pendingDestroy, id)
}

// FlushDeferred applies queued destructions. Called once per tick by the
// scheduler, after the last system pass. Returns the ids removed.
func (w *World) FlushDeferred() []EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := make([]EntityID, 0, len(w.pendingDestroy))
	for _, id := range w.pendingDestroy {
		if _, ok := w.entities[id]; !ok {
			continue
		}
		delete(w.entities, id)
		delete(w.guards, id)
		for k := range w.components {
			delete(w.components[k], id)
		}
		removed = append(removed, id)
	}
	w.pendingDestroy = w.pendingDestroy[:0]
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entities)
}

// Lock2 acquires exclusive access to two entities' components in canonical
// (ascending id) order, so concurrent workers in the same pass can never
// deadlock against each other. Returns an unlock func, or ErrConflict when
// either entity is already held, which the fixed-order scheduler should
// make impossible.
func (w *World) Lock2(a, b EntityID) (func(), error) {
	w.mu.Lock()
	ga, okA := w.guards[a]
	gb, okB := w.guards[b]
	w.mu.Unlock()
	if !okA || !okB {
		return nil, ErrNotFound
	}

	first, second := ga, gb
	if b < a {
		first, second = gb, ga
	}
	if !first.TryLock() {
		return nil, ErrConflict
	}
	if a != b && !second.TryLock() {
		first.Unlock()
		return nil, ErrConflict
	}
	return func() {
		if a != b {
			second.Unlock()
		}
		first.Unlock()
	}, nil
}
