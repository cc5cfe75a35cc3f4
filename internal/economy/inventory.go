// Package economy holds the inventory and market components and the pricing
// system that adjusts posted prices toward each station's stock position.
package economy

import (
	"sort"

	"github.com/talgya/solsim/internal/ecs"
)

// Inventory stores discrete resource units up to a shared capacity.
// Quantities never go negative and the total never exceeds Capacity.
type Inventory struct {
	Stock    map[string]int `json:"stock"`
	Capacity int            `json:"capacity"`
}

// NewInventory creates an empty inventory with the given capacity.
func NewInventory(capacity int) *Inventory {
	return &Inventory{Stock: make(map[string]int), Capacity: capacity}
}

// Count returns the stored amount of one resource.
func (inv *Inventory) Count(resource string) int {
	return inv.Stock[resource]
}

// Total returns the sum of all stored units.
func (inv *Inventory) Total() int {
	total := 0
	for _, n := range inv.Stock {
		total += n
	}
	return total
}

// Free returns the remaining storage headroom.
func (inv *Inventory) Free() int {
	free := inv.Capacity - inv.Total()
	if free < 0 {
		return 0
	}
	return free
}

// Add stores up to amount units, limited by free capacity. Returns the
// amount actually stored.
func (inv *Inventory) Add(resource string, amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := min(amount, inv.Free())
	if actual > 0 {
		inv.Stock[resource] += actual
	}
	return actual
}

// Remove takes up to amount units, limited by stock. Returns the amount
// actually removed. Zero entries are dropped so iteration stays tight.
func (inv *Inventory) Remove(resource string, amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := min(amount, inv.Stock[resource])
	if actual > 0 {
		inv.Stock[resource] -= actual
		if inv.Stock[resource] == 0 {
			delete(inv.Stock, resource)
		}
	}
	return actual
}

// Has reports whether at least amount units of the resource are stored.
func (inv *Inventory) Has(resource string, amount int) bool {
	return inv.Stock[resource] >= amount
}

// HasAll reports whether every requirement is met simultaneously.
func (inv *Inventory) HasAll(requirements map[string]int) bool {
	for res, amt := range requirements {
		if inv.Stock[res] < amt {
			return false
		}
	}
	return true
}

// Resources returns the stored resource ids, sorted.
func (inv *Inventory) Resources() []string {
	out := make([]string, 0, len(inv.Stock))
	for res := range inv.Stock {
		out = append(out, res)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy, used by snapshots and observation queries.
func (inv *Inventory) Clone() *Inventory {
	c := NewInventory(inv.Capacity)
	for res, n := range inv.Stock {
		c.Stock[res] = n
	}
	return c
}

// InventoryOf fetches the inventory component of an entity.
func InventoryOf(w *ecs.World, id ecs.EntityID) (*Inventory, error) {
	c, err := w.Get(id, ecs.KindInventory)
	if err != nil {
		return nil, err
	}
	return c.(*Inventory), nil
}
