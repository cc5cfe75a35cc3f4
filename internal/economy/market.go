package economy

import (
	"math"
	"sort"

	"github.com/talgya/solsim/internal/ecs"
)

// FlowRingSize bounds the per-resource trade flow history kept for
// observation queries and AI heuristics.
const FlowRingSize = 16

// FlowRing records net traded units per recent tick. Positive means the
// station bought (stock in), negative means it sold.
type FlowRing struct {
	Samples [FlowRingSize]int `json:"samples"`
	Next    int               `json:"next"`
}

// Record appends one tick's net flow.
func (r *FlowRing) Record(net int) {
	r.Samples[r.Next] = net
	r.Next = (r.Next + 1) % FlowRingSize
}

// Sum returns the net flow across the retained window.
func (r *FlowRing) Sum() int {
	total := 0
	for _, s := range r.Samples {
		total += s
	}
	return total
}

// MarketEntry is one resource's pricing state at a station.
type MarketEntry struct {
	Price       float64  `json:"price"`
	Base        float64  `json:"base"`
	Floor       float64  `json:"floor"`
	Ceil        float64  `json:"ceil"`
	TargetStock int      `json:"target_stock"`
	Flow        FlowRing `json:"flow"`

	// pendingFlow accumulates trades within the current tick; the pricing
	// pass folds it into the ring.
	pendingFlow int
}

// Market is a station's posted price book plus its local credit pool.
// Credits fund population activity and are swept to the owning faction as
// dividends; trade settlement itself moves faction treasuries.
type Market struct {
	Entries map[string]*MarketEntry `json:"entries"`
	Credits float64                 `json:"credits"`
}

// NewMarket creates an empty market with the given starting credits.
func NewMarket(credits float64) *Market {
	return &Market{Entries: make(map[string]*MarketEntry), Credits: credits}
}

// List adds a resource to the price book at its base value. Floor and ceil
// are fixed multiples of base; target stock drives the price deviation.
func (m *Market) List(resource string, base float64, target int, floorMult, ceilMult float64) {
	m.Entries[resource] = &MarketEntry{
		Price:       base,
		Base:        base,
		Floor:       base * floorMult,
		Ceil:        base * ceilMult,
		TargetStock: target,
	}
}

// Price returns the posted price for a resource, or false if unlisted.
func (m *Market) Price(resource string) (float64, bool) {
	e, ok := m.Entries[resource]
	if !ok {
		return 0, false
	}
	return e.Price, true
}

// RecordTrade accumulates traded units for the current tick. Positive qty
// means units flowed into the station.
func (m *Market) RecordTrade(resource string, qty int) {
	if e, ok := m.Entries[resource]; ok {
		e.pendingFlow += qty
	}
}

// Listed returns the listed resource ids, sorted.
func (m *Market) Listed() []string {
	out := make([]string, 0, len(m.Entries))
	for res := range m.Entries {
		out = append(out, res)
	}
	sort.Strings(out)
	return out
}

// ComputePrice applies the stock-deviation price rule for one entry.
// deviation = clamp((stock-target)/target, -1, 1); price = base*(1 - k*deviation),
// clamped to [floor, ceil]. Pure function of its arguments.
func ComputePrice(e *MarketEntry, stock int, k float64) float64 {
	target := e.TargetStock
	if target <= 0 {
		target = 1
	}
	deviation := (float64(stock) - float64(target)) / float64(target)
	if deviation > 1 {
		deviation = 1
	} else if deviation < -1 {
		deviation = -1
	}
	price := e.Base * (1 - k*deviation)
	if price < e.Floor {
		price = e.Floor
	}
	if price > e.Ceil {
		price = e.Ceil
	}
	return price
}

// RoundCents rounds a price to whole cents. Price change events fire only
// when the rounded value moves.
func RoundCents(p float64) float64 {
	return math.Round(p*100) / 100
}

// MarketOf fetches the market component of an entity.
func MarketOf(w *ecs.World, id ecs.EntityID) (*Market, error) {
	c, err := w.Get(id, ecs.KindMarket)
	if err != nil {
		return nil, err
	}
	return c.(*Market), nil
}
