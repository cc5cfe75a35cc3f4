package economy

import (
	"sort"

	"github.com/talgya/solsim/internal/ecs"
)

// Population drives local demand at colony stations. Each population period
// it consumes station stock and deposits earned credits into the station
// market; dividend sweeps later move surplus credits to the owning faction.
type Population struct {
	// Count in thousands of inhabitants.
	Count int `json:"count"`
	Max   int `json:"max"`

	// Consumption is units drawn per period per listed resource.
	Consumption map[string]int `json:"consumption"`

	// CreditsPerCount earned per period at full satisfaction.
	CreditsPerCount float64 `json:"credits_per_count"`

	// Satisfaction in [0,1], a rolling blend of how fully the last
	// consumption rounds were met. Gates growth.
	Satisfaction float64 `json:"satisfaction"`
}

// consume draws one period of demand from the inventory and returns the
// fraction of demand that was met.
func (p *Population) consume(inv *Inventory) float64 {
	if len(p.Consumption) == 0 {
		return 1
	}
	met, want := 0.0, 0.0
	for _, res := range sortedIntKeys(p.Consumption) {
		need := p.Consumption[res] * p.Count
		if need <= 0 {
			continue
		}
		got := inv.Remove(res, need)
		met += float64(got)
		want += float64(need)
	}
	if want == 0 {
		return 1
	}
	return met / want
}

// step runs one population period: consumption, earnings, growth or decline.
// Returns the credits deposited into the station market.
func (p *Population) step(inv *Inventory) float64 {
	fraction := p.consume(inv)
	p.Satisfaction = p.Satisfaction*0.7 + fraction*0.3

	earned := float64(p.Count) * p.CreditsPerCount * p.Satisfaction

	switch {
	case p.Satisfaction > 0.8:
		grown := p.Count + max(1, p.Count/100)
		p.Count = min(grown, p.Max)
	case p.Satisfaction < 0.5:
		shrunk := p.Count - max(1, p.Count/50)
		p.Count = max(1, shrunk)
	}
	return earned
}

func sortedIntKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PopulationOf fetches the population component of an entity.
func PopulationOf(w *ecs.World, id ecs.EntityID) (*Population, error) {
	c, err := w.Get(id, ecs.KindPopulation)
	if err != nil {
		return nil, err
	}
	return c.(*Population), nil
}
