// Package faction holds faction state and the strategic AI that spends
// treasuries on new outposts and trade ships.
package faction

import (
	"sort"

	"github.com/talgya/solsim/internal/ecs"
)

// Kind loosely classifies a faction. Purely descriptive.
type Kind string

const (
	KindGovernment  Kind = "government"
	KindCorporation Kind = "corporation"
	KindIndependent Kind = "independent"
)

// Faction is a strategic actor with a treasury and a posture.
type Faction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	Treasury float64 `json:"treasury"`

	// Posture in [0,1] weighs expansion against fleet buildup:
	// 1 founds stations, 0 commissions ships.
	Posture float64 `json:"posture"`

	HomeStation ecs.EntityID `json:"home_station"`
}

// TreasuryBalance implements ledger.Party.
func (f *Faction) TreasuryBalance() float64 { return f.Treasury }

// AdjustTreasury implements ledger.Party.
func (f *Faction) AdjustTreasury(delta float64) { f.Treasury += delta }

// Member marks an entity as owned by a faction.
type Member struct {
	FactionID string `json:"faction_id"`
}

// MemberOf fetches the membership component of an entity.
func MemberOf(w *ecs.World, id ecs.EntityID) (*Member, error) {
	c, err := w.Get(id, ecs.KindFactionMember)
	if err != nil {
		return nil, err
	}
	return c.(*Member), nil
}

// Manager owns all faction records and answers ownership lookups for the
// other systems.
type Manager struct {
	factions map[string]*Faction
	ids      []string // sorted
}

// NewManager creates an empty faction roster.
func NewManager() *Manager {
	return &Manager{factions: make(map[string]*Faction)}
}

// Add registers a faction. Re-adding an id replaces the record.
func (m *Manager) Add(f *Faction) {
	if _, exists := m.factions[f.ID]; !exists {
		m.ids = append(m.ids, f.ID)
		sort.Strings(m.ids)
	}
	m.factions[f.ID] = f
}

// Get returns a faction by id.
func (m *Manager) Get(id string) (*Faction, bool) {
	f, ok := m.factions[id]
	return f, ok
}

// IDs returns all faction ids, sorted.
func (m *Manager) IDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// OwnerOf reports the owning faction of an entity, for wiring into the
// economy and trade systems.
func (m *Manager) OwnerOf(w *ecs.World) func(ecs.EntityID) (string, bool) {
	return func(id ecs.EntityID) (string, bool) {
		member, err := MemberOf(w, id)
		if err != nil {
			return "", false
		}
		if _, ok := m.factions[member.FactionID]; !ok {
			return "", false
		}
		return member.FactionID, true
	}
}
