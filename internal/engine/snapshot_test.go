package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/talgya/solsim/internal/registry"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	reg := loadRegistry(t)
	cfg := testConfig()

	sim := BuildWorld(cfg, reg)
	sim.StepN(75)
	digest := sim.StateDigest()

	// Serialize the way persistence does.
	raw, err := json.Marshal(sim.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatal(err)
	}

	restored := New(cfg, reg)
	if err := restored.Restore(&snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.Tick != sim.Tick || restored.Seed != sim.Seed {
		t.Errorf("restored tick/seed %d/%d, want %d/%d",
			restored.Tick, restored.Seed, sim.Tick, sim.Seed)
	}
	if restored.StateDigest() != digest {
		t.Fatal("restore changed the state digest")
	}
	if restored.World.EntityCount() != sim.World.EntityCount() {
		t.Errorf("entity count %d, want %d",
			restored.World.EntityCount(), sim.World.EntityCount())
	}

	// Two sims resumed from the same snapshot stay in lockstep.
	var snap2 Snapshot
	if err := json.Unmarshal(raw, &snap2); err != nil {
		t.Fatal(err)
	}
	twin := New(cfg, reg)
	if err := twin.Restore(&snap2); err != nil {
		t.Fatal(err)
	}

	restored.StepN(60)
	twin.StepN(60)
	if restored.StateDigest() != twin.StateDigest() {
		t.Fatal("resumed twins diverged")
	}

	// Entity ids allocated after the resume do not collide with restored ids.
	fresh := restored.World.CreateEntity()
	for _, es := range snap.Entities {
		if es.ID == fresh {
			t.Fatalf("fresh entity id %d collides with restored id", fresh)
		}
	}
}

func TestRestoreRejectsRegistryDrift(t *testing.T) {
	reg := loadRegistry(t)
	cfg := testConfig()
	sim := BuildWorld(cfg, reg)
	snap := sim.Snapshot()

	drifted, err := registry.FromDefs(
		[]registry.ResourceDef{
			{ID: "iron_ore", Name: "Iron Ore", Tier: 0, BaseValue: 99, Category: "raw"},
			{ID: "refined_metal", Name: "Refined Metal", Tier: 1, BaseValue: 40, Category: "processed"},
		},
		[]registry.RecipeDef{{
			ID: "refine_metal", Name: "Refine Metal",
			Inputs:     map[string]int{"iron_ore": 2},
			Outputs:    map[string]int{"refined_metal": 1},
			CycleTicks: 10, Capacity: 50, Category: "processed",
		}},
	)
	if err != nil {
		t.Fatal(err)
	}

	other := New(cfg, drifted)
	if err := other.Restore(snap); err == nil ||
		!strings.Contains(err.Error(), "digest") {
		t.Fatalf("restore accepted drifted registry: %v", err)
	}
}

func TestObservationViews(t *testing.T) {
	reg := loadRegistry(t)
	sim := BuildWorld(testConfig(), reg)

	stations := sim.StationIDs()
	if len(stations) == 0 {
		t.Fatal("bootstrap produced no stations")
	}
	ships := sim.ShipIDs()
	if len(ships) == 0 {
		t.Fatal("bootstrap produced no ships")
	}

	v, err := sim.StationMarket(stations[0])
	if err != nil {
		t.Fatalf("station view: %v", err)
	}
	if v.Faction == "" {
		t.Error("bootstrap station has no owner")
	}
	if len(v.Prices) != len(reg.ResourceIDs()) {
		t.Errorf("station lists %d prices, want %d", len(v.Prices), len(reg.ResourceIDs()))
	}

	sv, err := sim.ShipState(ships[0])
	if err != nil {
		t.Fatalf("ship view: %v", err)
	}
	if sv.Faction == "" || sv.Capacity == 0 {
		t.Errorf("ship view = %+v", sv)
	}

	if _, err := sim.StationMarket(999999); err == nil {
		t.Error("bogus station id resolved")
	}
	if _, err := sim.FactionSummary("nobody"); err == nil {
		t.Error("bogus faction id resolved")
	}

	fv, err := sim.FactionSummary(sim.Factions.IDs()[0])
	if err != nil {
		t.Fatal(err)
	}
	if fv.Stations == 0 || fv.Ships == 0 {
		t.Errorf("faction summary counts = %+v", fv)
	}
}
