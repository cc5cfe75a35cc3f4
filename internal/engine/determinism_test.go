package engine

import (
	"testing"

	"github.com/talgya/solsim/internal/config"
	"github.com/talgya/solsim/internal/economy"
	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/event"
	"github.com/talgya/solsim/internal/registry"
	"github.com/talgya/solsim/internal/trade"
)

func loadRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load("../../data")
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return reg
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Seed = 7
	// Serial pricing in one variant exercises order independence elsewhere.
	return cfg
}

func TestSameSeedSameRun(t *testing.T) {
	reg := loadRegistry(t)
	cfg := testConfig()

	a := BuildWorld(cfg, reg)
	b := BuildWorld(cfg, reg)

	if a.StateDigest() != b.StateDigest() {
		t.Fatal("same seed built different worlds")
	}

	a.StepN(150)
	b.StepN(150)

	if a.StateDigest() != b.StateDigest() {
		t.Fatal("same seed diverged after stepping")
	}

	logA, logB := a.Bus.Log(), b.Bus.Log()
	if len(logA) != len(logB) {
		t.Fatalf("event logs differ in length: %d vs %d", len(logA), len(logB))
	}
	for i := range logA {
		if logA[i].EventKind() != logB[i].EventKind() || logA[i].Tick() != logB[i].Tick() {
			t.Fatalf("event %d differs: %v@%d vs %v@%d", i,
				logA[i].EventKind(), logA[i].Tick(),
				logB[i].EventKind(), logB[i].Tick())
		}
	}
}

func TestWorkerCountInvariant(t *testing.T) {
	reg := loadRegistry(t)

	serial := testConfig()
	serial.Engine.Workers = 0
	parallel := testConfig()
	parallel.Engine.Workers = 8

	a := BuildWorld(serial, reg)
	b := BuildWorld(parallel, reg)
	a.StepN(100)
	b.StepN(100)

	if a.StateDigest() != b.StateDigest() {
		t.Fatal("worker count changed the run")
	}
	if len(a.Bus.Log()) != len(b.Bus.Log()) {
		t.Fatalf("worker count changed the event log: %d vs %d",
			len(a.Bus.Log()), len(b.Bus.Log()))
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	reg := loadRegistry(t)
	cfgA := testConfig()
	cfgB := testConfig()
	cfgB.Seed = 8

	a := BuildWorld(cfgA, reg)
	b := BuildWorld(cfgB, reg)
	if a.StateDigest() == b.StateDigest() {
		t.Fatal("different seeds built identical worlds")
	}
}

func TestTickRNGStable(t *testing.T) {
	reg := loadRegistry(t)
	s := New(testConfig(), reg)

	a := s.TickRNG(42)
	b := s.TickRNG(42)
	for i := 0; i < 10; i++ {
		if a.Int63() != b.Int63() {
			t.Fatal("TickRNG streams differ for the same tick")
		}
	}
	if s.TickRNG(1).Int63() == s.TickRNG(2).Int63() {
		t.Error("adjacent ticks drew the same first value")
	}
}

// With extraction and consumption switched off, total units across every
// inventory and cargo hold may change only by the declared input/output
// deltas of completed recipes. Trade moves stock, never creates it.
func TestMassConservation(t *testing.T) {
	reg := loadRegistry(t)
	cfg := testConfig()
	cfg.Faction.PeriodTicks = 100000 // founding would attach fresh extractors

	sim := BuildWorld(cfg, reg)
	for _, id := range sim.World.Query(ecs.KindPopulation) {
		sim.World.Detach(id, ecs.KindPopulation)
	}
	for _, id := range sim.World.Query(ecs.KindExtractor) {
		sim.World.Detach(id, ecs.KindExtractor)
	}

	recipeDelta := 0
	sim.Bus.Subscribe(event.KindProductionCompleted, func(e event.Event) {
		done := e.(event.ProductionCompleted)
		rec, ok := reg.Recipe(done.Recipe)
		if !ok {
			t.Errorf("completed unknown recipe %q", done.Recipe)
			return
		}
		for _, n := range rec.Outputs {
			recipeDelta += n
		}
		for _, n := range rec.Inputs {
			recipeDelta -= n
		}
	})

	total := func() int {
		sum := 0
		for _, id := range sim.World.Query(ecs.KindInventory) {
			inv, err := economy.InventoryOf(sim.World, id)
			if err != nil {
				t.Fatal(err)
			}
			sum += inv.Total()
		}
		for _, id := range sim.World.Query(ecs.KindTradeAgent) {
			agent, err := trade.AgentOf(sim.World, id)
			if err != nil {
				t.Fatal(err)
			}
			sum += agent.Cargo.Total()
		}
		return sum
	}

	before := total()
	sim.StepN(400)
	after := total()

	if after != before+recipeDelta {
		t.Errorf("units not conserved: %d before, %d after, recipes net %+d",
			before, after, recipeDelta)
	}
}

// Credits only move, never appear, while no population earns and no faction
// round spends. Production and trade must not mint or burn.
func TestCreditConservation(t *testing.T) {
	reg := loadRegistry(t)
	cfg := testConfig()
	cfg.Faction.PeriodTicks = 100000 // no construction burn in this window
	cfg.Economy.DividendPeriod = 50  // dividends still transfer

	sim := BuildWorld(cfg, reg)
	for _, id := range sim.World.Query(ecs.KindPopulation) {
		sim.World.Detach(id, ecs.KindPopulation)
	}

	total := func() float64 {
		sum := 0.0
		for _, fid := range sim.Factions.IDs() {
			f, _ := sim.Factions.Get(fid)
			sum += f.Treasury
		}
		for _, st := range sim.StationIDs() {
			v, err := sim.StationMarket(st)
			if err != nil {
				t.Fatal(err)
			}
			sum += v.Credits
		}
		return sum
	}

	before := total()
	sim.StepN(120)
	after := total()

	if diff := after - before; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("credits not conserved: %v before, %v after", before, after)
	}
}
