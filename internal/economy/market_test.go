package economy

import (
	"testing"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/event"
)

func entry(base float64, target int) *MarketEntry {
	m := NewMarket(0)
	m.List("res", base, target, 0.1, 10.0)
	return m.Entries["res"]
}

func TestComputePrice(t *testing.T) {
	e := entry(100, 100)
	k := 0.5

	cases := []struct {
		stock int
		want  float64
	}{
		{100, 100},  // at target: base
		{0, 150},    // empty: deviation -1, base*(1+k)
		{200, 50},   // double: deviation +1, base*(1-k)
		{1000, 50},  // deviation clamps at +1
		{150, 75},   // halfway: base*(1-0.25)
		{50, 125},   // deficit: base*(1+0.25)
	}
	for _, tc := range cases {
		if got := ComputePrice(e, tc.stock, k); got != tc.want {
			t.Errorf("ComputePrice(stock=%d) = %v, want %v", tc.stock, got, tc.want)
		}
	}
}

func TestComputePriceClamps(t *testing.T) {
	// With k large enough the raw rule would leave [floor, ceil].
	e := entry(100, 100)
	if got := ComputePrice(e, 0, 20); got != e.Ceil {
		t.Errorf("oversupply of demand: got %v, want ceil %v", got, e.Ceil)
	}
	if got := ComputePrice(e, 200, 20); got != e.Floor {
		t.Errorf("glut: got %v, want floor %v", got, e.Floor)
	}
}

func TestComputePriceMonotone(t *testing.T) {
	e := entry(50, 100)
	prev := ComputePrice(e, 0, 0.5)
	for stock := 1; stock <= 250; stock++ {
		p := ComputePrice(e, stock, 0.5)
		if p > prev {
			t.Fatalf("price rose from %v to %v as stock grew to %d", prev, p, stock)
		}
		prev = p
	}
}

func TestComputePriceZeroTarget(t *testing.T) {
	m := NewMarket(0)
	m.List("res", 100, 0, 0.1, 10.0)
	e := m.Entries["res"]
	// Must not divide by zero; any stock reads as a surplus.
	if got := ComputePrice(e, 5, 0.5); got != 50 {
		t.Errorf("zero target: got %v, want 50", got)
	}
}

func TestRepriceEmitsOnlyOnRoundedChange(t *testing.T) {
	w := ecs.NewWorld()
	bus := event.NewBus(0)
	id := w.CreateEntity()

	inv := NewInventory(1000)
	inv.Add("res", 100)
	market := NewMarket(0)
	market.List("res", 100, 100, 0.1, 10.0)

	w.Attach(id, ecs.KindInventory, inv)
	w.Attach(id, ecs.KindMarket, market)

	var events []event.PriceChanged
	bus.Subscribe(event.KindPriceChanged, func(e event.Event) {
		events = append(events, e.(event.PriceChanged))
	})

	sys := &System{World: w, Bus: bus, P: Params{Elasticity: 0.5}}

	// Stock equals target: price stays at base, no event.
	sys.Run(1)
	if len(events) != 0 {
		t.Fatalf("no-change tick emitted %d events", len(events))
	}

	// Stock moves: price moves, one event with rounded values.
	inv.Add("res", 100)
	sys.Run(2)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.OldPrice != 100 || ev.NewPrice != 50 {
		t.Errorf("event prices %v -> %v, want 100 -> 50", ev.OldPrice, ev.NewPrice)
	}
	if ev.Station != id || ev.Resource != "res" {
		t.Errorf("event identity wrong: %+v", ev)
	}

	// Same stock again: no further event.
	sys.Run(3)
	if len(events) != 1 {
		t.Errorf("steady state emitted %d extra events", len(events)-1)
	}
}

func TestRepriceParallelMatchesSerial(t *testing.T) {
	build := func() (*ecs.World, *event.Bus) {
		w := ecs.NewWorld()
		for i := 0; i < 8; i++ {
			id := w.CreateEntity()
			inv := NewInventory(500)
			inv.Add("a", 30+i*20)
			inv.Add("b", 200-i*10)
			m := NewMarket(0)
			m.List("a", 10, 100, 0.1, 10.0)
			m.List("b", 40, 100, 0.1, 10.0)
			w.Attach(id, ecs.KindInventory, inv)
			w.Attach(id, ecs.KindMarket, m)
		}
		return w, event.NewBus(0)
	}

	run := func(workers int) []event.Event {
		w, bus := build()
		sys := &System{World: w, Bus: bus, P: Params{Elasticity: 0.5, Workers: workers}}
		sys.Run(1)
		return bus.Log()
	}

	serial := run(0)
	parallel := run(4)
	if len(serial) != len(parallel) {
		t.Fatalf("serial emitted %d events, parallel %d", len(serial), len(parallel))
	}
	for i := range serial {
		a := serial[i].(event.PriceChanged)
		b := parallel[i].(event.PriceChanged)
		if a != b {
			t.Errorf("event %d differs: serial %+v parallel %+v", i, a, b)
		}
	}
}

func TestFlowRing(t *testing.T) {
	var r FlowRing
	for i := 0; i < FlowRingSize; i++ {
		r.Record(1)
	}
	if r.Sum() != FlowRingSize {
		t.Errorf("sum = %d, want %d", r.Sum(), FlowRingSize)
	}
	// Overwrite wraps: the oldest sample drops out.
	r.Record(-3)
	if r.Sum() != FlowRingSize-1-3 {
		t.Errorf("sum after wrap = %d, want %d", r.Sum(), FlowRingSize-4)
	}
}

func TestRoundCents(t *testing.T) {
	if got := RoundCents(1.005); got != 1.0 && got != 1.01 {
		t.Errorf("RoundCents(1.005) = %v", got)
	}
	if got := RoundCents(12.3449); got != 12.34 {
		t.Errorf("RoundCents(12.3449) = %v, want 12.34", got)
	}
	if got := RoundCents(12.345); got != 12.35 && got != 12.34 {
		t.Errorf("RoundCents(12.345) = %v", got)
	}
}
