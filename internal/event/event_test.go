package event

import (
	"testing"
)

func TestBusDispatch(t *testing.T) {
	b := NewBus(0)

	var priced, all int
	b.Subscribe(KindPriceChanged, func(e Event) { priced++ })
	b.SubscribeAll(func(e Event) { all++ })

	b.Publish(PriceChanged{AtTick: 1, Resource: "fuel", OldPrice: 10, NewPrice: 11})
	b.Publish(TradeExecuted{AtTick: 1, Resource: "fuel", Quantity: 5})

	if priced != 1 {
		t.Errorf("kind handler ran %d times, want 1", priced)
	}
	if all != 2 {
		t.Errorf("all handler ran %d times, want 2", all)
	}
}

func TestBusLogOrderAndBound(t *testing.T) {
	b := NewBus(3)
	for i := 1; i <= 5; i++ {
		b.Publish(PriceChanged{AtTick: uint64(i)})
	}
	log := b.Log()
	if len(log) != 3 {
		t.Fatalf("retained %d events, want 3", len(log))
	}
	for i, e := range log {
		if want := uint64(i + 3); e.Tick() != want {
			t.Errorf("log[%d] tick = %d, want %d", i, e.Tick(), want)
		}
	}
}

func TestLogSince(t *testing.T) {
	b := NewBus(0)
	for i := 1; i <= 5; i++ {
		b.Publish(DividendPaid{AtTick: uint64(i)})
	}
	since := b.LogSince(4)
	if len(since) != 2 {
		t.Fatalf("LogSince(4) returned %d events, want 2", len(since))
	}
	if since[0].Tick() != 4 || since[1].Tick() != 5 {
		t.Errorf("LogSince ticks %d,%d, want 4,5", since[0].Tick(), since[1].Tick())
	}
}
