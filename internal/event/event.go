// Package event carries the typed simulation events and the bus that
// dispatches them. Dispatch is synchronous and in publish order so two runs
// from the same state produce identical event logs.
package event

import (
	"sync"

	"github.com/talgya/solsim/internal/ecs"
)

// Kind discriminates event types on the wire and in subscriptions.
type Kind string

const (
	KindPriceChanged        Kind = "price_changed"
	KindProductionCompleted Kind = "production_completed"
	KindTradeExecuted       Kind = "trade_executed"
	KindStationFounded      Kind = "station_founded"
	KindShipCommissioned    Kind = "ship_commissioned"
	KindDividendPaid        Kind = "dividend_paid"
	KindEntityDestroyed     Kind = "entity_destroyed"
)

// Event is implemented by every concrete event.
type Event interface {
	EventKind() Kind
	Tick() uint64
}

// PriceChanged fires when a station's posted price for a resource moves by
// at least one cent after rounding.
type PriceChanged struct {
	AtTick   uint64       `json:"tick"`
	Station  ecs.EntityID `json:"station"`
	Resource string       `json:"resource"`
	OldPrice float64      `json:"old_price"`
	NewPrice float64      `json:"new_price"`
}

func (e PriceChanged) EventKind() Kind { return KindPriceChanged }
func (e PriceChanged) Tick() uint64    { return e.AtTick }

// ProductionCompleted fires once per finished recipe cycle.
type ProductionCompleted struct {
	AtTick  uint64         `json:"tick"`
	Station ecs.EntityID   `json:"station"`
	Recipe  string         `json:"recipe"`
	Outputs map[string]int `json:"outputs"`
}

func (e ProductionCompleted) EventKind() Kind { return KindProductionCompleted }
func (e ProductionCompleted) Tick() uint64    { return e.AtTick }

// TradeExecuted fires after an atomic cargo/credit exchange settles.
type TradeExecuted struct {
	AtTick   uint64       `json:"tick"`
	Ship     ecs.EntityID `json:"ship"`
	Station  ecs.EntityID `json:"station"`
	Resource string       `json:"resource"`
	Quantity int          `json:"quantity"`
	Credits  float64      `json:"credits"`
	// Side is "buy" when the ship bought from the station, "sell" otherwise.
	Side string `json:"side"`
}

func (e TradeExecuted) EventKind() Kind { return KindTradeExecuted }
func (e TradeExecuted) Tick() uint64    { return e.AtTick }

// StationFounded fires when a faction completes a new outpost.
type StationFounded struct {
	AtTick  uint64       `json:"tick"`
	Station ecs.EntityID `json:"station"`
	Faction string       `json:"faction"`
	Cost    float64      `json:"cost"`
	X       float64      `json:"x"`
	Y       float64      `json:"y"`
}

func (e StationFounded) EventKind() Kind { return KindStationFounded }
func (e StationFounded) Tick() uint64    { return e.AtTick }

// ShipCommissioned fires when a faction deploys a new trade ship.
type ShipCommissioned struct {
	AtTick      uint64       `json:"tick"`
	Ship        ecs.EntityID `json:"ship"`
	Faction     string       `json:"faction"`
	HomeStation ecs.EntityID `json:"home_station"`
	Cost        float64      `json:"cost"`
}

func (e ShipCommissioned) EventKind() Kind { return KindShipCommissioned }
func (e ShipCommissioned) Tick() uint64    { return e.AtTick }

// DividendPaid fires when a station sweeps surplus credits to its owner.
type DividendPaid struct {
	AtTick  uint64       `json:"tick"`
	Station ecs.EntityID `json:"station"`
	Faction string       `json:"faction"`
	Amount  float64      `json:"amount"`
}

func (e DividendPaid) EventKind() Kind { return KindDividendPaid }
func (e DividendPaid) Tick() uint64    { return e.AtTick }

// EntityDestroyed fires at the end-of-tick flush for each removed entity.
type EntityDestroyed struct {
	AtTick uint64       `json:"tick"`
	Entity ecs.EntityID `json:"entity"`
}

func (e EntityDestroyed) EventKind() Kind { return KindEntityDestroyed }
func (e EntityDestroyed) Tick() uint64    { return e.AtTick }

// Handler receives events synchronously on the publishing goroutine.
type Handler func(Event)

// Bus dispatches events to subscribers and keeps a bounded ordered log of
// the current run. Publishing is serialized; handler order is subscription
// order, which the engine fixes at wiring time.
type Bus struct {
	mu       sync.Mutex
	byKind   map[Kind][]Handler
	all      []Handler
	log      []Event
	logLimit int
}

// NewBus creates a bus retaining at most logLimit events (0 means unbounded).
func NewBus(logLimit int) *Bus {
	return &Bus{
		byKind:   make(map[Kind][]Handler),
		logLimit: logLimit,
	}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byKind[kind] = append(b.byKind[kind], h)
}

// SubscribeAll registers a handler for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish appends the event to the log and dispatches it synchronously.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.log = append(b.log, e)
	if b.logLimit > 0 && len(b.log) > b.logLimit {
		b.log = b.log[len(b.log)-b.logLimit:]
	}
	kindSubs := b.byKind[e.EventKind()]
	allSubs := b.all
	b.mu.Unlock()

	for _, h := range kindSubs {
		h(e)
	}
	for _, h := range allSubs {
		h(e)
	}
}

// Log returns a copy of the retained event log in publish order.
func (b *Bus) Log() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.log))
	copy(out, b.log)
	return out
}

// LogSince returns retained events at or after the given tick.
func (b *Bus) LogSince(tick uint64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.log {
		if e.Tick() >= tick {
			out = append(out, e)
		}
	}
	return out
}
