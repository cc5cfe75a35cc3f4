// Package ledger is the single point through which credits and cargo move.
// Every transfer validates all preconditions before touching state, so a
// failed transaction leaves no partial effects, and every attempt lands in
// a bounded audit ring.
package ledger

import (
	"errors"
	"sync"

	"github.com/talgya/solsim/internal/ecs"
	"github.com/talgya/solsim/internal/economy"
)

var (
	// ErrInsufficientFunds means the paying party cannot cover the amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrInsufficientResources means the selling side lacks the stock.
	ErrInsufficientResources = errors.New("ledger: insufficient resources")
	// ErrInsufficientCapacity means the receiving side lacks the headroom.
	ErrInsufficientCapacity = errors.New("ledger: insufficient capacity")
)

// Party is anything holding a credit balance. Factions implement it; the
// ledger never needs to know what a faction is.
type Party interface {
	TreasuryBalance() float64
	AdjustTreasury(delta float64)
}

// Op classifies audit entries.
type Op string

const (
	OpCreditTransfer Op = "credit_transfer"
	OpTrade          Op = "trade"
	OpConstruction   Op = "construction"
)

// Entry is one audit record. Failed attempts are recorded with their error
// string so post-mortems can see what the AIs tried.
type Entry struct {
	Tick     uint64       `json:"tick"`
	Op       Op           `json:"op"`
	From     string       `json:"from"`
	To       string       `json:"to"`
	Credits  float64      `json:"credits"`
	Resource string       `json:"resource,omitempty"`
	Quantity int          `json:"quantity,omitempty"`
	Station  ecs.EntityID `json:"station,omitempty"`
	Ship     ecs.EntityID `json:"ship,omitempty"`
	OK       bool         `json:"ok"`
	Err      string       `json:"err,omitempty"`
}

// Ledger validates and applies transactions and keeps the audit ring.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	filled  bool
	limit   int
}

// New creates a ledger retaining the last limit audit entries.
func New(limit int) *Ledger {
	if limit <= 0 {
		limit = 1024
	}
	return &Ledger{entries: make([]Entry, 0, limit), limit: limit}
}

func (l *Ledger) record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) < l.limit {
		l.entries = append(l.entries, e)
		return
	}
	l.entries[l.next] = e
	l.next = (l.next + 1) % l.limit
	l.filled = true
}

// Entries returns the retained audit records, oldest first. The filter may
// be nil to return everything.
func (l *Ledger) Entries(filter func(Entry) bool) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	ordered := make([]Entry, 0, len(l.entries))
	if l.filled {
		ordered = append(ordered, l.entries[l.next:]...)
		ordered = append(ordered, l.entries[:l.next]...)
	} else {
		ordered = append(ordered, l.entries...)
	}
	if filter == nil {
		return ordered
	}
	out := ordered[:0:0]
	for _, e := range ordered {
		if filter(e) {
			out = append(out, e)
		}
	}
	return out
}

// TransferCredits moves credits between two parties, all or nothing.
func (l *Ledger) TransferCredits(tick uint64, fromName string, from Party, toName string, to Party, amount float64) error {
	e := Entry{Tick: tick, Op: OpCreditTransfer, From: fromName, To: toName, Credits: amount}
	if amount <= 0 || from.TreasuryBalance() < amount {
		e.Err = ErrInsufficientFunds.Error()
		l.record(e)
		return ErrInsufficientFunds
	}
	from.AdjustTreasury(-amount)
	to.AdjustTreasury(amount)
	e.OK = true
	l.record(e)
	return nil
}

// Charge deducts a one-sided cost (station construction, ship commissioning)
// from a party's treasury.
func (l *Ledger) Charge(tick uint64, name string, p Party, amount float64) error {
	e := Entry{Tick: tick, Op: OpConstruction, From: name, Credits: amount}
	if amount < 0 || p.TreasuryBalance() < amount {
		e.Err = ErrInsufficientFunds.Error()
		l.record(e)
		return ErrInsufficientFunds
	}
	p.AdjustTreasury(-amount)
	e.OK = true
	l.record(e)
	return nil
}

// Trade is a fully specified cargo/credit exchange. Goods move from seller
// inventory to buyer inventory; credits move from the buyer's party to the
// seller's party.
type Trade struct {
	Tick      uint64
	Resource  string
	Quantity  int
	UnitPrice float64

	SellerInv *economy.Inventory
	BuyerInv  *economy.Inventory

	BuyerName  string
	Buyer      Party
	SellerName string
	Seller     Party

	// For the audit trail only.
	Station ecs.EntityID
	Ship    ecs.EntityID
}

// ExecuteTrade checks stock, headroom, and funds, then applies the whole
// exchange. On any failed precondition nothing moves.
func (l *Ledger) ExecuteTrade(t Trade) error {
	total := float64(t.Quantity) * t.UnitPrice
	e := Entry{
		Tick: t.Tick, Op: OpTrade,
		From: t.BuyerName, To: t.SellerName,
		Credits: total, Resource: t.Resource, Quantity: t.Quantity,
		Station: t.Station, Ship: t.Ship,
	}

	var err error
	switch {
	case t.Quantity <= 0:
		err = ErrInsufficientResources
	case !t.SellerInv.Has(t.Resource, t.Quantity):
		err = ErrInsufficientResources
	case t.BuyerInv.Free() < t.Quantity:
		err = ErrInsufficientCapacity
	case t.Buyer.TreasuryBalance() < total:
		err = ErrInsufficientFunds
	}
	if err != nil {
		e.Err = err.Error()
		l.record(e)
		return err
	}

	t.SellerInv.Remove(t.Resource, t.Quantity)
	t.BuyerInv.Add(t.Resource, t.Quantity)
	t.Buyer.AdjustTreasury(-total)
	t.Seller.AdjustTreasury(total)

	e.OK = true
	l.record(e)
	return nil
}
