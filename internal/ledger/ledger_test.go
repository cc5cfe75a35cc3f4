package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/talgya/solsim/internal/economy"
)

type treasury struct{ balance float64 }

func (t *treasury) TreasuryBalance() float64    { return t.balance }
func (t *treasury) AdjustTreasury(delta float64) { t.balance += delta }

func TestTransferCredits(t *testing.T) {
	l := New(16)
	a := &treasury{balance: 100}
	b := &treasury{balance: 0}

	if err := l.TransferCredits(1, "a", a, "b", b, 60); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if a.balance != 40 || b.balance != 60 {
		t.Errorf("balances %v/%v, want 40/60", a.balance, b.balance)
	}

	err := l.TransferCredits(2, "a", a, "b", b, 60)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if a.balance != 40 || b.balance != 60 {
		t.Errorf("failed transfer moved credits: %v/%v", a.balance, b.balance)
	}
}

func TestExecuteTradeAtomic(t *testing.T) {
	seller := economy.NewInventory(100)
	seller.Add("fuel", 10)
	buyer := economy.NewInventory(100)
	buyerParty := &treasury{balance: 50}
	sellerParty := &treasury{balance: 0}

	l := New(16)
	base := Trade{
		Tick: 1, Resource: "fuel", Quantity: 5, UnitPrice: 6,
		SellerInv: seller, BuyerInv: buyer,
		BuyerName: "buyer", Buyer: buyerParty,
		SellerName: "seller", Seller: sellerParty,
	}

	if err := l.ExecuteTrade(base); err != nil {
		t.Fatalf("trade: %v", err)
	}
	if seller.Count("fuel") != 5 || buyer.Count("fuel") != 5 {
		t.Errorf("stock %d/%d, want 5/5", seller.Count("fuel"), buyer.Count("fuel"))
	}
	if buyerParty.balance != 20 || sellerParty.balance != 30 {
		t.Errorf("balances %v/%v, want 20/30", buyerParty.balance, sellerParty.balance)
	}

	// Each failed precondition leaves every side untouched.
	fail := []struct {
		name   string
		mutate func(*Trade)
		want   error
	}{
		{"zero quantity", func(tr *Trade) { tr.Quantity = 0 }, ErrInsufficientResources},
		{"seller short", func(tr *Trade) { tr.Quantity = 50 }, ErrInsufficientResources},
		{"buyer full", func(tr *Trade) {
			tr.BuyerInv = economy.NewInventory(2)
		}, ErrInsufficientCapacity},
		{"buyer broke", func(tr *Trade) { tr.UnitPrice = 1000 }, ErrInsufficientFunds},
	}
	for _, tc := range fail {
		t.Run(tc.name, func(t *testing.T) {
			tr := base
			tr.Tick = 2
			tc.mutate(&tr)
			if err := l.ExecuteTrade(tr); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if seller.Count("fuel") != 5 || buyer.Count("fuel") != 5 {
				t.Errorf("failed trade moved stock")
			}
			if buyerParty.balance != 20 || sellerParty.balance != 30 {
				t.Errorf("failed trade moved credits")
			}
		})
	}
}

func TestChargeRejectsOverdraft(t *testing.T) {
	l := New(16)
	p := &treasury{balance: 800}
	if err := l.Charge(1, "p", p, 1000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if p.balance != 800 {
		t.Errorf("failed charge moved credits: %v", p.balance)
	}
	if err := l.Charge(2, "p", p, 500); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if p.balance != 300 {
		t.Errorf("balance = %v, want 300", p.balance)
	}
}

func TestAuditRing(t *testing.T) {
	l := New(4)
	p := &treasury{balance: 1000000}
	for i := 1; i <= 6; i++ {
		l.Charge(uint64(i), fmt.Sprintf("p%d", i), p, 1)
	}

	got := l.Entries(nil)
	if len(got) != 4 {
		t.Fatalf("retained %d entries, want 4", len(got))
	}
	// Oldest first, with the first two evicted.
	for i, e := range got {
		if want := uint64(i + 3); e.Tick != want {
			t.Errorf("entry %d tick = %d, want %d", i, e.Tick, want)
		}
	}

	failed := l.Entries(func(e Entry) bool { return !e.OK })
	if len(failed) != 0 {
		t.Errorf("unexpected failed entries: %v", failed)
	}
}
