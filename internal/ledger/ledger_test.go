package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/roundtrip/internal/models"
)

var spyPut = models.ContractKey{Symbol: "SPY", OptionType: models.Put, Strike: 450, Expiry: "2025-03-21"}

func openLeg(key models.ContractKey, day int, qty int, amount int64) models.Leg {
	return models.Leg{
		Key:       key,
		Date:      time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Action:    models.ActionOpen,
		Direction: models.DirectionShort,
		Quantity:  qty,
		Amount:    decimal.NewFromInt(amount),
	}
}

func TestPushPeekOrdering(t *testing.T) {
	l := New()
	first := models.NewOpenPosition(openLeg(spyPut, 6, 1, 100))
	second := models.NewOpenPosition(openLeg(spyPut, 7, 1, 110))
	l.Push(first)
	l.Push(second)

	if got := l.PeekHead(spyPut); got != first {
		t.Fatalf("PeekHead returned %+v, want first-pushed entry", got)
	}
	if got := l.PeekTail(spyPut); got != second {
		t.Fatalf("PeekTail returned %+v, want last-pushed entry", got)
	}
	if got := l.Len(spyPut); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}

func TestPeekEmptyKeyReturnsNil(t *testing.T) {
	l := New()
	missing := models.ContractKey{Symbol: "QQQ", OptionType: models.Call, Strike: 400, Expiry: "2025-06-20"}
	if l.PeekHead(missing) != nil || l.PeekTail(missing) != nil {
		t.Fatal("peek on unknown key should return nil")
	}
}

func TestDecrementPartialKeepsEntry(t *testing.T) {
	l := New()
	pos := models.NewOpenPosition(openLeg(spyPut, 6, 3, 300))
	l.Push(pos)

	l.Decrement(pos, 1)
	if pos.RemainingQuantity != 2 {
		t.Fatalf("RemainingQuantity = %d, want 2", pos.RemainingQuantity)
	}
	if l.PeekHead(spyPut) != pos {
		t.Fatal("partially consumed entry should stay in the ledger")
	}
}

func TestDecrementToZeroRemovesEntry(t *testing.T) {
	l := New()
	head := models.NewOpenPosition(openLeg(spyPut, 6, 1, 100))
	tail := models.NewOpenPosition(openLeg(spyPut, 7, 2, 220))
	l.Push(head)
	l.Push(tail)

	l.Decrement(head, 1)
	if l.Len(spyPut) != 1 || l.PeekHead(spyPut) != tail {
		t.Fatal("exhausted head should be removed, leaving the tail")
	}

	l.Decrement(tail, 2)
	if l.Len(spyPut) != 0 {
		t.Fatalf("Len = %d after exhausting both entries, want 0", l.Len(spyPut))
	}
}

func TestDecrementTailRemoval(t *testing.T) {
	l := New()
	head := models.NewOpenPosition(openLeg(spyPut, 6, 1, 100))
	tail := models.NewOpenPosition(openLeg(spyPut, 7, 1, 110))
	l.Push(head)
	l.Push(tail)

	l.Decrement(tail, 1)
	if l.Len(spyPut) != 1 || l.PeekTail(spyPut) != head {
		t.Fatal("exhausted tail should be removed, leaving the head")
	}
}

func TestDrainOrderAndEmpty(t *testing.T) {
	l := New()
	qqqCall := models.ContractKey{Symbol: "QQQ", OptionType: models.Call, Strike: 400, Expiry: "2025-06-20"}

	a := models.NewOpenPosition(openLeg(spyPut, 6, 1, 100))
	b := models.NewOpenPosition(openLeg(qqqCall, 7, 1, 110))
	c := models.NewOpenPosition(openLeg(spyPut, 8, 1, 120))
	l.Push(a)
	l.Push(b)
	l.Push(c)

	got := l.Drain()
	want := []*models.OpenPosition{a, c, b} // first-push key order, then queue order
	if len(got) != len(want) {
		t.Fatalf("Drain returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Drain()[%d] = %v, want %v", i, got[i].Key, want[i].Key)
		}
	}

	if l.Len(spyPut) != 0 || l.Len(qqqCall) != 0 {
		t.Fatal("ledger should be empty after Drain")
	}
	if len(l.Drain()) != 0 {
		t.Fatal("second Drain should return nothing")
	}
}
