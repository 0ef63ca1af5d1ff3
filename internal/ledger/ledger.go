// Package ledger holds open positions awaiting their closing legs.
//
// A Ledger is owned by exactly one import run: it is created fresh for each
// reconciliation pass and never shared, so it needs no locking. Entries for
// a contract key are kept in insertion order; the matcher consumes them from
// the head (FIFO) or the tail (LIFO) depending on the source's match policy.
package ledger

import (
	"github.com/eddiefleurent/roundtrip/internal/models"
)

// Ledger is an ordered, per-contract-key collection of open positions.
type Ledger struct {
	queues map[models.ContractKey][]*models.OpenPosition
	// keys records first-seen order so draining the ledger at the end of a
	// run is deterministic even though map iteration is not.
	keys []models.ContractKey
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		queues: make(map[models.ContractKey][]*models.OpenPosition),
	}
}

// Push appends an open position to the queue for its contract key.
func (l *Ledger) Push(pos *models.OpenPosition) {
	if _, ok := l.queues[pos.Key]; !ok {
		l.keys = append(l.keys, pos.Key)
	}
	l.queues[pos.Key] = append(l.queues[pos.Key], pos)
}

// PeekHead returns the oldest open position for the key, or nil if none.
func (l *Ledger) PeekHead(key models.ContractKey) *models.OpenPosition {
	q := l.queues[key]
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// PeekTail returns the most recent open position for the key, or nil if none.
func (l *Ledger) PeekTail(key models.ContractKey) *models.OpenPosition {
	q := l.queues[key]
	if len(q) == 0 {
		return nil
	}
	return q[len(q)-1]
}

// Len returns the number of live entries for the key.
func (l *Ledger) Len(key models.ContractKey) int {
	return len(l.queues[key])
}

// Decrement reduces the entry's remaining quantity by qty and removes the
// entry from its queue once the remaining quantity reaches zero. The entry
// must be a live member of this ledger (the matcher only ever passes the
// head or tail it just peeked).
func (l *Ledger) Decrement(pos *models.OpenPosition, qty int) {
	pos.RemainingQuantity -= qty
	if pos.RemainingQuantity > 0 {
		return
	}

	q := l.queues[pos.Key]
	switch {
	case len(q) > 0 && q[0] == pos:
		l.queues[pos.Key] = q[1:]
	case len(q) > 0 && q[len(q)-1] == pos:
		l.queues[pos.Key] = q[:len(q)-1]
	default:
		for i, entry := range q {
			if entry == pos {
				l.queues[pos.Key] = append(q[:i:i], q[i+1:]...)
				break
			}
		}
	}
}

// Drain removes and returns every remaining open position in first-push key
// order, then queue order. The ledger is empty afterwards.
func (l *Ledger) Drain() []*models.OpenPosition {
	var remaining []*models.OpenPosition
	for _, key := range l.keys {
		remaining = append(remaining, l.queues[key]...)
		delete(l.queues, key)
	}
	l.keys = nil
	return remaining
}
