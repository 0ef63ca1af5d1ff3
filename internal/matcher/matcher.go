// Package matcher pairs opening and closing legs into round-trip trades.
//
// The matcher is total over its input: every leg ends up accounted for as a
// matched trade, a partial trade (close with no recorded open), or an open
// trade (open with no recorded close). Nothing past normalization can fail.
package matcher

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/roundtrip/internal/ledger"
	"github.com/eddiefleurent/roundtrip/internal/models"
)

// Matcher consumes legs in the caller-supplied order and emits trades.
// It owns a fresh ledger per run; reusing a Matcher across unrelated imports
// would leak open positions between datasets.
type Matcher struct {
	policy models.MatchPolicy
	book   *ledger.Ledger
	log    logrus.FieldLogger
}

// New returns a matcher with an empty position ledger.
func New(policy models.MatchPolicy, log logrus.FieldLogger) *Matcher {
	return &Matcher{
		policy: policy,
		book:   ledger.New(),
		log:    log,
	}
}

// Process runs the full leg sequence through the ledger and returns the
// emitted trades: matched round trips in close order, then one partial trade
// per unmatched close remainder, then one open trade per leftover position.
//
// The caller controls leg ordering. Determinism requires replaying the same
// ordering with the same policy; reordering legs changes the output.
func (m *Matcher) Process(legs []models.Leg) []models.Trade {
	var trades []models.Trade

	for _, leg := range legs {
		switch leg.Action {
		case models.ActionOpen:
			if leg.Quantity <= 0 {
				m.log.WithField("row", leg.Row).Warn("open leg with non-positive quantity skipped")
				continue
			}
			m.book.Push(models.NewOpenPosition(leg))
		case models.ActionClose:
			trades = append(trades, m.matchClose(leg)...)
		default:
			// Normalizer guarantees a valid action; skip defensively.
			m.log.WithField("row", leg.Row).Warn("leg with unknown action skipped")
		}
	}

	for _, pos := range m.book.Drain() {
		trades = append(trades, m.openTrade(pos))
	}

	return trades
}

// matchClose consumes ledger entries until the closing quantity is exhausted
// or no open positions remain for the contract key. Each matched slice
// becomes one trade carrying the proportional share of both sides.
func (m *Matcher) matchClose(leg models.Leg) []models.Trade {
	var trades []models.Trade

	if leg.Quantity <= 0 {
		// Normalizer rejects these; guard keeps the matcher total anyway.
		m.log.WithField("row", leg.Row).Warn("close leg with non-positive quantity skipped")
		return nil
	}

	remaining := leg.Quantity
	closePerContract := leg.Amount.Div(decimal.NewFromInt(int64(leg.Quantity)))

	for remaining > 0 {
		entry := m.selectEntry(leg.Key)
		if entry == nil {
			break
		}

		matched := remaining
		if entry.RemainingQuantity < matched {
			matched = entry.RemainingQuantity
		}

		qty := decimal.NewFromInt(int64(matched))
		openAmount := entry.AmountPerContract.Mul(qty)
		closeAmount := closePerContract.Mul(qty)

		trade := models.Trade{
			ID:        uuid.NewString(),
			Key:       leg.Key,
			Strategy:  models.SingleLegLabel(leg.Key.OptionType, entry.Direction),
			Direction: entry.Direction,
			OpenDate:  entry.Date,
			CloseDate: leg.Date,
			Quantity:  matched,
		}
		// Direction-aware assignment: a short open collected premium
		// (credit) and paid to close (debit); a long open is the mirror.
		// This holds whether the entry came from the FIFO head or the
		// LIFO tail.
		if entry.Direction == models.DirectionShort {
			trade.Credit = openAmount.Abs()
			trade.Debit = closeAmount.Abs()
		} else {
			trade.Debit = openAmount.Abs()
			trade.Credit = closeAmount.Abs()
		}
		trades = append(trades, trade)

		m.book.Decrement(entry, matched)
		remaining -= matched
	}

	if remaining > 0 {
		trades = append(trades, m.partialTrade(leg, remaining, closePerContract))
	}

	return trades
}

// selectEntry picks the ledger entry the policy dictates: oldest open for
// FIFO, most recent open for LIFO.
func (m *Matcher) selectEntry(key models.ContractKey) *models.OpenPosition {
	if m.policy == models.LIFO {
		return m.book.PeekTail(key)
	}
	return m.book.PeekHead(key)
}

// partialTrade accounts for closing quantity with no recorded open, which
// usually means the opening transaction predates the export's date range.
// Only the close side of the cash flow is known.
func (m *Matcher) partialTrade(leg models.Leg, qty int, closePerContract decimal.Decimal) models.Trade {
	closeAmount := closePerContract.Mul(decimal.NewFromInt(int64(qty)))

	trade := models.Trade{
		ID:        uuid.NewString(),
		Key:       leg.Key,
		Strategy:  models.SingleLegLabel(leg.Key.OptionType, leg.Direction),
		Direction: leg.Direction,
		CloseDate: leg.Date,
		Quantity:  qty,
		IsPartial: true,
	}
	if leg.Direction == models.DirectionShort {
		// Buy-to-close on an absent short: cash out, credit unknown.
		trade.Debit = closeAmount.Abs()
	} else {
		// Sell-to-close on an absent long: cash in, debit unknown.
		trade.Credit = closeAmount.Abs()
	}

	m.log.WithFields(logrus.Fields{
		"contract": leg.Key.String(),
		"quantity": qty,
		"row":      leg.Row,
	}).Warn("close leg without matching open; emitting partial trade")

	return trade
}

// openTrade accounts for remaining open quantity with no close by the end of
// processing. Its carry amount is excluded from closed P/L.
func (m *Matcher) openTrade(pos *models.OpenPosition) models.Trade {
	openAmount := pos.AmountPerContract.Mul(decimal.NewFromInt(int64(pos.RemainingQuantity)))

	trade := models.Trade{
		ID:        uuid.NewString(),
		Key:       pos.Key,
		Strategy:  models.SingleLegLabel(pos.Key.OptionType, pos.Direction),
		Direction: pos.Direction,
		OpenDate:  pos.Date,
		Quantity:  pos.RemainingQuantity,
		IsOpen:    true,
	}
	if pos.Direction == models.DirectionShort {
		trade.Credit = openAmount.Abs()
	} else {
		trade.Debit = openAmount.Abs()
	}
	return trade
}
