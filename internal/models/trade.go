package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenPosition is a live ledger entry: an opening leg whose quantity has not
// yet been fully consumed by closing legs. It is owned exclusively by the
// position ledger and mutated only through it.
//
// Invariants: RemainingQuantity > 0 for every live entry; AmountPerContract
// is fixed at creation (original amount / original quantity) and never
// recomputed, so proportional splits always sum back to the original amount.
type OpenPosition struct {
	Key               ContractKey     `json:"key"`
	Date              time.Time       `json:"date"`
	Direction         Direction       `json:"direction"`
	RemainingQuantity int             `json:"remaining_quantity"`
	AmountPerContract decimal.Decimal `json:"amount_per_contract"`
	OriginalQuantity  int             `json:"original_quantity"`
}

// NewOpenPosition creates a ledger entry from an opening leg.
func NewOpenPosition(leg Leg) *OpenPosition {
	return &OpenPosition{
		Key:               leg.Key,
		Date:              leg.Date,
		Direction:         leg.Direction,
		RemainingQuantity: leg.Quantity,
		AmountPerContract: leg.Amount.Div(decimal.NewFromInt(int64(leg.Quantity))),
		OriginalQuantity:  leg.Quantity,
	}
}

// Trade is the engine's output unit: a resolved pairing of opening and
// closing cash flows for some quantity of a contract. Trades are immutable
// once emitted, except that the classifier may overwrite Strategy with a
// composite label.
type Trade struct {
	ID       string      `json:"id"`
	Key      ContractKey `json:"key"`
	Strategy string      `json:"strategy"`
	// Direction of the underlying position: short for credit-opened trades,
	// long for debit-opened ones. On partial trades it is inferred from the
	// closing code.
	Direction Direction `json:"direction"`
	OpenDate  time.Time `json:"open_date,omitempty"`
	CloseDate time.Time `json:"close_date,omitempty"`
	// Credit and Debit are unsigned magnitudes: Credit is cash received,
	// Debit is cash paid, regardless of which side opened the trade.
	Credit   decimal.Decimal `json:"credit"`
	Debit    decimal.Decimal `json:"debit"`
	Quantity int             `json:"quantity"`
	// IsPartial marks a closing leg with no matching opening leg in the
	// dataset; its P/L is necessarily incomplete.
	IsPartial bool `json:"is_partial"`
	// IsOpen marks a position still outstanding at the end of processing.
	IsOpen bool `json:"is_open"`
}

// PL returns credit minus debit. For open trades this is an unrealized
// carry amount and is excluded from closed P/L by the report.
func (t *Trade) PL() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}
