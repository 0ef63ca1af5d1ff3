// Package models defines the canonical types shared by the reconciliation
// engine: normalized transaction legs, open positions, and round-trip trades.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OptionType identifies the option contract type.
type OptionType string

const (
	// Call is a call option contract.
	Call OptionType = "call"
	// Put is a put option contract.
	Put OptionType = "put"
)

// Valid returns true if the OptionType is one of the defined constants.
func (t OptionType) Valid() bool {
	switch t {
	case Call, Put:
		return true
	default:
		return false
	}
}

// Label returns the capitalized display form used in strategy names.
func (t OptionType) Label() string {
	switch t {
	case Call:
		return "Call"
	case Put:
		return "Put"
	default:
		return "Unknown"
	}
}

// Action distinguishes opening legs from closing legs.
type Action string

const (
	// ActionOpen marks a leg that establishes a position (STO/BTO).
	ActionOpen Action = "open"
	// ActionClose marks a leg that unwinds a position (STC/BTC).
	ActionClose Action = "close"
)

// Valid returns true if the Action is one of the defined constants.
func (a Action) Valid() bool {
	return a == ActionOpen || a == ActionClose
}

// Direction is the direction of the position a leg belongs to. A closing leg
// carries the direction of the position it closes, not of the order itself:
// a buy-to-close leg is DirectionShort because it unwinds a short position.
type Direction string

const (
	// DirectionLong marks a bought (debit-opened) position.
	DirectionLong Direction = "long"
	// DirectionShort marks a sold (credit-opened) position.
	DirectionShort Direction = "short"
)

// Valid returns true if the Direction is one of the defined constants.
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Label returns the capitalized display form used in strategy names.
func (d Direction) Label() string {
	switch d {
	case DirectionLong:
		return "Long"
	case DirectionShort:
		return "Short"
	default:
		return "Unknown"
	}
}

// ContractKey identifies a unique option contract. It is comparable and used
// as the grouping key throughout the engine; Expiry is held in ISO form
// (2006-01-02) so that two normalized keys compare equal structurally.
type ContractKey struct {
	Symbol     string     `json:"symbol"`
	OptionType OptionType `json:"option_type"`
	Strike     float64    `json:"strike"`
	Expiry     string     `json:"expiry"`
}

// String formats the key for logs, e.g. "SPY 450 put 2025-03-21".
func (k ContractKey) String() string {
	return fmt.Sprintf("%s %g %s %s", k.Symbol, k.Strike, k.OptionType, k.Expiry)
}

// Leg is one normalized brokerage transaction line: a single option open or
// close event. Legs are immutable once produced by the normalizer; the
// matcher and classifier never see raw broker rows.
type Leg struct {
	Key        ContractKey     `json:"key"`
	Date       time.Time       `json:"date"`
	Action     Action          `json:"action"`
	Direction  Direction       `json:"direction"`
	Quantity   int             `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"` // signed: negative = cash paid, positive = received
	Code       string          `json:"code"`   // canonical transaction code (STO/BTO/STC/BTC)
	Suspicious bool            `json:"suspicious,omitempty"`
	Row        int             `json:"row"` // source row index, for diagnostics
}

// SingleLegLabel returns the default strategy label for a lone leg,
// e.g. "Short Put". Multi-leg structures overwrite it during classification.
func SingleLegLabel(t OptionType, d Direction) string {
	return d.Label() + " " + t.Label()
}

// StrategyUnknown is the label used when no direction information survives,
// typically on partial trades whose opening leg is absent from the dataset.
const StrategyUnknown = "Unknown"
