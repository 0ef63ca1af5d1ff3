// Package normalize converts raw broker export rows into canonical legs.
//
// Each broker export declares its shape through a SourceProfile: which
// columns hold what, how its transaction codes map onto the canonical
// open/close vocabulary, and which match policy its ordering requires. The
// rest of the engine only ever sees models.Leg values produced here.
package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/roundtrip/internal/models"
)

// Canonical transaction codes.
const (
	CodeSTO = "STO" // sell to open
	CodeBTO = "BTO" // buy to open
	CodeSTC = "STC" // sell to close
	CodeBTC = "BTC" // buy to close
)

// codeMeanings maps canonical codes to (action, direction). A closing code
// carries the direction of the position it unwinds: STC closes a long, BTC
// closes a short.
var codeMeanings = map[string]struct {
	action    models.Action
	direction models.Direction
}{
	CodeSTO: {models.ActionOpen, models.DirectionShort},
	CodeBTO: {models.ActionOpen, models.DirectionLong},
	CodeSTC: {models.ActionClose, models.DirectionLong},
	CodeBTC: {models.ActionClose, models.DirectionShort},
}

// ColumnMapping names the export's columns for each required field.
type ColumnMapping struct {
	Symbol     string
	Date       string
	Code       string
	Quantity   string
	Amount     string
	OptionType string
	Strike     string
	Expiry     string
}

// SourceProfile declares one broker export's conventions.
type SourceProfile struct {
	Name    string
	Columns ColumnMapping
	// Codes maps the source's transaction codes (e.g. "Sell to Open") onto
	// canonical codes. Lookups are case-insensitive; canonical codes are
	// always accepted directly.
	Codes  map[string]string
	Policy models.MatchPolicy
	// SuspiciousAmount flags (without rejecting) legs whose magnitude meets
	// or exceeds it. Zero disables the check.
	SuspiciousAmount decimal.Decimal
}

// Stats summarizes one batch normalization pass for the report.
type Stats struct {
	Rows       int
	Legs       int
	Skipped    int
	Suspicious int
	// Codes tallies accepted legs per canonical transaction code.
	Codes map[string]int
}

// Normalizer turns raw rows from one source into legs.
type Normalizer struct {
	profile SourceProfile
	log     logrus.FieldLogger
	now     func() time.Time
}

// New returns a normalizer for the given source profile.
func New(profile SourceProfile, log logrus.FieldLogger) *Normalizer {
	return NewWithClock(profile, log, time.Now)
}

// NewWithClock is New with an injectable clock, used by year inference for
// bare MM/DD dates.
func NewWithClock(profile SourceProfile, log logrus.FieldLogger, now func() time.Time) *Normalizer {
	return &Normalizer{profile: profile, log: log, now: now}
}

// Profile returns the profile this normalizer was built from.
func (n *Normalizer) Profile() SourceProfile {
	return n.profile
}

// NormalizeRow converts one raw row into a Leg. Failures are *Error values:
// row-local and recoverable, never fatal to the batch.
func (n *Normalizer) NormalizeRow(idx int, row map[string]string) (models.Leg, error) {
	cols := n.profile.Columns

	code, ok := n.canonicalCode(row[cols.Code])
	if !ok {
		// Deposits, dividends, interest, fees: not option activity.
		return models.Leg{}, &Error{Row: idx, Field: "code", Reason: "not an option transaction: " + strings.TrimSpace(row[cols.Code])}
	}
	meaning := codeMeanings[code]

	symbol := strings.ToUpper(strings.TrimSpace(row[cols.Symbol]))
	if symbol == "" {
		return models.Leg{}, &Error{Row: idx, Field: "symbol", Reason: "missing"}
	}

	date, err := ParseDate(row[cols.Date], n.now())
	if err != nil {
		return models.Leg{}, &Error{Row: idx, Field: "date", Reason: err.Error()}
	}

	qty, err := parseQuantity(row[cols.Quantity])
	if err != nil {
		return models.Leg{}, &Error{Row: idx, Field: "quantity", Reason: err.Error()}
	}

	amount, err := ParseCurrency(row[cols.Amount])
	if err != nil {
		return models.Leg{}, &Error{Row: idx, Field: "amount", Reason: err.Error()}
	}

	optionType, ok := parseOptionType(row[cols.OptionType])
	if !ok {
		return models.Leg{}, &Error{Row: idx, Field: "option_type", Reason: "unparseable option type: " + strings.TrimSpace(row[cols.OptionType])}
	}

	strike, err := parseStrike(row[cols.Strike])
	if err != nil {
		return models.Leg{}, &Error{Row: idx, Field: "strike", Reason: err.Error()}
	}

	expiry, err := ParseDate(row[cols.Expiry], n.now())
	if err != nil {
		return models.Leg{}, &Error{Row: idx, Field: "expiry", Reason: err.Error()}
	}

	leg := models.Leg{
		Key: models.ContractKey{
			Symbol:     symbol,
			OptionType: optionType,
			Strike:     strike,
			Expiry:     expiry.Format("2006-01-02"),
		},
		Date:      date,
		Action:    meaning.action,
		Direction: meaning.direction,
		Quantity:  qty,
		Amount:    amount,
		Code:      code,
		Row:       idx,
	}
	if n.profile.SuspiciousAmount.IsPositive() && amount.Abs().GreaterThanOrEqual(n.profile.SuspiciousAmount) {
		leg.Suspicious = true
	}
	return leg, nil
}

// NormalizeAll converts a batch of rows, absorbing row-local failures into
// the returned stats. Row order is preserved.
func (n *Normalizer) NormalizeAll(rows []map[string]string) ([]models.Leg, Stats) {
	legs := make([]models.Leg, 0, len(rows))
	stats := Stats{Rows: len(rows), Codes: make(map[string]int)}

	for i, row := range rows {
		leg, err := n.NormalizeRow(i, row)
		if err != nil {
			stats.Skipped++
			n.log.WithFields(logrus.Fields{
				"source": n.profile.Name,
				"error":  err.Error(),
			}).Warn("skipping row")
			continue
		}
		if leg.Suspicious {
			stats.Suspicious++
			n.log.WithFields(logrus.Fields{
				"source":   n.profile.Name,
				"row":      i,
				"contract": leg.Key.String(),
				"amount":   leg.Amount.String(),
			}).Warn("suspicious amount")
		}
		stats.Codes[leg.Code]++
		stats.Legs++
		legs = append(legs, leg)
	}

	return legs, stats
}

// canonicalCode resolves a raw transaction code through the profile's code
// map, falling back to the canonical vocabulary itself.
func (n *Normalizer) canonicalCode(raw string) (string, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		return "", false
	}
	for from, to := range n.profile.Codes {
		if strings.ToUpper(from) == v {
			v = strings.ToUpper(to)
			break
		}
	}
	if _, ok := codeMeanings[v]; !ok {
		return "", false
	}
	return v, true
}

func parseOptionType(s string) (models.OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return models.Call, true
	case "put", "p":
		return models.Put, true
	default:
		return "", false
	}
}
