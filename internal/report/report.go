// Package report aggregates a reconciliation run into a read-only summary.
//
// The report is data, never an error: incomplete datasets and suspicious
// amounts surface here as counts and warning strings for the caller to
// present, and nothing in it can abort an import.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/roundtrip/internal/models"
	"github.com/eddiefleurent/roundtrip/internal/normalize"
)

// Report summarizes one reconciliation run.
type Report struct {
	Source  string `json:"source"`
	Matched int    `json:"matched"`
	Partial int    `json:"partial"`
	Open    int    `json:"open"`
	// TotalPL is credit minus debit over matched and partial trades. Open
	// trades are outstanding and excluded from closed P/L.
	TotalPL decimal.Decimal `json:"total_pl"`
	// Codes tallies accepted rows per canonical transaction code.
	Codes      map[string]int `json:"codes"`
	Rows       int            `json:"rows"`
	Skipped    int            `json:"skipped"`
	Suspicious int            `json:"suspicious"`
}

// Build aggregates the trade set and normalization stats for one source.
func Build(source string, trades []models.Trade, stats normalize.Stats) Report {
	r := Report{
		Source:     source,
		Codes:      stats.Codes,
		Rows:       stats.Rows,
		Skipped:    stats.Skipped,
		Suspicious: stats.Suspicious,
	}
	if r.Codes == nil {
		r.Codes = make(map[string]int)
	}

	for i := range trades {
		tr := &trades[i]
		switch {
		case tr.IsOpen:
			r.Open++
		case tr.IsPartial:
			r.Partial++
			r.TotalPL = r.TotalPL.Add(tr.PL())
		default:
			r.Matched++
			r.TotalPL = r.TotalPL.Add(tr.PL())
		}
	}
	return r
}

// Incomplete reports whether any closing leg lacked a matching open,
// typically because the export's date range truncates history. P/L totals
// are unreliable when true.
func (r Report) Incomplete() bool {
	return r.Partial > 0
}

// Warnings renders the non-fatal conditions a caller should surface.
func (r Report) Warnings() []string {
	var warnings []string
	if r.Incomplete() {
		warnings = append(warnings, fmt.Sprintf(
			"%d closing leg(s) had no matching open; P/L is incomplete (export may be missing history)", r.Partial))
	}
	if r.Suspicious > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d row(s) had unusually large amounts; verify them against the source", r.Suspicious))
	}
	return warnings
}
