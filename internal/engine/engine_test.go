package engine

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/roundtrip/internal/models"
	"github.com/eddiefleurent/roundtrip/internal/normalize"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func profile(policy models.MatchPolicy) normalize.SourceProfile {
	return normalize.SourceProfile{
		Name: "testbroker",
		Columns: normalize.ColumnMapping{
			Symbol:     "Symbol",
			Date:       "Date",
			Code:       "Action",
			Quantity:   "Qty",
			Amount:     "Amount",
			OptionType: "Type",
			Strike:     "Strike",
			Expiry:     "Exp",
		},
		Policy:           policy,
		SuspiciousAmount: decimal.NewFromInt(100000),
	}
}

func row(date, code, qty, amount string) map[string]string {
	return map[string]string{
		"Symbol": "SPY",
		"Date":   date,
		"Action": code,
		"Qty":    qty,
		"Amount": amount,
		"Type":   "Put",
		"Strike": "450",
		"Exp":    "2025-04-17",
	}
}

func TestReconcileEndToEnd(t *testing.T) {
	r := New(profile(models.FIFO), testLogger())

	result := r.Reconcile([]map[string]string{
		row("2025-01-06", "STO", "2", "$200.00"),
		row("2025-01-10", "BTC", "1", "($50.00)"),
		row("2025-01-12", "BTC", "1", "($60.00)"),
		{"Symbol": "SPY", "Date": "2025-01-07", "Action": "Deposit", "Qty": "", "Amount": "$500"},
	})

	require.Len(t, result.Trades, 2)
	assert.True(t, result.Trades[0].PL().Equal(decimal.NewFromInt(50)))
	assert.True(t, result.Trades[1].PL().Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 2, result.Report.Matched)
	assert.Equal(t, 0, result.Report.Partial)
	assert.Equal(t, 0, result.Report.Open)
	assert.True(t, result.Report.TotalPL.Equal(decimal.NewFromInt(90)))
	assert.Equal(t, 1, result.Report.Skipped)
	assert.False(t, result.Report.Incomplete())
	assert.Equal(t, "testbroker", result.Source)
}

// FIFO sources may export newest-first; the engine must re-sort into
// chronological order before matching.
func TestReconcileFIFOSortsRows(t *testing.T) {
	r := New(profile(models.FIFO), testLogger())

	result := r.Reconcile([]map[string]string{
		row("2025-01-10", "BTC", "1", "($40.00)"),
		row("2025-01-06", "STO", "1", "$100.00"),
	})

	require.Len(t, result.Trades, 1)
	tr := result.Trades[0]
	assert.False(t, tr.IsPartial, "open precedes close chronologically, so it must match")
	assert.True(t, tr.PL().Equal(decimal.NewFromInt(60)))
}

// A same-day roll listed close-before-open reconciles correctly under LIFO
// because the export's native order is preserved.
func TestReconcileLIFOPreservesNativeOrder(t *testing.T) {
	r := New(profile(models.LIFO), testLogger())

	result := r.Reconcile([]map[string]string{
		row("2025-01-06", "STO", "1", "$100.00"),
		row("2025-01-13", "BTC", "1", "($30.00)"), // roll: close listed before same-day open
		row("2025-01-13", "STO", "1", "$150.00"),
	})

	require.Len(t, result.Trades, 2)
	assert.Equal(t, 1, result.Report.Matched)
	assert.Equal(t, 0, result.Report.Partial)
	assert.Equal(t, 1, result.Report.Open)
	assert.True(t, result.Report.TotalPL.Equal(decimal.NewFromInt(70)))
}

func TestReconcileClassifiesComposites(t *testing.T) {
	r := New(profile(models.FIFO), testLogger())

	shortPut := row("2025-01-06", "STO", "1", "$120.00")
	longPut := row("2025-01-06", "BTO", "1", "($45.00)")
	longPut["Strike"] = "440"

	result := r.Reconcile([]map[string]string{shortPut, longPut})

	require.Len(t, result.Trades, 2)
	for _, tr := range result.Trades {
		assert.Equal(t, "Bull Put Spread", tr.Strategy)
		assert.True(t, tr.IsOpen)
	}
}

func TestReconcileFreshLedgerPerCall(t *testing.T) {
	r := New(profile(models.FIFO), testLogger())

	first := r.Reconcile([]map[string]string{row("2025-01-06", "STO", "1", "$100.00")})
	require.Equal(t, 1, first.Report.Open)

	// A later close in a separate import must not see the previous import's
	// open position.
	second := r.Reconcile([]map[string]string{row("2025-01-10", "BTC", "1", "($40.00)")})
	require.Len(t, second.Trades, 1)
	assert.True(t, second.Trades[0].IsPartial)
	assert.True(t, second.Report.Incomplete())
}

func TestReconcileAll(t *testing.T) {
	imports := []Import{
		{Profile: profile(models.FIFO), Rows: []map[string]string{
			row("2025-01-06", "STO", "1", "$100.00"),
			row("2025-01-10", "BTC", "1", "($40.00)"),
		}},
		{Profile: profile(models.LIFO), Rows: []map[string]string{
			row("2025-01-08", "BTC", "1", "($25.00)"),
		}},
		{Profile: profile(models.FIFO), Rows: nil},
	}

	results, err := ReconcileAll(context.Background(), imports, testLogger())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].Report.Matched)
	assert.Equal(t, 0, results[0].Report.Partial)

	// Ledger isolation: import 1's close must not match import 0's open.
	assert.Equal(t, 1, results[1].Report.Partial)

	assert.Empty(t, results[2].Trades)
	assert.Equal(t, 0, results[2].Report.Rows)
}

func TestReconcileAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReconcileAll(ctx, []Import{{Profile: profile(models.FIFO)}}, testLogger())
	assert.Error(t, err)
}
