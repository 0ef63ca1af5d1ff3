package normalize

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/roundtrip/internal/models"
)

func testProfile() SourceProfile {
	return SourceProfile{
		Name: "testbroker",
		Columns: ColumnMapping{
			Symbol:     "Symbol",
			Date:       "Date",
			Code:       "Action",
			Quantity:   "Qty",
			Amount:     "Amount",
			OptionType: "Type",
			Strike:     "Strike",
			Expiry:     "Exp",
		},
		Codes: map[string]string{
			"Sell to Open":  CodeSTO,
			"Buy to Open":   CodeBTO,
			"Sell to Close": CodeSTC,
			"Buy to Close":  CodeBTC,
		},
		Policy:           models.FIFO,
		SuspiciousAmount: decimal.NewFromInt(10000),
	}
}

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	now := func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return NewWithClock(testProfile(), log, now)
}

func validRow() map[string]string {
	return map[string]string{
		"Symbol": "spy",
		"Date":   "03/21/2025",
		"Action": "Sell to Open",
		"Qty":    "2",
		"Amount": "$200.00",
		"Type":   "Put",
		"Strike": "$450",
		"Exp":    "2025-04-17",
	}
}

func TestNormalizeRowHappyPath(t *testing.T) {
	n := testNormalizer(t)

	leg, err := n.NormalizeRow(0, validRow())
	require.NoError(t, err)

	assert.Equal(t, "SPY", leg.Key.Symbol)
	assert.Equal(t, models.Put, leg.Key.OptionType)
	assert.Equal(t, 450.0, leg.Key.Strike)
	assert.Equal(t, "2025-04-17", leg.Key.Expiry)
	assert.Equal(t, models.ActionOpen, leg.Action)
	assert.Equal(t, models.DirectionShort, leg.Direction)
	assert.Equal(t, 2, leg.Quantity)
	assert.True(t, leg.Amount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, CodeSTO, leg.Code)
	assert.False(t, leg.Suspicious)
	assert.Equal(t, time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), leg.Date)
}

func TestNormalizeRowCodeMapping(t *testing.T) {
	n := testNormalizer(t)

	tests := []struct {
		code      string
		action    models.Action
		direction models.Direction
	}{
		{"Sell to Open", models.ActionOpen, models.DirectionShort},
		{"Buy to Open", models.ActionOpen, models.DirectionLong},
		{"Sell to Close", models.ActionClose, models.DirectionLong},
		{"Buy to Close", models.ActionClose, models.DirectionShort},
		// Canonical codes pass through even when absent from the map.
		{"STO", models.ActionOpen, models.DirectionShort},
		{"btc", models.ActionClose, models.DirectionShort},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			row := validRow()
			row["Action"] = tt.code
			leg, err := n.NormalizeRow(0, row)
			require.NoError(t, err)
			assert.Equal(t, tt.action, leg.Action)
			assert.Equal(t, tt.direction, leg.Direction)
		})
	}
}

func TestNormalizeRowRejectsNonOptionRows(t *testing.T) {
	n := testNormalizer(t)

	for _, code := range []string{"Deposit", "Dividend", "Interest", "Fee", ""} {
		row := validRow()
		row["Action"] = code
		_, err := n.NormalizeRow(3, row)
		require.Error(t, err, "code %q", code)

		var nerr *Error
		require.True(t, errors.As(err, &nerr))
		assert.Equal(t, 3, nerr.Row)
		assert.Equal(t, "code", nerr.Field)
	}
}

func TestNormalizeRowFieldErrors(t *testing.T) {
	n := testNormalizer(t)

	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"missing symbol", "Symbol", "", "symbol"},
		{"bad date", "Date", "yesterday", "date"},
		{"bad quantity", "Qty", "0", "quantity"},
		{"bad amount", "Amount", "free", "amount"},
		{"bad option type", "Type", "warrant", "option_type"},
		{"bad strike", "Strike", "atm", "strike"},
		{"bad expiry", "Exp", "never", "expiry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			row[tt.key] = tt.value
			_, err := n.NormalizeRow(0, row)
			require.Error(t, err)
			var nerr *Error
			require.True(t, errors.As(err, &nerr))
			assert.Equal(t, tt.field, nerr.Field)
		})
	}
}

func TestNormalizeRowSuspiciousAmount(t *testing.T) {
	n := testNormalizer(t)

	row := validRow()
	row["Amount"] = "($12,500.00)"
	leg, err := n.NormalizeRow(0, row)
	require.NoError(t, err, "suspicious amounts flag, never reject")
	assert.True(t, leg.Suspicious)
	assert.True(t, leg.Amount.Equal(decimal.NewFromInt(-12500)))
}

func TestNormalizeRowSuspiciousDisabledWhenZero(t *testing.T) {
	profile := testProfile()
	profile.SuspiciousAmount = decimal.Zero
	log := logrus.New()
	log.SetOutput(io.Discard)
	n := New(profile, log)

	row := validRow()
	row["Amount"] = "$999,999.00"
	leg, err := n.NormalizeRow(0, row)
	require.NoError(t, err)
	assert.False(t, leg.Suspicious)
}

func TestNormalizeAllAbsorbsBadRows(t *testing.T) {
	n := testNormalizer(t)

	closeRow := validRow()
	closeRow["Action"] = "Buy to Close"
	closeRow["Amount"] = "($60.00)"
	badRow := validRow()
	badRow["Symbol"] = ""
	depositRow := validRow()
	depositRow["Action"] = "Deposit"
	bigRow := validRow()
	bigRow["Amount"] = "$15,000.00"

	legs, stats := n.NormalizeAll([]map[string]string{
		validRow(), closeRow, badRow, depositRow, bigRow,
	})

	require.Len(t, legs, 3)
	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 3, stats.Legs)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Suspicious)
	assert.Equal(t, 2, stats.Codes[CodeSTO])
	assert.Equal(t, 1, stats.Codes[CodeBTC])

	// Row order and indices survive.
	assert.Equal(t, 0, legs[0].Row)
	assert.Equal(t, 1, legs[1].Row)
	assert.Equal(t, 4, legs[2].Row)
}
