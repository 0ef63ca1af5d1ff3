// Package strategy infers composite strategy labels for trades whose legs
// were opened together.
//
// Brokerage exports record multi-leg strategies (spreads, strangles,
// condors) as independent rows. After matching, trades that share an
// underlying and an opening date are regrouped here and relabeled from the
// set of (option type, direction, strike) leg shapes. Classification only
// rewrites the Strategy field; amounts and quantities are never touched, and
// running it twice yields the same labels.
package strategy

import (
	"github.com/eddiefleurent/roundtrip/internal/models"
)

// groupKey identifies trades whose legs opened the same day on the same
// underlying.
type groupKey struct {
	symbol   string
	openDate string
}

// legShape is one distinct leg of a composite structure. Quantity splits
// produce multiple trades per leg; the shape set collapses them so a spread
// closed in pieces still classifies as a spread.
type legShape struct {
	optionType models.OptionType
	direction  models.Direction
	strike     float64
}

// Classify rewrites the Strategy label on trades that form a recognized
// multi-leg structure. Partial trades are left alone: without an opening
// leg there is no open date to group on.
func Classify(trades []models.Trade) {
	groups := make(map[groupKey][]int)
	for i, tr := range trades {
		if tr.IsPartial || tr.OpenDate.IsZero() {
			continue
		}
		key := groupKey{symbol: tr.Key.Symbol, openDate: tr.OpenDate.Format("2006-01-02")}
		groups[key] = append(groups[key], i)
	}

	for _, members := range groups {
		shapes := distinctShapes(trades, members)
		label := compositeLabel(shapes)
		if label == "" {
			continue
		}
		for _, i := range members {
			trades[i].Strategy = label
		}
	}
}

func distinctShapes(trades []models.Trade, members []int) []legShape {
	seen := make(map[legShape]bool)
	var shapes []legShape
	for _, i := range members {
		shape := legShape{
			optionType: trades[i].Key.OptionType,
			direction:  trades[i].Direction,
			strike:     trades[i].Key.Strike,
		}
		if !seen[shape] {
			seen[shape] = true
			shapes = append(shapes, shape)
		}
	}
	return shapes
}

// compositeLabel names the structure formed by the leg shapes, or returns ""
// when no composite is recognized and the single-leg labels should stand.
func compositeLabel(shapes []legShape) string {
	switch len(shapes) {
	case 2:
		return twoLegLabel(shapes[0], shapes[1])
	case 4:
		return fourLegLabel(shapes)
	default:
		return ""
	}
}

func twoLegLabel(a, b legShape) string {
	// Same type, opposite direction, different strikes: a vertical spread.
	if a.optionType == b.optionType && a.direction != b.direction && a.strike != b.strike {
		short, long := a, b
		if short.direction != models.DirectionShort {
			short, long = b, a
		}
		return spreadLabel(a.optionType, short.strike, long.strike)
	}

	// One call and one put in the same direction: strangle, or straddle
	// when the strikes coincide.
	if a.optionType != b.optionType && a.direction == b.direction {
		if a.strike == b.strike {
			return "Straddle"
		}
		return "Strangle"
	}

	return ""
}

// spreadLabel names a vertical spread. For both calls and puts, a short
// strike above the long strike is the bullish variant.
func spreadLabel(t models.OptionType, shortStrike, longStrike float64) string {
	sentiment := "Bear"
	if shortStrike > longStrike {
		sentiment = "Bull"
	}
	return sentiment + " " + t.Label() + " Spread"
}

// fourLegLabel recognizes a call spread plus a put spread opened together:
// an iron condor, or an iron butterfly when the two short strikes coincide.
func fourLegLabel(shapes []legShape) string {
	var calls, puts []legShape
	for _, s := range shapes {
		if s.optionType == models.Call {
			calls = append(calls, s)
		} else {
			puts = append(puts, s)
		}
	}
	if len(calls) != 2 || len(puts) != 2 {
		return ""
	}

	shortCall, ok := verticalShortLeg(calls[0], calls[1])
	if !ok {
		return ""
	}
	shortPut, ok := verticalShortLeg(puts[0], puts[1])
	if !ok {
		return ""
	}

	if shortCall.strike == shortPut.strike {
		return "Iron Butterfly"
	}
	return "Iron Condor"
}

// verticalShortLeg returns the short leg of a two-leg vertical, or ok=false
// when the pair is not one short and one long at different strikes.
func verticalShortLeg(a, b legShape) (legShape, bool) {
	if a.direction == b.direction || a.strike == b.strike {
		return legShape{}, false
	}
	if a.direction == models.DirectionShort {
		return a, true
	}
	return b, true
}
