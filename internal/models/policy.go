package models

import "fmt"

// MatchPolicy selects which prior open position a closing leg consumes first.
// It is the single most consequential correctness setting in the engine:
// exports that list same-day closes before the opens that replace them
// (same-day rolls) only reconcile correctly under LIFO.
type MatchPolicy int

const (
	// FIFO consumes the oldest open position first. Conventional accounting
	// default.
	FIFO MatchPolicy = iota
	// LIFO consumes the most recent open position first. Required for
	// sources whose exports list same-day closes before same-day opens.
	LIFO
)

func (p MatchPolicy) String() string {
	switch p {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	default:
		return "unknown"
	}
}

// ParseMatchPolicy parses a string into a MatchPolicy.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch s {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	default:
		return 0, fmt.Errorf("unknown match policy: %q", s)
	}
}
