package normalize

import "fmt"

// Error is a row-local normalization failure. Batch normalization logs it,
// counts the row as skipped, and continues.
type Error struct {
	Row    int
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
}
