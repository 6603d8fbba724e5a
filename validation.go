package tastytax

import (
	"errors"
	"fmt"
)

// ValidationError reports an expected domain failure: a ledger row that does
// not match the closed export vocabulary, or a row whose figures are
// inconsistent with each other. It aborts the run; nothing is silently
// corrected.
type ValidationError struct {
	Line int    // 1-based input line, 0 when unknown
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// At returns a copy of the error annotated with the input line.
func (e *ValidationError) At(line int) *ValidationError {
	return &ValidationError{Line: line, Msg: e.Msg}
}

// ErrUnclassifiable is returned when a symbol is in none of the known
// membership tables and no default was configured. Recoverable by running
// with the assume-individual-stock override.
var ErrUnclassifiable = errors.New("symbol not classifiable")

// ErrNoRate is returned when no exchange rate exists on or before a requested
// date.
var ErrNoRate = errors.New("no exchange rate available")
