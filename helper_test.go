package tastytax

import (
	"testing"
	"time"

	"github.com/tastytax/tastytax/date"
)

func eur(v float64) Money { return M(v, "EUR") }
func usd(v float64) Money { return M(v, "USD") }

func day(s string) date.Date { return date.MustParse(s) }

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// stubRates serves fixed per-day rates with a constant fallback, so processor
// tests control the conversion exactly.
type stubRates struct {
	fallback Quantity
	days     map[string]Quantity
}

func (s stubRates) Rate(on date.Date) (Quantity, error) {
	if r, ok := s.days[on.String()]; ok {
		return r, nil
	}
	return s.fallback, nil
}

// parity converts one to one, neutralizing currency effects.
func parity() stubRates { return stubRates{fallback: Q(1)} }

func moneyEq(t *testing.T, label string, got, want Money) {
	t.Helper()
	if !got.Sub(want).IsZero() {
		t.Errorf("%s = %s, want %s", label, got.StringFixed(4), want.StringFixed(4))
	}
}
