package tastytax

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TaxRules carries the jurisdiction parameters the aggregation depends on.
// The underlying rules change release over release (allowance raises, new
// loss limitations), so they are data, not code: defaults model the rule set
// currently in force and a YAML file can override any of them to reproduce an
// earlier year's computation.
type TaxRules struct {
	// SpeculativeAllowance is the threshold (EUR) below which combined
	// other capital gains (currency, crypto) stay untaxed in a year.
	SpeculativeAllowance float64 `yaml:"speculative_allowance"`
	// AllowanceRaisedTo replaces SpeculativeAllowance from AllowanceRaiseYear on.
	AllowanceRaisedTo  float64 `yaml:"allowance_raised_to"`
	AllowanceRaiseYear int     `yaml:"allowance_raise_year"`

	// DerivativeLossCap is the maximum (EUR) of option and future losses
	// deductible per year from DerivativeCapFromYear on; the excess
	// carries forward.
	DerivativeLossCap     float64 `yaml:"derivative_loss_cap"`
	DerivativeCapFromYear int     `yaml:"derivative_cap_from_year"`

	// FlatRate is the flat tax rate applied to combined capital income.
	FlatRate float64 `yaml:"flat_rate"`

	// CryptoCutoverYear is the first year crypto is aggregated as its own
	// speculative bucket instead of the combined other-capital-gains one.
	CryptoCutoverYear int `yaml:"crypto_cutover_year"`
}

// DefaultTaxRules returns the rule set this revision models.
func DefaultTaxRules() TaxRules {
	return TaxRules{
		SpeculativeAllowance:  600,
		AllowanceRaisedTo:     1000,
		AllowanceRaiseYear:    2024,
		DerivativeLossCap:     20000,
		DerivativeCapFromYear: 2021,
		FlatRate:              0.26375, // 25% plus solidarity surcharge
		CryptoCutoverYear:     2025,
	}
}

// LoadTaxRules reads a YAML override on top of the defaults.
func LoadTaxRules(path string) (TaxRules, error) {
	rules := DefaultTaxRules()
	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("reading tax rules: %w", err)
	}
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return rules, fmt.Errorf("parsing tax rules %q: %w", path, err)
	}
	return rules, nil
}

// AllowanceFor returns the speculative allowance in force for a year.
func (r TaxRules) AllowanceFor(year int) Money {
	if r.AllowanceRaiseYear > 0 && year >= r.AllowanceRaiseYear {
		return M(r.AllowanceRaisedTo, "EUR")
	}
	return M(r.SpeculativeAllowance, "EUR")
}

// DerivativeCapFor returns the derivative loss cap for a year, and whether
// the cap applies at all that year.
func (r TaxRules) DerivativeCapFor(year int) (Money, bool) {
	if r.DerivativeCapFromYear == 0 || year < r.DerivativeCapFromYear {
		return Money{}, false
	}
	return M(r.DerivativeLossCap, "EUR"), true
}

// CryptoCombined reports whether crypto belongs to the combined
// other-capital-gains bucket in the given year.
func (r TaxRules) CryptoCombined(year int) bool {
	return r.CryptoCutoverYear == 0 || year < r.CryptoCutoverYear
}
