package tastytax

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTaxRulesAllowanceFor(t *testing.T) {
	r := DefaultTaxRules()
	moneyEq(t, "2023 allowance", r.AllowanceFor(2023), eur(600))
	moneyEq(t, "2024 allowance", r.AllowanceFor(2024), eur(1000))
	moneyEq(t, "2025 allowance", r.AllowanceFor(2025), eur(1000))
}

func TestTaxRulesDerivativeCapFor(t *testing.T) {
	r := DefaultTaxRules()
	if _, capped := r.DerivativeCapFor(2020); capped {
		t.Error("cap applied before its first year")
	}
	cap, capped := r.DerivativeCapFor(2021)
	if !capped {
		t.Fatal("cap not applied from 2021")
	}
	moneyEq(t, "cap", cap, eur(20000))

	r.DerivativeCapFromYear = 0
	if _, capped := r.DerivativeCapFor(2030); capped {
		t.Error("disabled cap still applied")
	}
}

func TestTaxRulesCryptoCombined(t *testing.T) {
	r := DefaultTaxRules()
	if !r.CryptoCombined(2024) {
		t.Error("crypto should share the bucket before the cutover")
	}
	if r.CryptoCombined(2025) {
		t.Error("crypto should have its own bucket from the cutover")
	}
}

func TestLoadTaxRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	override := "flat_rate: 0.25\nspeculative_allowance: 512\n"
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadTaxRules(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.FlatRate != 0.25 {
		t.Errorf("flat rate = %v, want 0.25", r.FlatRate)
	}
	moneyEq(t, "allowance", r.AllowanceFor(2021), eur(512))
	// Untouched fields keep their defaults.
	if r.DerivativeCapFromYear != 2021 {
		t.Errorf("cap year = %d, want the default", r.DerivativeCapFromYear)
	}
}

func TestLoadTaxRulesMissingFile(t *testing.T) {
	if _, err := LoadTaxRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing rules file accepted")
	}
}
