package tastytax

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"
)

// rowHeader is the column set of the full-ledger output.
var rowHeader = []string{
	"datetime", "category", "pnl", "pnl_taxable", "pnl_exempt",
	"eur_amount", "usd_amount", "fees_usd", "eurusd", "quantity",
	"asset", "symbol", "description", "tax_free",
	"fx_taxable", "fx_exempt", "cash_total", "net_total",
}

// yearRowHeader is the column set of the single-tax-year output: the running
// balances make no sense for a year slice and are omitted.
var yearRowHeader = rowHeader[:len(rowHeader)-2]

func (r Row) record(withTotals bool) []string {
	pnl, taxable, exempt := "", "", ""
	if r.Realizing {
		pnl = r.Pnl.StringFixed(4)
		taxable = r.PnlTaxable.StringFixed(4)
		exempt = r.PnlExempt.StringFixed(4)
	}
	rec := []string{
		r.Time.Format("2006-01-02 15:04"),
		string(r.Category),
		pnl, taxable, exempt,
		r.AmountEUR.StringFixed(2),
		r.AmountUSD.StringFixed(2),
		r.FeesUSD.StringFixed(2),
		r.Rate.String(),
		r.Quantity.String(),
		r.Asset,
		r.Symbol,
		r.Description,
		fmt.Sprintf("%t", r.TaxFree),
		r.FxTaxable.StringFixed(2),
		r.FxExempt.StringFixed(2),
	}
	if withTotals {
		rec = append(rec, r.CashTotal.StringFixed(2), r.NetTotal.StringFixed(2))
	}
	return rec
}

// WriteRowsCSV writes the full normalized row stream.
func WriteRowsCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rowHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record(true)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// categoryOrder is the fixed display order of the single-tax-year output.
var categoryOrder = []AssetType{
	IndStock, OtherStock, AktienFond, ImmobilienFond,
	Dividend, WithholdingTax,
	LongOption, ShortOption, Future,
	Crypto, Interest, Fee, OrderPayments, Transfer,
}

func categoryRank(a AssetType) int {
	for i, c := range categoryOrder {
		if c == a {
			return i
		}
	}
	return len(categoryOrder)
}

// WriteYearCSV writes the rows of a single tax year, sorted by category
// display order instead of by date, without the running-balance columns.
func WriteYearCSV(w io.Writer, rows []Row, year int) error {
	var selected []Row
	for _, r := range rows {
		if r.Year() == year {
			selected = append(selected, r)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return categoryRank(selected[i].Category) < categoryRank(selected[j].Category)
	})
	cw := csv.NewWriter(w)
	if err := cw.Write(yearRowHeader); err != nil {
		return err
	}
	for _, r := range selected {
		if err := cw.Write(r.record(false)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRowsExcel writes the normalized rows as an Excel workbook.
func WriteRowsExcel(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Report"
	f.SetSheetName("Sheet1", sheet)
	if err := setStringRow(f, sheet, 1, rowHeader); err != nil {
		return err
	}
	for i, r := range rows {
		if err := setStringRow(f, sheet, i+2, r.record(true)); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func setStringRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// WriteSummaries prints the yearly summaries in the terminal form, oldest
// year first.
func WriteSummaries(w io.Writer, sums []*YearlySummary, verbose bool) {
	for _, s := range sums {
		fmt.Fprintf(w, "\nTotal sums paid and received in the year %d:\n", s.Year)
		line := func(label string, m Money) {
			fmt.Fprintf(w, "%-42s %14s\n", label+":", m.StringFixed(2))
		}
		if verbose || !s.Dividends.IsZero() || !s.WithholdingTax.IsZero() {
			line("dividends received", s.Dividends)
			line("withholding tax paid", s.WithholdingTax)
		}
		if !s.OrderPayments.IsZero() {
			line("dividends paid", s.OrderPayments)
		}
		line("interest received", s.InterestReceived)
		if !s.InterestPaid.IsZero() {
			line("interest paid", s.InterestPaid)
		}
		line("fee adjustments", s.FeeAdjustments)
		if verbose || !s.StockGains.IsZero() || !s.StockLosses.IsZero() {
			line("stock gains", s.StockGains)
			line("stock losses", s.StockLosses)
			line("stock gains tax-exempt", s.StockExempt)
		}
		if verbose || !s.AktienFondGains.IsZero() || !s.ImmobilienFondGains.IsZero() {
			line("equity fund gains", s.AktienFondGains)
			line("real estate fund gains", s.ImmobilienFondGains)
		}
		if verbose || !s.OptionGains.IsZero() || !s.FutureGains.IsZero() {
			line("option gains", s.OptionGains)
			line("future gains", s.FutureGains)
		}
		if verbose || !s.CryptoGains.IsZero() || !s.CryptoExempt.IsZero() {
			line("crypto gains", s.CryptoGains)
			line("crypto gains tax-exempt", s.CryptoExempt)
		}
		line("currency gains", s.CurrencyGains)
		line("currency gains tax-exempt", s.CurrencyExempt)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Tax figures for %d:\n", s.Year)
		line("taxable stock gains", s.StockTaxable)
		line("stock loss carried forward", s.StockLossCarry)
		line("taxable other capital gains", s.SpeculativeTaxable)
		line("other capital loss carried forward", s.SpeculativeLossCarry)
		if !s.CryptoTaxable.IsZero() || !s.CryptoLossCarry.IsZero() {
			line("taxable crypto gains", s.CryptoTaxable)
			line("crypto loss carried forward", s.CryptoLossCarry)
		}
		line("taxable derivative gains", s.DerivativeTaxable)
		line("derivative loss carried forward", s.DerivativeLossCarry)
		line("flat-rate capital income", s.CapitalIncome)
		line("capital loss carried forward", s.CapitalLossCarry)
		line("flat-rate tax", s.Tax)
		line("total fees paid", s.FeesTotal)
		fmt.Fprintf(w, "%-42s %14s .. %s\n", "net liquidation range ($):",
			s.NetMin.StringFixed(2), s.NetMax.StringFixed(2))
	}
}
