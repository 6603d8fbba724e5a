package tastytax

import (
	"sort"
)

// YearlySummary accumulates one tax year. The plain fields are sums over the
// year's normalized rows; the derived fields depend on the previous year's
// summary and are only valid once every earlier year has been finalized.
type YearlySummary struct {
	Year int

	Dividends        Money
	WithholdingTax   Money
	InterestReceived Money
	InterestPaid     Money
	FeeAdjustments   Money // fee and balance-adjustment rows
	FeesTotal        Money // fee adjustments plus per-trade fees
	OrderPayments    Money // dividends paid on short stock

	StockGains  Money // taxable stock gains, positive rows
	StockLosses Money // taxable stock losses, negative rows
	StockExempt Money // stock gains exempt under the holding-period rule

	AktienFondGains     Money
	ImmobilienFondGains Money

	OptionGains Money // net long and short option P&L
	FutureGains Money // net futures P&L
	derivProfit Money // positive derivative rows, for the loss cap
	derivLoss   Money // magnitude of negative derivative rows

	CryptoGains    Money
	CryptoExempt   Money
	CurrencyGains  Money
	CurrencyExempt Money

	NetMin, NetMax Money // lowest and highest net liquidation value, USD

	// Derived by the forward pass.
	StockTaxable         Money
	StockLossCarry       Money // loss carried into the next year
	SpeculativeTaxable   Money // combined other capital gains after allowance
	SpeculativeLossCarry Money
	CryptoTaxable        Money // only populated once crypto leaves the combined bucket
	CryptoLossCarry      Money
	DerivativeTaxable    Money
	DerivativeLossCarry  Money
	CapitalIncome        Money // flat-rate base
	CapitalLossCarry     Money
	Tax                  Money // flat-rate tax amount
}

// Accumulators start as the weak zero Money and take on the rows' reporting
// currency (EUR, or USD when conversion is off) on the first addition.
func newYearlySummary(year int) *YearlySummary {
	return &YearlySummary{Year: year}
}

// Aggregate folds normalized rows into per-year summaries and then finalizes
// the carry-forward fields in ascending year order. Years must be finalized
// oldest first: every derived figure depends on the previous year's
// corresponding carry.
func Aggregate(rows []Row, extremes map[int]*YearExtremes, rules TaxRules) []*YearlySummary {
	byYear := make(map[int]*YearlySummary)
	year := func(y int) *YearlySummary {
		s := byYear[y]
		if s == nil {
			s = newYearlySummary(y)
			byYear[y] = s
		}
		return s
	}

	for _, row := range rows {
		s := year(row.Year())
		s.CurrencyGains = s.CurrencyGains.Add(row.FxTaxable)
		s.CurrencyExempt = s.CurrencyExempt.Add(row.FxExempt)
		if !row.FeesEUR.IsZero() {
			s.FeesTotal = s.FeesTotal.Add(row.FeesEUR)
		}
		if !row.Realizing {
			continue
		}
		switch row.Category {
		case Dividend:
			s.Dividends = s.Dividends.Add(row.Pnl)
		case WithholdingTax:
			s.WithholdingTax = s.WithholdingTax.Add(row.Pnl)
		case Interest:
			if row.Pnl.IsNegative() {
				s.InterestPaid = s.InterestPaid.Add(row.Pnl)
			} else {
				s.InterestReceived = s.InterestReceived.Add(row.Pnl)
			}
		case Fee:
			s.FeeAdjustments = s.FeeAdjustments.Add(row.Pnl)
			s.FeesTotal = s.FeesTotal.Add(row.Pnl)
		case OrderPayments:
			s.OrderPayments = s.OrderPayments.Add(row.Pnl)
		case IndStock, OtherStock:
			if row.PnlTaxable.IsNegative() {
				s.StockLosses = s.StockLosses.Add(row.PnlTaxable)
			} else {
				s.StockGains = s.StockGains.Add(row.PnlTaxable)
			}
			s.StockExempt = s.StockExempt.Add(row.PnlExempt)
		case AktienFond:
			s.AktienFondGains = s.AktienFondGains.Add(row.Pnl)
		case ImmobilienFond:
			s.ImmobilienFondGains = s.ImmobilienFondGains.Add(row.Pnl)
		case LongOption, ShortOption:
			s.OptionGains = s.OptionGains.Add(row.Pnl)
			s.addDerivative(row.Pnl)
		case Future:
			s.FutureGains = s.FutureGains.Add(row.Pnl)
			s.addDerivative(row.Pnl)
		case Crypto:
			s.CryptoGains = s.CryptoGains.Add(row.PnlTaxable)
			s.CryptoExempt = s.CryptoExempt.Add(row.PnlExempt)
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]*YearlySummary, 0, len(years))
	prev := newYearlySummary(0)
	for _, y := range years {
		s := byYear[y]
		if e := extremes[y]; e != nil {
			s.NetMin, s.NetMax = e.Min, e.Max
		}
		s.finalize(prev, rules)
		out = append(out, s)
		prev = s
	}
	return out
}

func (s *YearlySummary) addDerivative(pnl Money) {
	if pnl.IsNegative() {
		s.derivLoss = s.derivLoss.Add(pnl.Neg())
	} else {
		s.derivProfit = s.derivProfit.Add(pnl)
	}
}

// finalize computes the derived figures from this year's sums and the
// previous year's carries.
func (s *YearlySummary) finalize(prev *YearlySummary, rules TaxRules) {
	// (a) Ordinary equity gains: losses roll forward, the taxable figure
	// never goes below zero.
	stockNet := s.StockGains.Add(s.StockLosses).Sub(prev.StockLossCarry)
	if stockNet.IsNegative() {
		s.StockLossCarry = stockNet.Neg()
	} else {
		s.StockTaxable = stockNet
	}

	// (b) Other capital gains: currency gains, plus crypto while the
	// combined bucket is in force. Below the allowance the whole amount
	// stays untaxed; a negative amount carries forward.
	speculative := s.CurrencyGains
	if rules.CryptoCombined(s.Year) {
		speculative = speculative.Add(s.CryptoGains)
	} else {
		s.CryptoTaxable, s.CryptoLossCarry = thresholdRule(s.CryptoGains, prev.CryptoLossCarry, rules.AllowanceFor(s.Year))
	}
	s.SpeculativeTaxable, s.SpeculativeLossCarry = thresholdRule(speculative, prev.SpeculativeLossCarry, rules.AllowanceFor(s.Year))

	// (c) Options and futures: gains are fully taxable, losses offset them
	// only up to the annual cap, the excess carries forward.
	availableLoss := s.derivLoss.Add(prev.DerivativeLossCarry)
	deductible := availableLoss
	if cap, capped := rules.DerivativeCapFor(s.Year); capped && deductible.GreaterThan(cap) {
		deductible = cap
	}
	if deductible.GreaterThan(s.derivProfit) {
		deductible = s.derivProfit
	}
	s.DerivativeTaxable = s.derivProfit.Sub(deductible)
	s.DerivativeLossCarry = availableLoss.Sub(deductible)

	// (d) Flat-rate capital income: everything except the personal-rate
	// speculative bucket, with its own loss carry.
	income := s.StockTaxable.
		Add(s.DerivativeTaxable).
		Add(s.AktienFondGains).
		Add(s.ImmobilienFondGains).
		Add(s.Dividends).
		Add(s.WithholdingTax).
		Add(s.InterestReceived).
		Add(s.InterestPaid).
		Add(s.FeeAdjustments).
		Add(s.OrderPayments).
		Sub(prev.CapitalLossCarry)
	if income.IsNegative() {
		s.CapitalLossCarry = income.Neg()
	} else {
		s.CapitalIncome = income
		s.Tax = income.Mul(Q(rules.FlatRate))
	}
}

// thresholdRule applies the allowance-threshold rule: negative amounts carry
// forward in full, amounts below the allowance are not taxed, amounts at or
// above it are taxed in full.
func thresholdRule(amount, carry, allowance Money) (taxable, nextCarry Money) {
	net := amount.Sub(carry)
	if net.IsNegative() {
		return Money{}, net.Neg()
	}
	if net.LessThan(allowance) {
		return Money{}, Money{}
	}
	return net, Money{}
}
