package tastytax

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/tastytax/tastytax/date"
)

// cashAsset is the reserved asset key of the currency gain tracker.
const cashAsset = "account-usd"

// cashScale is the integer scaling of the currency tracker. Cash quantities
// are tracked as 1/10000 USD units so that the sign and magnitude
// comparisons driving the FIFO matching stay in integer arithmetic.
var cashScale = Q(10000)

// Config carries the explicit run options for a processing pass.
type Config struct {
	Rates       RateSource
	Classifier  Classifier
	NoConvert   bool      // report in USD instead of converting to EUR
	Verbose     bool      // log every row while processing
	DebugFIFO   bool      // dump the lot ledger after every match
	Log         io.Writer // destination for verbose output, defaults to stderr
}

// Row is the normalized output of one ledger transaction. Rows are immutable
// once emitted; the yearly aggregation and the exports consume them.
type Row struct {
	Time        time.Time
	Category    AssetType
	Pnl         Money // realized P&L, reporting currency
	PnlTaxable  Money // taxable portion of Pnl
	PnlExempt   Money // portion exempt under the holding-period rule
	Realizing   bool  // false when the row realizes nothing (transfers, split legs)
	AmountEUR   Money // net cash effect, reporting currency
	AmountUSD   Money // net cash effect, USD
	FeesUSD     Money
	FeesEUR     Money // fees, reporting currency
	Rate        Quantity // exchange rate used
	Quantity    Quantity
	Asset       string // asset key or money-movement label
	Symbol      string
	Description string
	TaxFree     bool
	FxTaxable   Money // currency gain realized by this row's cash effect
	FxExempt    Money
	CashTotal   Money // running account cash, USD
	NetTotal    Money // running cash plus open-lot value, USD
}

// Year returns the tax year the row belongs to.
func (r Row) Year() int { return r.Time.Year() }

// pendingSplit correlates the two legs of a split event.
type pendingSplit struct {
	removal Quantity
	receipt Quantity
	hasRem  bool
	hasRec  bool
}

// YearExtremes tracks the lowest and highest net liquidation value seen in a
// year, in USD.
type YearExtremes struct {
	Min, Max Money
}

// Processor drives a single sequential pass over a transaction ledger. It is
// not safe for concurrent use; every transaction mutates order-dependent
// state.
type Processor struct {
	cfg  Config
	lots *LotLedger
	rows []Row

	cash       Money // running Σ(amount − fees), USD
	accountRef string
	lastTime   time.Time
	splits     map[string]*pendingSplit
	extremes   map[int]*YearExtremes
}

// NewProcessor returns a processor for one ledger pass.
func NewProcessor(cfg Config) *Processor {
	if cfg.Log == nil {
		cfg.Log = log.Writer()
	}
	return &Processor{
		cfg:      cfg,
		lots:     NewLotLedger(),
		cash:     M(0, "USD"),
		splits:   make(map[string]*pendingSplit),
		extremes: make(map[int]*YearExtremes),
	}
}

// Lots exposes the lot ledger, for the final open-position report.
func (p *Processor) Lots() *LotLedger { return p.lots }

// CashTotal returns the running account cash total in USD.
func (p *Processor) CashTotal() Money { return p.cash }

// Extremes returns the per-year net liquidation minimum and maximum.
func (p *Processor) Extremes() map[int]*YearExtremes { return p.extremes }

// Process consumes the transactions in order and returns one normalized row
// per transaction, except for suppressed duplicate settlement legs. The
// first validation failure aborts the pass with no partial result.
func (p *Processor) Process(txs []Transaction) ([]Row, error) {
	for i, tx := range txs {
		if err := p.step(tx); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return nil, verr.At(i + 1)
			}
			return nil, fmt.Errorf("transaction %d (%s): %w", i+1, tx.Time.Format("2006-01-02 15:04"), err)
		}
	}
	for key := range p.splits {
		return nil, valErrf("unresolved split ratio for %s", key)
	}
	return p.rows, nil
}

func (p *Processor) step(tx Transaction) error {
	if !p.lastTime.IsZero() && tx.Time.Before(p.lastTime) {
		return valErrf("timestamps not in order: %s after %s",
			tx.Time.Format("2006-01-02 15:04"), p.lastTime.Format("2006-01-02 15:04"))
	}
	p.lastTime = tx.Time

	if err := tx.Validate(); err != nil {
		return err
	}
	if p.accountRef == "" {
		p.accountRef = tx.AccountRef
	} else if tx.AccountRef != p.accountRef {
		return valErrf("account reference changed from %q to %q", p.accountRef, tx.AccountRef)
	}

	// A cash-settled assignment or exercise shows up twice in the export.
	// Only the known cash-settled index underlyings may carry these
	// subcodes; the Money Movement twin duplicates the Receive Deliver leg
	// and is dropped before it can touch any total.
	if tx.Subcode == SubCashSettledAssignment || tx.Subcode == SubCashSettledExercise {
		if !IsCashSettled(tx.Symbol) {
			return valErrf("%s for %q, which does not settle in cash", tx.Subcode, tx.Symbol)
		}
		if tx.Code == CodeMoneyMovement {
			return nil
		}
	}

	rate, err := p.cfg.Rates.Rate(tx.Day())
	if err != nil {
		return err
	}

	// Split legs are tax-neutral bookkeeping: no cash moves.
	if tx.Subcode == SubForwardSplit || tx.Subcode == SubReverseSplit {
		tx.Amount = M(0, "USD")
		tx.Fees = M(0, "USD")
	}

	net := tx.Amount.Sub(tx.Fees)
	p.cash = p.cash.Add(net)

	taxFree := p.taxFree(tx)
	fxTaxable, fxExempt := p.trackCurrency(tx, rate, taxFree)

	row := Row{
		Time:        tx.Time,
		AmountUSD:   net,
		AmountEUR:   p.reporting(net, rate),
		FeesUSD:     tx.Fees,
		FeesEUR:     p.reporting(tx.Fees, rate),
		Rate:        rate,
		Quantity:    tx.Quantity,
		Symbol:      tx.Symbol,
		Description: tx.Description,
		TaxFree:     taxFree,
		FxTaxable:   fxTaxable,
		FxExempt:    fxExempt,
	}
	if !tx.QuantitySet {
		row.Quantity = Q(1)
	}

	switch {
	case tx.Code == CodeMoneyMovement:
		err = p.moneyMovement(tx, rate, &row)
	case tx.Subcode == SubForwardSplit || tx.Subcode == SubReverseSplit:
		err = p.split(tx, &row)
	default:
		err = p.trade(tx, rate, taxFree, &row)
	}
	if err != nil {
		return err
	}

	row.CashTotal = p.cash
	row.NetTotal = p.cash.Add(p.lots.OpenValueUSD())
	p.note(row.Year(), row.NetTotal)
	p.rows = append(p.rows, row)

	if p.cfg.Verbose {
		fmt.Fprintf(p.cfg.Log, "%s %12s %12s$ %9s %8s %s\n",
			tx.Time.Format("2006-01-02 15:04"), row.Pnl.SignedString(),
			row.AmountUSD.StringFixed(2), row.Rate, row.Quantity, row.Asset)
	}
	if p.cfg.DebugFIFO {
		p.lots.Dump(p.cfg.Log)
	}
	return nil
}

// taxFree decides whether the transaction itself is excluded from the
// holding-period exemption: administrative cash movements and deposits are,
// and so is the premium received for writing an option.
func (p *Processor) taxFree(tx Transaction) bool {
	if tx.Code == CodeMoneyMovement {
		return tx.Subcode != SubMarkToMarket // mark to market is trading P&L
	}
	return tx.IsOption() && tx.Subcode == SubSellToOpen
}

// trackCurrency feeds the transaction's cash effect through the currency
// gain tracker: the amount under the transaction's own tax-free flag, the
// fee as a separate always-tax-free leg so fee currency effects never
// receive the exemption. Quantities are scaled by 10^4 into integer units.
// Without conversion the lot price is a constant 1 USD and no currency gain
// ever arises.
func (p *Processor) trackCurrency(tx Transaction, rate Quantity, taxFree bool) (taxable, exempt Money) {
	price := p.reporting(M(1, "USD"), rate)     // reporting currency per USD
	priceUSD := M(1, "USD").Div(cashScale)      // USD per tracker unit
	amountQty := Q(tx.Amount.value.Mul(cashScale.value).Round(0))
	feeQty := Q(tx.Fees.value.Neg().Mul(cashScale.value).Round(0))

	t1, e1 := p.lots.Match(cashAsset, false, amountQty, price, priceUSD, tx.Day(), taxFree)
	t2, e2 := p.lots.Match(cashAsset, false, feeQty, price, priceUSD, tx.Day(), true)
	return t1.Add(t2).Div(cashScale), e1.Add(e2).Div(cashScale)
}

// moneyMovement records administrative cash flows without touching the
// instrument lot queues. The category comes from subcode, sign and the
// semantically significant descriptions.
func (p *Processor) moneyMovement(tx Transaction, rate Quantity, row *Row) error {
	if !tx.Fees.IsZero() && tx.Subcode != SubTransfer {
		return valErrf("unexpected fee on Money Movement %s", tx.Subcode)
	}
	amount := p.reporting(tx.Amount.Sub(tx.Fees), rate)
	row.Pnl, row.Realizing = amount, true

	switch tx.Subcode {
	case SubTransfer:
		row.Category, row.Asset = Transfer, "transfer"
		row.Realizing, row.Pnl = false, Money{}
	case SubDeposit, SubCreditInterest:
		switch {
		case tx.Description == "INTEREST ON CREDIT BALANCE":
			row.Category, row.Asset = Interest, "interest"
		case strings.Contains(tx.Description, "ACH") || strings.Contains(tx.Description, "Wire"):
			row.Category, row.Asset = Transfer, "transfer"
			row.Realizing, row.Pnl = false, Money{}
		case tx.Amount.IsPositive():
			row.Category, row.Asset = Dividend, "dividends for "+tx.Symbol
		default:
			row.Category, row.Asset = WithholdingTax, "withholding tax for "+tx.Symbol
		}
	case SubDebitInterest:
		row.Category, row.Asset = Interest, "interest"
	case SubBalanceAdjustment:
		row.Category, row.Asset = Fee, "balance adjustment"
	case SubFee:
		if !tx.Amount.IsNegative() {
			return valErrf("Fee with non-negative amount %s", tx.Amount.StringFixed(2))
		}
		row.Category, row.Asset = Fee, "fees for "+tx.Symbol
	case SubWithdrawal:
		if !tx.Amount.IsNegative() {
			return valErrf("Withdrawal with non-negative amount %s", tx.Amount.StringFixed(2))
		}
		if strings.Contains(tx.Description, "Wire") || strings.Contains(tx.Description, "ACH") {
			row.Category, row.Asset = Transfer, "transfer"
			row.Realizing, row.Pnl = false, Money{}
		} else {
			// Observed for dividends paid on short stock.
			row.Category, row.Asset = OrderPayments, "payments for "+tx.Symbol
		}
	case SubDividend:
		if tx.Amount.IsPositive() {
			row.Category, row.Asset = Dividend, "dividends for "+tx.Symbol
		} else {
			row.Category, row.Asset = WithholdingTax, "withholding tax for "+tx.Symbol
		}
	case SubMarkToMarket:
		row.Category, row.Asset = Future, tx.Symbol
	default:
		return valErrf("unhandled Money Movement subcode %q", tx.Subcode)
	}
	return nil
}

// split records or consumes one leg of a split event and rescales the open
// lots once both legs are known. The two legs may arrive in either order.
func (p *Processor) split(tx Transaction, row *Row) error {
	if !tx.QuantitySet {
		return valErrf("split leg without quantity for %s", tx.Symbol)
	}
	cat, err := p.cfg.Classifier.ClassifySymbol(tx.Symbol)
	if err != nil {
		return err
	}
	row.Category, row.Asset = cat, tx.Symbol

	key := tx.Symbol + "@" + tx.Day().String()
	pending := p.splits[key]
	if pending == nil {
		pending = &pendingSplit{}
		p.splits[key] = pending
	}
	switch {
	case strings.HasPrefix(tx.Description, "Removal of"):
		pending.removal, pending.hasRem = tx.Quantity, true
	case strings.HasPrefix(tx.Description, "Receipt of"):
		pending.receipt, pending.hasRec = tx.Quantity, true
	default:
		return valErrf("unexpected split description %q", tx.Description)
	}
	if !pending.hasRem || !pending.hasRec {
		return nil // wait for the other leg
	}
	delete(p.splits, key)
	if pending.removal.IsZero() {
		return valErrf("split removal of zero shares for %s", tx.Symbol)
	}
	ratio := pending.receipt.Div(pending.removal)
	return p.lots.Rescale(tx.Symbol, ratio)
}

// inferredClose are the subcodes whose reported direction is unreliable; the
// lot ledger decides instead.
func inferredClose(sub Subcode) bool {
	switch sub {
	case SubExpiration, SubAssignment, SubExercise, SubCashSettledAssignment, SubCashSettledExercise:
		return true
	}
	return false
}

// trade realizes P&L for ordinary trades, expirations, assignments and
// exercises.
func (p *Processor) trade(tx Transaction, rate Quantity, taxFree bool, row *Row) error {
	quantity := tx.Quantity
	if !tx.QuantitySet {
		quantity = Q(1)
	}

	asset := tx.Symbol
	multiplier := Q(1)
	option := tx.IsOption()
	var category AssetType
	if option {
		asset = optionKey(tx)
		multiplier = Q(100.0)
		if strings.HasPrefix(tx.Symbol, "/") {
			multiplier = Multiplier(tx.Symbol)
		}
	} else {
		var err error
		category, err = p.cfg.Classifier.ClassifySymbol(tx.Symbol)
		if err != nil {
			return err
		}
	}
	row.Asset = asset

	if !quantity.IsInteger() && category != Crypto {
		return valErrf("fractional quantity %s for %s", quantity, tx.Symbol)
	}

	// Resolve the true direction. The export leaves Buy/Sell blank or
	// wrong for expirations, assignments and exercises.
	switch {
	case tx.BuySell == Sell:
		quantity = quantity.Neg()
	case inferredClose(tx.Subcode):
		long, err := p.lots.IsLong(asset)
		if err != nil {
			return valErrf("%s for %s with no open position", tx.Subcode, asset)
		}
		if long {
			quantity = quantity.Neg()
		}
	}
	if option {
		if p.lots.Has(asset) {
			long, _ := p.lots.IsLong(asset)
			if long {
				category = LongOption
			} else {
				category = ShortOption
			}
		} else if quantity.IsPositive() {
			category = LongOption
		} else {
			category = ShortOption
		}
	}
	row.Category = category
	row.Quantity = quantity

	if (tx.Subcode == SubExercise || tx.Subcode == SubAssignment) && quantity.IsNegative() {
		log.Printf("note: %s of a long option %s, move its P&L onto the stock position", tx.Subcode, asset)
	}

	if err := checkTrade(tx, quantity, multiplier, category); err != nil {
		return err
	}
	if quantity.IsZero() {
		row.Realizing = false
		return nil
	}

	// The lot unit price derives from the actual cash moved, net of fees.
	net := tx.Amount.Sub(tx.Fees)
	unitUSD := net.Div(quantity).Abs()
	unit := p.reporting(unitUSD, rate)

	// The one-year holding-period exemption only exists for private sales
	// (the currency balance and crypto). Stocks, funds, options and
	// futures fall under the flat tax whatever the holding period, so
	// their matches run undated.
	var on date.Date
	if category == Crypto {
		on = tx.Day()
	}
	taxable, exempt := p.lots.Match(asset, option, quantity, unit, unitUSD, on, taxFree)
	row.PnlTaxable, row.PnlExempt = taxable, exempt
	row.Pnl, row.Realizing = taxable.Add(exempt), true

	if category == Future {
		// Futures settle daily; the raw cash flow is the realized
		// figure, the lot queue only tracks the open contracts.
		row.Pnl = p.reporting(net, rate)
		row.PnlTaxable, row.PnlExempt = row.Pnl, Money{}
	}
	return nil
}

// checkTrade validates that the reported cash amount is consistent with
// quantity × price. Expirations, assignments and exercises move no cash
// unless settled in cash.
func checkTrade(tx Transaction, quantity Quantity, multiplier Quantity, category AssetType) error {
	switch tx.Subcode {
	case SubExpiration, SubAssignment, SubExercise:
		if !tx.Amount.IsZero() {
			return valErrf("%s with non-zero amount %s", tx.Subcode, tx.Amount.StringFixed(4))
		}
		if !tx.Price.IsZero() {
			return valErrf("%s with non-zero price %s", tx.Subcode, tx.Price.StringFixed(4))
		}
		return nil
	case SubCashSettledAssignment, SubCashSettledExercise:
		return nil // settlement cash is not quantity × price
	case SubForwardSplit, SubReverseSplit:
		return nil
	}
	if category == Future {
		// Futures move cash through daily settlement, not notional
		// quantity × price.
		return nil
	}
	expected := tx.Price.Mul(multiplier).Mul(quantity).Neg()
	diff := expected.Sub(tx.Amount).Abs()
	tolerance := M(0.00001, "USD")
	if category == Crypto {
		tolerance = M(0.000001, "USD")
	}
	if diff.GreaterThan(tolerance) {
		return valErrf("amount %s inconsistent with quantity×price %s for %s",
			tx.Amount.StringFixed(6), expected.StringFixed(6), tx.Symbol)
	}
	return nil
}

// optionKey builds the asset key of an option: underlying, right, strike and
// expiry identify the instrument.
func optionKey(tx Transaction) string {
	strike := tx.Strike.String()
	return fmt.Sprintf("%s %s%s %s", tx.Symbol, tx.CallPut, strike, tx.Expiration)
}

// reporting converts a USD amount into the reporting currency.
func (p *Processor) reporting(m Money, rate Quantity) Money {
	if p.cfg.NoConvert {
		return m
	}
	return ConvertUSD(m, rate)
}

func (p *Processor) note(year int, net Money) {
	e := p.extremes[year]
	if e == nil {
		p.extremes[year] = &YearExtremes{Min: net, Max: net}
		return
	}
	if net.LessThan(e.Min) {
		e.Min = net
	}
	if net.GreaterThan(e.Max) {
		e.Max = net
	}
}

