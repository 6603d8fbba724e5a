package tastytax

import (
	"fmt"
	"io"
	"sort"

	"github.com/tastytax/tastytax/date"
)

// Lot is a slice of an open position: a recorded unit price (in the reporting
// currency and in USD), a signed quantity, and the acquisition date used for
// the holding-period exemption. The sign of Quantity encodes long or short.
type Lot struct {
	Price    Money     // unit price, reporting currency
	PriceUSD Money     // unit price, USD
	Quantity Quantity  // signed
	Acquired date.Date // zero when acquired undated (options, see Match)
	TaxFree  bool      // excluded from the holding-period exemption
}

// LotLedger maps an asset key to a FIFO queue of open lots, oldest first.
// All lots in one queue share the sign of their quantity whenever a new
// same-direction lot is appended, and a queue never keeps a zero-quantity
// lot at its head.
type LotLedger struct {
	queues map[string][]Lot
}

// NewLotLedger returns an empty lot ledger.
func NewLotLedger() *LotLedger {
	return &LotLedger{queues: make(map[string][]Lot)}
}

// Match applies a signed quantity at the given unit prices to the asset's
// queue and returns the realized profit and loss, split into a taxable and an
// exempt portion (both in the reporting currency).
//
// Same-direction flow opens a new lot and realizes nothing, with one
// exception: opening a short option realizes the received premium as taxable
// income immediately. Opposite-direction flow consumes open lots strictly
// oldest-first; each consumed slice realizes quantity × (price − lot price).
//
// A realized slice is exempt only when a date was supplied, the consumed lot
// was acquired more than one calendar year earlier, neither the lot nor the
// current transaction is flagged tax-free, and the asset is not an option.
// Passing the zero date disables the exemption for the whole call.
func (lg *LotLedger) Match(asset string, option bool, quantity Quantity, price, priceUSD Money, on date.Date, taxFree bool) (taxable, exempt Money) {
	if quantity.IsZero() {
		return taxable, exempt
	}
	q := lg.queues[asset]
	for len(q) > 0 {
		head := &q[0]
		if head.Quantity.SameSign(quantity) {
			// Same trading direction: buy more while long, or sell
			// more while short. Append below.
			break
		}
		if !head.Quantity.Abs().LessThan(quantity.Abs()) {
			// The head lot covers the whole remaining quantity.
			t, e := realize(option, *head, quantity, price, on, taxFree)
			taxable, exempt = taxable.Add(t), exempt.Add(e)
			head.Quantity = head.Quantity.Add(quantity)
			if head.Quantity.IsZero() {
				q = q[1:]
			}
			if len(q) == 0 {
				delete(lg.queues, asset)
			} else {
				lg.queues[asset] = q
			}
			return taxable, exempt
		}
		// Consume the head lot entirely and continue against the next.
		t, e := realize(option, *head, head.Quantity.Neg(), price, on, taxFree)
		taxable, exempt = taxable.Add(t), exempt.Add(e)
		quantity = quantity.Add(head.Quantity)
		q = q[1:]
	}
	q = append(q, Lot{Price: price, PriceUSD: priceUSD, Quantity: quantity, Acquired: on, TaxFree: taxFree})
	lg.queues[asset] = q
	if option && quantity.IsNegative() {
		// Premium for a written option is income on receipt, not on close.
		taxable = taxable.Add(price.Mul(quantity).Neg())
	}
	return taxable, exempt
}

// realize computes the profit and loss of closing matched units of lot at
// price. matched carries the sign of the closing flow.
func realize(option bool, lot Lot, matched Quantity, price Money, on date.Date, taxFree bool) (taxable, exempt Money) {
	var pnl Money
	if option && matched.IsPositive() {
		// Buying back a written option: the premium was already taxed
		// on receipt, only the buy-back leg counts now.
		pnl = price.Mul(matched).Neg()
	} else {
		pnl = price.Sub(lot.Price).Mul(matched).Neg()
	}
	if !option && !on.IsZero() && !lot.Acquired.IsZero() &&
		lot.Acquired.Before(on.AddYears(-1)) && !lot.TaxFree && !taxFree {
		return Money{}, pnl
	}
	return pnl, Money{}
}

// IsLong reports whether the asset's open position is long. The export does
// not reliably report the trade direction for expirations, assignments and
// exercises, so the processor asks the ledger instead.
func (lg *LotLedger) IsLong(asset string) (bool, error) {
	q := lg.queues[asset]
	if len(q) == 0 {
		return false, fmt.Errorf("no open position in %q", asset)
	}
	return q[0].Quantity.IsPositive(), nil
}

// Has reports whether the asset currently has open lots.
func (lg *LotLedger) Has(asset string) bool { return len(lg.queues[asset]) > 0 }

// Position returns the total signed open quantity for the asset.
func (lg *LotLedger) Position(asset string) Quantity {
	var total Quantity
	for _, lot := range lg.queues[asset] {
		total = total.Add(lot.Quantity)
	}
	return total
}

// Lots returns a copy of the asset's open lots, oldest first.
func (lg *LotLedger) Lots(asset string) []Lot {
	q := lg.queues[asset]
	out := make([]Lot, len(q))
	copy(out, q)
	return out
}

// Rescale applies a split ratio to every open lot of the asset: quantities
// are multiplied by the ratio, unit prices divided by it. The position value
// is unchanged.
func (lg *LotLedger) Rescale(asset string, ratio Quantity) error {
	q := lg.queues[asset]
	if len(q) == 0 {
		return fmt.Errorf("split for %q with no open position", asset)
	}
	for i := range q {
		q[i].Quantity = q[i].Quantity.Mul(ratio)
		q[i].Price = q[i].Price.Div(ratio)
		q[i].PriceUSD = q[i].PriceUSD.Div(ratio)
	}
	return nil
}

// OpenValueUSD returns the summed cost value of the open instrument lots in
// USD. The currency tracker mirrors the cash balance and is skipped; the
// caller counts cash itself.
func (lg *LotLedger) OpenValueUSD() Money {
	total := M(0, "USD")
	for key, q := range lg.queues {
		if key == cashAsset {
			continue
		}
		for _, lot := range q {
			total = total.Add(lot.PriceUSD.Mul(lot.Quantity))
		}
	}
	return total
}

// Keys returns all asset keys with open lots, sorted.
func (lg *LotLedger) Keys() []string {
	keys := make([]string, 0, len(lg.queues))
	for k := range lg.queues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dump writes the open positions in a stable order, for verbose output.
func (lg *LotLedger) Dump(w io.Writer) {
	fmt.Fprintln(w, "open positions:")
	for _, k := range lg.Keys() {
		for _, lot := range lg.queues[k] {
			fmt.Fprintf(w, "  %s: %s @ %s (acquired %s)\n", k, lot.Quantity, lot.Price.StringFixed(4), lot.Acquired)
		}
	}
}
