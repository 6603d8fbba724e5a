package tastytax

import (
	"fmt"
	"strings"
)

// AssetType is the tax category a ledger row falls into. Trading categories
// aggregate differently (and carry losses differently) year over year, so
// every normalized row carries exactly one.
type AssetType string

const (
	LongOption     AssetType = "LongOption"
	ShortOption    AssetType = "ShortOption"
	Crypto         AssetType = "Crypto"
	IndStock       AssetType = "IndStock"
	AktienFond     AssetType = "AktienFond"
	ImmobilienFond AssetType = "ImmobilienFond"
	OtherStock     AssetType = "OtherStock"
	Future         AssetType = "Future"
	Transfer       AssetType = "Transfer"
	Dividend       AssetType = "Dividend"
	WithholdingTax AssetType = "WithholdingTax"
	Interest       AssetType = "Interest"
	Fee            AssetType = "Fee"
	OrderPayments  AssetType = "OrderPayments"
)

// IsTrade reports whether the category results from lot-matched trading.
func (a AssetType) IsTrade() bool {
	switch a {
	case LongOption, ShortOption, Crypto, IndStock, AktienFond, ImmobilienFond, OtherStock, Future:
		return true
	}
	return false
}

// IsDerivative reports whether the category falls under the forward-style
// loss limitation (Termingeschäfte).
func (a AssetType) IsDerivative() bool {
	return a == LongOption || a == ShortOption || a == Future
}

// equityFunds are well-known ETFs taxed as equity funds.
var equityFunds = map[string]bool{
	"DXJ": true, "EEM": true, "EFA": true, "EWZ": true, "FEZ": true,
	"FXB": true, "FXE": true, "FXI": true, "GDX": true, "GDXJ": true,
	"GLD": true, "HYG": true, "IEF": true, "IWM": true, "KRE": true,
	"OIH": true, "QQQ": true, "RSX": true, "SLV": true, "SMH": true,
	"SPY": true, "TLT": true, "UNG": true, "USO": true, "VXX": true,
	"XBI": true, "XLB": true, "XLE": true, "XLF": true, "XLI": true,
	"XLK": true, "XLP": true, "XLU": true, "XLV": true, "XME": true,
	"XOP": true, "XRT": true,
}

// realEstateFunds are well-known REIT funds, taxed under their own category.
var realEstateFunds = map[string]bool{
	"IYR": true, "VNQ": true, "REM": true, "SCHH": true, "XHB": true,
}

// indexStocks are well-known index constituents.
var indexStocks = map[string]bool{
	"AAPL": true, "AMD": true, "AMZN": true, "BA": true, "DIS": true,
	"GOOG": true, "GOOGL": true, "INTC": true, "JPM": true, "KO": true,
	"M": true, "META": true, "MSFT": true, "NFLX": true, "NVDA": true,
	"PFE": true, "T": true, "TSLA": true, "WMT": true, "XOM": true,
}

// otherStocks are known individual stocks outside the index tables.
var otherStocks = map[string]bool{
	"GPRO": true, "NKLA": true, "SNDL": true, "SPCE": true, "TLRY": true,
}

// cashSettledUnderlyings are index products whose assignments and exercises
// settle in cash and show up twice in the export.
var cashSettledUnderlyings = map[string]bool{
	"SPX": true, "NDX": true, "RUT": true, "VIX": true, "XSP": true,
}

// Classifier decides the tax category of a symbol from its naming convention
// and the static membership tables. It holds no per-run state.
type Classifier struct {
	// AssumeStock makes unknown symbols default to IndStock instead of
	// failing. The conservative default is to fail.
	AssumeStock bool
}

// ClassifySymbol returns the tax category of a non-option symbol.
// Unknown symbols are an error unless AssumeStock is set.
func (c Classifier) ClassifySymbol(symbol string) (AssetType, error) {
	switch {
	case strings.HasSuffix(symbol, "/USD"):
		return Crypto, nil
	case strings.HasPrefix(symbol, "/"):
		return Future, nil
	case equityFunds[symbol]:
		return AktienFond, nil
	case realEstateFunds[symbol]:
		return ImmobilienFond, nil
	case indexStocks[symbol]:
		return IndStock, nil
	case otherStocks[symbol]:
		return OtherStock, nil
	}
	if c.AssumeStock {
		return IndStock, nil
	}
	return "", fmt.Errorf("%w: %q, use -assume-individual-stock to default unknown symbols", ErrUnclassifiable, symbol)
}

// IsCashSettled reports whether the option underlying settles in cash.
func IsCashSettled(symbol string) bool { return cashSettledUnderlyings[symbol] }

// futuresMultipliers maps a futures symbol prefix to its contract multiplier.
var futuresMultipliers = map[string]float64{
	"/ES": 50, "/MES": 5, "/NQ": 20, "/MNQ": 2,
	"/RTY": 50, "/M2K": 5, "/YM": 5,
	"/CL": 1000, "/QM": 500, "/NG": 10000,
	"/GC": 100, "/MGC": 10, "/SI": 5000,
	"/ZB": 1000, "/ZN": 1000, "/ZC": 50, "/ZS": 50,
	"/6A": 100000, "/6B": 62500, "/6E": 125000,
	"/BTC": 5, "/MBT": 0.1,
}

// Multiplier returns the contract multiplier for a futures symbol, matching
// the longest known prefix and falling back to 100.
func Multiplier(symbol string) Quantity {
	best := ""
	for prefix := range futuresMultipliers {
		if strings.HasPrefix(symbol, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Q(100.0)
	}
	return Q(futuresMultipliers[best])
}
