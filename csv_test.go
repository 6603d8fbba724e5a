package tastytax

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const legacyCSV = `Date/Time,Transaction Code,Transaction Subcode,Symbol,Buy/Sell,Open/Close,Quantity,Expiration Date,Strike,Call/Put,Price,Fees,Amount,Description,Account Reference
2021-03-01 17:00:00,Trade,Sell to Close,AAPL,Sell,Close,10,,,,130.00,0.242,1300.00,Sold 10 AAPL @ 130.00,5WX01234
2021-01-04 16:30:00,Trade,Buy to Open,AAPL,Buy,Open,10,,,,120.00,1.042,"-1,200.00",Bought 10 AAPL @ 120.00,5WX01234
`

func TestReadTransactionsLegacy(t *testing.T) {
	txs, err := ReadTransactions(strings.NewReader(legacyCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txs))
	}

	buy := txs[1]
	if buy.Code != CodeTrade || buy.Subcode != SubBuyToOpen {
		t.Errorf("code/subcode = %s/%s", buy.Code, buy.Subcode)
	}
	if buy.Symbol != "AAPL" || buy.BuySell != Buy || buy.OpenClose != Open {
		t.Errorf("symbol/direction = %q %s %s", buy.Symbol, buy.BuySell, buy.OpenClose)
	}
	if !buy.QuantitySet || !buy.Quantity.Equal(Q(10)) {
		t.Errorf("quantity = %s (set %t), want 10", buy.Quantity, buy.QuantitySet)
	}
	if buy.IsOption() || buy.StrikeSet {
		t.Error("stock row carries option attributes")
	}
	moneyEq(t, "price", buy.Price, usd(120))
	moneyEq(t, "fees", buy.Fees, usd(1.042))
	moneyEq(t, "amount", buy.Amount, usd(-1200))
	if buy.AccountRef != "5WX01234" {
		t.Errorf("account ref = %q", buy.AccountRef)
	}
	if got := buy.Time.Format("2006-01-02 15:04"); got != "2021-01-04 16:30" {
		t.Errorf("time = %s", got)
	}
}

const legacyOptionCSV = `Date/Time,Transaction Code,Transaction Subcode,Symbol,Buy/Sell,Open/Close,Quantity,Expiration Date,Strike,Call/Put,Price,Fees,Amount,Description,Account Reference
2021-02-19 22:00:00,Receive Deliver,Expiration,AAPL,,,2,02/19/2021,120,P,,0.00,0.00,Removal of 2 AAPL P 120 due to expiration,5WX01234
`

func TestReadTransactionsLegacyOption(t *testing.T) {
	txs, err := ReadTransactions(strings.NewReader(legacyOptionCSV))
	if err != nil {
		t.Fatal(err)
	}
	tx := txs[0]
	if !tx.IsOption() {
		t.Fatal("option row not recognized")
	}
	if tx.Expiration != day("2021-02-19") {
		t.Errorf("expiration = %s", tx.Expiration)
	}
	if !tx.StrikeSet || !tx.Strike.Equal(Q(120)) {
		t.Errorf("strike = %s (set %t)", tx.Strike, tx.StrikeSet)
	}
	if tx.CallPut != Put {
		t.Errorf("call/put = %q", tx.CallPut)
	}
	if tx.BuySell != BuySellNone {
		t.Errorf("buy/sell = %q, want blank", tx.BuySell)
	}
}

const currentCSV = `Date,Type,Sub Type,Action,Symbol,Instrument Type,Description,Value,Quantity,Average Price,Commissions,Fees,Multiplier,Root Symbol,Underlying Symbol,Expiration Date,Strike Price,Call or Put,Order #,Total,Currency
2023-02-13T18:00:00-0500,Trade,Sell to Open,SELL_TO_OPEN,AAPL  230317P00140000,Equity Option,Sold 1 AAPL 03/17/23 Put 140.00 @ 2.50,250.00,1,250.00,-1.00,-0.12,100,AAPL,AAPL,03/17/2023,140,PUT,12345,248.88,USD
2023-02-10T16:30:00-0500,Trade,Buy to Open,BUY_TO_OPEN,MSFT,Equity,Bought 10 MSFT @ 263.10,"-2,631.00",10,263.10,-1.00,-0.08,1,MSFT,,,,,12344,"-2,632.08",USD
`

func TestReadTransactionsCurrent(t *testing.T) {
	txs, err := ReadTransactions(strings.NewReader(currentCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txs))
	}

	opt := txs[0]
	if opt.Symbol != "AAPL" {
		t.Errorf("option symbol = %q, want the underlying", opt.Symbol)
	}
	if opt.BuySell != Sell || opt.OpenClose != Open {
		t.Errorf("direction = %s %s", opt.BuySell, opt.OpenClose)
	}
	if opt.Expiration != day("2023-03-17") || opt.CallPut != Put || !opt.Strike.Equal(Q(140)) {
		t.Errorf("option attributes = %s %s %s", opt.Expiration, opt.CallPut, opt.Strike)
	}
	moneyEq(t, "per-share price", opt.Price, usd(2.50))
	moneyEq(t, "combined fees", opt.Fees, usd(1.12))
	moneyEq(t, "amount", opt.Amount, usd(250))

	stock := txs[1]
	if stock.Symbol != "MSFT" || stock.IsOption() {
		t.Errorf("stock row = %q option=%t", stock.Symbol, stock.IsOption())
	}
	moneyEq(t, "price", stock.Price, usd(263.10))
	moneyEq(t, "fees", stock.Fees, usd(1.08))
	moneyEq(t, "amount", stock.Amount, usd(-2631))
}

func TestReadTransactionsCurrentRejectsForeignCurrency(t *testing.T) {
	in := strings.ReplaceAll(currentCSV, ",USD\n", ",EUR\n")
	if _, err := ReadTransactions(strings.NewReader(in)); err == nil {
		t.Error("foreign currency accepted")
	}
}

func TestReadTransactionsUnknownHeader(t *testing.T) {
	if _, err := ReadTransactions(strings.NewReader("a,b,c\n1,2,3\n")); err == nil {
		t.Error("unknown header accepted")
	}
}

func TestReadFilesMergesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "2021.csv")
	second := filepath.Join(dir, "2023.csv")
	if err := os.WriteFile(first, []byte(legacyCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte(currentCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	txs, err := ReadFiles(second, first)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 4 {
		t.Fatalf("transactions = %d, want 4", len(txs))
	}
	for i := 1; i < len(txs); i++ {
		if txs[i].Time.Before(txs[i-1].Time) {
			t.Fatalf("transactions not oldest first: %s after %s", txs[i-1].Time, txs[i].Time)
		}
	}
	if txs[0].Symbol != "AAPL" || txs[3].Symbol != "AAPL" {
		t.Errorf("unexpected order: %q .. %q", txs[0].Symbol, txs[3].Symbol)
	}
}

func TestParseUSD(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"--", 0},
		{"1.50", 1.5},
		{"$1,234.56", 1234.56},
		{"-2,631.00", -2631},
	}
	for _, tt := range tests {
		got, err := parseUSD(tt.in)
		if err != nil {
			t.Errorf("parseUSD(%q): %v", tt.in, err)
			continue
		}
		moneyEq(t, "parseUSD("+tt.in+")", got, usd(tt.want))
	}
	if _, err := parseUSD("abc"); err == nil {
		t.Error("parseUSD accepted garbage")
	}
}

func TestParseOptionalQuantity(t *testing.T) {
	if _, set, err := parseOptionalQuantity(""); err != nil || set {
		t.Errorf("empty quantity: set=%t err=%v", set, err)
	}
	q, set, err := parseOptionalQuantity("1,200.5")
	if err != nil || !set || !q.Equal(Q(1200.5)) {
		t.Errorf("got %s set=%t err=%v", q, set, err)
	}
}
