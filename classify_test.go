package tastytax

import (
	"errors"
	"testing"
)

func TestClassifySymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   AssetType
	}{
		{"BTC/USD", Crypto},
		{"ETH/USD", Crypto},
		{"/ES", Future},
		{"/CLZ3", Future},
		{"SPY", AktienFond},
		{"GLD", AktienFond},
		{"VNQ", ImmobilienFond},
		{"AAPL", IndStock},
		{"MSFT", IndStock},
		{"GPRO", OtherStock},
	}
	var c Classifier
	for _, tt := range tests {
		got, err := c.ClassifySymbol(tt.symbol)
		if err != nil {
			t.Errorf("ClassifySymbol(%q): %v", tt.symbol, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ClassifySymbol(%q) = %s, want %s", tt.symbol, got, tt.want)
		}
	}
}

func TestClassifyUnknownSymbol(t *testing.T) {
	var c Classifier
	if _, err := c.ClassifySymbol("ZZZT"); !errors.Is(err, ErrUnclassifiable) {
		t.Errorf("err = %v, want ErrUnclassifiable", err)
	}

	got, err := Classifier{AssumeStock: true}.ClassifySymbol("ZZZT")
	if err != nil {
		t.Fatal(err)
	}
	if got != IndStock {
		t.Errorf("assumed category = %s, want IndStock", got)
	}
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		symbol string
		want   float64
	}{
		{"/ES", 50},
		{"/ESU1", 50},
		{"/MES", 5},
		{"/MESM1", 5},
		{"/NG", 10000},
		{"/MBT", 0.1},
		{"/ZZ", 100}, // unknown root falls back to the option default
	}
	for _, tt := range tests {
		if got := Multiplier(tt.symbol); !got.Equal(Q(tt.want)) {
			t.Errorf("Multiplier(%q) = %s, want %v", tt.symbol, got, tt.want)
		}
	}
}

func TestIsCashSettled(t *testing.T) {
	if !IsCashSettled("SPX") {
		t.Error("SPX should settle in cash")
	}
	if IsCashSettled("AAPL") {
		t.Error("AAPL should not settle in cash")
	}
}
