package tastytax

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ratesCSV mimics the bundesbank export: metadata lines, a header, and a "."
// on days without a fixing.
const ratesCSV = `BBEX3.D.USD.EUR.BB.AC.000,ECB reference rate USD
Time period,Value,Flag
2021-01-04,1.2296,
2021-01-05,1.2271,
2021-01-06,.,No value available
2021-01-08,1.2250,
`

func TestLoadRates(t *testing.T) {
	table, err := LoadRates(strings.NewReader(ratesCSV))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		on   string
		want float64
	}{
		{"2021-01-04", 1.2296},
		{"2021-01-05", 1.2271},
		{"2021-01-06", 1.2271}, // no fixing, previous day
		{"2021-01-07", 1.2271}, // absent, previous day
		{"2021-01-08", 1.2250},
		{"2021-02-15", 1.2250}, // far past the table end
	}
	for _, tt := range tests {
		got, err := table.Rate(day(tt.on))
		if err != nil {
			t.Errorf("Rate(%s): %v", tt.on, err)
			continue
		}
		if !got.Equal(Q(tt.want)) {
			t.Errorf("Rate(%s) = %s, want %v", tt.on, got, tt.want)
		}
	}
}

func TestRateBeforeFirstFixing(t *testing.T) {
	table, err := LoadRates(strings.NewReader(ratesCSV))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := table.Rate(day("2021-01-01")); !errors.Is(err, ErrNoRate) {
		t.Errorf("err = %v, want ErrNoRate", err)
	}
}

func TestLoadRatesEmpty(t *testing.T) {
	if _, err := LoadRates(strings.NewReader("header only\n")); err == nil {
		t.Error("LoadRates succeeded on an input without rates")
	}
}

func TestRateTableWriteTo(t *testing.T) {
	table, err := LoadRates(strings.NewReader(ratesCSV))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := table.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	want := "2021-01-04,1.2296\n2021-01-05,1.2271\n2021-01-08,1.225\n"
	if buf.String() != want {
		t.Errorf("WriteTo:\n%s\nwant:\n%s", buf.String(), want)
	}

	// The round trip preserves the walk-back behavior.
	reloaded, err := LoadRates(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.Rate(day("2021-01-07"))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(Q(1.2271)) {
		t.Errorf("reloaded Rate = %s, want 1.2271", got)
	}
}

func TestConvertUSD(t *testing.T) {
	got := ConvertUSD(usd(123), Q(1.23))
	moneyEq(t, "converted", got, eur(100))
	if got.Currency() != "EUR" {
		t.Errorf("currency = %q, want EUR", got.Currency())
	}
}
