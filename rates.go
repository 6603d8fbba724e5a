package tastytax

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tastytax/tastytax/date"
)

// BundesbankURL is the official daily EUR/USD reference rate series.
const BundesbankURL = "https://www.bundesbank.de/statistic-rmi/StatisticDownload?tsId=BBEX3.D.USD.EUR.BB.AC.000&its_csvFormat=en&its_fileFormat=csv&mode=its&its_from=2010"

// RateSource resolves the EUR/USD reference rate for a calendar day.
type RateSource interface {
	// Rate returns the rate for the given day, walking backward one day
	// at a time over weekends and holidays. It fails with ErrNoRate when
	// no earlier rate exists either.
	Rate(on date.Date) (Quantity, error)
}

// RateTable is an in-memory daily EUR/USD rate table loaded from the
// bundesbank CSV export.
type RateTable struct {
	rates map[date.Date]Quantity
	first date.Date // earliest day with a rate, lower bound for the walk-back
}

// LoadRates parses the bundesbank CSV export. Leading metadata lines and the
// trailing footer are skipped; days without a fixing carry "." and are left
// out of the table so that Rate falls back to the previous day.
func (t *RateTable) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ",")
		if len(fields) < 2 {
			continue
		}
		on, err := date.Parse(strings.TrimSpace(fields[0]))
		if err != nil {
			continue // metadata or footer line
		}
		raw := strings.TrimSpace(fields[1])
		if raw == "" || raw == "." {
			continue // no fixing on this day
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("bad rate %q on %s: %w", raw, on, err)
		}
		t.rates[on] = Q(rate)
		if t.first.IsZero() || on.Before(t.first) {
			t.first = on
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(t.rates) == 0 {
		return fmt.Errorf("no rates found in input")
	}
	return nil
}

// LoadRates builds a rate table from a bundesbank CSV stream.
func LoadRates(r io.Reader) (*RateTable, error) {
	t := &RateTable{rates: make(map[date.Date]Quantity)}
	if err := t.load(r); err != nil {
		return nil, err
	}
	return t, nil
}

// OpenRates loads the rate table from a local file, downloading it from the
// bundesbank when the file does not exist.
func OpenRates(ctx context.Context, path string) (*RateTable, error) {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		return LoadRates(f)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	return FetchRates(ctx, BundesbankURL)
}

// FetchRates downloads and parses the bundesbank CSV export.
func FetchRates(ctx context.Context, url string) (*RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching exchange rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching exchange rates: unexpected status %s", resp.Status)
	}
	return LoadRates(resp.Body)
}

// WriteTo saves the table back as a minimal two-column CSV so later runs can
// work offline.
func (t *RateTable) WriteTo(w io.Writer) (int64, error) {
	var n int64
	days := make([]date.Date, 0, len(t.rates))
	for on := range t.rates {
		days = append(days, on)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	for _, on := range days {
		c, err := fmt.Fprintf(w, "%s,%s\n", on, t.rates[on])
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Rate returns the EUR/USD rate for the given day, falling back one day at a
// time when the day has no fixing.
func (t *RateTable) Rate(on date.Date) (Quantity, error) {
	for !on.Before(t.first) {
		if rate, ok := t.rates[on]; ok {
			return rate, nil
		}
		on = on.Add(-1)
	}
	return Quantity{}, fmt.Errorf("%w on or before %s", ErrNoRate, on)
}

var _ RateSource = (*RateTable)(nil)

// ConvertUSD converts a USD amount into EUR at the given rate.
func ConvertUSD(m Money, rate Quantity) Money {
	return Money{value: m.value.Div(rate.value), cur: "EUR"}
}
