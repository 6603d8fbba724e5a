package tastytax

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tastytax/tastytax/date"
)

// legacyHeader is the first line of the historical transaction-history
// export.
var legacyHeader = []string{
	"Date/Time", "Transaction Code", "Transaction Subcode", "Symbol",
	"Buy/Sell", "Open/Close", "Quantity", "Expiration Date", "Strike",
	"Call/Put", "Price", "Fees", "Amount", "Description", "Account Reference",
}

// currentHeader is the first line of the current export, which splits option
// attributes into their own columns and reports the direction as an action
// keyword.
var currentHeader = []string{
	"Date", "Type", "Sub Type", "Action", "Symbol", "Instrument Type",
	"Description", "Value", "Quantity", "Average Price", "Commissions",
	"Fees", "Multiplier", "Root Symbol", "Underlying Symbol",
	"Expiration Date", "Strike Price", "Call or Put", "Order #", "Total",
	"Currency",
}

// timeLayouts are the timestamp formats seen across export revisions.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z",
	"1/2/2006 3:04 PM",
}

// ReadTransactions parses one export stream, detecting the format from its
// header line. Rows come back in file order (newest first in the export).
func ReadTransactions(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading export header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	switch {
	case sameHeader(header, legacyHeader):
		return readRows(cr, len(legacyHeader), parseLegacyRow)
	case sameHeader(header, currentHeader):
		return readRows(cr, len(currentHeader), parseCurrentRow)
	}
	return nil, valErrf("unrecognized export header: %q", strings.Join(header, ","))
}

// ReadFiles concatenates several export files, stable-sorts them by
// timestamp descending and returns them oldest first, ready for the single
// sequential pass. The stable sort keeps same-minute rows in deterministic
// order.
func ReadFiles(paths ...string) ([]Transaction, error) {
	var all []Transaction
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		txs, err := ReadTransactions(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, txs...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.After(all[j].Time) })
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

func sameHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func readRows(cr *csv.Reader, width int, parse func([]string) (Transaction, error)) ([]Transaction, error) {
	var txs []Transaction
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			return txs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) != width {
			return nil, valErrf("line %d: %d columns, want %d", line, len(record), width)
		}
		tx, err := parse(record)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return nil, verr.At(line)
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
}

func parseLegacyRow(rec []string) (Transaction, error) {
	var tx Transaction
	var err error
	if tx.Time, err = parseTime(rec[0]); err != nil {
		return tx, err
	}
	tx.Code = TransactionCode(rec[1])
	tx.Subcode = Subcode(rec[2])
	tx.Symbol = strings.TrimSpace(rec[3])
	tx.BuySell = BuySell(rec[4])
	tx.OpenClose = OpenClose(rec[5])
	if tx.Quantity, tx.QuantitySet, err = parseOptionalQuantity(rec[6]); err != nil {
		return tx, err
	}
	if rec[7] != "" {
		if tx.Expiration, err = date.ParseUS(rec[7]); err != nil {
			return tx, err
		}
	}
	if tx.Strike, tx.StrikeSet, err = parseOptionalQuantity(rec[8]); err != nil {
		return tx, err
	}
	tx.CallPut = CallPut(rec[9])
	if tx.Price, err = parseUSD(rec[10]); err != nil {
		return tx, err
	}
	if tx.Fees, err = parseUSD(rec[11]); err != nil {
		return tx, err
	}
	if tx.Amount, err = parseUSD(rec[12]); err != nil {
		return tx, err
	}
	tx.Description = rec[13]
	tx.AccountRef = rec[14]
	return tx, nil
}

// currentActions maps the current export's action keyword back onto the
// legacy Buy/Sell and Open/Close pair.
var currentActions = map[string]struct {
	buySell   BuySell
	openClose OpenClose
}{
	"":              {BuySellNone, OpenCloseNone},
	"BUY_TO_OPEN":   {Buy, Open},
	"BUY_TO_CLOSE":  {Buy, Close},
	"SELL_TO_OPEN":  {Sell, Open},
	"SELL_TO_CLOSE": {Sell, Close},
}

func parseCurrentRow(rec []string) (Transaction, error) {
	var tx Transaction
	var err error
	if tx.Time, err = parseTime(rec[0]); err != nil {
		return tx, err
	}
	tx.Code = TransactionCode(rec[1])
	tx.Subcode = Subcode(rec[2])
	action, ok := currentActions[rec[3]]
	if !ok {
		return tx, valErrf("unknown action %q", rec[3])
	}
	tx.BuySell, tx.OpenClose = action.buySell, action.openClose
	tx.Description = rec[6]
	if tx.Amount, err = parseUSD(rec[7]); err != nil {
		return tx, err
	}
	if tx.Quantity, tx.QuantitySet, err = parseOptionalQuantity(rec[8]); err != nil {
		return tx, err
	}
	commissions, err := parseUSD(rec[10])
	if err != nil {
		return tx, err
	}
	fees, err := parseUSD(rec[11])
	if err != nil {
		return tx, err
	}
	// The current export reports commissions and fees separately and as
	// negative cash; the legacy model carries one non-negative fee total.
	tx.Fees = commissions.Abs().Add(fees.Abs())
	if rec[15] != "" {
		if tx.Expiration, err = date.ParseUS(rec[15]); err != nil {
			return tx, err
		}
	}
	if tx.Strike, tx.StrikeSet, err = parseOptionalQuantity(rec[16]); err != nil {
		return tx, err
	}
	switch rec[17] {
	case "":
		tx.CallPut = CallPutNone
	case "CALL", "C":
		tx.CallPut = Call
	case "PUT", "P":
		tx.CallPut = Put
	default:
		return tx, valErrf("unknown Call or Put value %q", rec[17])
	}
	// Options identify by their underlying; the compact symbol encodes
	// the full series and is not a key.
	tx.Symbol = strings.TrimSpace(rec[4])
	if tx.IsOption() {
		if under := strings.TrimSpace(rec[14]); under != "" {
			tx.Symbol = under
		}
	}
	if price, err := parseUSD(rec[9]); err == nil && !price.IsZero() {
		mult := Q(1)
		if m, _, err := parseOptionalQuantity(rec[12]); err == nil && !m.IsZero() {
			mult = m
		}
		tx.Price = price.Abs().Div(mult)
	} else if err != nil {
		return tx, err
	}
	if cur := strings.TrimSpace(rec[20]); cur != "" && cur != "USD" {
		return tx, valErrf("unsupported currency %q", cur)
	}
	// The current export carries no account reference; a single-account
	// run is assumed and enforced by the constant empty value.
	return tx, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, valErrf("unparseable timestamp %q", s)
}

// parseUSD parses a dollar figure, tolerating currency signs and thousands
// separators. Empty means zero.
func parseUSD(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "--" {
		return M(0, "USD"), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, valErrf("bad amount %q", s)
	}
	return M(d, "USD"), nil
}

func parseOptionalQuantity(s string) (Quantity, bool, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return Quantity{}, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, false, valErrf("bad quantity %q", s)
	}
	return Q(d), true, nil
}
