package tastytax

import (
	"fmt"
	"time"

	"github.com/tastytax/tastytax/date"
)

// TransactionCode is a typed string for the top-level transaction code of a
// brokerage ledger row.
type TransactionCode string

const (
	CodeMoneyMovement  TransactionCode = "Money Movement"
	CodeTrade          TransactionCode = "Trade"
	CodeReceiveDeliver TransactionCode = "Receive Deliver"
)

// Subcode is a typed string for the transaction subcode. The set of valid
// subcodes depends on the transaction code.
type Subcode string

const (
	// Money Movement subcodes.
	SubTransfer          Subcode = "Transfer"
	SubDeposit           Subcode = "Deposit"
	SubCreditInterest    Subcode = "Credit Interest"
	SubDebitInterest     Subcode = "Debit Interest"
	SubBalanceAdjustment Subcode = "Balance Adjustment"
	SubFee               Subcode = "Fee"
	SubWithdrawal        Subcode = "Withdrawal"
	SubDividend          Subcode = "Dividend"
	SubMarkToMarket      Subcode = "Mark to Market"

	// Trade subcodes. Receive Deliver reuses them for early assignments.
	SubBuyToOpen   Subcode = "Buy to Open"
	SubBuyToClose  Subcode = "Buy to Close"
	SubSellToOpen  Subcode = "Sell to Open"
	SubSellToClose Subcode = "Sell to Close"

	// Receive Deliver subcodes.
	SubExpiration            Subcode = "Expiration"
	SubAssignment            Subcode = "Assignment"
	SubExercise              Subcode = "Exercise"
	SubForwardSplit          Subcode = "Forward Split"
	SubReverseSplit          Subcode = "Reverse Split"
	SubCashSettledAssignment Subcode = "Cash Settled Assignment"
	SubCashSettledExercise   Subcode = "Cash Settled Exercise"
)

// BuySell is the reported trade direction. It is blank for money movements
// and unreliable for expirations, assignments and exercises.
type BuySell string

const (
	BuySellNone BuySell = ""
	Buy         BuySell = "Buy"
	Sell        BuySell = "Sell"
)

// OpenClose reports whether the trade opens or closes a position.
type OpenClose string

const (
	OpenCloseNone OpenClose = ""
	Open          OpenClose = "Open"
	Close         OpenClose = "Close"
)

// CallPut is the option right.
type CallPut string

const (
	CallPutNone CallPut = ""
	Call        CallPut = "C"
	Put         CallPut = "P"
)

// Transaction is one immutable row of the brokerage transaction ledger.
//
// Quantity and Strike are optional in the export; QuantitySet and StrikeSet
// report whether the column was present. Expiration is the zero Date when the
// row is not an option row.
type Transaction struct {
	Time        time.Time // minute precision, seconds are always zero
	Code        TransactionCode
	Subcode     Subcode
	Symbol      string
	BuySell     BuySell
	OpenClose   OpenClose
	Quantity    Quantity
	QuantitySet bool
	Expiration  date.Date
	Strike      Quantity
	StrikeSet   bool
	CallPut     CallPut
	Price       Money // per-share price in USD, never negative
	Fees        Money // USD, never negative
	Amount      Money // signed net cash effect in USD, fees not included
	Description string
	AccountRef  string
}

// Day returns the calendar day of the transaction.
func (t Transaction) Day() date.Date { return date.Of(t.Time) }

// Year returns the tax year of the transaction.
func (t Transaction) Year() int { return t.Time.Year() }

// IsOption reports whether the row carries option attributes.
func (t Transaction) IsOption() bool { return !t.Expiration.IsZero() }

var moneyMovementSubcodes = map[Subcode]bool{
	SubTransfer:          true,
	SubDeposit:           true,
	SubCreditInterest:    true,
	SubDebitInterest:     true,
	SubBalanceAdjustment: true,
	SubFee:               true,
	SubWithdrawal:        true,
	SubDividend:          true,
	SubMarkToMarket:      true,
	// Duplicate legs of Receive Deliver settlements; the processor drops
	// them before they reach any total.
	SubCashSettledAssignment: true,
	SubCashSettledExercise:   true,
}

var tradeSubcodes = map[Subcode]bool{
	SubBuyToOpen:   true,
	SubBuyToClose:  true,
	SubSellToOpen:  true,
	SubSellToClose: true,
}

var receiveDeliverSubcodes = map[Subcode]bool{
	SubBuyToOpen:             true,
	SubBuyToClose:            true,
	SubSellToOpen:            true,
	SubSellToClose:           true,
	SubExpiration:            true,
	SubAssignment:            true,
	SubExercise:              true,
	SubForwardSplit:          true,
	SubReverseSplit:          true,
	SubCashSettledAssignment: true,
	SubCashSettledExercise:   true,
}

// Validate checks the row against the closed vocabulary of the export format.
// Any unknown code, subcode or enum combination is a ValidationError: an
// unknown row could be anything, and guessing would misstate a tax figure.
func (t Transaction) Validate() error {
	switch t.Code {
	case CodeMoneyMovement:
		if !moneyMovementSubcodes[t.Subcode] {
			return valErrf("unknown Money Movement subcode %q", t.Subcode)
		}
		if t.Subcode == SubBalanceAdjustment && t.Description != "Regulatory fee adjustment" {
			return valErrf("unexpected Balance Adjustment description %q", t.Description)
		}
	case CodeTrade:
		if !tradeSubcodes[t.Subcode] {
			return valErrf("unknown Trade subcode %q", t.Subcode)
		}
	case CodeReceiveDeliver:
		if !receiveDeliverSubcodes[t.Subcode] {
			return valErrf("unknown Receive Deliver subcode %q", t.Subcode)
		}
		if t.Subcode == SubAssignment && t.Description != "Removal of option due to assignment" {
			return valErrf("unexpected Assignment description %q", t.Description)
		}
		if t.Subcode == SubExercise && t.Description != "Removal of option due to exercise" {
			return valErrf("unexpected Exercise description %q", t.Description)
		}
	default:
		return valErrf("unknown transaction code %q", t.Code)
	}

	switch t.BuySell {
	case BuySellNone, Buy, Sell:
	default:
		return valErrf("unknown Buy/Sell value %q", t.BuySell)
	}
	switch t.OpenClose {
	case OpenCloseNone, Open, Close:
	default:
		return valErrf("unknown Open/Close value %q", t.OpenClose)
	}
	switch t.CallPut {
	case CallPutNone, Call, Put:
	default:
		return valErrf("unknown Call/Put value %q", t.CallPut)
	}

	if t.Price.IsNegative() {
		return valErrf("negative price %s", t.Price.StringFixed(4))
	}
	if t.Time.Second() != 0 || t.Time.Nanosecond() != 0 {
		return valErrf("timestamp %s has sub-minute precision", t.Time.Format(time.RFC3339))
	}
	return nil
}

func valErrf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
