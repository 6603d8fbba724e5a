package tastytax

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	ok := tradeTx("2021-01-04 16:30", SubBuyToOpen, "AAPL", Buy, 10, 120, 1.042, -1200)
	if err := ok.Validate(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"unknown code", func(tx *Transaction) { tx.Code = "Journal" }},
		{"unknown trade subcode", func(tx *Transaction) { tx.Subcode = SubExpiration }},
		{"unknown direction", func(tx *Transaction) { tx.BuySell = "Short" }},
		{"unknown open/close", func(tx *Transaction) { tx.OpenClose = "Roll" }},
		{"unknown right", func(tx *Transaction) { tx.CallPut = "X" }},
		{"negative price", func(tx *Transaction) { tx.Price = usd(-1) }},
		{"sub-minute timestamp", func(tx *Transaction) { tx.Time = tx.Time.Add(30 * time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ok
			tt.mutate(&tx)
			if err := tx.Validate(); err == nil {
				t.Error("Validate accepted the row")
			}
		})
	}
}

func TestValidateDescriptions(t *testing.T) {
	adj := moneyMovementTx("2021-01-04 10:00", SubBalanceAdjustment, "", "Regulatory fee adjustment", -0.01)
	if err := adj.Validate(); err != nil {
		t.Fatal(err)
	}
	adj.Description = "Manual adjustment"
	if err := adj.Validate(); err == nil {
		t.Error("unexpected Balance Adjustment description accepted")
	}

	asg := optionTx("2021-03-19 22:00", CodeReceiveDeliver, SubAssignment,
		"AAPL", BuySellNone, 1, "2021-03-19", 120, Put, 0, 0, 0)
	asg.Description = "Removal of option due to assignment"
	if err := asg.Validate(); err != nil {
		t.Fatal(err)
	}
	asg.Description = "Assigned"
	if err := asg.Validate(); err == nil {
		t.Error("unexpected Assignment description accepted")
	}
}

func TestTransactionIsOption(t *testing.T) {
	stock := tradeTx("2021-01-04 16:30", SubBuyToOpen, "AAPL", Buy, 10, 120, 0, -1200)
	if stock.IsOption() {
		t.Error("stock row reported as option")
	}
	opt := optionTx("2021-01-04 16:30", CodeTrade, SubSellToOpen,
		"AAPL", Sell, 1, "2021-06-18", 120, Put, 3, 0, 300)
	if !opt.IsOption() {
		t.Error("option row not recognized")
	}
	if opt.Day() != day("2021-01-04") || opt.Year() != 2021 {
		t.Errorf("day/year = %s/%d", opt.Day(), opt.Year())
	}
}
