package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PnLReport compares the current balance against the starting balance.
// Decimal arithmetic keeps the reported figures exact regardless of how the
// floats arrived from the venue.
type PnLReport struct {
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	PnL            decimal.Decimal
	PnLPct         decimal.Decimal
}

// NewPnLReport builds a report from raw balances. Initial must be non-zero.
func NewPnLReport(initial, current float64) (PnLReport, error) {
	init := decimal.NewFromFloat(initial)
	if init.IsZero() {
		return PnLReport{}, fmt.Errorf("initial balance is zero")
	}
	cur := decimal.NewFromFloat(current)
	pnl := cur.Sub(init).Round(2)
	pct := pnl.Div(init).Mul(decimal.NewFromInt(100)).Round(4)
	return PnLReport{
		InitialBalance: init,
		CurrentBalance: cur,
		PnL:            pnl,
		PnLPct:         pct,
	}, nil
}

func (r PnLReport) String() string {
	sign := "+"
	if r.PnL.IsNegative() {
		sign = "-"
	}
	pctSign := "+"
	if r.PnLPct.IsNegative() {
		pctSign = "-"
	}
	return fmt.Sprintf("%s%s USD (%s%s%%)", sign, r.PnL.Abs().StringFixed(2), pctSign, r.PnLPct.Abs().StringFixed(4))
}
