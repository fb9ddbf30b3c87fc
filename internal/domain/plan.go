package domain

import "fmt"

// Direction of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// TradePlan is a fully specified candidate trade produced by the signal
// builder. Immutable after creation except Volume (re-sized against venue
// constraints) and Comment.
type TradePlan struct {
	Symbol    string
	Direction Direction
	Entry     float64
	Stop      float64
	Target    float64
	Volume    float64
	EntryTF   Timeframe
	Comment   string
}

// Signature normalizes a plan for duplicate detection: symbol, direction and
// the entry price rounded to 5 decimals. Two plans with the same signature
// are treated as the same signal.
func (p *TradePlan) Signature() string {
	return fmt.Sprintf("%s|%s|%.5f", p.Symbol, p.Direction, p.Entry)
}
