package domain

import "time"

// TradeStatus of a journal row.
type TradeStatus string

const (
	StatusOpened  TradeStatus = "opened"
	StatusSkipped TradeStatus = "skipped"
	StatusClosed  TradeStatus = "closed"
)

// JournalRow is an immutable append-only record of a plan attempt or a
// position close. Closes carry only ticket and pnl; the remaining fields stay
// zero.
type JournalRow struct {
	ID        string
	Time      time.Time
	Symbol    string
	Direction Direction
	Ticket    int64
	Volume    float64
	Entry     float64
	Stop      float64
	Target    float64
	Status    TradeStatus
	PnL       float64
}
