package domain

import "time"

// Position is a venue-owned open trade, observed via the venue API. It is
// mutated only through stop/target modification or partial volume reduction.
type Position struct {
	Ticket    int64
	Symbol    string
	Direction Direction
	OpenPrice float64
	Volume    float64
	Stop      float64 // 0 means no stop set
	Target    float64 // 0 means no target set
	OpenTime  time.Time
}

// Tick is a top-of-book quote.
type Tick struct {
	Bid  float64
	Ask  float64
	Time time.Time
}

// EntryPrice returns the side of the quote a market order in the given
// direction would fill at.
func (t Tick) EntryPrice(d Direction) float64 {
	if d == DirectionLong {
		return t.Ask
	}
	return t.Bid
}

// SymbolConstraints are the venue's trading limits for one instrument.
type SymbolConstraints struct {
	VolumeMin    float64
	VolumeMax    float64
	VolumeStep   float64
	TickValue    float64
	TickSize     float64
	ContractSize float64
	Tradable     bool
}

// AccountSnapshot is a point-in-time view of the trading account.
type AccountSnapshot struct {
	Balance    float64
	Equity     float64
	MarginUsed float64
}

// Deal is one entry in the venue's closed-deal history. Exit marks deals that
// close (fully or partially) an existing position.
type Deal struct {
	Ticket     int64 // position identifier the deal belongs to
	Symbol     string
	Profit     float64
	Commission float64
	Swap       float64
	Exit       bool
	Time       time.Time
}

// NetPnL aggregates profit, commission and swap for the deal.
func (d Deal) NetPnL() float64 { return d.Profit + d.Commission + d.Swap }

// OneShotFlags track per-ticket actions that must fire at most once over a
// position's lifetime. Each flag only ever transitions false to true.
type OneShotFlags struct {
	BreakevenApplied bool
	PartialApplied   bool
}
