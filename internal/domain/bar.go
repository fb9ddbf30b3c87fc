package domain

import "time"

// Timeframe identifies a bar aggregation period on the venue.
type Timeframe string

const (
	TFM5  Timeframe = "M5"
	TFM15 Timeframe = "M15"
	TFM30 Timeframe = "M30"
	TFH1  Timeframe = "H1"
	TFH4  Timeframe = "H4"
	TFD1  Timeframe = "D1"
)

// Bar is a single OHLC candle. Series are ordered oldest-first and are
// immutable once fetched.
type Bar struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

func (b Bar) Bullish() bool { return b.Close > b.Open }
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Body returns the absolute open-to-close distance.
func (b Bar) Body() float64 {
	d := b.Close - b.Open
	if d < 0 {
		return -d
	}
	return d
}

// Range returns the full high-to-low distance.
func (b Bar) Range() float64 { return b.High - b.Low }

// UpperWick is the distance from the body top to the high.
func (b Bar) UpperWick() float64 {
	top := b.Open
	if b.Close > top {
		top = b.Close
	}
	return b.High - top
}

// LowerWick is the distance from the low to the body bottom.
func (b Bar) LowerWick() float64 {
	bottom := b.Open
	if b.Close < bottom {
		bottom = b.Close
	}
	return bottom - b.Low
}

// BarsSince returns the suffix of bars at or after cutoff. Input order is
// preserved; the result aliases the input slice.
func BarsSince(bars []Bar, cutoff time.Time) []Bar {
	for i, b := range bars {
		if !b.Time.Before(cutoff) {
			return bars[i:]
		}
	}
	return nil
}

// LastN returns at most the n most recent bars.
func LastN(bars []Bar, n int) []Bar {
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}
