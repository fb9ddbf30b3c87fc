package usecase

import (
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// Trend is the per-timeframe bull/bear label. TrendNone means not enough
// history to decide.
type Trend string

const (
	TrendNone Trend = ""
	TrendBull Trend = "bull"
	TrendBear Trend = "bear"
)

func (t Trend) Direction() domain.Direction {
	if t == TrendBull {
		return domain.DirectionLong
	}
	return domain.DirectionShort
}

// Opposes reports whether a trend label conflicts with a trade direction.
func (t Trend) Opposes(d domain.Direction) bool {
	switch t {
	case TrendBull:
		return d == domain.DirectionShort
	case TrendBear:
		return d == domain.DirectionLong
	}
	return false
}

// SMATrend labels a bar series bull when the latest close exceeds the simple
// moving average of closes over window, bear otherwise.
func SMATrend(bars []domain.Bar, window int) Trend {
	if window <= 0 || len(bars) < window {
		return TrendNone
	}
	sum := 0.0
	for _, b := range bars[len(bars)-window:] {
		sum += b.Close
	}
	sma := sum / float64(window)
	last := bars[len(bars)-1].Close
	if last > sma {
		return TrendBull
	}
	return TrendBear
}

// WeeklyTrend resamples daily closes to week-end values and applies the SMA
// test with a window of at most 5 weeks. Needs at least 3 full weeks.
func WeeklyTrend(daily []domain.Bar) Trend {
	weekly := weeklyCloses(daily)
	if len(weekly) < 3 {
		return TrendNone
	}
	window := 5
	if len(weekly) < window {
		window = len(weekly)
	}
	sum := 0.0
	for _, c := range weekly[len(weekly)-window:] {
		sum += c
	}
	sma := sum / float64(window)
	if weekly[len(weekly)-1] > sma {
		return TrendBull
	}
	return TrendBear
}

// weeklyBars aggregates daily bars into one bar per ISO week: max high, min
// low, last close, preserving order.
func weeklyBars(daily []domain.Bar) []domain.Bar {
	var out []domain.Bar
	lastYear, lastWeek := -1, -1
	for _, b := range daily {
		y, w := b.Time.ISOWeek()
		if y == lastYear && w == lastWeek {
			cur := &out[len(out)-1]
			if b.High > cur.High {
				cur.High = b.High
			}
			if b.Low < cur.Low {
				cur.Low = b.Low
			}
			cur.Close = b.Close
			continue
		}
		out = append(out, b)
		lastYear, lastWeek = y, w
	}
	return out
}

// weeklyCloses collapses daily bars to one close per ISO week (the last
// daily close of that week).
func weeklyCloses(daily []domain.Bar) []float64 {
	weeks := weeklyBars(daily)
	out := make([]float64, len(weeks))
	for i, b := range weeks {
		out[i] = b.Close
	}
	return out
}

// Consensus aggregates the available labels by majority vote. A single label
// propagates; a tie between available labels yields TrendNone.
func Consensus(trends ...Trend) Trend {
	bulls, bears := 0, 0
	for _, t := range trends {
		switch t {
		case TrendBull:
			bulls++
		case TrendBear:
			bears++
		}
	}
	total := bulls + bears
	switch {
	case total == 0:
		return TrendNone
	case total == 1:
		if bulls == 1 {
			return TrendBull
		}
		return TrendBear
	case bulls > bears:
		return TrendBull
	case bears > bulls:
		return TrendBear
	default:
		return TrendNone
	}
}
