package usecase

import (
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// PatternDetector identifies reversal candles and imbalance gaps.
type PatternDetector struct {
	BodyWickRatio float64 // rejection-wick strictness, clamped to >= 1 in use
	FVGLookback   int     // bars scanned backward for an imbalance gap
}

func NewPatternDetector() *PatternDetector {
	return &PatternDetector{
		BodyWickRatio: 0.4,
		FVGLookback:   40,
	}
}

// BullishEngulfing: prior bar bearish, current bar bullish and closing above
// the prior bar's open.
func (d *PatternDetector) BullishEngulfing(bars []domain.Bar) bool {
	if len(bars) < 2 {
		return false
	}
	prev, cur := bars[len(bars)-2], bars[len(bars)-1]
	return prev.Bearish() && cur.Bullish() && cur.Close > prev.Open
}

// BearishEngulfing mirrors BullishEngulfing.
func (d *PatternDetector) BearishEngulfing(bars []domain.Bar) bool {
	if len(bars) < 2 {
		return false
	}
	prev, cur := bars[len(bars)-2], bars[len(bars)-1]
	return prev.Bullish() && cur.Bearish() && cur.Close < prev.Open
}

// RejectionWick tests the latest bar for a strong one-sided rejection: the
// wick opposite the body must be at least 1.5/ratio times the body while the
// same-side wick stays within one body length.
func (d *PatternDetector) RejectionWick(bars []domain.Bar, dir Trend) bool {
	if len(bars) < 1 {
		return false
	}
	c := bars[len(bars)-1]
	if c.Range() <= 0 {
		return false
	}
	body := c.Body()
	ratio := d.BodyWickRatio
	if ratio < 1.0 {
		ratio = 1.0
	}
	need := body * (1.5 / ratio)
	if dir == TrendBull {
		return c.LowerWick() >= need && c.UpperWick() <= body
	}
	return c.UpperWick() >= need && c.LowerWick() <= body
}

// RecentImbalanceGap scans backward over the lookback window for a three-bar
// price vacuum: a bullish gap exists where bar[i].low > bar[i+2].high, the
// inverse for bearish.
func (d *PatternDetector) RecentImbalanceGap(bars []domain.Bar, dir Trend) bool {
	end := len(bars) - 3
	start := end - d.FVGLookback
	if start < 1 {
		start = 1
	}
	for i := end; i >= start; i-- {
		if dir == TrendBull {
			if bars[i].Low > bars[i+2].High {
				return true
			}
		} else {
			if bars[i].High < bars[i+2].Low {
				return true
			}
		}
	}
	return false
}

// ReversalDirection runs the engulfing and rejection tests on the latest two
// bars and returns the implied direction, or TrendNone.
func (d *PatternDetector) ReversalDirection(bars []domain.Bar) Trend {
	switch {
	case d.BullishEngulfing(bars) || d.RejectionWick(bars, TrendBull):
		return TrendBull
	case d.BearishEngulfing(bars) || d.RejectionWick(bars, TrendBear):
		return TrendBear
	}
	return TrendNone
}

// ConfirmOnHigher re-runs the reversal tests on two higher-timeframe series;
// any single hit confirms.
func (d *PatternDetector) ConfirmOnHigher(dir Trend, series ...[]domain.Bar) bool {
	for _, bars := range series {
		if len(bars) == 0 {
			continue
		}
		if dir == TrendBull {
			if d.BullishEngulfing(bars) || d.RejectionWick(bars, TrendBull) {
				return true
			}
		} else {
			if d.BearishEngulfing(bars) || d.RejectionWick(bars, TrendBear) {
				return true
			}
		}
	}
	return false
}

// EquilibriumLevel is the midpoint between the highest high and lowest low of
// the trailing lookback window.
func EquilibriumLevel(bars []domain.Bar, lookback int) float64 {
	wnd := domain.LastN(bars, lookback)
	if len(wnd) == 0 {
		return 0
	}
	hi, lo := wnd[0].High, wnd[0].Low
	for _, b := range wnd[1:] {
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
	}
	return (hi + lo) / 2
}

// AvgRange is the mean high-low range of the trailing period bars, the
// volatility proxy used for tolerances and stop buffers.
func AvgRange(bars []domain.Bar, period int) float64 {
	if len(bars) == 0 {
		return 0
	}
	if len(bars) < period {
		// short history: half of the latest bar's range
		return bars[len(bars)-1].Range() * 0.5
	}
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Range()
	}
	return sum / float64(period)
}
