package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// BuildOutcome is the explicit result of one signal evaluation. Plan is nil
// for the normal no-signal case. Code identifies the failing check from a
// fixed set, safe to use as a metric label; Reason carries the formatted
// detail for logs.
type BuildOutcome struct {
	Plan   *domain.TradePlan
	Code   string
	Reason string
}

// Rejection codes, one per failing check in Build.
const (
	RejectNoEntryBars  = "no_entry_bars"
	RejectNoZones      = "no_zones"
	RejectNotAtZone    = "not_at_zone"
	RejectUndertested  = "zone_undertested"
	RejectNoReversal   = "no_reversal"
	RejectConsensus    = "against_consensus"
	RejectNoConfirm    = "no_confirmation"
	RejectContinuation = "no_continuation"
	RejectSpread       = "spread_over_ceiling"
	RejectVolumeTooLow = "volume_zero"
)

func rejected(code, reason string) BuildOutcome { return BuildOutcome{Code: code, Reason: reason} }

// SignalBuilder orchestrates zone detection, trend classification and pattern
// detection into a candidate trade plan. Stateless per call.
type SignalBuilder struct {
	venue    domain.Venue
	zones    *ZoneDetector
	patterns *PatternDetector
	sizer    *PositionSizer

	entryTF             domain.Timeframe
	requireContinuation bool
	maxSpreadPips       float64
	startBalance        float64

	log *zap.Logger
	now func() time.Time
}

func NewSignalBuilder(venue domain.Venue, sizer *PositionSizer, cfg *config.Config, log *zap.Logger) *SignalBuilder {
	return &SignalBuilder{
		venue:               venue,
		zones:               NewZoneDetector(log),
		patterns:            NewPatternDetector(),
		sizer:               sizer,
		entryTF:             domain.Timeframe(cfg.Exec.EntryTF),
		requireContinuation: cfg.Exec.RequireContinuation,
		maxSpreadPips:       cfg.Risk.MaxSpreadPips,
		startBalance:        cfg.Risk.StartBalance,
		log:                 log,
		now:                 time.Now,
	}
}

// Build evaluates one instrument. A nil error with a nil plan is the normal
// rejected-signal outcome; an error means market data was unavailable.
func (b *SignalBuilder) Build(ctx context.Context, symbol string) (BuildOutcome, error) {
	daily, err := b.venue.FetchBars(ctx, symbol, domain.TFD1, 400)
	if err != nil {
		return BuildOutcome{}, fmt.Errorf("fetch %s D1 bars: %w", symbol, err)
	}
	h4, err := b.venue.FetchBars(ctx, symbol, domain.TFH4, 600)
	if err != nil {
		return BuildOutcome{}, fmt.Errorf("fetch %s H4 bars: %w", symbol, err)
	}
	h1, err := b.venue.FetchBars(ctx, symbol, domain.TFH1, 600)
	if err != nil {
		return BuildOutcome{}, fmt.Errorf("fetch %s H1 bars: %w", symbol, err)
	}
	entry, err := b.venue.FetchBars(ctx, symbol, b.entryTF, 600)
	if err != nil {
		return BuildOutcome{}, fmt.Errorf("fetch %s %s bars: %w", symbol, b.entryTF, err)
	}
	m30, err := b.venue.FetchBars(ctx, symbol, domain.TFM30, 50)
	if err != nil {
		return BuildOutcome{}, fmt.Errorf("fetch %s M30 bars: %w", symbol, err)
	}

	now := b.now()
	entry = domain.BarsSince(entry, now.Add(-6*time.Hour))
	h1 = domain.BarsSince(h1, now.Add(-24*time.Hour))
	h4 = domain.BarsSince(h4, now.Add(-72*time.Hour))
	m30 = domain.BarsSince(m30, now.Add(-24*time.Hour))
	dailyTail := domain.LastN(daily, 200)

	if len(entry) == 0 {
		return rejected(RejectNoEntryBars, "no recent entry bars"), nil
	}
	price := entry[len(entry)-1].Close
	pip := domain.PipSize(symbol)

	// Zones from the full daily history.
	levels := b.zones.DetectLevels(daily, pip)
	if len(levels) == 0 {
		return rejected(RejectNoZones, "no daily zones"), nil
	}

	atr := AvgRange(entry, 14)
	tol := math.Max(atr*0.25, price*0.0006)

	level, ok := nearestWithin(levels, price, tol)
	if !ok {
		return rejected(RejectNotAtZone, "price not at a zone"), nil
	}

	touchesDaily := CountTouches(dailyTail, level, tol*4)
	touchesWeekly := CountTouches(weeklyBars(dailyTail), level, tol*10)
	if touchesDaily < 3 && touchesWeekly < 3 {
		return rejected(RejectUndertested, fmt.Sprintf("zone %.5f undertested (daily=%d weekly=%d)", level, touchesDaily, touchesWeekly)), nil
	}

	// Reversal on the entry timeframe, with an imbalance-gap fallback.
	dir := b.patterns.ReversalDirection(entry)
	if dir == TrendNone {
		switch {
		case b.patterns.RecentImbalanceGap(entry, TrendBull):
			dir = TrendBull
		case b.patterns.RecentImbalanceGap(entry, TrendBear):
			dir = TrendBear
		default:
			return rejected(RejectNoReversal, "no reversal on entry timeframe"), nil
		}
	}
	direction := dir.Direction()

	consensus := Consensus(WeeklyTrend(dailyTail), SMATrend(dailyTail, 20), SMATrend(h4, 20))
	if consensus.Opposes(direction) {
		return rejected(RejectConsensus, fmt.Sprintf("%s signal against %s consensus", dir, consensus)), nil
	}

	if !b.patterns.ConfirmOnHigher(dir, domain.LastN(h1, 50), m30) {
		return rejected(RejectNoConfirm, "no higher timeframe confirmation"), nil
	}

	if b.requireContinuation {
		eq := EquilibriumLevel(entry, 20)
		contOK := eq > 0 && math.Abs(price-eq) <= eq*0.002
		if !contOK {
			contOK = b.patterns.RecentImbalanceGap(entry, dir)
		}
		if !contOK {
			return rejected(RejectContinuation, "continuation check failed"), nil
		}
	}

	// Spread ceiling. An unavailable tick skips the check rather than
	// blocking the signal.
	if tick, err := b.venue.GetTick(ctx, symbol); err == nil {
		spread := math.Abs(tick.Ask-tick.Bid) / pip
		if spread > b.maxSpreadPips {
			return rejected(RejectSpread, fmt.Sprintf("spread %.1f pips over ceiling", spread)), nil
		}
	} else {
		b.log.Debug("tick unavailable for spread check", zap.String("symbol", symbol), zap.Error(err))
	}

	equity := b.startBalance
	if acct, err := b.venue.AccountSnapshot(ctx); err == nil {
		equity = acct.Equity
	}

	entryPrice, stop, target := b.chooseStops(entry, level, direction, atr, pip)

	constraints, err := b.venue.SymbolConstraints(ctx, symbol)
	if err != nil {
		return BuildOutcome{}, fmt.Errorf("symbol constraints %s: %w", symbol, err)
	}
	volume := b.sizer.Volume(symbol, entryPrice, stop, equity, constraints)
	if volume <= 0 {
		return rejected(RejectVolumeTooLow, "volume rounds to zero"), nil
	}

	plan := &domain.TradePlan{
		Symbol:    symbol,
		Direction: direction,
		Entry:     entryPrice,
		Stop:      stop,
		Target:    target,
		Volume:    volume,
		EntryTF:   b.entryTF,
		Comment:   fmt.Sprintf("SWING %s lvl_hit", direction),
	}
	b.log.Info("plan built",
		zap.String("symbol", symbol),
		zap.String("direction", string(direction)),
		zap.Float64("level", level),
		zap.Float64("entry", entryPrice),
		zap.Float64("stop", stop),
		zap.Float64("target", target),
		zap.Float64("volume", volume))
	return BuildOutcome{Plan: plan}, nil
}

// chooseStops derives the stop beyond the extreme of the most recent bar
// intersecting the level, padded by an ATR-scaled and pip-scaled buffer, and
// the target at twice the stop distance or twice ATR, whichever is larger.
func (b *SignalBuilder) chooseStops(entry []domain.Bar, level float64, dir domain.Direction, atr, pip float64) (entryPrice, stop, target float64) {
	entryPrice = entry[len(entry)-1].Close

	rejIdx := -1
	for i := len(entry) - 2; i >= 2; i-- {
		if entry[i].Low <= level && level <= entry[i].High {
			rejIdx = i
			break
		}
	}
	if rejIdx < 1 || rejIdx >= len(entry) {
		rejIdx = len(entry) - 2
		if rejIdx < 1 {
			rejIdx = 1
		}
	}

	buffer := math.Max(atr*0.15, entryPrice*0.0003)
	pipBuffer := 5 * pip

	if dir == domain.DirectionShort {
		cand := math.Max(entry[rejIdx].High, entry[rejIdx-1].High) + buffer
		stop = math.Max(cand, entryPrice+pipBuffer)
		risk := math.Abs(entryPrice - stop)
		target = entryPrice - math.Max(risk*2, atr*2)
	} else {
		cand := math.Min(entry[rejIdx].Low, entry[rejIdx-1].Low) - buffer
		stop = math.Min(cand, entryPrice-pipBuffer)
		risk := math.Abs(entryPrice - stop)
		target = entryPrice + math.Max(risk*2, atr*2)
	}
	return entryPrice, stop, target
}

// nearestWithin returns the level closest to price among those within tol.
func nearestWithin(levels []float64, price, tol float64) (float64, bool) {
	best, bestDist := 0.0, math.Inf(1)
	for _, lvl := range levels {
		d := math.Abs(price - lvl)
		if d <= tol && d < bestDist {
			best, bestDist = lvl, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}
