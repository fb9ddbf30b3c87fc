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

// GateDecision is the result of one risk evaluation.
type GateDecision struct {
	Allowed bool
	Reason  string
}

// RiskGate blocks new entries on drawdown, daily loss and loss-streak limits.
// Unavailable sub-checks are skipped, never treated as a trip.
type RiskGate struct {
	venue   domain.Venue
	journal domain.Journal
	cfg     config.RiskConfig
	log     *zap.Logger
	now     func() time.Time
}

func NewRiskGate(venue domain.Venue, journal domain.Journal, cfg config.RiskConfig, log *zap.Logger) *RiskGate {
	return &RiskGate{venue: venue, journal: journal, cfg: cfg, log: log, now: time.Now}
}

// Check evaluates all account-level limits against the given equity snapshot.
// equityStart is the session's reference equity for drawdown.
func (g *RiskGate) Check(ctx context.Context, equityStart, balance, equity float64) GateDecision {
	dd := (equityStart - equity) / math.Max(1e-9, equityStart)
	if dd >= g.cfg.MaxDrawdownPct {
		return GateDecision{Reason: fmt.Sprintf("drawdown %.2f%% at limit %.2f%%", dd*100, g.cfg.MaxDrawdownPct*100)}
	}

	pnl, ok := g.dailyPnL(ctx)
	if ok && pnl < 0 && -pnl >= balance*g.cfg.MaxDailyLossPct {
		return GateDecision{Reason: fmt.Sprintf("daily loss %.2f at limit", pnl)}
	}

	streak, err := g.journal.ConsecutiveLosses(ctx, dayStartUTC(g.now()))
	if err != nil {
		g.log.Warn("loss streak unavailable", zap.Error(err))
	} else if streak >= g.cfg.ConsecutiveLossLimit {
		return GateDecision{Reason: fmt.Sprintf("%d consecutive losses", streak)}
	}

	return GateDecision{Allowed: true}
}

// TradeLimitsOK enforces the per-day and per-week opened-trade caps from the
// journal. Counting errors allow the trade and log.
func (g *RiskGate) TradeLimitsOK(ctx context.Context) bool {
	now := g.now()

	day, err := g.journal.OpenedCountSince(ctx, dayStartUTC(now))
	if err != nil {
		g.log.Warn("daily trade count unavailable", zap.Error(err))
		return true
	}
	if day >= g.cfg.MaxTradesPerDay {
		g.log.Info("daily trade cap reached", zap.Int("opened", day))
		return false
	}

	week, err := g.journal.OpenedCountSince(ctx, weekStartUTC(now))
	if err != nil {
		g.log.Warn("weekly trade count unavailable", zap.Error(err))
		return true
	}
	if week >= g.cfg.MaxTradesPerWeek {
		g.log.Info("weekly trade cap reached", zap.Int("opened", week))
		return false
	}
	return true
}

// dailyPnL sums today's closed-deal profit, preferring venue history and
// falling back to the journal. The bool reports whether any source answered.
func (g *RiskGate) dailyPnL(ctx context.Context) (float64, bool) {
	from := dayStartUTC(g.now())
	deals, err := g.venue.ClosedDeals(ctx, from, g.now())
	if err == nil {
		pnl := 0.0
		for _, d := range deals {
			if d.Exit {
				pnl += d.NetPnL()
			}
		}
		return pnl, true
	}
	g.log.Debug("venue deal history unavailable, using journal", zap.Error(err))

	_, pnl, jerr := g.journal.ClosedPnLBetween(ctx, from, g.now())
	if jerr != nil {
		g.log.Warn("journal pnl unavailable", zap.Error(jerr))
		return 0, false
	}
	return pnl, true
}

func dayStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStartUTC is midnight UTC of the current ISO week's Monday.
func weekStartUTC(t time.Time) time.Time {
	day := dayStartUTC(t)
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7
	}
	return day.AddDate(0, 0, -(wd - 1))
}
