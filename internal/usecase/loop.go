package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// MetricsRecorder receives trading loop observations. Implemented by the
// metrics package; a no-op stands in when metrics are disabled.
type MetricsRecorder interface {
	ObserveCycle(d time.Duration)
	SetAccount(balance, equity float64)
	SetOpenPositions(n int)
	IncPlanBuilt(symbol string)
	IncPlanRejected(symbol, reason string)
	IncOrderOpened(symbol string)
	IncOrderRejected(symbol string)
	IncRiskTrip(reason string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCycle(time.Duration)     {}
func (noopMetrics) SetAccount(float64, float64)    {}
func (noopMetrics) SetOpenPositions(int)           {}
func (noopMetrics) IncPlanBuilt(string)            {}
func (noopMetrics) IncPlanRejected(string, string) {}
func (noopMetrics) IncOrderOpened(string)          {}
func (noopMetrics) IncOrderRejected(string)        {}
func (noopMetrics) IncRiskTrip(string)             {}

// NoopMetrics is a MetricsRecorder that discards everything.
func NoopMetrics() MetricsRecorder { return noopMetrics{} }

// TradingLoop drives the full cycle: session gating, risk gating, per-symbol
// signal evaluation and execution, position lifecycle, history reconciliation
// and the periodic watchdog beacon.
type TradingLoop struct {
	venue       domain.Venue
	builder     *SignalBuilder
	gate        *RiskGate
	coordinator *Coordinator
	manager     *PositionManager
	scanner     *HistoryScanner
	session     *SessionWindow
	notifier    domain.Notifier
	metrics     MetricsRecorder
	cfg         *config.Config
	log         *zap.Logger
	now         func() time.Time

	equityStart  float64
	riskPaused   bool
	scanSince    time.Time
	lastWatchdog time.Time
}

func NewTradingLoop(
	venue domain.Venue,
	builder *SignalBuilder,
	gate *RiskGate,
	coordinator *Coordinator,
	manager *PositionManager,
	scanner *HistoryScanner,
	session *SessionWindow,
	notifier domain.Notifier,
	metrics MetricsRecorder,
	cfg *config.Config,
	log *zap.Logger,
) *TradingLoop {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &TradingLoop{
		venue:       venue,
		builder:     builder,
		gate:        gate,
		coordinator: coordinator,
		manager:     manager,
		scanner:     scanner,
		session:     session,
		notifier:    notifier,
		metrics:     metrics,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (l *TradingLoop) Run(ctx context.Context) error {
	l.equityStart = l.cfg.Risk.StartBalance
	if acct, err := l.venue.AccountSnapshot(ctx); err == nil && acct.Equity > 0 {
		l.equityStart = acct.Equity
	}
	l.scanSince = l.now()
	l.lastWatchdog = l.now()
	l.log.Info("trading loop started",
		zap.Strings("symbols", l.cfg.Symbols),
		zap.Float64("equity_start", l.equityStart))

	poll := time.Duration(l.cfg.Exec.PollIntervalSeconds) * time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := l.now()
		l.cycle(ctx)
		l.metrics.ObserveCycle(l.now().Sub(start))

		if err := sleepCtx(ctx, poll); err != nil {
			return err
		}
	}
}

func (l *TradingLoop) cycle(ctx context.Context) {
	now := l.now()
	if l.session != nil && !l.session.Contains(now) {
		wait := l.session.UntilNextStart(now)
		l.log.Info("outside session window", zap.Duration("until_open", wait))
		// Lifecycle and reconciliation still run while entries are closed.
		if open, err := l.manager.ManageOpenPositions(ctx); err == nil {
			l.metrics.SetOpenPositions(open)
		}
		l.scanSince = l.scanner.Scan(ctx, l.scanSince)
		return
	}

	balance, equity := l.cfg.Risk.StartBalance, l.equityStart
	if acct, err := l.venue.AccountSnapshot(ctx); err == nil {
		balance, equity = acct.Balance, acct.Equity
		l.metrics.SetAccount(balance, equity)
	} else {
		l.log.Warn("account snapshot unavailable", zap.Error(err))
	}

	decision := l.gate.Check(ctx, l.equityStart, balance, equity)
	if !decision.Allowed {
		if !l.riskPaused {
			l.riskPaused = true
			l.metrics.IncRiskTrip(decision.Reason)
			l.notify(ctx, "RISK GATE | Trading paused: "+decision.Reason)
		}
		l.log.Warn("risk gate tripped", zap.String("reason", decision.Reason))
	} else {
		if l.riskPaused {
			l.notify(ctx, "RISK GATE | Trading resumed")
		}
		l.riskPaused = false
		l.signalPhase(ctx)
	}

	// Open positions are managed even while the gate blocks new entries.
	if open, err := l.manager.ManageOpenPositions(ctx); err == nil {
		l.metrics.SetOpenPositions(open)
	}
	l.scanSince = l.scanner.Scan(ctx, l.scanSince)
	l.watchdog(ctx, balance, equity)
}

func (l *TradingLoop) signalPhase(ctx context.Context) {
	for _, symbol := range l.cfg.Symbols {
		l.coordinator.Tick(symbol)

		outcome, err := l.builder.Build(ctx, symbol)
		if err != nil {
			l.log.Warn("signal evaluation failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if outcome.Plan == nil {
			l.coordinator.ClearSignal(symbol)
			if outcome.Code != "" {
				// The code is from a fixed set; the free-form detail stays
				// out of the metric label.
				l.metrics.IncPlanRejected(symbol, outcome.Code)
				l.log.Debug("no signal", zap.String("symbol", symbol), zap.String("reason", outcome.Reason))
			}
			continue
		}
		l.metrics.IncPlanBuilt(symbol)

		if err := sleepCtx(ctx, l.coordinator.Jitter()); err != nil {
			return
		}
		if !l.gate.TradeLimitsOK(ctx) {
			l.coordinator.ClearSignal(symbol)
			continue
		}
		if l.coordinator.ExecutePlan(ctx, outcome.Plan) {
			l.metrics.IncOrderOpened(symbol)
		} else {
			l.metrics.IncOrderRejected(symbol)
		}
	}
}

// watchdog emits a periodic balance/equity beacon so a silent bot is
// distinguishable from a dead one.
func (l *TradingLoop) watchdog(ctx context.Context, balance, equity float64) {
	interval := time.Duration(l.cfg.Watchdog.IntervalHours) * time.Hour
	if interval <= 0 || l.now().Sub(l.lastWatchdog) < interval {
		return
	}
	l.lastWatchdog = l.now()
	msg := fmt.Sprintf("ALIVE | balance=%.2f equity=%.2f", balance, equity)
	if report, err := domain.NewPnLReport(l.cfg.Risk.StartBalance, equity); err == nil {
		msg += " | " + report.String()
	}
	l.notify(ctx, msg)
}

func (l *TradingLoop) notify(ctx context.Context, msg string) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Notify(ctx, msg); err != nil {
		l.log.Debug("notify failed", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
