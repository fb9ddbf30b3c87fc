package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// SubmitOutcome records how an order submission ended. Attempts counts venue
// submissions made, including filling-mode retries.
type SubmitOutcome struct {
	Ticket   int64
	Opened   bool
	Reason   string
	Attempts int
}

// ExecutionEngine turns a trade plan into a venue order, retrying alternate
// filling modes when the venue rejects the default one.
type ExecutionEngine struct {
	venue    domain.Venue
	notifier domain.Notifier
	cfg      config.ExecConfig
	sizing   config.SizingConfig
	log      *zap.Logger
}

func NewExecutionEngine(venue domain.Venue, notifier domain.Notifier, cfg config.ExecConfig, sizing config.SizingConfig, log *zap.Logger) *ExecutionEngine {
	return &ExecutionEngine{venue: venue, notifier: notifier, cfg: cfg, sizing: sizing, log: log}
}

// Submit places the plan's order. Exactly one terminal notification is sent
// per call: either the open confirmation or the rejection.
func (e *ExecutionEngine) Submit(ctx context.Context, plan *domain.TradePlan) SubmitOutcome {
	e.notify(ctx, fmt.Sprintf("OPEN %s | %s | entry=%.5f stop=%.5f target=%.5f vol=%.2f",
		plan.Direction, plan.Symbol, plan.Entry, plan.Stop, plan.Target, plan.Volume))

	if e.cfg.NotifyOnly || !e.cfg.TradeEnabled {
		e.log.Info("order suppressed, notify-only mode", zap.String("symbol", plan.Symbol))
		return SubmitOutcome{Reason: "notify-only mode"}
	}

	if e.sizing.FatFingerMaxVolume > 0 && plan.Volume > e.sizing.FatFingerMaxVolume {
		reason := fmt.Sprintf("volume %.2f over fat-finger ceiling %.2f", plan.Volume, e.sizing.FatFingerMaxVolume)
		e.notify(ctx, "ORDER BLOCKED | "+plan.Symbol+" | "+reason)
		return SubmitOutcome{Reason: reason}
	}

	constraints, err := e.venue.SymbolConstraints(ctx, plan.Symbol)
	if err != nil {
		e.notify(ctx, fmt.Sprintf("ORDER BLOCKED | %s | constraints unavailable: %v", plan.Symbol, err))
		return SubmitOutcome{Reason: "constraints unavailable"}
	}
	if !constraints.Tradable {
		e.notify(ctx, "ORDER BLOCKED | "+plan.Symbol+" | instrument not tradable")
		return SubmitOutcome{Reason: "instrument not tradable"}
	}
	volume := RoundVolumeToStep(plan.Volume, constraints.VolumeMin, constraints.VolumeMax, constraints.VolumeStep)

	price := plan.Entry
	if tick, err := e.venue.GetTick(ctx, plan.Symbol); err == nil {
		price = tick.EntryPrice(plan.Direction)
	}

	req := domain.OrderRequest{
		Symbol:    plan.Symbol,
		Direction: plan.Direction,
		Volume:    volume,
		Price:     price,
		Stop:      plan.Stop,
		Target:    plan.Target,
		Deviation: e.cfg.DeviationPoints,
		Comment:   plan.Comment,
	}

	attempts := 0
	res, err := e.venue.SubmitOrder(ctx, req)
	attempts++
	if err == nil && res.Success() {
		e.notifyFilled(ctx, plan, res, volume)
		return SubmitOutcome{Ticket: res.Ticket, Opened: true, Attempts: attempts}
	}
	if err == nil && !res.FillingRejected() {
		reason := fmt.Sprintf("rejected code=%d %s", res.Code, res.Message)
		e.notify(ctx, "ORDER REJECTED | "+plan.Symbol+" | "+reason)
		return SubmitOutcome{Reason: reason, Attempts: attempts}
	}
	if err != nil {
		e.log.Warn("order submit error, trying filling fallbacks", zap.String("symbol", plan.Symbol), zap.Error(err))
	}

	// Default filling was refused. Try each alternate once.
	for _, mode := range domain.FallbackFillingModes {
		req.Filling = mode
		res, err = e.venue.SubmitOrder(ctx, req)
		attempts++
		if err != nil {
			e.log.Warn("order submit error", zap.String("symbol", plan.Symbol), zap.String("filling", string(mode)), zap.Error(err))
			continue
		}
		if res.Success() {
			e.notifyFilled(ctx, plan, res, volume)
			return SubmitOutcome{Ticket: res.Ticket, Opened: true, Attempts: attempts}
		}
		if res.FillingRejected() {
			continue
		}
		reason := fmt.Sprintf("rejected code=%d %s", res.Code, res.Message)
		e.notify(ctx, "ORDER REJECTED | "+plan.Symbol+" | "+reason)
		return SubmitOutcome{Reason: reason, Attempts: attempts}
	}

	e.notify(ctx, "ORDER REJECTED | "+plan.Symbol+" | all filling modes refused")
	return SubmitOutcome{Reason: "all filling modes refused", Attempts: attempts}
}

func (e *ExecutionEngine) notifyFilled(ctx context.Context, plan *domain.TradePlan, res domain.OrderResult, volume float64) {
	e.log.Info("order filled",
		zap.String("symbol", plan.Symbol),
		zap.Int64("ticket", res.Ticket),
		zap.Float64("volume", volume))
	e.notify(ctx, fmt.Sprintf("ORDER OK | %s | ticket=%d vol=%.2f", plan.Symbol, res.Ticket, volume))
}

func (e *ExecutionEngine) notify(ctx context.Context, msg string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, msg); err != nil {
		e.log.Debug("notify failed", zap.Error(err))
	}
}
