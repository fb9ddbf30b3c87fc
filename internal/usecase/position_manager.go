package usecase

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// PositionManager runs the breakeven, partial take-profit and trailing rules
// over open positions. Each ticket is handled in isolation; a venue failure on
// one never blocks the others.
type PositionManager struct {
	venue    domain.Venue
	flags    domain.FlagStore
	notifier domain.Notifier
	cfg      config.ManageConfig
	log      *zap.Logger
}

func NewPositionManager(venue domain.Venue, flags domain.FlagStore, notifier domain.Notifier, cfg config.ManageConfig, log *zap.Logger) *PositionManager {
	return &PositionManager{venue: venue, flags: flags, notifier: notifier, cfg: cfg, log: log}
}

// ManageOpenPositions fetches all open positions and applies the lifecycle
// rules to each. Returns the number of open positions so callers need no
// second venue query.
func (m *PositionManager) ManageOpenPositions(ctx context.Context) (int, error) {
	positions, err := m.venue.OpenPositions(ctx, "")
	if err != nil {
		m.log.Warn("open positions unavailable", zap.Error(err))
		return 0, err
	}
	for _, pos := range positions {
		m.manage(ctx, pos)
	}
	return len(positions), nil
}

func (m *PositionManager) manage(ctx context.Context, pos domain.Position) {
	tick, err := m.venue.GetTick(ctx, pos.Symbol)
	if err != nil {
		m.log.Warn("tick unavailable", zap.String("symbol", pos.Symbol), zap.Int64("ticket", pos.Ticket), zap.Error(err))
		return
	}

	// Marked price is the side the position would close against.
	price := tick.Bid
	if pos.Direction == domain.DirectionLong {
		price = tick.Ask
	}

	risk := math.Abs(pos.OpenPrice - pos.Stop)
	if pos.Stop == 0 {
		risk = 0
	}
	var favorable float64
	if pos.Direction == domain.DirectionLong {
		favorable = price - pos.OpenPrice
	} else {
		favorable = pos.OpenPrice - price
	}
	rr := 0.0
	if risk > 0 {
		rr = favorable / risk
	}

	flags, err := m.flags.Flags(ctx, pos.Ticket)
	if err != nil {
		m.log.Warn("flag load failed", zap.Int64("ticket", pos.Ticket), zap.Error(err))
		return
	}

	if m.cfg.UseTrailing && !flags.BreakevenApplied && risk > 0 && rr >= m.cfg.BreakevenRR {
		m.applyBreakeven(ctx, pos, &flags)
	}

	if m.cfg.PartialTPEnabled && !flags.PartialApplied && risk > 0 && rr >= m.cfg.PartialTPRR {
		m.applyPartial(ctx, pos, &flags)
	}

	if m.cfg.UseTrailing && risk > 0 && favorable >= m.cfg.TrailingRMult*risk {
		m.applyTrailing(ctx, pos, price, risk)
	}
}

// applyBreakeven moves the stop to the open price once, only if that tightens
// it. The flag is persisted whether or not a move was needed, so the ticket
// never re-enters this branch.
func (m *PositionManager) applyBreakeven(ctx context.Context, pos domain.Position, flags *domain.OneShotFlags) {
	if stopTightens(pos, pos.OpenPrice) {
		if err := m.venue.ModifyStops(ctx, pos.Ticket, pos.OpenPrice, pos.Target); err != nil {
			m.log.Warn("breakeven modify failed", zap.Int64("ticket", pos.Ticket), zap.Error(err))
			return
		}
		m.log.Info("breakeven applied", zap.Int64("ticket", pos.Ticket), zap.Float64("stop", pos.OpenPrice))
		m.notify(ctx, fmt.Sprintf("BREAKEVEN | %s | ticket=%d stop=%.5f", pos.Symbol, pos.Ticket, pos.OpenPrice))
	}
	flags.BreakevenApplied = true
	if err := m.flags.SetFlags(ctx, pos.Ticket, *flags); err != nil {
		m.log.Warn("flag save failed", zap.Int64("ticket", pos.Ticket), zap.Error(err))
	}
}

// applyPartial closes a fraction of the position with an opposite order. The
// flag is set only after the venue confirms, so a failed attempt retries on
// the next cycle.
func (m *PositionManager) applyPartial(ctx context.Context, pos domain.Position, flags *domain.OneShotFlags) {
	constraints, err := m.venue.SymbolConstraints(ctx, pos.Symbol)
	if err != nil {
		m.log.Warn("constraints unavailable for partial", zap.Int64("ticket", pos.Ticket), zap.Error(err))
		return
	}
	partial := RoundVolumeToStep(pos.Volume*m.cfg.PartialTPPercent/100, constraints.VolumeMin, pos.Volume, constraints.VolumeStep)
	if partial < constraints.VolumeMin || partial >= pos.Volume-1e-9 {
		m.log.Debug("partial volume not viable", zap.Int64("ticket", pos.Ticket), zap.Float64("partial", partial))
		return
	}

	tick, err := m.venue.GetTick(ctx, pos.Symbol)
	if err != nil {
		m.log.Warn("tick unavailable for partial", zap.Int64("ticket", pos.Ticket), zap.Error(err))
		return
	}
	opp := pos.Direction.Opposite()
	req := domain.OrderRequest{
		Symbol:    pos.Symbol,
		Direction: opp,
		Volume:    partial,
		Price:     tick.EntryPrice(opp),
		Comment:   "partial tp",
	}
	res, err := m.venue.SubmitOrder(ctx, req)
	if err != nil || !res.Success() {
		m.log.Warn("partial close failed", zap.Int64("ticket", pos.Ticket), zap.Error(err))
		return
	}

	flags.PartialApplied = true
	if err := m.flags.SetFlags(ctx, pos.Ticket, *flags); err != nil {
		m.log.Warn("flag save failed", zap.Int64("ticket", pos.Ticket), zap.Error(err))
	}
	m.log.Info("partial close", zap.Int64("ticket", pos.Ticket), zap.Float64("volume", partial))
	m.notify(ctx, fmt.Sprintf("PARTIAL TP | %s | ticket=%d vol=%.2f", pos.Symbol, pos.Ticket, partial))
}

// applyTrailing ratchets the stop behind the price at the trailing distance.
// Stops only ever tighten.
func (m *PositionManager) applyTrailing(ctx context.Context, pos domain.Position, price, risk float64) {
	var candidate float64
	if pos.Direction == domain.DirectionLong {
		candidate = price - m.cfg.TrailingRMult*risk
	} else {
		candidate = price + m.cfg.TrailingRMult*risk
	}
	if !stopTightens(pos, candidate) || math.Abs(candidate-pos.Stop) <= 1e-8 {
		return
	}
	if err := m.venue.ModifyStops(ctx, pos.Ticket, candidate, pos.Target); err != nil {
		m.log.Warn("trailing modify failed", zap.Int64("ticket", pos.Ticket), zap.Error(err))
		return
	}
	m.log.Info("trailing stop moved", zap.Int64("ticket", pos.Ticket), zap.Float64("stop", candidate))
}

// stopTightens reports whether the candidate stop is strictly closer to price
// in the protective direction than the current one. A zero current stop is
// always tightened.
func stopTightens(pos domain.Position, candidate float64) bool {
	if pos.Stop == 0 {
		return true
	}
	if pos.Direction == domain.DirectionLong {
		return candidate > pos.Stop
	}
	return candidate < pos.Stop
}

func (m *PositionManager) notify(ctx context.Context, msg string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, msg); err != nil {
		m.log.Debug("notify failed", zap.Error(err))
	}
}
