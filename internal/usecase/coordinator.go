package usecase

import (
	"context"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// symbolState is the per-instrument admission bookkeeping.
type symbolState struct {
	barsSeen         int
	started          bool
	lastSignal       bool
	lastOpen         time.Time
	lastPlanSig      string
	lastJournaledSig string
}

// Coordinator gates plan execution per instrument: warm-up cycles, rising-edge
// signal detection, cooldown, open-position caps and signature debounce. It
// owns the journal writes for opened and skipped plans.
type Coordinator struct {
	states  map[string]*symbolState
	venue   domain.Venue
	journal domain.Journal
	engine  *ExecutionEngine
	cfg     config.ExecConfig
	log     *zap.Logger
	now     func() time.Time
	entropy *rand.Rand
}

func NewCoordinator(venue domain.Venue, journal domain.Journal, engine *ExecutionEngine, cfg config.ExecConfig, log *zap.Logger) *Coordinator {
	return &Coordinator{
		states:  make(map[string]*symbolState),
		venue:   venue,
		journal: journal,
		engine:  engine,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Coordinator) state(symbol string) *symbolState {
	st, ok := c.states[symbol]
	if !ok {
		st = &symbolState{}
		c.states[symbol] = st
	}
	return st
}

// Tick advances the warm-up counter for one instrument. Execution stays
// suppressed until more than the configured startup cycles have been seen.
func (c *Coordinator) Tick(symbol string) {
	st := c.state(symbol)
	st.barsSeen++
	if !st.started && st.barsSeen > c.cfg.StartupProtectionCycles {
		st.started = true
		c.log.Info("warm-up complete", zap.String("symbol", symbol), zap.Int("cycles", st.barsSeen))
	}
}

// ClearSignal records a cycle with no active signal, re-arming the rising
// edge.
func (c *Coordinator) ClearSignal(symbol string) {
	c.state(symbol).lastSignal = false
}

// ExecutePlan runs the admission checks and, if they pass, submits the plan.
// Returns whether a position was opened.
func (c *Coordinator) ExecutePlan(ctx context.Context, plan *domain.TradePlan) bool {
	st := c.state(plan.Symbol)
	sig := plan.Signature()
	defer func() { st.lastSignal = true }()

	switch {
	case sig == st.lastPlanSig:
		c.skip(ctx, plan, sig, "duplicate_signal")
		return false
	case !st.started:
		c.skip(ctx, plan, sig, "startup_protection")
		return false
	case st.lastSignal:
		c.skip(ctx, plan, sig, "no_rising_edge")
		return false
	case c.hasOpenPosition(ctx, plan.Symbol):
		c.skip(ctx, plan, sig, "existing_position")
		return false
	case !st.lastOpen.IsZero() && c.now().Sub(st.lastOpen) < time.Duration(c.cfg.CooldownSeconds)*time.Second:
		c.skip(ctx, plan, sig, "cooldown")
		return false
	}

	outcome := c.engine.Submit(ctx, plan)
	if !outcome.Opened {
		c.skip(ctx, plan, sig, outcome.Reason)
		return false
	}

	st.lastOpen = c.now()
	st.lastPlanSig = sig
	c.append(ctx, domain.JournalRow{
		ID:        ulid.Make().String(),
		Time:      c.now(),
		Symbol:    plan.Symbol,
		Direction: plan.Direction,
		Ticket:    outcome.Ticket,
		Volume:    plan.Volume,
		Entry:     plan.Entry,
		Stop:      plan.Stop,
		Target:    plan.Target,
		Status:    domain.StatusOpened,
	})
	return true
}

// hasOpenPosition reports whether the symbol already carries the maximum
// allowed open positions. An unavailable venue counts as no positions.
func (c *Coordinator) hasOpenPosition(ctx context.Context, symbol string) bool {
	positions, err := c.venue.OpenPositions(ctx, symbol)
	if err != nil {
		c.log.Warn("open positions unavailable", zap.String("symbol", symbol), zap.Error(err))
		return false
	}
	return len(positions) >= c.cfg.MaxPositionsPerSymbol
}

// skip journals a skipped plan once per signature. Repeats of the same
// signature only log.
func (c *Coordinator) skip(ctx context.Context, plan *domain.TradePlan, sig, reason string) {
	st := c.state(plan.Symbol)
	c.log.Info("plan skipped",
		zap.String("symbol", plan.Symbol),
		zap.String("reason", reason),
		zap.String("signature", sig))
	if sig == st.lastJournaledSig {
		return
	}
	st.lastJournaledSig = sig
	c.append(ctx, domain.JournalRow{
		ID:        ulid.Make().String(),
		Time:      c.now(),
		Symbol:    plan.Symbol,
		Direction: plan.Direction,
		Volume:    plan.Volume,
		Entry:     plan.Entry,
		Stop:      plan.Stop,
		Target:    plan.Target,
		Status:    domain.StatusSkipped,
	})
}

func (c *Coordinator) append(ctx context.Context, row domain.JournalRow) {
	if err := c.journal.Append(ctx, row); err != nil {
		c.log.Warn("journal append failed", zap.String("symbol", row.Symbol), zap.Error(err))
	}
}

// Jitter returns a random pre-submission delay in [200ms, the configured
// maximum).
func (c *Coordinator) Jitter() time.Duration {
	upper := time.Duration(c.cfg.JitterMaxSeconds * float64(time.Second))
	lower := 200 * time.Millisecond
	if upper <= lower {
		return lower
	}
	return lower + time.Duration(c.entropy.Int63n(int64(upper-lower)))
}
