package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		StartBalance:         10000,
		MaxDrawdownPct:       0.08,
		MaxDailyLossPct:      0.02,
		ConsecutiveLossLimit: 2,
		MaxTradesPerDay:      3,
		MaxTradesPerWeek:     20,
	}
}

func newTestGate(v *mockVenue, j *mockJournal) *RiskGate {
	g := NewRiskGate(v, j, testRiskConfig(), zap.NewNop())
	g.now = func() time.Time { return time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC) }
	return g
}

func TestGateDeniesOnDrawdown(t *testing.T) {
	v := newMockVenue()
	v.dealsErr = errors.New("no history")
	g := newTestGate(v, newMockJournal())

	// 8.5% down from the session start equity, limit 8%.
	d := g.Check(context.Background(), 10000, 9150, 9150)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "drawdown")
}

func TestGateDrawdownBoundary(t *testing.T) {
	v := newMockVenue()
	v.dealsErr = errors.New("no history")
	g := newTestGate(v, newMockJournal())

	// Exactly at the limit denies, one unit above the threshold allows.
	assert.False(t, g.Check(context.Background(), 10000, 9200, 9200).Allowed)
	assert.True(t, g.Check(context.Background(), 10000, 9201, 9201).Allowed)
}

func TestGateDeniesOnDailyLoss(t *testing.T) {
	v := newMockVenue()
	v.deals = []domain.Deal{
		{Ticket: 1, Symbol: "EURUSD", Profit: -150, Exit: true},
		{Ticket: 2, Symbol: "EURUSD", Profit: -60, Commission: -2, Exit: true},
		{Ticket: 3, Symbol: "EURUSD", Profit: 10, Exit: false}, // entry deal, ignored
	}
	g := newTestGate(v, newMockJournal())

	// Loss 212 >= 2% of balance 10000.
	d := g.Check(context.Background(), 10000, 10000, 9788)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "daily loss")
}

func TestGateDailyLossBoundary(t *testing.T) {
	v := newMockVenue()
	j := newMockJournal()
	g := newTestGate(v, j)

	// Loss exactly at the threshold denies.
	v.deals = []domain.Deal{{Ticket: 1, Profit: -200, Exit: true}}
	assert.False(t, g.Check(context.Background(), 10000, 10000, 9800).Allowed)

	// One unit short of the threshold allows.
	v.deals = []domain.Deal{{Ticket: 1, Profit: -199, Exit: true}}
	assert.True(t, g.Check(context.Background(), 10000, 10000, 9801).Allowed)
}

func TestGateDailyLossFallsBackToJournal(t *testing.T) {
	v := newMockVenue()
	v.dealsErr = errors.New("no history")
	j := newMockJournal()
	j.closedPnL = -500
	j.closedCount = 2
	g := newTestGate(v, j)

	d := g.Check(context.Background(), 10000, 10000, 9500)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "daily loss")
}

func TestGateDeniesOnLossStreak(t *testing.T) {
	v := newMockVenue()
	v.dealsErr = errors.New("no history")
	j := newMockJournal()
	j.losses = 2
	g := newTestGate(v, j)

	d := g.Check(context.Background(), 10000, 10000, 9990)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "consecutive losses")
}

func TestGateAllowsHealthyAccount(t *testing.T) {
	v := newMockVenue()
	v.deals = []domain.Deal{{Ticket: 1, Profit: 120, Exit: true}}
	j := newMockJournal()
	j.losses = 1
	g := newTestGate(v, j)

	d := g.Check(context.Background(), 10000, 10120, 10120)

	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
}

func TestGateSkipsUnavailableSubChecks(t *testing.T) {
	v := newMockVenue()
	v.dealsErr = errors.New("no history")
	j := newMockJournal()
	j.err = errors.New("db locked")
	g := newTestGate(v, j)

	// Every sub-check failing still allows; unavailable never trips.
	d := g.Check(context.Background(), 10000, 10000, 9990)

	assert.True(t, d.Allowed)
}

func TestTradeLimits(t *testing.T) {
	v := newMockVenue()
	j := newMockJournal()
	g := newTestGate(v, j)

	now := g.now()
	for i := 0; i < 2; i++ {
		j.rows = append(j.rows, domain.JournalRow{
			Time:   now.Add(-time.Hour),
			Status: domain.StatusOpened,
		})
	}
	assert.True(t, g.TradeLimitsOK(context.Background()))

	j.rows = append(j.rows, domain.JournalRow{Time: now.Add(-time.Hour), Status: domain.StatusOpened})
	assert.False(t, g.TradeLimitsOK(context.Background()), "daily cap of 3 reached")
}

func TestTradeLimitsWeeklyCap(t *testing.T) {
	v := newMockVenue()
	j := newMockJournal()
	g := newTestGate(v, j)

	// Two opened today, twenty across the week.
	now := g.now()
	day := dayStartUTC(now)
	week := weekStartUTC(now)
	j.openedCount[day.Format(time.RFC3339)] = 2
	j.openedCount[week.Format(time.RFC3339)] = 20

	assert.False(t, g.TradeLimitsOK(context.Background()))
}

func TestWeekStartUTC(t *testing.T) {
	// 2026-06-15 is a Monday.
	monday := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), weekStartUTC(monday))

	sunday := time.Date(2026, 6, 21, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), weekStartUTC(sunday))
}
