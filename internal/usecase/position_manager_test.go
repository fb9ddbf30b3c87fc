package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// Trailing multiplier is kept high so breakeven tests exercise exactly one
// rule; the trailing tests lower it explicitly.
func testManageConfig() config.ManageConfig {
	return config.ManageConfig{
		UseTrailing:      true,
		TrailingRMult:    5.0,
		BreakevenRR:      1.0,
		PartialTPEnabled: false,
		PartialTPPercent: 50,
		PartialTPRR:      1.0,
	}
}

func longPosition() domain.Position {
	return domain.Position{
		Ticket:    100,
		Symbol:    "EURUSD",
		Direction: domain.DirectionLong,
		OpenPrice: 1.1000,
		Volume:    1.0,
		Stop:      1.0950,
		Target:    1.1100,
	}
}

func newTestManager(v *mockVenue, f *mockFlags, cfg config.ManageConfig) *PositionManager {
	return NewPositionManager(v, f, &mockNotifier{}, cfg, zap.NewNop())
}

func TestManageBelowBreakevenDoesNothing(t *testing.T) {
	v := newMockVenue()
	v.positions = []domain.Position{longPosition()}
	// rr = 0.0015 / 0.005 = 0.3, below the 1.0 trigger.
	v.tick = domain.Tick{Bid: 1.10145, Ask: 1.1015}
	f := newMockFlags()

	newTestManager(v, f, testManageConfig()).ManageOpenPositions(context.Background())

	assert.Empty(t, v.modified)
	assert.False(t, f.flags[100].BreakevenApplied)
}

func TestManageBreakevenAppliedOnce(t *testing.T) {
	v := newMockVenue()
	v.positions = []domain.Position{longPosition()}
	// rr = 0.0051 / 0.005, just past the 1.0 trigger.
	v.tick = domain.Tick{Bid: 1.10505, Ask: 1.1051}
	f := newMockFlags()
	m := newTestManager(v, f, testManageConfig())

	m.ManageOpenPositions(context.Background())

	require.Len(t, v.modified, 1)
	assert.EqualValues(t, 100, v.modified[0].ticket)
	assert.InDelta(t, 1.1000, v.modified[0].stop, 1e-9)
	assert.True(t, f.flags[100].BreakevenApplied)

	// Second cycle at the same price: the latched flag blocks a repeat.
	m.ManageOpenPositions(context.Background())
	assert.Len(t, v.modified, 1)
}

func TestManageBreakevenSkippedWhenStopAlreadyTighter(t *testing.T) {
	v := newMockVenue()
	pos := longPosition()
	pos.Stop = 1.1010 // already beyond entry
	v.positions = []domain.Position{pos}
	// rr = 0.0012 / 0.001, past the trigger.
	v.tick = domain.Tick{Bid: 1.10115, Ask: 1.1012}
	f := newMockFlags()

	newTestManager(v, f, testManageConfig()).ManageOpenPositions(context.Background())

	// No venue call, but the flag still latches.
	assert.Empty(t, v.modified)
	assert.True(t, f.flags[100].BreakevenApplied)
}

func TestManageTrailingTightensOnly(t *testing.T) {
	v := newMockVenue()
	v.positions = []domain.Position{longPosition()}
	f := newMockFlags()
	f.flags[100] = domain.OneShotFlags{BreakevenApplied: true}
	cfg := testManageConfig()
	cfg.TrailingRMult = 0.5
	m := newTestManager(v, f, cfg)

	// Favorable move 0.01 >= 0.5 * risk 0.005: stop ratchets to price - 0.5R.
	v.tick = domain.Tick{Bid: 1.1099, Ask: 1.1100}
	m.ManageOpenPositions(context.Background())

	require.Len(t, v.modified, 1)
	assert.InDelta(t, 1.1100-0.0025, v.modified[0].stop, 1e-9)

	// A price pullback must never loosen the stop.
	v.positions[0].Stop = v.modified[0].stop
	v.tick = domain.Tick{Bid: 1.1049, Ask: 1.1050}
	m.ManageOpenPositions(context.Background())
	assert.Len(t, v.modified, 1)
}

func TestManageTrailingNeedsStopDistance(t *testing.T) {
	v := newMockVenue()
	pos := longPosition()
	pos.Stop = 0 // no stop set: no risk reference
	v.positions = []domain.Position{pos}
	f := newMockFlags()
	cfg := testManageConfig()
	cfg.TrailingRMult = 0.5
	v.tick = domain.Tick{Bid: 1.1099, Ask: 1.1100}

	newTestManager(v, f, cfg).ManageOpenPositions(context.Background())

	assert.Empty(t, v.modified)
}

func TestManageShortTrailing(t *testing.T) {
	v := newMockVenue()
	pos := domain.Position{
		Ticket:    200,
		Symbol:    "EURUSD",
		Direction: domain.DirectionShort,
		OpenPrice: 1.1000,
		Volume:    1.0,
		Stop:      1.1050,
	}
	v.positions = []domain.Position{pos}
	f := newMockFlags()
	f.flags[200] = domain.OneShotFlags{BreakevenApplied: true}
	cfg := testManageConfig()
	cfg.TrailingRMult = 0.5

	// Short marks against the bid: favorable = 1.1000 - 1.0900 = 0.01.
	v.tick = domain.Tick{Bid: 1.0900, Ask: 1.0901}
	newTestManager(v, f, cfg).ManageOpenPositions(context.Background())

	require.Len(t, v.modified, 1)
	assert.InDelta(t, 1.0900+0.0025, v.modified[0].stop, 1e-9)
}

func TestManagePartialAppliedOnce(t *testing.T) {
	v := newMockVenue()
	v.positions = []domain.Position{longPosition()}
	v.tick = domain.Tick{Bid: 1.10505, Ask: 1.1051}
	f := newMockFlags()
	cfg := testManageConfig()
	cfg.UseTrailing = false
	cfg.PartialTPEnabled = true
	m := newTestManager(v, f, cfg)

	m.ManageOpenPositions(context.Background())

	require.Len(t, v.orders, 1)
	assert.Equal(t, domain.DirectionShort, v.orders[0].Direction)
	assert.InDelta(t, 0.5, v.orders[0].Volume, 1e-9)
	assert.True(t, f.flags[100].PartialApplied)

	// Next cycle: the latched flag prevents a second partial.
	m.ManageOpenPositions(context.Background())
	assert.Len(t, v.orders, 1)
}

func TestManagePartialFlagNotSetOnVenueFailure(t *testing.T) {
	v := newMockVenue()
	v.positions = []domain.Position{longPosition()}
	v.tick = domain.Tick{Bid: 1.10505, Ask: 1.1051}
	v.orderResults = []domain.OrderResult{{Code: 10019, Message: "rejected"}}
	f := newMockFlags()
	cfg := testManageConfig()
	cfg.UseTrailing = false
	cfg.PartialTPEnabled = true

	newTestManager(v, f, cfg).ManageOpenPositions(context.Background())

	assert.Len(t, v.orders, 1)
	assert.False(t, f.flags[100].PartialApplied, "flag only latches on venue success")
}

func TestManagePartialSkippedWhenVolumeTooSmall(t *testing.T) {
	v := newMockVenue()
	pos := longPosition()
	pos.Volume = 0.01 // half of it is below the venue minimum
	v.positions = []domain.Position{pos}
	v.tick = domain.Tick{Bid: 1.10505, Ask: 1.1051}
	f := newMockFlags()
	cfg := testManageConfig()
	cfg.UseTrailing = false
	cfg.PartialTPEnabled = true

	newTestManager(v, f, cfg).ManageOpenPositions(context.Background())

	assert.Empty(t, v.orders)
	assert.False(t, f.flags[100].PartialApplied)
}

func TestManageHandlesEachTicket(t *testing.T) {
	v := newMockVenue()
	first := longPosition()
	second := longPosition()
	second.Ticket = 101
	v.positions = []domain.Position{first, second}
	v.tick = domain.Tick{Bid: 1.10505, Ask: 1.1051}
	f := newMockFlags()

	newTestManager(v, f, testManageConfig()).ManageOpenPositions(context.Background())

	require.Len(t, v.modified, 2)
	assert.True(t, f.flags[100].BreakevenApplied)
	assert.True(t, f.flags[101].BreakevenApplied)
}

func TestManageTickFailureSkipsTicket(t *testing.T) {
	v := newMockVenue()
	v.positions = []domain.Position{longPosition()}
	v.tickErr = errors.New("bridge down")
	f := newMockFlags()

	newTestManager(v, f, testManageConfig()).ManageOpenPositions(context.Background())

	assert.Empty(t, v.modified)
	assert.Empty(t, f.flags)
}
