package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

func testBuilderConfig() *config.Config {
	cfg := config.Default()
	cfg.Exec.EntryTF = "M5"
	cfg.Exec.RequireContinuation = false
	cfg.Risk.MaxSpreadPips = 2.0
	cfg.Risk.StartBalance = 10000
	return &cfg
}

// levelTestVenue seeds a venue with a tested daily zone at 1.1050, price just
// above it and a bullish reversal on the entry and H1 timeframes.
func levelTestVenue(now time.Time) *mockVenue {
	v := newMockVenue()

	var daily []domain.Bar
	for i := 0; i < 30; i++ {
		b := domain.Bar{
			Time:  now.AddDate(0, 0, i-30),
			Open:  1.0990 + float64(i)*0.0001,
			High:  1.1030,
			Low:   1.0970,
			Close: 1.0990 + float64(i)*0.0001,
		}
		// Swing highs at the zone, swing lows below.
		switch i {
		case 5, 12, 19, 26:
			b.High = 1.1050
		case 8, 16, 23:
			b.Low = 1.0950
		}
		daily = append(daily, b)
	}
	v.bars[domain.TFD1] = daily

	var entry []domain.Bar
	for i := 0; i < 20; i++ {
		entry = append(entry, domain.Bar{
			Time:  now.Add(time.Duration(i-20) * 5 * time.Minute),
			Open:  1.1045,
			High:  1.1049,
			Low:   1.1041,
			Close: 1.1045,
		})
	}
	// Bearish probe into the zone, then a bullish engulfing close at 1.10510.
	entry[18] = domain.Bar{Time: entry[18].Time, Open: 1.10505, High: 1.10510, Low: 1.10470, Close: 1.10480}
	entry[19] = domain.Bar{Time: entry[19].Time, Open: 1.10480, High: 1.10515, Low: 1.10475, Close: 1.10510}
	v.bars[domain.TFM5] = entry

	var h1 []domain.Bar
	for i := 0; i < 24; i++ {
		h1 = append(h1, domain.Bar{
			Time:  now.Add(time.Duration(i-24) * time.Hour),
			Open:  1.1045,
			High:  1.1049,
			Low:   1.1041,
			Close: 1.1045,
		})
	}
	h1[22] = domain.Bar{Time: h1[22].Time, Open: 1.10505, High: 1.10510, Low: 1.10470, Close: 1.10480}
	h1[23] = domain.Bar{Time: h1[23].Time, Open: 1.10480, High: 1.10515, Low: 1.10475, Close: 1.10510}
	v.bars[domain.TFH1] = h1

	v.tick = domain.Tick{Bid: 1.10505, Ask: 1.10515, Time: now}
	v.account = domain.AccountSnapshot{Balance: 10000, Equity: 10000}
	return v
}

func newTestBuilder(v *mockVenue, cfg *config.Config, now time.Time) *SignalBuilder {
	b := NewSignalBuilder(v, NewPositionSizer(cfg.Sizing), cfg, zap.NewNop())
	b.now = func() time.Time { return now }
	return b
}

func TestBuildLongPlanAtTestedZone(t *testing.T) {
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	cfg := testBuilderConfig()
	v := levelTestVenue(now)
	b := newTestBuilder(v, cfg, now)

	out, err := b.Build(context.Background(), "EURUSD")

	require.NoError(t, err)
	require.NotNil(t, out.Plan, "expected a plan, got rejection: %s", out.Reason)

	plan := out.Plan
	assert.Equal(t, domain.DirectionLong, plan.Direction)
	assert.InDelta(t, 1.10510, plan.Entry, 1e-9)
	assert.Less(t, plan.Stop, plan.Entry)
	assert.Greater(t, plan.Target, plan.Entry)
	assert.Greater(t, plan.Volume, 0.0)

	// Target at least twice the stop distance.
	risk := plan.Entry - plan.Stop
	assert.GreaterOrEqual(t, plan.Target-plan.Entry, 2*risk-1e-9)
}

func TestBuildRejectsAwayFromZones(t *testing.T) {
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	cfg := testBuilderConfig()
	v := levelTestVenue(now)

	// Move the entry series far from any detected level.
	var entry []domain.Bar
	for i := 0; i < 20; i++ {
		entry = append(entry, domain.Bar{
			Time:  now.Add(time.Duration(i-20) * 5 * time.Minute),
			Open:  1.2000,
			High:  1.2004,
			Low:   1.1996,
			Close: 1.2000,
		})
	}
	v.bars[domain.TFM5] = entry

	b := newTestBuilder(v, cfg, now)
	out, err := b.Build(context.Background(), "EURUSD")

	require.NoError(t, err)
	assert.Nil(t, out.Plan)
	assert.Equal(t, RejectNotAtZone, out.Code)
	assert.Equal(t, "price not at a zone", out.Reason)
}

func TestBuildRejectsWithoutReversal(t *testing.T) {
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	cfg := testBuilderConfig()
	v := levelTestVenue(now)

	// Two consecutive bullish bars: no engulfing, no rejection wick and no
	// imbalance gap.
	entry := v.bars[domain.TFM5]
	entry[18] = domain.Bar{Time: entry[18].Time, Open: 1.10460, High: 1.10490, Low: 1.10440, Close: 1.10470}
	entry[19] = domain.Bar{Time: entry[19].Time, Open: 1.10470, High: 1.10512, Low: 1.10448, Close: 1.10510}

	b := newTestBuilder(v, cfg, now)
	out, err := b.Build(context.Background(), "EURUSD")

	require.NoError(t, err)
	assert.Nil(t, out.Plan)
	assert.Equal(t, RejectNoReversal, out.Code)
	assert.Equal(t, "no reversal on entry timeframe", out.Reason)
}

func TestBuildRejectsAgainstConsensus(t *testing.T) {
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	cfg := testBuilderConfig()
	v := levelTestVenue(now)

	// Falling daily closes flip both the weekly and daily trend bearish.
	daily := v.bars[domain.TFD1]
	for i := range daily {
		daily[i].Open = 1.1050 - float64(i)*0.0001
		daily[i].Close = 1.1050 - float64(i)*0.0001
	}

	b := newTestBuilder(v, cfg, now)
	out, err := b.Build(context.Background(), "EURUSD")

	require.NoError(t, err)
	assert.Nil(t, out.Plan)
	assert.Equal(t, RejectConsensus, out.Code)
	assert.Contains(t, out.Reason, "consensus")
}

func TestBuildRejectsWideSpread(t *testing.T) {
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	cfg := testBuilderConfig()
	v := levelTestVenue(now)
	v.tick = domain.Tick{Bid: 1.10480, Ask: 1.10540, Time: now} // 6 pips

	b := newTestBuilder(v, cfg, now)
	out, err := b.Build(context.Background(), "EURUSD")

	require.NoError(t, err)
	assert.Nil(t, out.Plan)
	assert.Equal(t, RejectSpread, out.Code)
	assert.Contains(t, out.Reason, "spread")
}

func TestBuildRejectionCodeStableAcrossValues(t *testing.T) {
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	cfg := testBuilderConfig()

	// Different live spreads format different reasons but must share one
	// code, so per-reason counters stay enumerable.
	spreads := []domain.Tick{
		{Bid: 1.10480, Ask: 1.10540, Time: now}, // 6 pips
		{Bid: 1.10470, Ask: 1.10551, Time: now}, // 8.1 pips
	}
	var codes, reasons []string
	for _, tick := range spreads {
		v := levelTestVenue(now)
		v.tick = tick
		out, err := newTestBuilder(v, cfg, now).Build(context.Background(), "EURUSD")
		require.NoError(t, err)
		require.Nil(t, out.Plan)
		codes = append(codes, out.Code)
		reasons = append(reasons, out.Reason)
	}

	assert.Equal(t, RejectSpread, codes[0])
	assert.Equal(t, codes[0], codes[1])
	assert.NotEqual(t, reasons[0], reasons[1], "detail stays in the reason, not the code")
}

func TestBuildSkipsSpreadCheckOnTickError(t *testing.T) {
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	cfg := testBuilderConfig()
	v := levelTestVenue(now)
	v.tickErr = errors.New("bridge down")

	b := newTestBuilder(v, cfg, now)
	out, err := b.Build(context.Background(), "EURUSD")

	require.NoError(t, err)
	require.NotNil(t, out.Plan, "tick failure must not block the signal: %s", out.Reason)
}

func TestBuildPropagatesBarFetchError(t *testing.T) {
	now := time.Date(2026, 6, 15, 15, 0, 0, 0, time.UTC)
	cfg := testBuilderConfig()
	v := levelTestVenue(now)
	v.barsErr = errors.New("bridge down")

	b := newTestBuilder(v, cfg, now)
	_, err := b.Build(context.Background(), "EURUSD")

	assert.Error(t, err)
}
