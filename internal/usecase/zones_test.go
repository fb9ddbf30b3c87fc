package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/fx_swing_trader/internal/domain"
)

func barAt(day int, o, h, l, c float64) domain.Bar {
	return domain.Bar{
		Time:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:  o,
		High:  h,
		Low:   l,
		Close: c,
	}
}

func TestClusterLevelsMergesNearbyValues(t *testing.T) {
	tol := 0.0008
	levels := []float64{1.1000, 1.1003, 1.1005, 1.2000, 1.2002}

	out := ClusterLevels(levels, tol)

	require.Len(t, out, 2)
	assert.InDelta(t, 1.10027, out[0], 1e-4)
	assert.InDelta(t, 1.2001, out[1], 1e-4)
}

func TestClusterLevelsIdempotent(t *testing.T) {
	tol := 0.0008
	levels := []float64{1.1000, 1.1003, 1.1005, 1.2000, 1.2002, 1.3500}

	once := ClusterLevels(levels, tol)
	twice := ClusterLevels(once, tol)

	assert.Equal(t, once, twice)
}

func TestClusterLevelsDropsNonFinite(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	out := ClusterLevels([]float64{nan, 1.1}, 0.001)
	require.Len(t, out, 1)
	assert.Equal(t, 1.1, out[0])
}

func TestDetectLevelsShortHistory(t *testing.T) {
	z := NewZoneDetector(nil)
	bars := []domain.Bar{barAt(0, 1, 2, 0.5, 1.5)}
	assert.Empty(t, z.DetectLevels(bars, 0.0001))
	assert.Empty(t, z.DetectLevels(nil, 0.0001))
}

func TestDetectLevelsFindsSwingExtremes(t *testing.T) {
	z := NewZoneDetector(nil)

	// Flat series with one clear swing high and one swing low.
	var bars []domain.Bar
	for i := 0; i < 30; i++ {
		bars = append(bars, barAt(i, 1.1000, 1.1010, 1.0990, 1.1000))
	}
	bars[10] = barAt(10, 1.1000, 1.1200, 1.0990, 1.1100)
	bars[20] = barAt(20, 1.1000, 1.1010, 1.0800, 1.0900)

	levels := z.DetectLevels(bars, 0.0001)

	require.NotEmpty(t, levels)
	assert.Contains(t, levels, 1.12)
	assert.Contains(t, levels, 1.08)
	// Ascending order.
	for i := 1; i < len(levels); i++ {
		assert.Less(t, levels[i-1], levels[i])
	}
}

func TestRankByVotesPrefersSupportedLevels(t *testing.T) {
	clusters := []float64{1.10, 1.20, 1.30}
	raw := []float64{1.10, 1.1001, 1.1002, 1.20, 1.30, 1.3001}

	out := rankByVotes(clusters, raw, 0.001, 2)

	require.Len(t, out, 2)
	assert.Contains(t, out, 1.10)
	assert.Contains(t, out, 1.30)
}

func TestRankByVotesTieBreaksTowardHigherPrice(t *testing.T) {
	clusters := []float64{1.10, 1.20}
	raw := []float64{1.10, 1.20}

	out := rankByVotes(clusters, raw, 0.001, 1)

	require.Len(t, out, 1)
	assert.Equal(t, 1.20, out[0])
}

func TestCountTouches(t *testing.T) {
	bars := []domain.Bar{
		barAt(0, 1.1000, 1.1010, 1.0990, 1.1005), // intersects 1.1000
		barAt(1, 1.1100, 1.1110, 1.1090, 1.1105), // does not
		barAt(2, 1.0995, 1.1002, 1.0985, 1.0990), // intersects
	}
	assert.Equal(t, 2, CountTouches(bars, 1.1000, 0.0002))
	assert.Equal(t, 0, CountTouches(nil, 1.1000, 0.0002))
}

func TestMergeLevelsKeepsTop(t *testing.T) {
	z := NewZoneDetector(nil)
	all := []float64{1.10, 1.1001, 1.1002, 1.20, 1.30, 1.3001, 1.40}

	out := z.MergeLevels(all, 0.0001, 2)

	require.Len(t, out, 2)
	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i-1], out[i])
	}
}
