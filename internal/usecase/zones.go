package usecase

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/domain"
)

// ZoneDetector finds clustered swing-high/low price levels from bar history.
type ZoneDetector struct {
	ExtremaRadius  int     // neighbors on each side for the swing test
	SeedCount      int     // highest highs / lowest lows seeded unconditionally
	ClusterTolMult float64 // cluster tolerance in pips
	MaxLevels      int     // cap after ranking by votes

	log *zap.Logger
}

func NewZoneDetector(log *zap.Logger) *ZoneDetector {
	return &ZoneDetector{
		ExtremaRadius:  3,
		SeedCount:      12,
		ClusterTolMult: 8.0,
		MaxLevels:      60,
		log:            log,
	}
}

// DetectLevels computes candidate zones for one timeframe's bars. Returns
// distinct level prices sorted ascending; empty or too-short input yields an
// empty result, never an error.
func (z *ZoneDetector) DetectLevels(bars []domain.Bar, pip float64) []float64 {
	if len(bars) < 5 {
		return nil
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	var raw []float64
	for _, i := range localMaxima(highs, z.ExtremaRadius) {
		raw = append(raw, highs[i])
	}
	for _, i := range localMinima(lows, z.ExtremaRadius) {
		raw = append(raw, lows[i])
	}

	// Seed with the outright highest highs and lowest lows so boundary
	// extrema the neighborhood test cannot see still register.
	raw = append(raw, topN(highs, z.SeedCount, true)...)
	raw = append(raw, topN(lows, z.SeedCount, false)...)

	tol := clusterTolerance(pip, z.ClusterTolMult)
	clustered := ClusterLevels(raw, tol)

	prec := domain.PricePrecision(pip)
	seen := make(map[float64]struct{}, len(clustered))
	rounded := make([]float64, 0, len(clustered))
	for _, v := range clustered {
		r := domain.RoundPrice(v, prec)
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		rounded = append(rounded, r)
	}
	sort.Float64s(rounded)

	if len(rounded) > z.MaxLevels {
		rounded = rankByVotes(rounded, raw, tol, z.MaxLevels)
	}
	if z.log != nil {
		z.log.Debug("zones detected", zap.Int("raw", len(raw)), zap.Int("levels", len(rounded)))
	}
	return rounded
}

// MergeLevels merges levels collected from several timeframes through the
// same clustering step and keeps the keepTop most supported ones.
func (z *ZoneDetector) MergeLevels(all []float64, pip float64, keepTop int) []float64 {
	tol := clusterTolerance(pip, z.ClusterTolMult)
	merged := ClusterLevels(all, tol)
	if len(merged) == 0 {
		return nil
	}
	if len(merged) > keepTop {
		merged = rankByVotes(merged, all, tol, keepTop)
	}
	prec := domain.PricePrecision(pip)
	out := make([]float64, 0, len(merged))
	for _, v := range merged {
		out = append(out, domain.RoundPrice(v, prec))
	}
	sort.Float64s(out)
	return out
}

// CountTouches counts bars whose range intersects level within tol.
func CountTouches(bars []domain.Bar, level, tol float64) int {
	n := 0
	for _, b := range bars {
		if b.High >= level-tol && b.Low <= level+tol {
			n++
		}
	}
	return n
}

// ClusterLevels greedily groups sorted values whose distance to the running
// cluster mean is within tol, replacing each cluster with its mean. The
// operation is idempotent: clustering an already-clustered set with the same
// tolerance returns it unchanged.
func ClusterLevels(levels []float64, tol float64) []float64 {
	vals := make([]float64, 0, len(levels))
	for _, v := range levels {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)

	var out []float64
	sum, count := vals[0], 1.0
	for _, v := range vals[1:] {
		mean := sum / count
		if math.Abs(v-mean) <= tol {
			sum += v
			count++
		} else {
			out = append(out, mean)
			sum, count = v, 1
		}
	}
	out = append(out, sum/count)
	return out
}

func clusterTolerance(pip, mult float64) float64 {
	return math.Max(1e-8, pip*mult)
}

// rankByVotes keeps the keep clusters supported by the most raw levels within
// tol, breaking ties toward the higher price. Result is ascending.
func rankByVotes(clusters, raw []float64, tol float64, keep int) []float64 {
	type scored struct {
		price float64
		votes int
	}
	sc := make([]scored, 0, len(clusters))
	for _, c := range clusters {
		votes := 0
		for _, v := range raw {
			if math.Abs(v-c) <= tol {
				votes++
			}
		}
		sc = append(sc, scored{price: c, votes: votes})
	}
	sort.Slice(sc, func(i, j int) bool {
		if sc[i].votes != sc[j].votes {
			return sc[i].votes > sc[j].votes
		}
		return sc[i].price > sc[j].price
	})
	if keep > len(sc) {
		keep = len(sc)
	}
	out := make([]float64, 0, keep)
	for _, s := range sc[:keep] {
		out = append(out, s.price)
	}
	sort.Float64s(out)
	return out
}

// localMaxima returns indices that are the strict maximum of their symmetric
// neighborhood of the given radius.
func localMaxima(vals []float64, radius int) []int {
	var out []int
	n := len(vals)
	if n < radius*2+1 {
		return out
	}
	for i := radius; i < n-radius; i++ {
		center := vals[i]
		strict := true
		for j := i - radius; j <= i+radius; j++ {
			if j == i {
				continue
			}
			if vals[j] >= center {
				strict = false
				break
			}
		}
		if strict {
			out = append(out, i)
		}
	}
	return out
}

func localMinima(vals []float64, radius int) []int {
	var out []int
	n := len(vals)
	if n < radius*2+1 {
		return out
	}
	for i := radius; i < n-radius; i++ {
		center := vals[i]
		strict := true
		for j := i - radius; j <= i+radius; j++ {
			if j == i {
				continue
			}
			if vals[j] <= center {
				strict = false
				break
			}
		}
		if strict {
			out = append(out, i)
		}
	}
	return out
}

// topN returns the n largest (or smallest) distinct values.
func topN(vals []float64, n int, largest bool) []float64 {
	uniq := make(map[float64]struct{}, len(vals))
	sorted := make([]float64, 0, len(vals))
	for _, v := range vals {
		if _, ok := uniq[v]; ok {
			continue
		}
		uniq[v] = struct{}{}
		sorted = append(sorted, v)
	}
	sort.Float64s(sorted)
	if largest {
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
