package usecase

import (
	"math"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// PositionSizer converts a stop distance and risk budget into a venue-valid
// order volume.
type PositionSizer struct {
	cfg config.SizingConfig
}

func NewPositionSizer(cfg config.SizingConfig) *PositionSizer {
	return &PositionSizer{cfg: cfg}
}

// Volume computes the order volume for a planned entry/stop at the given
// equity, honoring the venue constraints. The result is a multiple of the
// volume step within [min, max], where max is additionally capped by the
// fat-finger ceiling. Returns 0 only when the step is degenerate.
func (s *PositionSizer) Volume(symbol string, entry, stop, equity float64, c domain.SymbolConstraints) float64 {
	var vol float64
	if s.cfg.Mode == "fixed" {
		vol = s.cfg.FixedVolume
	} else {
		pip := domain.PipSize(symbol)
		stopPips := math.Abs(entry-stop) / pip
		if stopPips < 1e-9 {
			stopPips = 1e-9
		}
		tickValue := c.TickValue
		if tickValue == 0 {
			tickValue = 1.0
		}
		tickSize := c.TickSize
		if tickSize == 0 {
			tickSize = pip
		}
		valuePerPip := tickValue * (pip / tickSize)

		riskPct := math.Min(s.cfg.RiskPct, s.cfg.MaxRiskPerTradePct)
		riskAmount := equity * riskPct

		contract := c.ContractSize
		if contract == 0 {
			contract = 1.0
		}
		vol = riskAmount / (stopPips * valuePerPip) / contract
	}

	step := c.VolumeStep
	if step <= 0 {
		step = 0.01
	}
	min := c.VolumeMin
	if min <= 0 {
		min = 0.01
	}
	max := c.VolumeMax
	if max <= 0 {
		max = 100.0
	}
	if s.cfg.FatFingerMaxVolume > 0 && max > s.cfg.FatFingerMaxVolume {
		max = s.cfg.FatFingerMaxVolume
	}

	// Epsilon guards against float error flooring away a whole step.
	vol = math.Floor(math.Max(0, vol)/step+1e-9) * step
	vol = math.Max(min, math.Min(max, vol))
	return roundToStepDecimals(vol, step)
}

// RoundVolumeToStep clamps vol to [min, max] and floors it onto the step grid
// anchored at min.
func RoundVolumeToStep(vol, min, max, step float64) float64 {
	if step <= 0 {
		return math.Max(min, math.Min(vol, max))
	}
	vol = math.Max(min, math.Min(vol, max))
	steps := math.Floor((vol-min)/step + 1e-9)
	adj := min + steps*step
	if adj < min {
		adj = min
	}
	return roundToStepDecimals(adj, step)
}

func roundToStepDecimals(vol, step float64) float64 {
	decimals := 0
	if step < 1 {
		decimals = int(math.Max(0, math.Round(-math.Log10(step))))
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(vol*scale) / scale
}
