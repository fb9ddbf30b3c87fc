package domain

import (
	"math"
	"strings"
)

// PipSize returns the pip for an instrument symbol. JPY-quoted pairs use
// 0.01, gold 0.1, everything else the standard 0.0001.
func PipSize(symbol string) float64 {
	sym := strings.ToUpper(symbol)
	switch {
	case strings.Contains(sym, "JPY"):
		return 0.01
	case strings.HasPrefix(sym, "XAU"):
		return 0.1
	default:
		return 0.0001
	}
}

// PricePrecision returns the number of decimals prices of an instrument are
// rounded to when comparing or clustering levels.
func PricePrecision(pip float64) int {
	if pip < 0.0005 {
		return 6
	}
	return 4
}

// RoundPrice rounds v to the given number of decimals.
func RoundPrice(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
