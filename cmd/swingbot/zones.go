package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitos/fx_swing_trader/internal/domain"
	"github.com/vitos/fx_swing_trader/internal/infrastructure/venue"
	"github.com/vitos/fx_swing_trader/internal/usecase"
)

var zonesTimeframes string

var zonesCmd = &cobra.Command{
	Use:   "zones SYMBOL",
	Short: "Detect and print price zones for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runZones,
}

func init() {
	zonesCmd.Flags().StringVar(&zonesTimeframes, "timeframes", "D1", "comma-separated bar timeframes; multiple are merged")
}

func runZones(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	symbol := args[0]
	bridge := venue.NewBridgeAdapter(cfg.Venue.BridgeURL, cfg.Venue.WSURL, cfg.Venue.Token, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pip := domain.PipSize(symbol)
	detector := usecase.NewZoneDetector(log)

	tfs := strings.Split(zonesTimeframes, ",")
	var levels []float64
	var touchBars []domain.Bar
	totalBars := 0
	for _, tf := range tfs {
		bars, err := bridge.FetchBars(ctx, symbol, domain.Timeframe(strings.TrimSpace(tf)), 400)
		if err != nil {
			return fmt.Errorf("fetch %s bars: %w", tf, err)
		}
		levels = append(levels, detector.DetectLevels(bars, pip)...)
		if touchBars == nil {
			touchBars = bars
		}
		totalBars += len(bars)
	}
	if len(tfs) > 1 {
		levels = detector.MergeLevels(levels, pip, 12)
	}
	if len(levels) == 0 {
		fmt.Println("no zones detected")
		return nil
	}

	prec := domain.PricePrecision(pip)
	fmt.Printf("%s %s: %d zones from %d bars\n", symbol, zonesTimeframes, len(levels), totalBars)
	for _, lvl := range levels {
		touches := usecase.CountTouches(touchBars, lvl, pip*8)
		fmt.Printf("  %.*f  touches=%d\n", prec, lvl, touches)
	}
	return nil
}
