package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/infrastructure/journal"
	"github.com/vitos/fx_swing_trader/internal/infrastructure/metrics"
	"github.com/vitos/fx_swing_trader/internal/infrastructure/notify"
	"github.com/vitos/fx_swing_trader/internal/infrastructure/venue"
	"github.com/vitos/fx_swing_trader/internal/usecase"
	"github.com/vitos/fx_swing_trader/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	RunE:  runTradingLoop,
}

func runTradingLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer log.Sync()

	bridge := venue.NewBridgeAdapter(cfg.Venue.BridgeURL, cfg.Venue.WSURL, cfg.Venue.Token, log)
	if err := bridge.ConnectWS(cfg.Symbols); err != nil {
		log.Warn("tick stream unavailable, using REST quotes", zap.Error(err))
	}
	defer bridge.CloseWS()

	store, err := journal.NewSQLiteJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	notifier := notify.NewWebhookNotifier(cfg.Notify.WebhookURL,
		time.Duration(cfg.Notify.MinIntervalSeconds)*time.Second, log)
	recorder := metrics.NewRecorder()

	session, err := usecase.NewSessionWindow(cfg.Session.Start, cfg.Session.End, cfg.Session.Timezone)
	if err != nil {
		return err
	}

	sizer := usecase.NewPositionSizer(cfg.Sizing)
	builder := usecase.NewSignalBuilder(bridge, sizer, cfg, log)
	gate := usecase.NewRiskGate(bridge, store, cfg.Risk, log)
	engine := usecase.NewExecutionEngine(bridge, notifier, cfg.Exec, cfg.Sizing, log)
	coordinator := usecase.NewCoordinator(bridge, store, engine, cfg.Exec, log)
	manager := usecase.NewPositionManager(bridge, store, notifier, cfg.Manage, log)
	scanner := usecase.NewHistoryScanner(bridge, store, store, notifier, log)
	loop := usecase.NewTradingLoop(bridge, builder, gate, coordinator, manager, scanner,
		session, notifier, recorder, cfg, log)

	server := web.NewServer(cfg.Server.Addr, bridge, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Error("web server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = loop.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		log.Warn("web server shutdown", zap.Error(serr))
	}

	if err == context.Canceled {
		log.Info("trading loop stopped")
		return nil
	}
	return err
}
