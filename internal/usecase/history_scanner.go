package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/domain"
)

// HistoryScanner reconciles venue deal history into the journal: positions
// closed by the venue (stop, target or manual) since the last scan get a
// closed row, a notification and their lifecycle flags cleared.
type HistoryScanner struct {
	venue    domain.Venue
	journal  domain.Journal
	flags    domain.FlagStore
	notifier domain.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewHistoryScanner(venue domain.Venue, journal domain.Journal, flags domain.FlagStore, notifier domain.Notifier, log *zap.Logger) *HistoryScanner {
	return &HistoryScanner{venue: venue, journal: journal, flags: flags, notifier: notifier, log: log, now: time.Now}
}

type closedTrade struct {
	symbol string
	pnl    float64
	deals  int
}

// Scan fetches closed deals since the watermark and returns the new
// watermark. A fetch failure advances the watermark anyway so a flapping
// venue cannot replay notifications forever.
func (s *HistoryScanner) Scan(ctx context.Context, since time.Time) time.Time {
	now := s.now()
	deals, err := s.venue.ClosedDeals(ctx, since, now)
	if err != nil {
		s.log.Warn("deal history unavailable", zap.Error(err))
		return now
	}

	byTicket := make(map[int64]*closedTrade)
	for _, d := range deals {
		if !d.Exit {
			continue
		}
		ct, ok := byTicket[d.Ticket]
		if !ok {
			ct = &closedTrade{symbol: d.Symbol}
			byTicket[d.Ticket] = ct
		}
		ct.pnl += d.NetPnL()
		ct.deals++
	}

	for ticket, ct := range byTicket {
		row := domain.JournalRow{
			ID:     ulid.Make().String(),
			Time:   now,
			Symbol: ct.symbol,
			Ticket: ticket,
			Status: domain.StatusClosed,
			PnL:    ct.pnl,
		}
		if err := s.journal.Append(ctx, row); err != nil {
			s.log.Warn("journal close append failed", zap.Int64("ticket", ticket), zap.Error(err))
		}

		outcome := "SL/manual"
		if ct.pnl > 0 {
			outcome = "TP"
		}
		s.log.Info("position closed",
			zap.String("symbol", ct.symbol),
			zap.Int64("ticket", ticket),
			zap.Float64("pnl", ct.pnl),
			zap.Int("deals", ct.deals))
		s.notify(ctx, fmt.Sprintf("CLOSE | %s | ticket=%d | pnl=%.2f (%s)", ct.symbol, ticket, ct.pnl, outcome))

		if err := s.flags.ClearFlags(ctx, ticket); err != nil {
			s.log.Warn("flag clear failed", zap.Int64("ticket", ticket), zap.Error(err))
		}
	}
	return now
}

func (s *HistoryScanner) notify(ctx context.Context, msg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Debug("notify failed", zap.Error(err))
	}
}
