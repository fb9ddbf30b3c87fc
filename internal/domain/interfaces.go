package domain

import (
	"context"
	"time"
)

// Venue is the broker capability the engine trades against. Every call may
// fail; callers must treat a missing response as unknown, never as zero.
type Venue interface {
	FetchBars(ctx context.Context, symbol string, tf Timeframe, count int) ([]Bar, error)
	GetTick(ctx context.Context, symbol string) (Tick, error)
	SymbolConstraints(ctx context.Context, symbol string) (SymbolConstraints, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	ModifyStops(ctx context.Context, ticket int64, stop, target float64) error
	// OpenPositions with an empty symbol returns all open positions.
	OpenPositions(ctx context.Context, symbol string) ([]Position, error)
	ClosedDeals(ctx context.Context, from, to time.Time) ([]Deal, error)
	AccountSnapshot(ctx context.Context) (AccountSnapshot, error)
}

// Journal is the append-only record store for plan attempts and closes.
// Reads are append-ordered and eventually consistent with in-flight writes.
type Journal interface {
	Append(ctx context.Context, row JournalRow) error
	// OpenedCountSince counts rows with status opened at or after since.
	OpenedCountSince(ctx context.Context, since time.Time) (int, error)
	// ClosedPnLBetween sums pnl of closed rows in [from, to).
	ClosedPnLBetween(ctx context.Context, from, to time.Time) (int, float64, error)
	// ConsecutiveLosses counts trailing losing closes at or after dayStart,
	// most recent first, stopping at the first non-loss.
	ConsecutiveLosses(ctx context.Context, dayStart time.Time) (int, error)
}

// FlagStore persists per-ticket one-shot flags so a restart during an open
// trade cannot re-trigger breakeven or partial take-profit.
type FlagStore interface {
	Flags(ctx context.Context, ticket int64) (OneShotFlags, error)
	SetFlags(ctx context.Context, ticket int64, flags OneShotFlags) error
	ClearFlags(ctx context.Context, ticket int64) error
}

// Notifier delivers free-text event strings. Delivery is best effort; the
// engine never depends on it.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}
