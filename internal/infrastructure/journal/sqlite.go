package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/fx_swing_trader/internal/domain"
)

// SQLiteJournal backs the trade journal and the per-ticket lifecycle flags
// with a single sqlite file. It implements domain.Journal and
// domain.FlagStore.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS journal (
			id TEXT PRIMARY KEY,
			time DATETIME NOT NULL,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			ticket INTEGER NOT NULL DEFAULT 0,
			volume REAL NOT NULL DEFAULT 0,
			entry REAL NOT NULL DEFAULT 0,
			stop REAL NOT NULL DEFAULT 0,
			target REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			pnl REAL NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_status_time ON journal(status, time);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_symbol ON journal(symbol);`,
		`CREATE TABLE IF NOT EXISTS position_flags (
			ticket INTEGER PRIMARY KEY,
			breakeven_applied BOOLEAN NOT NULL DEFAULT 0,
			partial_applied BOOLEAN NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := j.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// Journal implementation

func (j *SQLiteJournal) Append(ctx context.Context, row domain.JournalRow) error {
	query := `INSERT INTO journal (id, time, symbol, direction, ticket, volume, entry, stop, target, status, pnl)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, query,
		row.ID, row.Time.UTC(), row.Symbol, string(row.Direction), row.Ticket,
		row.Volume, row.Entry, row.Stop, row.Target, string(row.Status), row.PnL)
	return err
}

func (j *SQLiteJournal) OpenedCountSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM journal WHERE status = ? AND time >= ?`
	var n int
	err := j.db.QueryRowContext(ctx, query, string(domain.StatusOpened), since.UTC()).Scan(&n)
	return n, err
}

func (j *SQLiteJournal) ClosedPnLBetween(ctx context.Context, from, to time.Time) (int, float64, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(pnl), 0) FROM journal WHERE status = ? AND time >= ? AND time < ?`
	var n int
	var pnl float64
	err := j.db.QueryRowContext(ctx, query, string(domain.StatusClosed), from.UTC(), to.UTC()).Scan(&n, &pnl)
	return n, pnl, err
}

func (j *SQLiteJournal) ConsecutiveLosses(ctx context.Context, dayStart time.Time) (int, error) {
	query := `SELECT pnl FROM journal WHERE status = ? AND time >= ? ORDER BY time DESC`
	rows, err := j.db.QueryContext(ctx, query, string(domain.StatusClosed), dayStart.UTC())
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	streak := 0
	for rows.Next() {
		var pnl float64
		if err := rows.Scan(&pnl); err != nil {
			return 0, err
		}
		if pnl >= 0 {
			break
		}
		streak++
	}
	return streak, rows.Err()
}

// RowsBetween returns journal rows in [from, to) ordered by time, for the
// journal CLI and csv export.
func (j *SQLiteJournal) RowsBetween(ctx context.Context, from, to time.Time) ([]domain.JournalRow, error) {
	query := `SELECT id, time, symbol, direction, ticket, volume, entry, stop, target, status, pnl
			  FROM journal WHERE time >= ? AND time < ? ORDER BY time`
	rows, err := j.db.QueryContext(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JournalRow
	for rows.Next() {
		var r domain.JournalRow
		var dir, status string
		if err := rows.Scan(&r.ID, &r.Time, &r.Symbol, &dir, &r.Ticket, &r.Volume, &r.Entry, &r.Stop, &r.Target, &status, &r.PnL); err != nil {
			return nil, err
		}
		r.Direction = domain.Direction(dir)
		r.Status = domain.TradeStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// FlagStore implementation

func (j *SQLiteJournal) Flags(ctx context.Context, ticket int64) (domain.OneShotFlags, error) {
	query := `SELECT breakeven_applied, partial_applied FROM position_flags WHERE ticket = ?`
	var f domain.OneShotFlags
	err := j.db.QueryRowContext(ctx, query, ticket).Scan(&f.BreakevenApplied, &f.PartialApplied)
	if err == sql.ErrNoRows {
		return domain.OneShotFlags{}, nil
	}
	return f, err
}

func (j *SQLiteJournal) SetFlags(ctx context.Context, ticket int64, flags domain.OneShotFlags) error {
	query := `INSERT INTO position_flags (ticket, breakeven_applied, partial_applied, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT(ticket) DO UPDATE SET breakeven_applied = excluded.breakeven_applied,
			  partial_applied = excluded.partial_applied, updated_at = excluded.updated_at`
	_, err := j.db.ExecContext(ctx, query, ticket, flags.BreakevenApplied, flags.PartialApplied, time.Now().UTC())
	return err
}

func (j *SQLiteJournal) ClearFlags(ctx context.Context, ticket int64) error {
	_, err := j.db.ExecContext(ctx, `DELETE FROM position_flags WHERE ticket = ?`, ticket)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
