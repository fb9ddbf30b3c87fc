package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitos/fx_swing_trader/internal/domain"
	"github.com/vitos/fx_swing_trader/internal/infrastructure/journal"
)

var (
	journalDays int
	journalCSV  string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent journal entries and the running PnL",
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().IntVar(&journalDays, "days", 7, "days of history to show")
	journalCmd.Flags().StringVar(&journalCSV, "csv", "", "export the rows to a csv file")
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := journal.NewSQLiteJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -journalDays)
	rows, err := store.RowsBetween(ctx, from, now)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	closed, pnl := 0, 0.0
	for _, r := range rows {
		switch r.Status {
		case domain.StatusClosed:
			closed++
			pnl += r.PnL
			fmt.Printf("%s  %-8s %-7s ticket=%-10d pnl=%+.2f\n",
				r.Time.Format("2006-01-02 15:04"), r.Symbol, r.Status, r.Ticket, r.PnL)
		case domain.StatusOpened:
			fmt.Printf("%s  %-8s %-7s ticket=%-10d %s vol=%.2f entry=%.5f\n",
				r.Time.Format("2006-01-02 15:04"), r.Symbol, r.Status, r.Ticket, r.Direction, r.Volume, r.Entry)
		default:
			fmt.Printf("%s  %-8s %-7s %s entry=%.5f\n",
				r.Time.Format("2006-01-02 15:04"), r.Symbol, r.Status, r.Direction, r.Entry)
		}
	}
	fmt.Printf("\n%d rows, %d closed trades, pnl %+.2f\n", len(rows), closed, pnl)

	if report, err := domain.NewPnLReport(cfg.Risk.StartBalance, cfg.Risk.StartBalance+pnl); err == nil {
		fmt.Println("since start balance:", report)
	}

	if journalCSV != "" {
		if err := journal.WriteCSV(journalCSV, rows); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		fmt.Println("exported to", journalCSV)
	}
	return nil
}
