package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/vitos/fx_swing_trader/internal/domain"
)

// WriteCSV exports journal rows to path, overwriting any existing file.
func WriteCSV(path string, rows []domain.JournalRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"id", "time", "symbol", "direction", "ticket", "volume", "entry", "stop", "target", "status", "pnl"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.ID,
			r.Time.UTC().Format(time.RFC3339),
			r.Symbol,
			string(r.Direction),
			fmt.Sprintf("%d", r.Ticket),
			fmt.Sprintf("%.2f", r.Volume),
			fmt.Sprintf("%.5f", r.Entry),
			fmt.Sprintf("%.5f", r.Stop),
			fmt.Sprintf("%.5f", r.Target),
			string(r.Status),
			fmt.Sprintf("%.2f", r.PnL),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
