package rates

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"ratewatch/internal/pkg/logger"
	"ratewatch/internal/pkg/models"
)

// Column layout of the per-currency history files, matching the sheet's
// table order.
var headers = []string{
	"DATE",
	"PDF FILE",
	"TT BUY",
	"TT SELL",
	"BILL BUY",
	"BILL SELL",
	"FOREX TRAVEL CARD BUY",
	"FOREX TRAVEL CARD SELL",
	"CN BUY",
	"CN SELL",
}

const dateFormat = "2006-01-02 15:04"

// Appends parsed quotes to one CSV history file per currency,
// de-duplicating on the DATE column and keeping rows date-sorted.
type Writer struct {
	dir string
}

// Creates a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Records the run's quotes under the given publication timestamp,
// referencing the saved PDF file. Quotes with a rate count that does
// not fill the table are skipped with a warning rather than producing
// ragged rows.
func (w *Writer) Append(quotes []models.RateQuote, publishedAt time.Time, pdfFile string) error {
	if len(quotes) == 0 {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}

	stamp := publishedAt.Format(dateFormat)
	for _, quote := range quotes {
		if len(quote.Rates) != len(headers)-2 {
			logger.Log.Warn("Skipping rate row with unexpected column count",
				zap.String("currency", quote.Currency),
				zap.Int("columns", len(quote.Rates)))
			continue
		}
		row := append([]string{stamp, pdfFile}, quote.Rates...)
		path := filepath.Join(w.dir, fmt.Sprintf("SBI_REFERENCE_RATES_%s.csv", quote.Currency))
		if err := upsertRow(path, row); err != nil {
			return fmt.Errorf("update %s history: %w", quote.Currency, err)
		}
	}
	return nil
}

// Reads the existing file (if any), replaces any row carrying the same
// DATE, sorts by date, and rewrites the whole file. The history files
// are small enough that a full rewrite stays trivial.
func upsertRow(path string, newRow []string) error {
	rows := [][]string{}

	if data, err := os.ReadFile(path); err == nil {
		existing, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			return fmt.Errorf("parse existing csv: %w", err)
		}
		if len(existing) > 0 {
			rows = existing[1:] // drop header
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	// Last write for a given date wins.
	byDate := make(map[string][]string, len(rows)+1)
	for _, row := range rows {
		if len(row) > 0 {
			byDate[row[0]] = row
		}
	}
	byDate[newRow[0]] = newRow

	merged := make([][]string, 0, len(byDate))
	for _, row := range byDate {
		merged = append(merged, row)
	}
	sort.Slice(merged, func(i, j int) bool {
		ti, errI := time.Parse(dateFormat, merged[i][0])
		tj, errJ := time.Parse(dateFormat, merged[j][0])
		if errI != nil || errJ != nil {
			return merged[i][0] < merged[j][0]
		}
		return ti.Before(tj)
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	out := csv.NewWriter(f)
	if err := out.Write(headers); err != nil {
		return err
	}
	if err := out.WriteAll(merged); err != nil {
		return err
	}
	out.Flush()
	return out.Error()
}
