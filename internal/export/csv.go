// Package export reads and writes trade journals as CSV.
package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"forex-journal/internal/journal"
	"forex-journal/internal/models"
)

// csvRecord is one CSV row. Derived columns are written for spreadsheet use
// and ignored on import.
type csvRecord struct {
	ID             string `csv:"id"`
	Pair           string `csv:"pair"`
	Direction      string `csv:"direction"`
	EntryPrice     string `csv:"entry_price"`
	ExitPrice      string `csv:"exit_price"`
	LotSize        string `csv:"lot_size"`
	StopLoss       string `csv:"stop_loss"`
	TakeProfit     string `csv:"take_profit"`
	Profit         string `csv:"profit"`
	Loss           string `csv:"loss"`
	NetProfit      string `csv:"net_profit"`
	Pips           string `csv:"pips"`
	RiskReward     string `csv:"risk_reward"`
	EntryTime      string `csv:"entry_time"`
	ExitTime       string `csv:"exit_time"`
	Strategy       string `csv:"strategy"`
	EmotionalState string `csv:"emotional_state"`
	Confidence     string `csv:"confidence"`
	Tags           string `csv:"tags"`
	Notes          string `csv:"notes"`
	Outcome        string `csv:"outcome"`
}

// WriteCSV writes trades with a header row.
func WriteCSV(w io.Writer, trades []models.Trade) error {
	records := make([]*csvRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, toRecord(t))
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// ReadCSV parses a journal CSV into forms. Columns may appear in any order and
// unknown columns are ignored.
func ReadCSV(r io.Reader) ([]journal.TradeForm, error) {
	var records []*csvRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	forms := make([]journal.TradeForm, 0, len(records))
	for _, rec := range records {
		forms = append(forms, rec.form())
	}
	return forms, nil
}

// Adder persists one trade; *session.Repository satisfies it.
type Adder interface {
	Add(ctx context.Context, in journal.TradeInput) (models.Trade, error)
}

// RowError reports a rejected row. Row is 1-based and excludes the header.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// ImportResult summarizes an import.
type ImportResult struct {
	Imported []models.Trade
	Skipped  []RowError
}

// Import recomputes each form through the adder. Invalid rows are skipped and
// reported; a context error stops the import.
func Import(ctx context.Context, dst Adder, forms []journal.TradeForm) (ImportResult, error) {
	var res ImportResult
	for i, f := range forms {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in, err := f.Parse()
		if err == nil {
			var t models.Trade
			t, err = dst.Add(ctx, in)
			if err == nil {
				res.Imported = append(res.Imported, t)
				continue
			}
		}
		res.Skipped = append(res.Skipped, RowError{Row: i + 1, Err: err})
	}
	return res, nil
}

func toRecord(t models.Trade) *csvRecord {
	rec := &csvRecord{
		ID:             t.ID,
		Pair:           t.Pair,
		Direction:      string(t.Direction),
		Profit:         formatOptional(t.Profit),
		Loss:           formatOptional(t.Loss),
		NetProfit:      formatFloat(t.NetProfit),
		Pips:           formatOptional(t.ProfitLossPips),
		RiskReward:     formatOptional(t.RiskRewardRatio),
		EntryTime:      formatTime(t.EntryTime),
		ExitTime:       formatTime(t.ExitTime),
		Strategy:       t.Strategy,
		EmotionalState: t.EmotionalState,
		Confidence:     strconv.Itoa(t.Confidence),
		Tags:           strings.Join(t.Tags, ","),
		Notes:          t.Notes,
		Outcome:        string(t.Outcome),
	}
	if p := t.Prices; p != nil {
		rec.EntryPrice = formatFloat(p.EntryPrice)
		rec.ExitPrice = formatFloat(p.ExitPrice)
		rec.LotSize = formatFloat(p.LotSize)
		rec.StopLoss = formatFloat(p.StopLoss)
		rec.TakeProfit = formatFloat(p.TakeProfit)
	}
	return rec
}

func (rec *csvRecord) form() journal.TradeForm {
	return journal.TradeForm{
		Pair:           rec.Pair,
		Direction:      rec.Direction,
		EntryPrice:     rec.EntryPrice,
		ExitPrice:      rec.ExitPrice,
		LotSize:        rec.LotSize,
		StopLoss:       rec.StopLoss,
		TakeProfit:     rec.TakeProfit,
		Profit:         rec.Profit,
		Loss:           rec.Loss,
		EntryTime:      rec.EntryTime,
		ExitTime:       rec.ExitTime,
		Strategy:       rec.Strategy,
		EmotionalState: rec.EmotionalState,
		Notes:          rec.Notes,
		Confidence:     rec.Confidence,
		Tags:           rec.Tags,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
