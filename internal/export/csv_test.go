package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/journal"
	"forex-journal/internal/models"
	"forex-journal/internal/session"
	"forex-journal/internal/store"
)

func f(v float64) *float64 { return &v }

func sampleTrades(t *testing.T) []models.Trade {
	t.Helper()
	calc := journal.NewCalculator(10)
	zone := time.FixedZone("UTC+9", 9*3600)
	entry := time.Date(2024, 3, 4, 23, 30, 0, 0, zone)

	priced, err := calc.Compute(journal.TradeInput{
		Pair: "USD/JPY", Direction: models.DirectionShort,
		EntryPrice: f(151.20), ExitPrice: f(150.70), LotSize: f(0.5),
		StopLoss: f(151.70), TakeProfit: f(150.20),
		EntryTime: entry, ExitTime: entry.Add(3 * time.Hour),
		Strategy: "breakout", Notes: "tokyo open, quick \"fade\"", Tags: []string{"asia", "news"},
		Confidence: 8,
	})
	require.NoError(t, err)
	priced.ID = "01A"

	simple, err := calc.Compute(journal.TradeInput{
		Pair: "EURUSD", Direction: models.DirectionLong,
		Loss:      f(42.5),
		EntryTime: entry.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	simple.ID = "01B"

	return []models.Trade{priced, simple}
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTrades(t)))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "id,pair,direction,entry_price,exit_price,lot_size,stop_loss,take_profit,"+
		"profit,loss,net_profit,pips,risk_reward,entry_time,exit_time,strategy,"+
		"emotional_state,confidence,tags,notes,outcome", header)
}

func TestCSVRoundTripThroughCalculator(t *testing.T) {
	trades := sampleTrades(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, trades))

	forms, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, forms, 2)

	calc := journal.NewCalculator(10)
	for i, form := range forms {
		in, err := form.Parse()
		require.NoError(t, err)
		got, err := calc.Compute(in)
		require.NoError(t, err)

		want := trades[i]
		assert.Equal(t, want.Pair, got.Pair)
		assert.Equal(t, want.Direction, got.Direction)
		assert.InDelta(t, want.NetProfit, got.NetProfit, 1e-9)
		assert.Equal(t, want.Outcome, got.Outcome)
		assert.Equal(t, want.Tags, got.Tags)
		assert.Equal(t, want.Notes, got.Notes)
		assert.Equal(t, want.Confidence, got.Confidence)
		assert.True(t, want.EntryTime.Equal(got.EntryTime))
		assert.Equal(t, want.EntryTime.Format("2006-01-02"), got.EntryTime.Format("2006-01-02"))
		assert.Equal(t, want.IsPriced(), got.IsPriced())
	}
}

func TestReadCSVIgnoresDerivedColumns(t *testing.T) {
	data := "pair,direction,profit,net_profit,outcome,entry_time\n" +
		"GBP/USD,buy,25,-999,loss,2024-05-01 10:00\n"

	forms, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, forms, 1)

	in, err := forms[0].Parse()
	require.NoError(t, err)
	got, err := journal.NewCalculator(1).Compute(in)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.NetProfit)
	assert.Equal(t, models.OutcomeWin, got.Outcome)
}

func TestImportSkipsBadRows(t *testing.T) {
	ctx := context.Background()
	repo, err := session.New(store.NewMemoryStore(), journal.NewCalculator(1), "u1", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.Refresh(ctx))

	data := "pair,direction,profit,loss,entry_time\n" +
		"EUR/USD,long,10,,2024-05-01\n" +
		"EUR/USD,long,abc,,2024-05-01\n" +
		"EUR/USD,long,5,5,2024-05-02\n" +
		"XAU,long,1,,2024-05-02\n" +
		"USD/CHF,short,,3,2024-05-03T08:00:00Z\n"

	forms, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)

	res, err := Import(ctx, repo, forms)
	require.NoError(t, err)
	assert.Len(t, res.Imported, 2)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{res.Skipped[0].Row, res.Skipped[1].Row, res.Skipped[2].Row})
	for _, s := range res.Skipped {
		assert.True(t, apperrors.IsValidation(s.Err), s.Error())
	}
	assert.Len(t, repo.Trades(), 2)
}

func TestImportStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo, err := session.New(store.NewMemoryStore(), nil, "u1", zerolog.Nop())
	require.NoError(t, err)

	_, err = Import(ctx, repo, []journal.TradeForm{{Pair: "EUR/USD", Direction: "long", Profit: "1", EntryTime: "2024-01-01"}})
	assert.ErrorIs(t, err, context.Canceled)
}
