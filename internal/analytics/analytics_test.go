package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forex-journal/internal/models"
)

var day = time.Date(2024, 5, 14, 10, 0, 0, 0, time.Local)

func trade(id, pair string, net float64, entry time.Time) models.Trade {
	return models.Trade{
		ID:        id,
		Pair:      pair,
		Direction: models.DirectionLong,
		NetProfit: net,
		Outcome:   models.OutcomeFor(net),
		EntryTime: entry,
		ExitTime:  entry.Add(2 * time.Hour),
	}
}

func withRR(t models.Trade, rr float64) models.Trade {
	t.RiskRewardRatio = &rr
	return t
}

func TestAggregateStatsExample(t *testing.T) {
	stats := AggregateStats([]models.Trade{
		trade("a", "EUR/USD", 100, day),
		trade("b", "EUR/USD", -40, day),
		trade("c", "GBP/USD", 0, day),
	})

	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.Equal(t, 1, stats.BreakevenTrades)
	assert.InDelta(t, 33.3333, stats.WinRate, 1e-3)
	assert.Equal(t, 100.0, stats.TotalProfit)
	assert.Equal(t, 40.0, stats.TotalLoss)
	assert.Equal(t, 60.0, stats.NetProfitLoss)
	assert.Equal(t, 100.0, stats.BestTrade)
	assert.Equal(t, 40.0, stats.WorstTrade)
	assert.Equal(t, 100.0, stats.AvgWin)
	assert.Equal(t, 40.0, stats.AvgLoss)
	assert.Equal(t, 2.5, stats.ProfitFactor)
	assert.Equal(t, 20.0, stats.Expectancy)
}

func TestAggregateStatsEmpty(t *testing.T) {
	assert.Equal(t, models.TradeStats{}, AggregateStats(nil))
}

func TestAggregateStatsOnlyLosses(t *testing.T) {
	stats := AggregateStats([]models.Trade{
		trade("a", "EUR/USD", -10, day),
		trade("b", "EUR/USD", -30, day),
	})
	assert.Equal(t, 0.0, stats.WinRate)
	assert.Equal(t, 0.0, stats.BestTrade)
	assert.Equal(t, 0.0, stats.AvgWin)
	assert.Equal(t, 30.0, stats.WorstTrade)
	assert.Equal(t, 20.0, stats.AvgLoss)
	assert.Equal(t, -40.0, stats.NetProfitLoss)
	assert.Equal(t, 0.0, stats.ProfitFactor)
}

func TestAggregateStatsAvgRiskRewardSkipsUndefined(t *testing.T) {
	stats := AggregateStats([]models.Trade{
		withRR(trade("a", "EUR/USD", 10, day), 2),
		withRR(trade("b", "EUR/USD", -5, day), 1),
		trade("c", "EUR/USD", 3, day),
		withRR(trade("d", "EUR/USD", 3, day), math.NaN()),
	})
	assert.Equal(t, 1.5, stats.AvgRiskReward)
}

func TestAggregateByDay(t *testing.T) {
	next := day.AddDate(0, 0, 1)
	days := AggregateByDay([]models.Trade{
		trade("a", "EUR/USD", 50, day),
		trade("b", "EUR/USD", -20, day.Add(3*time.Hour)),
		trade("c", "EUR/USD", 0, day),
		trade("d", "USD/JPY", -5, next),
	})

	require.Len(t, days, 2)
	d := days["2024-05-14"]
	assert.Equal(t, 1, d.Wins)
	assert.Equal(t, 1, d.Losses)
	assert.Equal(t, 3, d.Trades)
	assert.Equal(t, 30.0, d.TotalPL)
	assert.Equal(t, models.SentimentPositive, d.Sentiment())

	assert.Equal(t, models.SentimentNegative, days["2024-05-15"].Sentiment())
	assert.Equal(t, models.SentimentFlat, models.DailySummary{}.Sentiment())
}

func TestAggregateByDayUsesTimestampLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	late := time.Date(2024, 5, 14, 23, 30, 0, 0, time.UTC)

	days := AggregateByDay([]models.Trade{
		trade("a", "EUR/USD", 10, late),
		trade("b", "EUR/USD", 10, late.In(tokyo)),
	})
	assert.Contains(t, days, "2024-05-14")
	assert.Contains(t, days, "2024-05-15")
}

func TestSortedDaysAndMonthWeeks(t *testing.T) {
	days := AggregateByDay([]models.Trade{
		trade("a", "EUR/USD", 5, day.AddDate(0, 0, 3)),
		trade("b", "EUR/USD", 5, day),
	})
	sorted := SortedDays(days)
	require.Len(t, sorted, 2)
	assert.Equal(t, "2024-05-14", sorted[0].Date)

	weeks := MonthWeeks(2024, time.May, days)
	// May 2024 starts on a Wednesday and spans five weeks.
	require.Len(t, weeks, 5)
	assert.Equal(t, "", weeks[0][0].Date)
	assert.Equal(t, "2024-05-01", weeks[0][3].Date)
	assert.Equal(t, 1, weeks[2][2].Wins)
	assert.Equal(t, "2024-05-14", weeks[2][2].Date)
}

func TestAggregateByPair(t *testing.T) {
	pairs := AggregateByPair([]models.Trade{
		trade("a", "EUR/USD", 50, day),
		trade("b", "EUR/USD", -20, day),
		trade("c", "USD/JPY", 80, day),
		trade("d", "GBP/USD", 0, day),
	})
	require.Len(t, pairs, 3)
	assert.Equal(t, "USD/JPY", pairs[0].Pair)
	assert.Equal(t, "EUR/USD", pairs[1].Pair)
	assert.Equal(t, 50.0, pairs[1].WinRate)
	assert.Equal(t, 30.0, pairs[1].TotalPL)
	assert.Equal(t, "GBP/USD", pairs[2].Pair)
	assert.Equal(t, 0.0, pairs[2].WinRate)
}

func TestFilter(t *testing.T) {
	a := trade("a", "EUR/USD", 50, day)
	a.Strategy = "Breakout"
	b := trade("b", "USD/JPY", -20, day.AddDate(0, 0, 2))
	c := trade("c", "EUR/USD", -5, day.AddDate(0, 0, 5))
	all := []models.Trade{a, b, c}

	assert.Len(t, Filter{}.Apply(all), 3)
	assert.True(t, Filter{}.IsEmpty())
	assert.Equal(t, []models.Trade{a, c}, Filter{Pair: "eurusd"}.Apply(all))
	assert.Equal(t, []models.Trade{a}, Filter{Strategy: "breakout"}.Apply(all))
	assert.Equal(t, []models.Trade{b, c}, Filter{Outcome: models.OutcomeLoss}.Apply(all))
	assert.Equal(t, []models.Trade{b}, Filter{
		From: day.AddDate(0, 0, 1),
		To:   EndOfDay(day.AddDate(0, 0, 2)),
	}.Apply(all))
}

func TestRecent(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 8; i++ {
		trades = append(trades, trade(string(rune('a'+i)), "EUR/USD", 1, day.AddDate(0, 0, i)))
	}
	recent := Recent(trades, 6)
	require.Len(t, recent, 6)
	assert.Equal(t, "h", recent[0].ID)
	assert.Equal(t, "c", recent[5].ID)
	assert.Equal(t, "a", trades[0].ID)
}

func TestStrategies(t *testing.T) {
	a := trade("a", "EUR/USD", 1, day)
	a.Strategy = "Scalp"
	b := trade("b", "EUR/USD", 1, day)
	b.Strategy = "scalp"
	c := trade("c", "EUR/USD", 1, day)
	c.Strategy = "Breakout"
	assert.Equal(t, []string{"Breakout", "Scalp"}, Strategies([]models.Trade{a, b, c, trade("d", "EUR/USD", 1, day)}))
}

func TestWinLossSeries(t *testing.T) {
	now := day.AddDate(0, 0, 10)
	old := trade("old", "EUR/USD", 40, now.AddDate(0, 0, -40))
	late := trade("late", "EUR/USD", -15, now.AddDate(0, 0, -1))
	early := trade("early", "EUR/USD", 25, now.AddDate(0, 0, -5))
	open := trade("open", "EUR/USD", 0, now.AddDate(0, 0, -2))
	open.ExitTime = time.Time{}
	input := []models.Trade{old, late, early, open}

	points := WinLossSeries(input, Range30D, now)
	require.Len(t, points, 2)
	assert.Equal(t, "early", points[0].TradeID)
	assert.Equal(t, 25.0, points[0].Win)
	assert.Equal(t, 15.0, points[1].Loss)
	assert.Equal(t, 0.0, points[1].Win)
	assert.Equal(t, "old", input[0].ID)

	assert.Len(t, WinLossSeries(input, Range1Y, now), 3)
}

func TestParseTimeRange(t *testing.T) {
	r, err := ParseTimeRange("")
	require.NoError(t, err)
	assert.Equal(t, Range30D, r)

	r, err = ParseTimeRange("90d")
	require.NoError(t, err)
	assert.Equal(t, day.AddDate(0, 0, -90), r.Start(day))

	_, err = ParseTimeRange("2w")
	assert.Error(t, err)
}
