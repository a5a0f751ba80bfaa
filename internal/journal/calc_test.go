package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

func f(v float64) *float64 { return &v }

func pricedInput(pair string, dir models.Direction, entry, exit, lot, sl, tp float64) TradeInput {
	return TradeInput{
		Pair:       pair,
		Direction:  dir,
		EntryPrice: f(entry),
		ExitPrice:  f(exit),
		LotSize:    f(lot),
		StopLoss:   f(sl),
		TakeProfit: f(tp),
		EntryTime:  time.Date(2024, 3, 4, 9, 30, 0, 0, time.Local),
		ExitTime:   time.Date(2024, 3, 4, 14, 0, 0, 0, time.Local),
	}
}

func TestPips(t *testing.T) {
	tests := []struct {
		name  string
		pair  string
		dir   models.Direction
		entry float64
		exit  float64
		want  float64
	}{
		{"eurusd long", "EUR/USD", models.DirectionLong, 1.1000, 1.1050, 50},
		{"usdjpy long", "USD/JPY", models.DirectionLong, 110.00, 110.50, 50},
		{"eurusd short win", "EUR/USD", models.DirectionShort, 1.1050, 1.1000, 50},
		{"gbpjpy short loss", "GBP/JPY", models.DirectionShort, 150.00, 150.25, -25},
		{"flat", "AUD/USD", models.DirectionLong, 0.6600, 0.6600, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Pips(tt.dir, tt.pair, tt.entry, tt.exit), 1e-6)
		})
	}
}

func TestPipMultiplier(t *testing.T) {
	assert.Equal(t, 100.0, PipMultiplier("USD/JPY"))
	assert.Equal(t, 100.0, PipMultiplier("eurjpy"))
	assert.Equal(t, 10000.0, PipMultiplier("EUR/USD"))
}

func TestRiskReward(t *testing.T) {
	rr, ok := RiskReward(1.1000, 1.0950, 1.1100)
	require.True(t, ok)
	assert.InDelta(t, 2.0, rr, 1e-9)

	// short setup: stop above entry, target below
	rr, ok = RiskReward(1.1000, 1.1020, 1.0940)
	require.True(t, ok)
	assert.InDelta(t, 3.0, rr, 1e-9)

	_, ok = RiskReward(1.1000, 1.1000, 1.1100)
	assert.False(t, ok)
}

func TestNetProfit(t *testing.T) {
	net, err := NetProfit(f(100), nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, net)

	net, err = NetProfit(nil, f(40))
	require.NoError(t, err)
	assert.Equal(t, -40.0, net)

	net, err = NetProfit(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, net)

	_, err = NetProfit(f(10), f(5))
	assert.True(t, apperrors.IsValidation(err))

	_, err = NetProfit(f(-10), nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNormalizePair(t *testing.T) {
	for _, in := range []string{"EUR/USD", "eurusd", "EUR_USD", " eur-usd ", "EUR USD"} {
		got, err := NormalizePair(in)
		require.NoError(t, err, in)
		assert.Equal(t, "EUR/USD", got)
	}
	for _, in := range []string{"", "EU/USD", "EURUSDX", "12/345"} {
		_, err := NormalizePair(in)
		assert.True(t, apperrors.IsValidation(err), in)
	}
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"breakout", "london", "a+ setup"}, ParseTags(" breakout, london ,, a+ setup ,"))
	assert.Nil(t, ParseTags(" , "))
}

func TestComputePricedTrade(t *testing.T) {
	calc := NewCalculator(1)
	trade, err := calc.Compute(pricedInput("eurusd", models.DirectionLong, 1.1000, 1.1050, 2, 1.0950, 1.1100))
	require.NoError(t, err)

	assert.Equal(t, "EUR/USD", trade.Pair)
	require.NotNil(t, trade.ProfitLossPips)
	assert.InDelta(t, 50, *trade.ProfitLossPips, 1e-6)
	assert.InDelta(t, 100, trade.NetProfit, 1e-6)
	require.NotNil(t, trade.RiskRewardRatio)
	assert.InDelta(t, 2.0, *trade.RiskRewardRatio, 1e-9)
	assert.Equal(t, models.OutcomeWin, trade.Outcome)
	assert.Equal(t, DefaultConfidence, trade.Confidence)
	assert.Nil(t, trade.Profit)
	assert.Nil(t, trade.Loss)
}

func TestComputePipValuePerLot(t *testing.T) {
	calc := NewCalculator(10)
	trade, err := calc.Compute(pricedInput("USD/JPY", models.DirectionShort, 110.50, 110.00, 0.5, 111.00, 109.00))
	require.NoError(t, err)
	assert.InDelta(t, 250, trade.NetProfit, 1e-6)

	assert.Equal(t, 1.0, NewCalculator(0).PipValuePerLot)
}

func TestComputeUndefinedRiskReward(t *testing.T) {
	trade, err := NewCalculator(1).Compute(pricedInput("EUR/USD", models.DirectionLong, 1.1000, 1.0990, 1, 1.1000, 1.1100))
	require.NoError(t, err)
	assert.Nil(t, trade.RiskRewardRatio)
	assert.Equal(t, models.OutcomeLoss, trade.Outcome)
}

func TestComputeSimplifiedTrade(t *testing.T) {
	calc := NewCalculator(1)
	base := TradeInput{Pair: "GBP/USD", Direction: models.DirectionShort, EntryTime: time.Now()}

	in := base
	in.Loss = f(40)
	trade, err := calc.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, -40.0, trade.NetProfit)
	assert.Equal(t, models.OutcomeLoss, trade.Outcome)
	assert.False(t, trade.IsPriced())

	trade, err = calc.Compute(base)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeBreakeven, trade.Outcome)

	in.Profit = f(10)
	_, err = calc.Compute(in)
	assert.True(t, apperrors.IsValidation(err))
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	calc := NewCalculator(1)
	valid := pricedInput("EUR/USD", models.DirectionLong, 1.1, 1.2, 1, 1.0, 1.3)

	tests := []struct {
		name   string
		mutate func(*TradeInput)
		field  string
	}{
		{"missing stop", func(in *TradeInput) { in.StopLoss = nil }, "stopLoss"},
		{"zero lot", func(in *TradeInput) { in.LotSize = f(0) }, "lotSize"},
		{"bad direction", func(in *TradeInput) { in.Direction = "up" }, "direction"},
		{"confidence high", func(in *TradeInput) { in.Confidence = 11 }, "confidence"},
		{"no entry time", func(in *TradeInput) { in.EntryTime = time.Time{} }, "entryTime"},
		{"exit before entry", func(in *TradeInput) { in.ExitTime = in.EntryTime.Add(-time.Hour) }, "exitTime"},
		{"mixed schema", func(in *TradeInput) { in.Profit = f(3) }, "profit"},
		{"bad pair", func(in *TradeInput) { in.Pair = "EURO" }, "pair"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := calc.Compute(in)
			var ve *apperrors.ValidationError
			require.True(t, apperrors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRecomputeKeepsIdentity(t *testing.T) {
	calc := NewCalculator(1)
	created := time.Now().Add(-time.Hour)
	existing := models.Trade{ID: "01HX", CreatedAt: created}

	trade, err := calc.Recompute(existing, pricedInput("EUR/USD", models.DirectionLong, 1.1, 1.1, 1, 1.09, 1.12))
	require.NoError(t, err)
	assert.Equal(t, "01HX", trade.ID)
	assert.Equal(t, created, trade.CreatedAt)
}

func TestInputFromTradeRoundTrip(t *testing.T) {
	calc := NewCalculator(1)
	in := pricedInput("EUR/USD", models.DirectionShort, 1.2, 1.19, 1, 1.21, 1.17)
	in.Tags = []string{"news"}
	trade, err := calc.Compute(in)
	require.NoError(t, err)

	again, err := calc.Compute(InputFromTrade(trade))
	require.NoError(t, err)
	assert.Equal(t, trade, again)
}
