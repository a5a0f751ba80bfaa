package journal

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"forex-journal/internal/models"
)

// Property: the outcome of a computed trade always agrees with the sign of
// its net profit, for both the priced and the simplified schema.
func TestProperty_OutcomeMatchesNetSign(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	calc := NewCalculator(1)
	entryTime := time.Date(2024, 1, 2, 8, 0, 0, 0, time.Local)

	properties.Property("priced trades classify by pip result", prop.ForAll(
		func(entry, move float64, short bool) bool {
			dir := models.DirectionLong
			if short {
				dir = models.DirectionShort
			}
			exit := entry + move
			if exit <= 0 {
				return true
			}
			trade, err := calc.Compute(pricedInput("EUR/USD", dir, entry, exit, 1, entry*0.99, entry*1.02))
			if err != nil {
				return false
			}
			return trade.Outcome == models.OutcomeFor(trade.NetProfit)
		},
		gen.Float64Range(0.5, 2.0),
		gen.Float64Range(-0.05, 0.05),
		gen.Bool(),
	))

	properties.Property("simplified trades classify by profit or loss", prop.ForAll(
		func(amount float64, isLoss bool) bool {
			in := TradeInput{Pair: "GBP/JPY", Direction: models.DirectionLong, EntryTime: entryTime}
			if isLoss {
				in.Loss = &amount
			} else {
				in.Profit = &amount
			}
			trade, err := calc.Compute(in)
			if err != nil {
				return false
			}
			if amount == 0 {
				return trade.Outcome == models.OutcomeBreakeven
			}
			if isLoss {
				return trade.Outcome == models.OutcomeLoss && trade.NetProfit == -amount
			}
			return trade.Outcome == models.OutcomeWin && trade.NetProfit == amount
		},
		gen.Float64Range(0, 10000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: swapping direction negates the pip result.
func TestProperty_DirectionSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("long pips = -short pips", prop.ForAll(
		func(entry, exit float64, jpy bool) bool {
			pair := "EUR/USD"
			if jpy {
				pair = "USD/JPY"
			}
			long := Pips(models.DirectionLong, pair, entry, exit)
			short := Pips(models.DirectionShort, pair, entry, exit)
			return math.Abs(long+short) < 1e-9
		},
		gen.Float64Range(0.5, 200),
		gen.Float64Range(0.5, 200),
		gen.Bool(),
	))

	properties.Property("risk-reward is non-negative when defined", prop.ForAll(
		func(entry, stop, target float64) bool {
			rr, ok := RiskReward(entry, stop, target)
			if !ok {
				return entry == stop
			}
			return rr >= 0 && !math.IsNaN(rr)
		},
		gen.Float64Range(0.5, 2.0),
		gen.Float64Range(0.5, 2.0),
		gen.Float64Range(0.5, 2.0),
	))

	properties.TestingRun(t)
}
