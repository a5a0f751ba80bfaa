package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"forex-journal/internal/models"
)

// Property: Trade round-trip consistency
//
// For any priced trade, creating it in the SQLite store and reading it back
// yields the same prices, derived values, calendar date and tags.
func TestProperty_TradeRoundTripConsistency(t *testing.T) {
	store := newTestSQLite(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	pairs := []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "EUR/JPY", "USD/CHF"}
	zones := []*time.Location{time.UTC, time.FixedZone("IST", 19800), time.FixedZone("EST", -18000)}

	properties.Property("Trade round-trip: create then get produces equivalent data", prop.ForAll(
		func(pairIdx int, entry, move, lot float64, minutes int, zoneIdx int, short bool) bool {
			ctx := context.Background()
			zone := zones[zoneIdx%len(zones)]
			entryTime := time.Date(2024, 1, 1, 0, 0, 0, 0, zone).Add(time.Duration(minutes) * time.Minute)

			tr := pricedTrade(entryTime)
			tr.Pair = pairs[pairIdx%len(pairs)]
			if short {
				tr.Direction = models.DirectionShort
			}
			tr.Prices.EntryPrice = entry
			tr.Prices.ExitPrice = entry + move
			tr.Prices.LotSize = lot
			tr.NetProfit = move * lot
			tr.Outcome = models.OutcomeFor(tr.NetProfit)

			created, err := store.CreateTrade(ctx, "prop-user", tr)
			if err != nil {
				t.Logf("Failed to create trade: %v", err)
				return false
			}
			got, err := store.GetTrade(ctx, "prop-user", created.ID)
			if err != nil {
				t.Logf("Failed to get trade: %v", err)
				return false
			}

			if got.Pair != tr.Pair || got.Direction != tr.Direction || got.Outcome != tr.Outcome {
				return false
			}
			if math.Abs(got.Prices.EntryPrice-entry) > 1e-12 || math.Abs(got.NetProfit-tr.NetProfit) > 1e-12 {
				return false
			}
			if got.EntryTime.Format("2006-01-02") != entryTime.Format("2006-01-02") {
				t.Logf("calendar date drifted: %v -> %v", entryTime, got.EntryTime)
				return false
			}
			return got.EntryTime.Equal(entryTime) && len(got.Tags) == len(tr.Tags)
		},
		gen.IntRange(0, 100),
		gen.Float64Range(0.5, 200),
		gen.Float64Range(-2, 2),
		gen.Float64Range(0.01, 10),
		gen.IntRange(0, 60*24*365),
		gen.IntRange(0, 10),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
