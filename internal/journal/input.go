package journal

import (
	"time"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

// DefaultConfidence is applied when a trade is logged without a confidence.
const DefaultConfidence = 5

// TradeInput is the typed, not yet validated content of a trade.
// Price fields and Profit/Loss are mutually exclusive schemas.
type TradeInput struct {
	Pair      string
	Direction models.Direction

	EntryPrice *float64
	ExitPrice  *float64
	LotSize    *float64
	StopLoss   *float64
	TakeProfit *float64

	Profit *float64
	Loss   *float64

	EntryTime time.Time
	ExitTime  time.Time

	Strategy       string
	EmotionalState string
	Notes          string
	Confidence     int
	Tags           []string
}

// IsPriced reports whether any price field was supplied.
func (in TradeInput) IsPriced() bool {
	return in.EntryPrice != nil || in.ExitPrice != nil || in.LotSize != nil ||
		in.StopLoss != nil || in.TakeProfit != nil
}

// InputFromTrade rebuilds the input a stored trade was computed from, so an
// edit can change a few fields and recompute the rest.
func InputFromTrade(t models.Trade) TradeInput {
	in := TradeInput{
		Pair:           t.Pair,
		Direction:      t.Direction,
		EntryTime:      t.EntryTime,
		ExitTime:       t.ExitTime,
		Strategy:       t.Strategy,
		EmotionalState: t.EmotionalState,
		Notes:          t.Notes,
		Confidence:     t.Confidence,
		Tags:           append([]string(nil), t.Tags...),
	}
	if p := t.Prices; p != nil {
		in.EntryPrice = floatPtr(p.EntryPrice)
		in.ExitPrice = floatPtr(p.ExitPrice)
		in.LotSize = floatPtr(p.LotSize)
		in.StopLoss = floatPtr(p.StopLoss)
		in.TakeProfit = floatPtr(p.TakeProfit)
		return in
	}
	if t.Profit != nil {
		in.Profit = floatPtr(*t.Profit)
	}
	if t.Loss != nil {
		in.Loss = floatPtr(*t.Loss)
	}
	return in
}

// Calculator computes derived trade fields.
type Calculator struct {
	// PipValuePerLot scales pips × lot size into account currency.
	PipValuePerLot float64
}

// NewCalculator creates a calculator. A non-positive pip value means 1.
func NewCalculator(pipValuePerLot float64) *Calculator {
	if pipValuePerLot <= 0 || !isFinite(pipValuePerLot) {
		pipValuePerLot = 1
	}
	return &Calculator{PipValuePerLot: pipValuePerLot}
}

// Compute validates in and returns a trade with every derived field set.
// ID and timestamps are left for the store to assign.
func (c *Calculator) Compute(in TradeInput) (models.Trade, error) {
	pair, err := NormalizePair(in.Pair)
	if err != nil {
		return models.Trade{}, err
	}
	if !in.Direction.IsValid() {
		return models.Trade{}, apperrors.NewValidationError("direction", in.Direction, "must be long or short")
	}

	confidence := in.Confidence
	if confidence == 0 {
		confidence = DefaultConfidence
	}
	if confidence < 1 || confidence > 10 {
		return models.Trade{}, apperrors.NewValidationError("confidence", in.Confidence, "must be between 1 and 10")
	}

	if in.EntryTime.IsZero() {
		return models.Trade{}, apperrors.NewValidationError("entryTime", "", "required")
	}
	if !in.ExitTime.IsZero() && in.ExitTime.Before(in.EntryTime) {
		return models.Trade{}, apperrors.NewValidationError("exitTime", in.ExitTime.Format(time.RFC3339), "must not be before entry time")
	}

	trade := models.Trade{
		Pair:           pair,
		Direction:      in.Direction,
		EntryTime:      in.EntryTime,
		ExitTime:       in.ExitTime,
		Strategy:       in.Strategy,
		EmotionalState: in.EmotionalState,
		Notes:          in.Notes,
		Confidence:     confidence,
		Tags:           cleanTags(in.Tags),
	}

	if in.IsPriced() {
		if in.Profit != nil || in.Loss != nil {
			return models.Trade{}, apperrors.NewValidationError("profit", "", "price levels and profit/loss cannot be combined")
		}
		if err := c.applyPrices(&trade, in); err != nil {
			return models.Trade{}, err
		}
	} else {
		net, err := NetProfit(in.Profit, in.Loss)
		if err != nil {
			return models.Trade{}, err
		}
		trade.Profit = cloneFloat(in.Profit)
		trade.Loss = cloneFloat(in.Loss)
		trade.NetProfit = net
	}

	trade.Outcome = models.OutcomeFor(trade.NetProfit)
	return trade, nil
}

func (c *Calculator) applyPrices(trade *models.Trade, in TradeInput) error {
	fields := []struct {
		name string
		v    *float64
	}{
		{"entryPrice", in.EntryPrice},
		{"exitPrice", in.ExitPrice},
		{"lotSize", in.LotSize},
		{"stopLoss", in.StopLoss},
		{"takeProfit", in.TakeProfit},
	}
	for _, f := range fields {
		if f.v == nil {
			return apperrors.NewValidationError(f.name, "", "required")
		}
		if !isFinite(*f.v) {
			return apperrors.NewValidationError(f.name, *f.v, "must be a finite number")
		}
		if *f.v <= 0 {
			return apperrors.NewValidationError(f.name, *f.v, "must be positive")
		}
	}

	levels := models.PriceLevels{
		EntryPrice: *in.EntryPrice,
		ExitPrice:  *in.ExitPrice,
		LotSize:    *in.LotSize,
		StopLoss:   *in.StopLoss,
		TakeProfit: *in.TakeProfit,
	}
	pips := Pips(trade.Direction, trade.Pair, levels.EntryPrice, levels.ExitPrice)
	trade.Prices = &levels
	trade.ProfitLossPips = floatPtr(pips)
	if rr, ok := RiskReward(levels.EntryPrice, levels.StopLoss, levels.TakeProfit); ok {
		trade.RiskRewardRatio = floatPtr(rr)
	}
	trade.NetProfit = ProfitLoss(pips, levels.LotSize, c.PipValuePerLot)
	return nil
}

// Recompute applies in to an existing trade, keeping its identity.
func (c *Calculator) Recompute(existing models.Trade, in TradeInput) (models.Trade, error) {
	trade, err := c.Compute(in)
	if err != nil {
		return models.Trade{}, err
	}
	trade.ID = existing.ID
	trade.CreatedAt = existing.CreatedAt
	trade.UpdatedAt = existing.UpdatedAt
	return trade, nil
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		out = append(out, ParseTags(t)...)
	}
	return out
}

func floatPtr(v float64) *float64 {
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return floatPtr(*f)
}
