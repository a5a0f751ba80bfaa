package models

import "time"

// PriceLevels holds the price-based inputs of a trade.
type PriceLevels struct {
	EntryPrice float64 `json:"entryPrice" yaml:"entry_price"`
	ExitPrice  float64 `json:"exitPrice" yaml:"exit_price"`
	LotSize    float64 `json:"lotSize" yaml:"lot_size"`
	StopLoss   float64 `json:"stopLoss" yaml:"stop_loss"`
	TakeProfit float64 `json:"takeProfit" yaml:"take_profit"`
}

// Trade represents one logged position.
//
// A trade is either priced (Prices set, pips and risk-reward derived) or
// simplified (Profit or Loss set). NetProfit is always populated and is the
// only value aggregations read. Outcome always agrees with the sign of
// NetProfit.
type Trade struct {
	ID        string    `json:"id" yaml:"id"`
	Pair      string    `json:"pair" yaml:"pair"`
	Direction Direction `json:"direction" yaml:"direction"`

	Prices          *PriceLevels `json:"prices,omitempty" yaml:"prices,omitempty"`
	ProfitLossPips  *float64     `json:"profitLossPips,omitempty" yaml:"profit_loss_pips,omitempty"`
	RiskRewardRatio *float64     `json:"riskRewardRatio,omitempty" yaml:"risk_reward_ratio,omitempty"`

	Profit    *float64 `json:"profit,omitempty" yaml:"profit,omitempty"`
	Loss      *float64 `json:"loss,omitempty" yaml:"loss,omitempty"`
	NetProfit float64  `json:"netProfit" yaml:"net_profit"`

	EntryTime time.Time `json:"entryTime" yaml:"entry_time"`
	ExitTime  time.Time `json:"exitTime" yaml:"exit_time"`

	Strategy       string   `json:"strategy" yaml:"strategy"`
	EmotionalState string   `json:"emotionalState" yaml:"emotional_state"`
	Notes          string   `json:"notes" yaml:"notes"`
	Confidence     int      `json:"confidence" yaml:"confidence"`
	Tags           []string `json:"tags" yaml:"tags"`
	Outcome        Outcome  `json:"outcome" yaml:"outcome"`

	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// IsPriced reports whether the trade was logged with price levels.
func (t Trade) IsPriced() bool {
	return t.Prices != nil
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (t Trade) Clone() Trade {
	c := t
	if t.Prices != nil {
		p := *t.Prices
		c.Prices = &p
	}
	c.ProfitLossPips = cloneFloat(t.ProfitLossPips)
	c.RiskRewardRatio = cloneFloat(t.RiskRewardRatio)
	c.Profit = cloneFloat(t.Profit)
	c.Loss = cloneFloat(t.Loss)
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// TradeStats is the aggregate view over a set of trades. Never persisted.
type TradeStats struct {
	TotalTrades     int     `json:"totalTrades" yaml:"total_trades"`
	WinningTrades   int     `json:"winningTrades" yaml:"winning_trades"`
	LosingTrades    int     `json:"losingTrades" yaml:"losing_trades"`
	BreakevenTrades int     `json:"breakevenTrades" yaml:"breakeven_trades"`
	WinRate         float64 `json:"winRate" yaml:"win_rate"`
	TotalProfit     float64 `json:"totalProfit" yaml:"total_profit"`
	TotalLoss       float64 `json:"totalLoss" yaml:"total_loss"`
	NetProfitLoss   float64 `json:"netProfitLoss" yaml:"net_profit_loss"`
	BestTrade       float64 `json:"bestTrade" yaml:"best_trade"`
	WorstTrade      float64 `json:"worstTrade" yaml:"worst_trade"`
	AvgWin          float64 `json:"avgWin" yaml:"avg_win"`
	AvgLoss         float64 `json:"avgLoss" yaml:"avg_loss"`
	AvgRiskReward   float64 `json:"avgRiskReward" yaml:"avg_risk_reward"`
	ProfitFactor    float64 `json:"profitFactor" yaml:"profit_factor"`
	Expectancy      float64 `json:"expectancy" yaml:"expectancy"`
}

// DailySummary aggregates the trades entered on one calendar date.
type DailySummary struct {
	Date    string  `json:"date" yaml:"date"`
	Wins    int     `json:"wins" yaml:"wins"`
	Losses  int     `json:"losses" yaml:"losses"`
	Trades  int     `json:"trades" yaml:"trades"`
	TotalPL float64 `json:"totalPL" yaml:"total_pl"`
}

// Sentiment returns the color class for the day.
func (d DailySummary) Sentiment() Sentiment {
	switch {
	case d.TotalPL > 0:
		return SentimentPositive
	case d.TotalPL < 0:
		return SentimentNegative
	default:
		return SentimentFlat
	}
}

// PairPerformance aggregates the trades of one currency pair.
type PairPerformance struct {
	Pair    string  `json:"pair" yaml:"pair"`
	Trades  int     `json:"trades" yaml:"trades"`
	Wins    int     `json:"wins" yaml:"wins"`
	Losses  int     `json:"losses" yaml:"losses"`
	TotalPL float64 `json:"totalPL" yaml:"total_pl"`
	WinRate float64 `json:"winRate" yaml:"win_rate"`
}

// SeriesPoint is one trade in a win/loss chart, positioned by exit time.
type SeriesPoint struct {
	TradeID string    `json:"tradeId" yaml:"trade_id"`
	Pair    string    `json:"pair" yaml:"pair"`
	Time    time.Time `json:"time" yaml:"time"`
	Win     float64   `json:"win" yaml:"win"`
	Loss    float64   `json:"loss" yaml:"loss"`
}
