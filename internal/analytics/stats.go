// Package analytics provides pure aggregations over a user's trades.
// Nothing here mutates its input or caches results.
package analytics

import (
	"math"

	"forex-journal/internal/models"
)

// AggregateStats computes the journal statistics for trades. The result does
// not depend on input order. Breakeven trades count toward TotalTrades only.
func AggregateStats(trades []models.Trade) models.TradeStats {
	var s models.TradeStats
	s.TotalTrades = len(trades)

	var rrSum float64
	var rrCount int

	for _, t := range trades {
		switch t.Outcome {
		case models.OutcomeWin:
			s.WinningTrades++
			s.TotalProfit += t.NetProfit
			if t.NetProfit > s.BestTrade {
				s.BestTrade = t.NetProfit
			}
		case models.OutcomeLoss:
			s.LosingTrades++
			loss := math.Abs(t.NetProfit)
			s.TotalLoss += loss
			if loss > s.WorstTrade {
				s.WorstTrade = loss
			}
		default:
			s.BreakevenTrades++
		}

		if t.RiskRewardRatio != nil && !math.IsNaN(*t.RiskRewardRatio) && !math.IsInf(*t.RiskRewardRatio, 0) {
			rrSum += *t.RiskRewardRatio
			rrCount++
		}
	}

	s.NetProfitLoss = s.TotalProfit - s.TotalLoss
	s.WinRate = percent(s.WinningTrades, s.TotalTrades)
	s.AvgWin = safeDiv(s.TotalProfit, float64(s.WinningTrades))
	s.AvgLoss = safeDiv(s.TotalLoss, float64(s.LosingTrades))
	s.AvgRiskReward = safeDiv(rrSum, float64(rrCount))
	s.ProfitFactor = safeDiv(s.TotalProfit, s.TotalLoss)
	s.Expectancy = safeDiv(s.NetProfitLoss, float64(s.TotalTrades))

	return s
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
