package analytics

import (
	"sort"

	"forex-journal/internal/models"
)

// AggregateByPair computes per-pair performance, ordered by net P/L
// descending. WinRate is taken over decided (win or loss) trades.
func AggregateByPair(trades []models.Trade) []models.PairPerformance {
	byPair := make(map[string]*models.PairPerformance)
	for _, t := range trades {
		p, ok := byPair[t.Pair]
		if !ok {
			p = &models.PairPerformance{Pair: t.Pair}
			byPair[t.Pair] = p
		}
		p.Trades++
		p.TotalPL += t.NetProfit
		switch t.Outcome {
		case models.OutcomeWin:
			p.Wins++
		case models.OutcomeLoss:
			p.Losses++
		}
	}

	out := make([]models.PairPerformance, 0, len(byPair))
	for _, p := range byPair {
		p.WinRate = percent(p.Wins, p.Wins+p.Losses)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPL != out[j].TotalPL {
			return out[i].TotalPL > out[j].TotalPL
		}
		return out[i].Pair < out[j].Pair
	})
	return out
}
