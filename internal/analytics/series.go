package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"forex-journal/internal/models"
)

// TimeRange is a trailing window for the win/loss chart.
type TimeRange string

const (
	Range7D  TimeRange = "7d"
	Range30D TimeRange = "30d"
	Range90D TimeRange = "90d"
	Range1Y  TimeRange = "1y"
)

// ParseTimeRange validates a range name. Empty means 30d.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case "":
		return Range30D, nil
	case Range7D, Range30D, Range90D, Range1Y:
		return TimeRange(s), nil
	}
	return "", fmt.Errorf("unknown time range %q (use 7d, 30d, 90d or 1y)", s)
}

// Start returns the beginning of the window ending at now.
func (r TimeRange) Start(now time.Time) time.Time {
	switch r {
	case Range7D:
		return now.AddDate(0, 0, -7)
	case Range90D:
		return now.AddDate(0, 0, -90)
	case Range1Y:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -30)
	}
}

// WinLossSeries returns one point per closed trade whose exit falls inside
// the window, ordered by exit time. Trades without an exit time are skipped.
func WinLossSeries(trades []models.Trade, r TimeRange, now time.Time) []models.SeriesPoint {
	start := r.Start(now)

	points := make([]models.SeriesPoint, 0, len(trades))
	for _, t := range trades {
		if t.ExitTime.IsZero() || t.ExitTime.Before(start) {
			continue
		}
		p := models.SeriesPoint{TradeID: t.ID, Pair: t.Pair, Time: t.ExitTime}
		switch t.Outcome {
		case models.OutcomeWin:
			p.Win = t.NetProfit
		case models.OutcomeLoss:
			p.Loss = math.Abs(t.NetProfit)
		}
		points = append(points, p)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points
}
