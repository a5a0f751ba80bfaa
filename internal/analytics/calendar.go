package analytics

import (
	"sort"
	"time"

	"forex-journal/internal/models"
)

// DayLayout is the calendar key format.
const DayLayout = "2006-01-02"

// DayKey returns the calendar date of t in t's own location. Timestamps are
// not normalized to a common zone.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// AggregateByDay groups trades by the calendar date of their entry time.
// Breakeven trades add to Trades and TotalPL but to neither Wins nor Losses.
func AggregateByDay(trades []models.Trade) map[string]models.DailySummary {
	days := make(map[string]models.DailySummary)
	for _, t := range trades {
		key := DayKey(t.EntryTime)
		d := days[key]
		d.Date = key
		d.Trades++
		switch t.Outcome {
		case models.OutcomeWin:
			d.Wins++
		case models.OutcomeLoss:
			d.Losses++
		}
		d.TotalPL += t.NetProfit
		days[key] = d
	}
	return days
}

// SortedDays returns the summaries ordered by date.
func SortedDays(days map[string]models.DailySummary) []models.DailySummary {
	out := make([]models.DailySummary, 0, len(days))
	for _, d := range days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// MonthWeeks lays out a month as weeks of seven cells starting on Sunday.
// Cells outside the month have an empty Date.
func MonthWeeks(year int, month time.Month, days map[string]models.DailySummary) [][7]models.DailySummary {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1).Day()

	var weeks [][7]models.DailySummary
	var week [7]models.DailySummary
	col := int(first.Weekday())

	for day := 1; day <= last; day++ {
		key := time.Date(year, month, day, 0, 0, 0, 0, time.Local).Format(DayLayout)
		cell, ok := days[key]
		if !ok {
			cell = models.DailySummary{Date: key}
		}
		week[col] = cell
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = [7]models.DailySummary{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}
