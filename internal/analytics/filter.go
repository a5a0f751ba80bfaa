package analytics

import (
	"sort"
	"strings"
	"time"

	"forex-journal/internal/models"
)

// Filter selects trades. Zero-valued fields match everything; From and To
// are inclusive bounds on entry time.
type Filter struct {
	Pair     string
	Strategy string
	Outcome  models.Outcome
	From     time.Time
	To       time.Time
}

// IsEmpty reports whether the filter matches every trade.
func (f Filter) IsEmpty() bool {
	return f.Pair == "" && f.Strategy == "" && f.Outcome == "" && f.From.IsZero() && f.To.IsZero()
}

// Match reports whether t passes the filter.
func (f Filter) Match(t models.Trade) bool {
	if f.Pair != "" && !strings.EqualFold(normalizeSymbol(f.Pair), normalizeSymbol(t.Pair)) {
		return false
	}
	if f.Strategy != "" && !strings.EqualFold(strings.TrimSpace(f.Strategy), strings.TrimSpace(t.Strategy)) {
		return false
	}
	if f.Outcome != "" && f.Outcome != t.Outcome {
		return false
	}
	if !f.From.IsZero() && t.EntryTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.EntryTime.After(f.To) {
		return false
	}
	return true
}

// Apply returns the trades that pass the filter, preserving order.
func (f Filter) Apply(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// EndOfDay returns the last instant of t's calendar day, for inclusive
// date-only upper bounds.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Recent returns up to n trades, newest entry first.
func Recent(trades []models.Trade, n int) []models.Trade {
	sorted := append([]models.Trade(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EntryTime.After(sorted[j].EntryTime)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Strategies returns the distinct strategy names in use, sorted.
func Strategies(trades []models.Trade) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range trades {
		s := strings.TrimSpace(t.Strategy)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func normalizeSymbol(s string) string {
	return strings.NewReplacer("/", "", "_", "", "-", "", " ", "").Replace(s)
}
