package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"forex-journal/internal/journal"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"AUD": "A$",
	"CAD": "C$",
	"CHF": "CHF ",
	"NZD": "NZ$",
}

// FormatMoney formats an amount with the currency symbol and thousands
// separators, e.g. -$1,234.50.
func FormatMoney(amount float64, currency string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	// Format with 2 decimal places
	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")

	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		symbol = strings.ToUpper(currency) + " "
	}

	result := symbol + formatThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// formatThousands groups an integer string in threes: 1234567 -> 1,234,567.
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPnL formats P&L with sign.
func FormatPnL(pnl float64, currency string) string {
	formatted := FormatMoney(pnl, currency)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats a percentage without sign.
func FormatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// FormatPips formats a pip movement with sign, or "-" for simplified trades.
func FormatPips(pips *float64) string {
	if pips == nil {
		return "-"
	}
	sign := ""
	if *pips > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f", sign, *pips)
}

// FormatRiskReward formats a risk-reward ratio as 1:R. Undefined ratios
// render as "n/a".
func FormatRiskReward(rr *float64) string {
	if rr == nil || math.IsNaN(*rr) || math.IsInf(*rr, 0) {
		return "n/a"
	}
	return fmt.Sprintf("1:%.2f", *rr)
}

// FormatPrice formats a quote with the pair's usual precision: three
// decimals for yen crosses, five otherwise.
func FormatPrice(pair string, price float64) string {
	if journal.PipMultiplier(pair) == journal.JPYPipMultiplier {
		return fmt.Sprintf("%.3f", price)
	}
	return fmt.Sprintf("%.5f", price)
}

// FormatDate formats a date in the timestamp's own zone.
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	if layout == "" {
		layout = "2006-01-02"
	}
	return t.Format(layout)
}

// FormatDateTime formats a date and time in the timestamp's own zone.
func FormatDateTime(t time.Time, dateLayout, timeLayout string) string {
	if t.IsZero() {
		return "-"
	}
	if timeLayout == "" {
		timeLayout = "15:04"
	}
	return FormatDate(t, dateLayout) + " " + t.Format(timeLayout)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// FormatHolding formats the time between entry and exit, or "open".
func FormatHolding(entry, exit time.Time) string {
	if exit.IsZero() || exit.Before(entry) {
		return "open"
	}
	return FormatDuration(exit.Sub(entry))
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// PadLeft pads a string to the left.
func PadLeft(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(" ", length-len(s)) + s
}
