// Package journal turns raw trade input into validated trade records with
// their derived fields (pips, profit/loss, risk-reward, outcome).
package journal

import (
	"math"
	"regexp"
	"strings"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

const (
	// JPYPipMultiplier converts a price delta of a JPY-quoted pair to pips.
	JPYPipMultiplier = 100.0
	// StandardPipMultiplier converts a price delta of any other pair to pips.
	StandardPipMultiplier = 10000.0
)

var pairPattern = regexp.MustCompile(`^[A-Z]{6}$`)

// PipMultiplier returns the pips-per-unit-price factor for a pair.
func PipMultiplier(pair string) float64 {
	if strings.Contains(strings.ToUpper(pair), "JPY") {
		return JPYPipMultiplier
	}
	return StandardPipMultiplier
}

// Pips returns the signed pip movement in the trade's favor.
func Pips(direction models.Direction, pair string, entry, exit float64) float64 {
	delta := exit - entry
	if direction == models.DirectionShort {
		delta = entry - exit
	}
	return delta * PipMultiplier(pair)
}

// ProfitLoss converts pips to money at the given lot size.
func ProfitLoss(pips, lotSize, pipValuePerLot float64) float64 {
	return pips * lotSize * pipValuePerLot
}

// RiskReward returns |(takeProfit-entry)/(entry-stopLoss)|. ok is false when
// the ratio is undefined (entry equals the stop or inputs are not finite).
func RiskReward(entry, stopLoss, takeProfit float64) (ratio float64, ok bool) {
	risk := entry - stopLoss
	if risk == 0 {
		return 0, false
	}
	ratio = math.Abs((takeProfit - entry) / risk)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, false
	}
	return ratio, true
}

// NetProfit resolves the simplified schema: profit if given, else -loss if
// given, else zero. Supplying both is rejected.
func NetProfit(profit, loss *float64) (float64, error) {
	switch {
	case profit != nil && loss != nil:
		return 0, apperrors.NewValidationError("profit", *profit, "profit and loss are mutually exclusive")
	case profit != nil:
		if err := checkMagnitude("profit", *profit); err != nil {
			return 0, err
		}
		return *profit, nil
	case loss != nil:
		if err := checkMagnitude("loss", *loss); err != nil {
			return 0, err
		}
		return -*loss, nil
	}
	return 0, nil
}

func checkMagnitude(field string, v float64) error {
	if !isFinite(v) {
		return apperrors.NewValidationError(field, v, "must be a finite number")
	}
	if v < 0 {
		return apperrors.NewValidationError(field, v, "must not be negative")
	}
	return nil
}

// NormalizePair upper-cases a pair symbol and formats it as BASE/QUOTE.
// EURUSD, eur/usd, EUR_USD and "EUR USD" all become EUR/USD.
func NormalizePair(s string) (string, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	compact := strings.NewReplacer("/", "", "_", "", "-", "", " ", "").Replace(raw)
	if compact == "" {
		return "", apperrors.NewValidationError("pair", s, "required")
	}
	if !pairPattern.MatchString(compact) {
		return "", apperrors.NewValidationError("pair", s, "must look like EUR/USD")
	}
	return compact[:3] + "/" + compact[3:], nil
}

// ParseTags splits a comma separated list, trimming whitespace and dropping
// empty entries.
func ParseTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
