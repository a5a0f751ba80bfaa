package journal

import (
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

// TradeForm is trade input as typed by a user: every field is text.
// Empty fields are treated as not supplied.
type TradeForm struct {
	Pair           string
	Direction      string
	EntryPrice     string
	ExitPrice      string
	LotSize        string
	StopLoss       string
	TakeProfit     string
	Profit         string
	Loss           string
	EntryTime      string
	ExitTime       string
	Strategy       string
	EmotionalState string
	Notes          string
	Confidence     string
	Tags           string
}

// timeLayouts are tried in order; zoneless layouts parse in local time.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 compatible timestamp. Timestamps without a
// zone are interpreted in local time.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.NewValidationError("time", s, "unrecognized timestamp format")
}

// ParseNumber parses an optional numeric field. Empty input yields nil;
// anything that is not a finite number is a validation error.
func ParseNumber(field, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperrors.NewValidationError(field, s, "must be a number")
	}
	return &v, nil
}

// Parse converts the form into a TradeInput.
func (f TradeForm) Parse() (TradeInput, error) {
	return f.Merge(TradeInput{})
}

// Merge overlays the supplied form fields onto base. Supplying any price
// field switches the result to the priced schema and clears profit/loss;
// supplying profit or loss switches it to the simplified schema.
func (f TradeForm) Merge(base TradeInput) (TradeInput, error) {
	in := base

	if v := strings.TrimSpace(f.Pair); v != "" {
		in.Pair = v
	}
	if v := strings.TrimSpace(f.Direction); v != "" {
		d, ok := models.ParseDirection(v)
		if !ok {
			return TradeInput{}, apperrors.NewValidationError("direction", v, "must be long or short")
		}
		in.Direction = d
	}

	prices := []struct {
		name string
		raw  string
		dst  **float64
	}{
		{"entryPrice", f.EntryPrice, &in.EntryPrice},
		{"exitPrice", f.ExitPrice, &in.ExitPrice},
		{"lotSize", f.LotSize, &in.LotSize},
		{"stopLoss", f.StopLoss, &in.StopLoss},
		{"takeProfit", f.TakeProfit, &in.TakeProfit},
	}
	pricedUpdate := false
	for _, p := range prices {
		v, err := ParseNumber(p.name, p.raw)
		if err != nil {
			return TradeInput{}, err
		}
		if v != nil {
			*p.dst = v
			pricedUpdate = true
		}
	}

	profit, err := ParseNumber("profit", f.Profit)
	if err != nil {
		return TradeInput{}, err
	}
	loss, err := ParseNumber("loss", f.Loss)
	if err != nil {
		return TradeInput{}, err
	}
	switch {
	case profit != nil || loss != nil:
		if pricedUpdate {
			return TradeInput{}, apperrors.NewValidationError("profit", f.Profit, "price levels and profit/loss cannot be combined")
		}
		in.EntryPrice, in.ExitPrice, in.LotSize, in.StopLoss, in.TakeProfit = nil, nil, nil, nil, nil
		in.Profit, in.Loss = profit, loss
	case pricedUpdate:
		in.Profit, in.Loss = nil, nil
	}

	if v := strings.TrimSpace(f.EntryTime); v != "" {
		t, err := ParseTime(v)
		if err != nil {
			return TradeInput{}, apperrors.NewValidationError("entryTime", v, "unrecognized timestamp format")
		}
		in.EntryTime = t
	}
	if v := strings.TrimSpace(f.ExitTime); v != "" {
		t, err := ParseTime(v)
		if err != nil {
			return TradeInput{}, apperrors.NewValidationError("exitTime", v, "unrecognized timestamp format")
		}
		in.ExitTime = t
	}

	if f.Strategy != "" {
		in.Strategy = strings.TrimSpace(f.Strategy)
	}
	if f.EmotionalState != "" {
		in.EmotionalState = strings.TrimSpace(f.EmotionalState)
	}
	if f.Notes != "" {
		in.Notes = f.Notes
	}
	if v := strings.TrimSpace(f.Confidence); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return TradeInput{}, apperrors.NewValidationError("confidence", v, "must be an integer")
		}
		in.Confidence = n
	}
	if f.Tags != "" {
		in.Tags = ParseTags(f.Tags)
	}

	return in, nil
}
