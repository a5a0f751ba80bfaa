// Package models provides domain models for the trading journal.
package models

import (
	"strings"
)

// Direction represents the side of a position.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	return d == DirectionLong || d == DirectionShort
}

// ParseDirection accepts long/short as well as buy/sell aliases.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return DirectionLong, true
	case "short", "sell":
		return DirectionShort, true
	}
	return "", false
}

// Outcome classifies a closed trade by the sign of its net result.
type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
)

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomeBreakeven:
		return true
	}
	return false
}

// OutcomeFor derives the outcome from a signed net result.
func OutcomeFor(net float64) Outcome {
	switch {
	case net > 0:
		return OutcomeWin
	case net < 0:
		return OutcomeLoss
	default:
		return OutcomeBreakeven
	}
}

// Sentiment is the color class of a calendar day.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentFlat     Sentiment = "flat"
)
