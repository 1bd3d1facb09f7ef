// Package core holds the finance domain model shared by every layer.
//
// This file contains amount parsing. Upstream storage may serialize
// arbitrary-precision decimals as strings, so both a strict write-boundary
// parser and a lenient read-boundary parser are provided.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for anything that is not a strictly positive
// decimal. Used on every write before persisting.
//
// Examples:
//
//	ParseAmount("1100")    -> 1100, nil
//	ParseAmount("12,34")   -> 12.34, nil
//	ParseAmount("-5")      -> error
//	ParseAmount("")        -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmountLenient is the read-boundary variant: a malformed stored
// amount becomes zero instead of failing the whole report. The boolean
// reports whether the value parsed cleanly so callers can log the row.
func ParseAmountLenient(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
