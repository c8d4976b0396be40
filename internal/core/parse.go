// Package core provides the intake model: parsing, normalization and
// validation of a finance form before it is sent for analysis.
//
// This file holds the two numeric parsers. They are deliberately separate:
// expense amounts and frequencies degrade to zero when malformed, while the
// scalar figures (income, salary, goal, inflation) report "not a number" so
// validation can reject them.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseLenient parses an expense amount or frequency.
//
// Empty or malformed input yields zero, so the expense contributes nothing to
// the yearly total instead of failing the submission. A number that parses is
// kept as typed, sign included.
//
// Examples:
//
//	ParseLenient("12.5") -> 12.5
//	ParseLenient("")     -> 0
//	ParseLenient("abc")  -> 0
//	ParseLenient("-3")   -> -3
func ParseLenient(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseStrict parses a scalar figure. ok is false when the input is empty or
// is not a number; the sign is preserved so validation can report it.
func ParseStrict(s string) (d decimal.Decimal, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
