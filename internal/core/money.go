// Package core provides the domain model for the savings ledger.
//
// This file contains helpers for parsing monetary amounts from user
// input and formatting them for presentation. All internal arithmetic
// uses decimal.Decimal; rounding to two places happens only at the
// presentation edge.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns a validation error for malformed input, negative values, or
// zero amounts.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-5")    -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Validationf("empty amount")
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Validationf("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, Validationf("amount must be positive")
	}
	return d, nil
}

// ParseNonNegativeAmount is ParseAmount but admits zero, for saved
// amount overrides in goal edits.
func ParseNonNegativeAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, Validationf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Validationf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, Validationf("amount cannot be negative")
	}
	return d, nil
}

// FormatAmount renders an amount with two decimal places for display.
// Half-up rounding, applied only here.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
