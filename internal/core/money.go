// Package core holds the mess ledger domain: members, period expenses, the
// bill calculator and the bounded calculation history.
//
// This file contains helpers for parsing and formatting rupee amounts.
package core

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupeePrinter = message.NewPrinter(language.English)

// ParseAmount converts a user-entered amount to a float.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. An empty
// string is zero, matching a blank form field. Negative values are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("")      -> 0, nil
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatRupees renders an amount with two decimals and English digit
// grouping, e.g. "Rs. 1,234.50".
func FormatRupees(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	if v < 0 {
		return "-Rs. " + rupeePrinter.Sprintf("%.2f", -v)
	}
	return "Rs. " + rupeePrinter.Sprintf("%.2f", v)
}

// FormatAmount renders an amount with two decimals and no currency marker.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
