package parser

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencyPattern matches the optional currency marker in front of an amount.
const currencyPattern = `(?:rs\.?|inr|₹|usd|us\$|\$|eur|€|gbp|£|aed)`

// amountPattern captures the numeric part of an amount, validated later by parseAmount.
const amountPattern = `\d[\d,]*(?:\.\d+)?`

// parseAmount converts an amount token into a positive decimal.
// Digit groups may follow the Indian (1,25,000) or western (125,000) convention and the
// fractional part must be absent or exactly two digits.
func parseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}

	whole, frac, hasFrac := strings.Cut(raw, ".")
	if hasFrac && (len(frac) != 2 || !isDigits(frac)) {
		return decimal.Zero, false
	}
	if !validGrouping(whole) {
		return decimal.Zero, false
	}

	value := strings.ReplaceAll(whole, ",", "")
	if hasFrac {
		value += "." + frac
	}

	amount, err := decimal.NewFromString(value)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}

	return amount, true
}

// validGrouping checks comma placement in the integer part of an amount.
func validGrouping(whole string) bool {
	if whole == "" {
		return false
	}
	if !strings.Contains(whole, ",") {
		return isDigits(whole)
	}

	groups := strings.Split(whole, ",")
	first, last := groups[0], groups[len(groups)-1]
	if len(first) < 1 || len(first) > 3 || !isDigits(first) {
		return false
	}
	if len(last) != 3 || !isDigits(last) {
		return false
	}

	middle := groups[1 : len(groups)-1]
	if len(middle) == 0 {
		return true
	}

	// Indian grouping uses pairs between the leading group and the final thousands group,
	// western grouping uses triples throughout. Mixing the two is rejected.
	width := len(middle[0])
	if width != 2 && width != 3 {
		return false
	}
	if width == 2 && len(first) > 2 {
		return false
	}
	for _, g := range middle {
		if len(g) != width || !isDigits(g) {
			return false
		}
	}

	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
