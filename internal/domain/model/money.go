package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPrice renders minor units as a currency amount, e.g. 4550 USD -> "$45.50".
func FormatPrice(minor int64, currency string) string {
	amount := Amount(minor)
	switch strings.ToUpper(currency) {
	case "", "USD":
		return "$" + amount
	case "EUR":
		return "€" + amount
	default:
		return amount + " " + strings.ToUpper(currency)
	}
}

// Amount renders minor units as a plain decimal, e.g. 4550 -> "45.50".
func Amount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// MaxPrice bounds parsed prices in major units.
const MaxPrice = 1_000_000

// ParsePrice converts amount like "45.50" into minor units.
func ParsePrice(raw string) (int64, bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || amount.IsNegative() || amount.GreaterThan(decimal.New(MaxPrice, 0)) {
		return 0, false
	}
	minor := amount.Shift(2)
	if !minor.IsInteger() {
		return 0, false
	}
	return minor.IntPart(), true
}
