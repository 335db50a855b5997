package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TroyOunceGrams is the number of grams in one troy ounce.
var TroyOunceGrams = decimal.RequireFromString("31.1035")

var hundred = decimal.NewFromInt(100)

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParsePositive parses a price string and reports whether it is a usable positive amount.
func ParsePositive(value string) (decimal.Decimal, bool) {
	d := SafeParse(value)
	return d, d.IsPositive()
}

// Percent returns part/whole*100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// PerGram converts a price per troy ounce into a price per gram.
func PerGram(perOunce decimal.Decimal) decimal.Decimal {
	return perOunce.Div(TroyOunceGrams)
}
