package domain

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// USD is the native trading currency of the crypto, gold spot and proxy sources.
const USD = "USD"

// Quote is a unit price in a single currency. Quotes are transient and never stored.
type Quote struct {
	Amount   decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// NormalizeCurrency upper-cases an ISO 4217 code and rejects unknown codes.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if money.GetCurrency(code) == nil {
		return "", fmt.Errorf("unknown currency code %q", code)
	}
	return code, nil
}

// FormatAmount renders an amount with the currency's symbol and minor-unit precision.
func FormatAmount(amount decimal.Decimal, currency string) string {
	f, _ := amount.Float64()
	return money.NewFromFloat(f, currency).Display()
}
