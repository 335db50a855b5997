package price

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// RateSource fetches a spot FX rate.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Converter returns FX rates, degrading to a fixed fallback when the rate source fails.
type Converter struct {
	source   RateSource
	fallback decimal.Decimal
}

// NewConverter creates a Converter. fallback must be positive.
func NewConverter(source RateSource, fallback decimal.Decimal) *Converter {
	if source == nil {
		panic("price.NewConverter: source is nil")
	}
	if !fallback.IsPositive() {
		panic("price.NewConverter: fallback rate must be positive")
	}
	return &Converter{source: source, fallback: fallback}
}

// Rate returns how many units of `to` one unit of `from` buys. It never fails:
// on any source error the fallback rate is returned and a warning is logged.
// There is one attempt per call and nothing is cached.
func (c *Converter) Rate(ctx context.Context, from, to string) decimal.Decimal {
	if strings.EqualFold(from, to) {
		return decimal.NewFromInt(1)
	}

	rate, err := c.source.Rate(ctx, from, to)
	if err != nil {
		slog.Warn("exchange rate unavailable, using fallback", "from", from, "to", to, "fallback", c.fallback, "error", err)
		return c.fallback
	}
	if !rate.IsPositive() {
		slog.Warn("exchange rate not positive, using fallback", "from", from, "to", to, "rate", rate, "fallback", c.fallback)
		return c.fallback
	}
	return rate
}

// Convert expresses amount (in `from`) in `to`.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	return amount.Mul(c.Rate(ctx, from, to))
}
