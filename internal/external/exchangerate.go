package external

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateClient fetches spot FX rates from exchangerate-api.com (v4 latest endpoint).
type ExchangeRateClient struct {
	baseURL string
	http    getter
}

// NewExchangeRateClient creates a new FX rate client.
func NewExchangeRateClient(baseURL string, timeout time.Duration) *ExchangeRateClient {
	return &ExchangeRateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newGetter("exchangerate-api", timeout),
	}
}

type latestRatesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Rate returns how many units of `to` one unit of `from` buys.
func (c *ExchangeRateClient) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)

	var resp latestRatesResponse
	if err := c.http.getJSON(ctx, c.baseURL+"/latest/"+from, &resp); err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetching %s rates: %w", from, err)
	}

	r, ok := resp.Rates[to]
	if !ok || !r.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("rate %s->%s: %w", from, to, ErrNotFound)
	}
	return r, nil
}
