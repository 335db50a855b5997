package external

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MetalsClient fetches precious-metal spot prices from metals.live.
type MetalsClient struct {
	baseURL string
	http    getter
}

// NewMetalsClient creates a new spot price client.
func NewMetalsClient(baseURL string, timeout time.Duration) *MetalsClient {
	return &MetalsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newGetter("metals.live", timeout),
	}
}

type spotEntry struct {
	Price decimal.Decimal `json:"price"`
}

// GoldSpot returns the gold spot price in US dollars per troy ounce.
func (c *MetalsClient) GoldSpot(ctx context.Context) (decimal.Decimal, error) {
	// Parse: [{"price": 2331.4}]
	var entries []spotEntry
	if err := c.http.getJSON(ctx, c.baseURL+"/spot/gold", &entries); err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetching gold spot: %w", err)
	}
	if len(entries) == 0 || !entries[0].Price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("gold spot: %w", ErrNotFound)
	}
	return entries[0].Price, nil
}
