package external

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaxGoldID is the CoinGecko id of PAX Gold, a token backed by one troy ounce of gold.
const PaxGoldID = "pax-gold"

// CoinGeckoClient fetches prices from the CoinGecko simple/price endpoint.
type CoinGeckoClient struct {
	baseURL string
	http    getter
}

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(baseURL string, timeout time.Duration) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newGetter("CoinGecko", timeout),
	}
}

// SimplePrice returns the price of coinID in vsCurrency.
// found is false when the response has no positive value for that pair;
// err is reserved for transport, HTTP and decoding failures.
func (c *CoinGeckoClient) SimplePrice(ctx context.Context, coinID, vsCurrency string) (price decimal.Decimal, found bool, err error) {
	vs := strings.ToLower(vsCurrency)

	q := url.Values{}
	q.Set("ids", coinID)
	q.Set("vs_currencies", vs)

	// Parse: {"bitcoin":{"inr":5500000}}
	var raw map[string]map[string]decimal.Decimal
	if err := c.http.getJSON(ctx, c.baseURL+"/simple/price?"+q.Encode(), &raw); err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("fetching %s/%s: %w", coinID, vs, err)
	}

	p, ok := raw[coinID][vs]
	if !ok || !p.IsPositive() {
		return decimal.Decimal{}, false, nil
	}
	return p, true, nil
}
