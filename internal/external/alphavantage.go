package external

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/investracker/tracker/internal/domain"
)

// StockQuote is a parsed Alpha Vantage GLOBAL_QUOTE result.
// Currency is empty when the provider omits "08. currency".
type StockQuote struct {
	Symbol   string
	Price    decimal.Decimal
	Currency string
}

type globalQuoteResponse struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
	ErrorMessage string            `json:"Error Message"`
}

// AlphaVantageClient fetches equity quotes from Alpha Vantage.
type AlphaVantageClient struct {
	baseURL string
	http    getter
	limiter *rate.Limiter // nil means no local call budget
}

// NewAlphaVantageClient creates a new Alpha Vantage client. callsPerMinute > 0 enables a
// local token bucket; calls beyond it fail fast with ErrRateLimited instead of waiting.
func NewAlphaVantageClient(baseURL string, timeout time.Duration, callsPerMinute int) *AlphaVantageClient {
	c := &AlphaVantageClient{
		baseURL: baseURL,
		http:    newGetter("Alpha Vantage", timeout),
	}
	if callsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(callsPerMinute)), callsPerMinute)
	}
	return c
}

// GlobalQuote fetches the latest quote for symbol.
//
// Errors: ErrRateLimited (HTTP 429 or local budget), ErrQuotaExceeded (Note/Information body),
// ErrNotFound (error message, empty quote or non-positive price), *StatusError, or a transport error.
func (c *AlphaVantageClient) GlobalQuote(ctx context.Context, symbol, apiKey string) (StockQuote, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return StockQuote{}, fmt.Errorf("local Alpha Vantage budget spent: %w", ErrRateLimited)
	}

	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", apiKey)

	var resp globalQuoteResponse
	if err := c.http.getJSON(ctx, c.baseURL+"?"+q.Encode(), &resp); err != nil {
		return StockQuote{}, fmt.Errorf("quote for %s: %w", symbol, err)
	}

	if note := firstNonEmpty(resp.Note, resp.Information); note != "" {
		return StockQuote{}, fmt.Errorf("quote for %s: %w: %s", symbol, ErrQuotaExceeded, note)
	}
	if resp.ErrorMessage != "" {
		return StockQuote{}, fmt.Errorf("quote for %s: %w: %s", symbol, ErrNotFound, resp.ErrorMessage)
	}

	raw, ok := resp.GlobalQuote["05. price"]
	if !ok {
		return StockQuote{}, fmt.Errorf("quote for %s: %w: empty global quote", symbol, ErrNotFound)
	}
	price, ok := domain.ParsePositive(raw)
	if !ok {
		return StockQuote{}, fmt.Errorf("quote for %s: %w: unusable price %q", symbol, ErrNotFound, raw)
	}

	return StockQuote{
		Symbol:   symbol,
		Price:    price,
		Currency: strings.ToUpper(strings.TrimSpace(resp.GlobalQuote["08. currency"])),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
