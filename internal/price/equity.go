package price

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/external"
)

// ErrNoAPIKey indicates that no Alpha Vantage key is configured.
var ErrNoAPIKey = errors.New("alpha vantage api key not configured")

// QuoteSource fetches equity quotes.
type QuoteSource interface {
	GlobalQuote(ctx context.Context, symbol, apiKey string) (external.StockQuote, error)
}

type apiKeyCtxKey struct{}

// WithAPIKey overrides the configured Alpha Vantage key for lookups made with ctx.
func WithAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, apiKeyCtxKey{}, strings.TrimSpace(key))
}

func apiKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyCtxKey{}).(string)
	return key
}

// QualifySymbol prefixes symbol with the default exchange unless it already carries
// an exchange qualifier ("BSE:TCS" or "TCS.BSE"). synthesized is true when the prefix was added here.
func QualifySymbol(symbol, exchange string) (qualified string, synthesized bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.ContainsAny(symbol, ":.") || exchange == "" {
		return symbol, false
	}
	return strings.ToUpper(exchange) + ":" + symbol, true
}

// EquityAdapter prices equities in the target currency.
type EquityAdapter struct {
	quotes   QuoteSource
	fx       *Converter
	target   string
	exchange string
	apiKey   string
}

// NewEquityAdapter creates an equity price adapter. exchange is the qualifier added to
// bare symbols; apiKey may be empty if every request supplies one via WithAPIKey.
func NewEquityAdapter(quotes QuoteSource, fx *Converter, target, exchange, apiKey string) *EquityAdapter {
	return &EquityAdapter{
		quotes:   quotes,
		fx:       fx,
		target:   target,
		exchange: exchange,
		apiKey:   apiKey,
	}
}

// Price quotes one share. The qualified symbol is tried first; if it is unknown and the
// qualifier was added here, the bare symbol is tried once. A rate-limit or quota response
// ends the lookup without a second request.
func (a *EquityAdapter) Price(ctx context.Context, symbol string) Result {
	key := apiKeyFrom(ctx)
	if key == "" {
		key = a.apiKey
	}
	if key == "" {
		slog.Warn("alpha vantage api key not configured", "symbol", symbol)
		return Absent(StatusNotConfigured, ErrNoAPIKey)
	}

	bare := strings.ToUpper(strings.TrimSpace(symbol))
	qualified, synthesized := QualifySymbol(bare, a.exchange)

	attempts := []attempt{a.lookup(qualified, key)}
	if synthesized {
		attempts = append(attempts, a.lookup(bare, key))
	}

	r := firstQuote(ctx, unlessRateLimited, attempts...)
	switch r.Status {
	case StatusOK:
	case StatusRateLimited:
		slog.Warn("alpha vantage rate limit reached", "symbol", symbol, "error", r.Err)
	case StatusNotFound:
		slog.Warn("stock price not found", "symbol", symbol, "tried", qualified)
	default:
		slog.Error("error fetching stock price", "symbol", symbol, "status", r.Status, "error", r.Err)
	}
	return r
}

func (a *EquityAdapter) lookup(symbol, key string) attempt {
	return func(ctx context.Context) Result {
		q, err := a.quotes.GlobalQuote(ctx, symbol, key)
		if err != nil {
			return failed(err)
		}
		currency := q.Currency
		if currency == "" {
			currency = a.target
		}
		return Found(domain.Quote{
			Amount:   a.fx.Convert(ctx, q.Price, currency, a.target),
			Currency: a.target,
		})
	}
}
