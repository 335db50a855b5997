package price

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/investracker/tracker/internal/domain"
)

// coinIDs maps common tickers to CoinGecko ids.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"ADA":   "cardano",
	"SOL":   "solana",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
}

// CoinID resolves a ticker to a CoinGecko id. Unknown tickers are lowercased and used verbatim.
func CoinID(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if id, ok := coinIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// CoinSource fetches a coin price in a given currency.
type CoinSource interface {
	SimplePrice(ctx context.Context, coinID, vsCurrency string) (decimal.Decimal, bool, error)
}

// CryptoAdapter prices crypto holdings in the target currency.
type CryptoAdapter struct {
	coins  CoinSource
	fx     *Converter
	target string
}

// NewCryptoAdapter creates a crypto price adapter.
func NewCryptoAdapter(coins CoinSource, fx *Converter, target string) *CryptoAdapter {
	return &CryptoAdapter{coins: coins, fx: fx, target: target}
}

// Price quotes one unit of the coin. The direct target-currency quote is tried first;
// only when that field is missing is the USD quote fetched and converted.
func (a *CryptoAdapter) Price(ctx context.Context, symbol string) Result {
	id := CoinID(symbol)

	attempts := []attempt{func(ctx context.Context) Result { return a.quote(ctx, id, a.target) }}
	if !strings.EqualFold(a.target, domain.USD) {
		attempts = append(attempts, func(ctx context.Context) Result { return a.quote(ctx, id, domain.USD) })
	}

	r := firstQuote(ctx, whenNotFound, attempts...)
	switch r.Status {
	case StatusOK:
	case StatusNotFound:
		slog.Warn("crypto price not found", "symbol", symbol, "coin", id)
	default:
		slog.Error("error fetching crypto price", "symbol", symbol, "coin", id, "status", r.Status, "error", r.Err)
	}
	return r
}

func (a *CryptoAdapter) quote(ctx context.Context, coinID, vs string) Result {
	p, found, err := a.coins.SimplePrice(ctx, coinID, vs)
	if err != nil {
		return failed(err)
	}
	if !found {
		return Absent(StatusNotFound, fmt.Errorf("no %s price for %s", vs, coinID))
	}
	return Found(domain.Quote{
		Amount:   a.fx.Convert(ctx, p, vs, a.target),
		Currency: a.target,
	})
}
