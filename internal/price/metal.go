package price

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/external"
)

// SpotSource fetches the gold spot price in USD per troy ounce.
type SpotSource interface {
	GoldSpot(ctx context.Context) (decimal.Decimal, error)
}

// MetalAdapter prices gold per gram in the target currency.
type MetalAdapter struct {
	spot     SpotSource
	coins    CoinSource
	fx       *Converter
	target   string
	estimate decimal.Decimal
}

// NewMetalAdapter creates a gold price adapter. estimate is the per-gram price, in the
// target currency, used when every source fails; it must be positive.
func NewMetalAdapter(spot SpotSource, coins CoinSource, fx *Converter, target string, estimate decimal.Decimal) *MetalAdapter {
	if !estimate.IsPositive() {
		panic("price.NewMetalAdapter: estimate must be positive")
	}
	return &MetalAdapter{
		spot:     spot,
		coins:    coins,
		fx:       fx,
		target:   target,
		estimate: estimate,
	}
}

// Price returns the gold price per gram. It never fails: the spot feed is tried first,
// then the PAX Gold token as a proxy, then the configured estimate.
func (a *MetalAdapter) Price(ctx context.Context) domain.Quote {
	r := firstQuote(ctx, always, a.fromSpot, a.fromProxy)
	if r.OK() {
		return r.Quote
	}
	slog.Warn("using estimated gold price", "price", a.estimate, "currency", a.target, "error", r.Err)
	return domain.Quote{Amount: a.estimate, Currency: a.target}
}

func (a *MetalAdapter) fromSpot(ctx context.Context) Result {
	perOunce, err := a.spot.GoldSpot(ctx)
	if err != nil {
		slog.Debug("gold spot feed unavailable", "error", err)
		return failed(err)
	}
	return Found(domain.Quote{
		Amount:   a.fx.Convert(ctx, domain.PerGram(perOunce), domain.USD, a.target),
		Currency: a.target,
	})
}

// fromProxy reads PAX Gold, one token per troy ounce. The target-currency quote is
// preferred; the USD quote is used only when that field is missing.
func (a *MetalAdapter) fromProxy(ctx context.Context) Result {
	attempts := []attempt{func(ctx context.Context) Result { return a.proxyQuote(ctx, a.target) }}
	if !strings.EqualFold(a.target, domain.USD) {
		attempts = append(attempts, func(ctx context.Context) Result { return a.proxyQuote(ctx, domain.USD) })
	}
	r := firstQuote(ctx, whenNotFound, attempts...)
	if !r.OK() {
		slog.Debug("gold proxy price unavailable", "status", r.Status, "error", r.Err)
	}
	return r
}

func (a *MetalAdapter) proxyQuote(ctx context.Context, vs string) Result {
	perOunce, found, err := a.coins.SimplePrice(ctx, external.PaxGoldID, vs)
	if err != nil {
		return failed(err)
	}
	if !found {
		return Absent(StatusNotFound, fmt.Errorf("no %s price for %s", vs, external.PaxGoldID))
	}
	return Found(domain.Quote{
		Amount:   a.fx.Convert(ctx, domain.PerGram(perOunce), vs, a.target),
		Currency: a.target,
	})
}
