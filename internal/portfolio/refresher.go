package portfolio

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/price"
)

// PriceService defines the price lookups the refresher needs.
type PriceService interface {
	CryptoPrice(ctx context.Context, symbol string) price.Result
	StockPrice(ctx context.Context, symbol string) price.Result
	GoldPrice(ctx context.Context) domain.Quote
	Currency() string
}

// Refresher revalues holdings at current market prices.
type Refresher struct {
	prices      PriceService
	concurrency int
	now         func() time.Time
}

// NewRefresher creates a Refresher. concurrency bounds in-flight lookups; values below 1 mean sequential.
func NewRefresher(prices PriceService, concurrency int) *Refresher {
	if prices == nil {
		panic("portfolio.NewRefresher: prices is nil")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Refresher{prices: prices, concurrency: concurrency, now: time.Now}
}

// RefreshPrices returns holdings with valuations updated from fresh quotes, in input order.
// A holding whose price is unavailable keeps its previous valuation. The input slice is not modified.
func (r *Refresher) RefreshPrices(ctx context.Context, holdings []domain.Holding) []domain.Holding {
	out := make([]domain.Holding, len(holdings))
	pricedAt := r.now().UTC()

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, h := range holdings {
		g.Go(func() error {
			out[i] = r.refreshOne(ctx, h, pricedAt)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (r *Refresher) refreshOne(ctx context.Context, h domain.Holding, pricedAt time.Time) domain.Holding {
	var (
		quote domain.Quote
		ok    bool
	)

	switch h.Kind {
	case domain.KindCash:
		quote, ok = domain.Quote{Amount: h.UnitCost, Currency: r.prices.Currency()}, true
	case domain.KindMetal:
		quote, ok = r.prices.GoldPrice(ctx), true
	case domain.KindCrypto:
		res := r.prices.CryptoPrice(ctx, h.Symbol)
		quote, ok = res.Quote, res.OK()
	case domain.KindEquity:
		res := r.prices.StockPrice(ctx, h.Symbol)
		quote, ok = res.Quote, res.OK()
	default:
		slog.Warn("skipping holding of unknown kind", "id", h.ID, "kind", h.Kind)
	}

	if !ok {
		return h
	}
	v := h.Priced(quote.Amount, quote.Currency, pricedAt)
	h.Valuation = &v
	return h
}
