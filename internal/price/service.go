package price

import (
	"context"

	"github.com/investracker/tracker/internal/domain"
)

// Service is the single entry point for market prices, one method per asset class.
type Service struct {
	crypto *CryptoAdapter
	equity *EquityAdapter
	metal  *MetalAdapter
	target string
}

// NewService creates a new price Service. All adapters must quote in target.
func NewService(crypto *CryptoAdapter, equity *EquityAdapter, metal *MetalAdapter, target string) *Service {
	if crypto == nil || equity == nil || metal == nil {
		panic("price.NewService: adapter is nil")
	}
	return &Service{crypto: crypto, equity: equity, metal: metal, target: target}
}

// CryptoPrice quotes one unit of a crypto asset.
func (s *Service) CryptoPrice(ctx context.Context, symbol string) Result {
	return s.crypto.Price(ctx, symbol)
}

// StockPrice quotes one share of an equity.
func (s *Service) StockPrice(ctx context.Context, symbol string) Result {
	return s.equity.Price(ctx, symbol)
}

// GoldPrice quotes one gram of gold. It always returns an amount.
func (s *Service) GoldPrice(ctx context.Context) domain.Quote {
	return s.metal.Price(ctx)
}

// Currency returns the currency every quote is expressed in.
func (s *Service) Currency() string {
	return s.target
}
