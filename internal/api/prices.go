package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/price"
)

const apiKeyHeader = "X-Alpha-Vantage-Key"

// PriceService is the set of price lookups served over HTTP.
type PriceService interface {
	CryptoPrice(ctx context.Context, symbol string) price.Result
	StockPrice(ctx context.Context, symbol string) price.Result
	GoldPrice(ctx context.Context) domain.Quote
}

// PriceHandler serves on-demand price lookups.
type PriceHandler struct {
	prices PriceService
}

// NewPriceHandler creates a new price handler.
func NewPriceHandler(prices PriceService) *PriceHandler {
	return &PriceHandler{prices: prices}
}

type quoteResponse struct {
	Symbol string `json:"symbol,omitempty"`
	domain.Quote
}

// GetCrypto handles GET /api/v1/prices/crypto/{symbol}.
func (h *PriceHandler) GetCrypto(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	writeResult(w, symbol, h.prices.CryptoPrice(r.Context(), symbol))
}

// GetStock handles GET /api/v1/prices/stock/{symbol}.
func (h *PriceHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	writeResult(w, symbol, h.prices.StockPrice(withAPIKey(r), symbol))
}

// GetGold handles GET /api/v1/prices/gold. Gold always has a price.
func (h *PriceHandler) GetGold(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, quoteResponse{Quote: h.prices.GoldPrice(r.Context())})
}

// writeResult reports any absent price as 404 with its reason.
func writeResult(w http.ResponseWriter, symbol string, res price.Result) {
	if !res.OK() {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":  "price unavailable for " + symbol,
			"status": res.Status.String(),
		})
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Symbol: symbol, Quote: res.Quote})
}

// withAPIKey carries a per-request equity API key into the lookup context.
func withAPIKey(r *http.Request) context.Context {
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return price.WithAPIKey(r.Context(), key)
	}
	return r.Context()
}
