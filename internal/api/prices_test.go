package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/price"
)

type mockPrices struct {
	crypto     map[string]price.Result
	stock      map[string]price.Result
	gold       domain.Quote
	lastSymbol string
	lastCtx    context.Context
}

func (m *mockPrices) CryptoPrice(_ context.Context, symbol string) price.Result {
	m.lastSymbol = symbol
	if r, ok := m.crypto[symbol]; ok {
		return r
	}
	return price.Absent(price.StatusNotFound, nil)
}

func (m *mockPrices) StockPrice(ctx context.Context, symbol string) price.Result {
	m.lastSymbol = symbol
	m.lastCtx = ctx
	if r, ok := m.stock[symbol]; ok {
		return r
	}
	return price.Absent(price.StatusNotFound, nil)
}

func (m *mockPrices) GoldPrice(_ context.Context) domain.Quote {
	return m.gold
}

func inr(v int64) domain.Quote {
	return domain.Quote{Amount: decimal.NewFromInt(v), Currency: "INR"}
}

func TestGetCrypto(t *testing.T) {
	prices := &mockPrices{crypto: map[string]price.Result{"BTC": price.Found(inr(5000000))}}
	handler := NewPriceHandler(prices)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/prices/crypto/btc", nil)
	req.SetPathValue("symbol", "btc")
	w := httptest.NewRecorder()
	handler.GetCrypto(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if prices.lastSymbol != "BTC" {
		t.Errorf("symbol = %q, want BTC", prices.lastSymbol)
	}
	var body quoteResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Symbol != "BTC" || !body.Amount.Equal(decimal.NewFromInt(5000000)) || body.Currency != "INR" {
		t.Errorf("body = %+v", body)
	}
}

func TestGetStockAbsent(t *testing.T) {
	tests := []struct {
		name   string
		result price.Result
		status string
	}{
		{"not found", price.Absent(price.StatusNotFound, nil), "not_found"},
		{"rate limited", price.Absent(price.StatusRateLimited, nil), "rate_limited"},
		{"no key", price.Absent(price.StatusNotConfigured, price.ErrNoAPIKey), "not_configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewPriceHandler(&mockPrices{stock: map[string]price.Result{"TCS": tt.result}})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/prices/stock/TCS", nil)
			req.SetPathValue("symbol", "TCS")
			w := httptest.NewRecorder()
			handler.GetStock(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", w.Code)
			}
			var body map[string]string
			json.NewDecoder(w.Body).Decode(&body)
			if body["status"] != tt.status {
				t.Errorf("status field = %q, want %q", body["status"], tt.status)
			}
		})
	}
}

func TestGetStockPassesAPIKeyOverride(t *testing.T) {
	prices := &mockPrices{stock: map[string]price.Result{"INFY": price.Found(inr(1500))}}
	handler := NewPriceHandler(prices)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/prices/stock/INFY", nil)
	req.SetPathValue("symbol", "INFY")
	req.Header.Set(apiKeyHeader, "user-key")
	w := httptest.NewRecorder()
	handler.GetStock(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if prices.lastCtx == nil || prices.lastCtx == req.Context() {
		t.Error("stock lookup did not receive a context carrying the request key")
	}
}

func TestGetGold(t *testing.T) {
	handler := NewPriceHandler(&mockPrices{gold: inr(5300)})

	w := httptest.NewRecorder()
	handler.GetGold(w, httptest.NewRequest(http.MethodGet, "/api/v1/prices/gold", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body quoteResponse
	json.NewDecoder(w.Body).Decode(&body)
	if !body.Amount.Equal(decimal.NewFromInt(5300)) {
		t.Errorf("gold = %s, want 5300", body.Amount)
	}
}
