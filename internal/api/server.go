package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
// When adminAPIKey is set, bulk replacement and refresh require it as a bearer token.
func NewServer(port string, holdings HoldingService, prices PriceService, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      newMux(holdings, prices, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func newMux(holdings HoldingService, prices PriceService, adminAPIKey string) *http.ServeMux {
	handler := NewHandler(holdings)
	priceHandler := NewPriceHandler(prices)

	guard := func(h http.HandlerFunc) http.Handler {
		if adminAPIKey == "" {
			return h
		}
		return requireAuth(adminAPIKey, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handler.Health)
	mux.HandleFunc("GET /api/v1/holdings", handler.ListHoldings)
	mux.HandleFunc("POST /api/v1/holdings", handler.CreateHolding)
	mux.HandleFunc("PUT /api/v1/holdings/{id}", handler.UpdateHolding)
	mux.HandleFunc("DELETE /api/v1/holdings/{id}", handler.DeleteHolding)
	mux.Handle("POST /api/v1/holdings/bulk", guard(handler.ReplaceHoldings))
	mux.Handle("POST /api/v1/holdings/refresh", guard(handler.RefreshHoldings))
	mux.HandleFunc("GET /api/v1/portfolio/summary", handler.GetSummary)

	mux.HandleFunc("GET /api/v1/prices/crypto/{symbol}", priceHandler.GetCrypto)
	mux.HandleFunc("GET /api/v1/prices/stock/{symbol}", priceHandler.GetStock)
	mux.HandleFunc("GET /api/v1/prices/gold", priceHandler.GetGold)
	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
