package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGlobalQuoteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("function") != "GLOBAL_QUOTE" || q.Get("symbol") != "NSE:TCS" || q.Get("apikey") != "k" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"Global Quote": {"01. symbol": "NSE:TCS", "05. price": "3895.5500", "08. currency": "inr"}}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClient(server.URL, time.Second, 0)
	quote, err := client.GlobalQuote(context.Background(), "NSE:TCS", "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Price.String() != "3895.55" {
		t.Errorf("Price = %s, want 3895.55", quote.Price)
	}
	if quote.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", quote.Currency)
	}
}

func TestGlobalQuoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"quota note", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, ErrQuotaExceeded},
		{"information note", http.StatusOK, `{"Information": "rate limit is 25 requests per day"}`, ErrQuotaExceeded},
		{"error message", http.StatusOK, `{"Error Message": "Invalid API call."}`, ErrNotFound},
		{"empty quote", http.StatusOK, `{"Global Quote": {}}`, ErrNotFound},
		{"zero price", http.StatusOK, `{"Global Quote": {"05. price": "0.0000"}}`, ErrNotFound},
		{"http 429", http.StatusTooManyRequests, ``, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewAlphaVantageClient(server.URL, time.Second, 0)
			_, err := client.GlobalQuote(context.Background(), "IBM", "k")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGlobalQuoteErrorHidesAPIKey(t *testing.T) {
	client := NewAlphaVantageClient("http://127.0.0.1:1", time.Second, 0)
	_, err := client.GlobalQuote(context.Background(), "IBM", "secret-key")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks API key: %v", err)
	}
}

func TestGlobalQuoteLocalBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"Global Quote": {"05. price": "10"}}`))
	}))
	defer server.Close()

	client := NewAlphaVantageClient(server.URL, time.Second, 2)
	for i := range 2 {
		if _, err := client.GlobalQuote(context.Background(), "IBM", "k"); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}

	_, err := client.GlobalQuote(context.Background(), "IBM", "k")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("third call error = %v, want ErrRateLimited", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}
