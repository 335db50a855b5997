package portfolio

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/price"
)

type mockPrices struct {
	mu     sync.Mutex
	stocks map[string]decimal.Decimal
	crypto map[string]decimal.Decimal
	gold   decimal.Decimal
	calls  []string
}

func (m *mockPrices) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockPrices) CryptoPrice(_ context.Context, symbol string) price.Result {
	m.record("crypto:" + symbol)
	if p, ok := m.crypto[symbol]; ok {
		return price.Found(domain.Quote{Amount: p, Currency: "INR"})
	}
	return price.Absent(price.StatusNotFound, nil)
}

func (m *mockPrices) StockPrice(_ context.Context, symbol string) price.Result {
	m.record("stock:" + symbol)
	if p, ok := m.stocks[symbol]; ok {
		return price.Found(domain.Quote{Amount: p, Currency: "INR"})
	}
	return price.Absent(price.StatusRateLimited, nil)
}

func (m *mockPrices) GoldPrice(_ context.Context) domain.Quote {
	m.record("gold")
	return domain.Quote{Amount: m.gold, Currency: "INR"}
}

func (m *mockPrices) Currency() string { return "INR" }

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestRefresher(prices PriceService, concurrency int) *Refresher {
	r := NewRefresher(prices, concurrency)
	r.now = func() time.Time { return fixedNow }
	return r
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func holding(id string, kind domain.Kind, symbol, qty, cost string) domain.Holding {
	return domain.Holding{
		ID:         id,
		Kind:       kind,
		Name:       id,
		Symbol:     symbol,
		Quantity:   d(qty),
		UnitCost:   d(cost),
		AcquiredOn: domain.NewDate(time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)),
	}
}

func assertValuation(t *testing.T, h domain.Holding, unitPrice, value, gain, pct string) {
	t.Helper()
	if h.Valuation == nil {
		t.Fatalf("%s: valuation is nil", h.ID)
	}
	v := h.Valuation
	checks := []struct {
		field string
		got   decimal.Decimal
		want  string
	}{
		{"currentUnitPrice", v.CurrentUnitPrice, unitPrice},
		{"currentTotalValue", v.CurrentTotalValue, value},
		{"unallocatedGain", v.UnallocatedGain, gain},
		{"unallocatedGainPercent", v.UnallocatedGainPercent, pct},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s: %s = %s, want %s", h.ID, c.field, c.got, c.want)
		}
	}
}

func TestRefreshPricesEquity(t *testing.T) {
	prices := &mockPrices{stocks: map[string]decimal.Decimal{"RELIANCE": d("2600")}}
	r := newTestRefresher(prices, 1)

	out := r.RefreshPrices(context.Background(), []domain.Holding{
		holding("rel", domain.KindEquity, "RELIANCE", "10", "2500"),
	})

	assertValuation(t, out[0], "2600", "26000", "1000", "4")
	if out[0].Valuation.Currency != "INR" {
		t.Errorf("currency = %q, want INR", out[0].Valuation.Currency)
	}
	if !out[0].Valuation.PricedAt.Equal(fixedNow) {
		t.Errorf("pricedAt = %v, want %v", out[0].Valuation.PricedAt, fixedNow)
	}
}

func TestRefreshPricesCashPinned(t *testing.T) {
	prices := &mockPrices{}
	r := newTestRefresher(prices, 1)

	out := r.RefreshPrices(context.Background(), []domain.Holding{
		holding("savings", domain.KindCash, "", "3", "50000"),
	})

	assertValuation(t, out[0], "50000", "50000", "0", "0")
	if len(prices.calls) != 0 {
		t.Errorf("calls = %v, want no price lookups for cash", prices.calls)
	}
}

func TestRefreshPricesGold(t *testing.T) {
	prices := &mockPrices{gold: d("6000")}
	r := newTestRefresher(prices, 1)

	out := r.RefreshPrices(context.Background(), []domain.Holding{
		holding("coins", domain.KindMetal, "", "20", "5000"),
	})

	assertValuation(t, out[0], "6000", "120000", "20000", "20")
}

func TestRefreshPricesAbsentKeepsValuation(t *testing.T) {
	prior := domain.Valuation{
		CurrentUnitPrice:  d("100"),
		CurrentTotalValue: d("200"),
		UnallocatedGain:   d("20"),
		Currency:          "INR",
		PricedAt:          fixedNow.Add(-time.Hour),
	}
	priced := holding("doge", domain.KindCrypto, "DOGE", "2", "90")
	priced.Valuation = &prior
	unpriced := holding("tcs", domain.KindEquity, "TCS", "1", "3000")

	r := newTestRefresher(&mockPrices{}, 1)
	out := r.RefreshPrices(context.Background(), []domain.Holding{priced, unpriced})

	if out[0].Valuation == nil || !out[0].Valuation.CurrentTotalValue.Equal(d("200")) {
		t.Errorf("prior valuation not kept: %+v", out[0].Valuation)
	}
	if !out[0].Valuation.PricedAt.Equal(prior.PricedAt) {
		t.Errorf("pricedAt changed to %v", out[0].Valuation.PricedAt)
	}
	if out[1].Valuation != nil {
		t.Errorf("unpriced holding gained a valuation: %+v", out[1].Valuation)
	}
}

func TestRefreshPricesIdempotent(t *testing.T) {
	prices := &mockPrices{
		stocks: map[string]decimal.Decimal{"INFY": d("1500.5")},
		crypto: map[string]decimal.Decimal{"BTC": d("5000000")},
		gold:   d("6100"),
	}
	r := newTestRefresher(prices, 2)
	in := []domain.Holding{
		holding("infy", domain.KindEquity, "INFY", "4", "1400"),
		holding("btc", domain.KindCrypto, "BTC", "0.05", "4000000"),
		holding("gold", domain.KindMetal, "", "10", "5200"),
		holding("cash", domain.KindCash, "", "1", "25000"),
	}

	once := r.RefreshPrices(context.Background(), in)
	twice := r.RefreshPrices(context.Background(), once)

	for i := range once {
		a, b := once[i].Valuation, twice[i].Valuation
		if !a.CurrentTotalValue.Equal(b.CurrentTotalValue) || !a.UnallocatedGainPercent.Equal(b.UnallocatedGainPercent) {
			t.Errorf("%s: second refresh changed valuation %+v -> %+v", once[i].ID, a, b)
		}
	}
}

func TestRefreshPricesKeepsOrder(t *testing.T) {
	prices := &mockPrices{stocks: map[string]decimal.Decimal{}}
	var in []domain.Holding
	for i := range 25 {
		sym := fmt.Sprintf("S%02d", i)
		prices.stocks[sym] = decimal.NewFromInt(int64(i + 1))
		in = append(in, holding(sym, domain.KindEquity, sym, "1", "1"))
	}

	out := newTestRefresher(prices, 4).RefreshPrices(context.Background(), in)

	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i, h := range out {
		if h.ID != in[i].ID {
			t.Errorf("out[%d] = %s, want %s", i, h.ID, in[i].ID)
		}
		if !h.Valuation.CurrentUnitPrice.Equal(decimal.NewFromInt(int64(i + 1))) {
			t.Errorf("out[%d] price = %s, want %d", i, h.Valuation.CurrentUnitPrice, i+1)
		}
	}
	if len(prices.calls) != len(in) {
		t.Errorf("calls = %d, want %d", len(prices.calls), len(in))
	}
}

func TestRefreshPricesDoesNotModifyInput(t *testing.T) {
	prices := &mockPrices{crypto: map[string]decimal.Decimal{"ETH": d("250000")}}
	in := []domain.Holding{holding("eth", domain.KindCrypto, "ETH", "1", "200000")}

	newTestRefresher(prices, 1).RefreshPrices(context.Background(), in)

	if in[0].Valuation != nil {
		t.Errorf("input holding was modified: %+v", in[0].Valuation)
	}
}
