package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the asset class of a holding. The string values are the wire format.
type Kind string

const (
	KindMetal  Kind = "gold"
	KindEquity Kind = "stocks"
	KindCrypto Kind = "crypto"
	KindCash   Kind = "cash"
)

// Kinds lists every supported holding kind in display order.
var Kinds = []Kind{KindMetal, KindEquity, KindCrypto, KindCash}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMetal, KindEquity, KindCrypto, KindCash:
		return true
	}
	return false
}

// NeedsSymbol reports whether holdings of this kind must carry a ticker.
func (k Kind) NeedsSymbol() bool {
	return k == KindEquity || k == KindCrypto
}

// Valuation holds the fields derived from the latest successful price refresh.
// It is always replaced as a whole, never merged field by field.
type Valuation struct {
	CurrentUnitPrice       decimal.Decimal `json:"currentUnitPrice"`
	CurrentTotalValue      decimal.Decimal `json:"currentTotalValue"`
	UnallocatedGain        decimal.Decimal `json:"unallocatedGain"`
	UnallocatedGainPercent decimal.Decimal `json:"unallocatedGainPercent"`
	Currency               string          `json:"currency"`
	PricedAt               time.Time       `json:"pricedAt"`
}

// Holding is a single investment record owned by a user.
type Holding struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unitCost"`
	AcquiredOn Date            `json:"acquiredOn"`
	Valuation  *Valuation      `json:"valuation,omitempty"`
}

// CostBasis returns the amount paid for the holding. For cash, unitCost is the total.
func (h Holding) CostBasis() decimal.Decimal {
	if h.Kind == KindCash {
		return h.UnitCost
	}
	return h.Quantity.Mul(h.UnitCost)
}

// Priced returns a valuation of h at the given unit price.
// Cash ignores unitPrice: its value is always the recorded amount.
func (h Holding) Priced(unitPrice decimal.Decimal, currency string, at time.Time) Valuation {
	if h.Kind == KindCash {
		return Valuation{
			CurrentUnitPrice:       h.UnitCost,
			CurrentTotalValue:      h.UnitCost,
			UnallocatedGain:        decimal.Zero,
			UnallocatedGainPercent: decimal.Zero,
			Currency:               currency,
			PricedAt:               at,
		}
	}

	total := h.Quantity.Mul(unitPrice)
	cost := h.CostBasis()
	gain := total.Sub(cost)
	return Valuation{
		CurrentUnitPrice:       unitPrice,
		CurrentTotalValue:      total,
		UnallocatedGain:        gain,
		UnallocatedGainPercent: Percent(gain, cost),
		Currency:               currency,
		PricedAt:               at,
	}
}

// Revalue recomputes an existing valuation after quantity or cost changed,
// keeping the last known unit price. It is a no-op for unpriced holdings.
func (h *Holding) Revalue() {
	if h.Valuation == nil {
		return
	}
	v := h.Priced(h.Valuation.CurrentUnitPrice, h.Valuation.Currency, h.Valuation.PricedAt)
	h.Valuation = &v
}

// Reprice takes the unit price from fresh, a newer copy of the same holding, and
// recomputes the valuation against h's current quantity and cost. It reports false
// and leaves h unchanged when fresh is unpriced or no longer describes the same asset.
func (h Holding) Reprice(fresh Holding) (Holding, bool) {
	if fresh.Valuation == nil || fresh.ID != h.ID || fresh.Kind != h.Kind || !sameSymbol(fresh.Symbol, h.Symbol) {
		return h, false
	}
	v := h.Priced(fresh.Valuation.CurrentUnitPrice, fresh.Valuation.Currency, fresh.Valuation.PricedAt)
	h.Valuation = &v
	return h, true
}

func sameSymbol(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Validate checks the user-supplied fields of a holding.
func (h Holding) Validate() error {
	if !h.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", h.Kind)}
	}
	if strings.TrimSpace(h.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if h.Kind.NeedsSymbol() && strings.TrimSpace(h.Symbol) == "" {
		return &ValidationError{Field: "symbol", Reason: fmt.Sprintf("required for %s", h.Kind)}
	}
	if !h.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if h.UnitCost.IsNegative() {
		return &ValidationError{Field: "unitCost", Reason: "must not be negative"}
	}
	if h.AcquiredOn.IsZero() {
		return &ValidationError{Field: "acquiredOn", Reason: "required"}
	}
	return nil
}

// HoldingPatch is a partial update. Nil fields are left unchanged.
// Kind, ID and AcquiredOn are immutable and cannot be patched.
type HoldingPatch struct {
	Name     *string          `json:"name,omitempty"`
	Symbol   *string          `json:"symbol,omitempty"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	UnitCost *decimal.Decimal `json:"unitCost,omitempty"`
}

// Apply returns h with the patch applied and its valuation recomputed.
func (p HoldingPatch) Apply(h Holding) Holding {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Symbol != nil {
		if !sameSymbol(h.Symbol, *p.Symbol) {
			// The old price belongs to another asset.
			h.Valuation = nil
		}
		h.Symbol = *p.Symbol
	}
	if p.Quantity != nil {
		h.Quantity = *p.Quantity
	}
	if p.UnitCost != nil {
		h.UnitCost = *p.UnitCost
	}
	h.Revalue()
	return h
}

// ValidationError reports an invalid holding field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
