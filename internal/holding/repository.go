package holding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/investracker/tracker/internal/domain"
)

// ErrNotFound indicates that the requested holding does not exist for the user.
var ErrNotFound = errors.New("holding not found")

// Repository defines persistent storage for holdings, scoped by user.
// List returns holdings in the order they were saved.
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.Holding, error)
	Get(ctx context.Context, userID, id string) (domain.Holding, error)
	Insert(ctx context.Context, userID string, h domain.Holding) error
	Update(ctx context.Context, userID string, h domain.Holding) error
	Delete(ctx context.Context, userID, id string) error
	ReplaceAll(ctx context.Context, userID string, holdings []domain.Holding) error
	// SaveValuations writes the valuations of fresh onto the stored holdings they
	// still match (see domain.Holding.Reprice). Holdings deleted or changed to
	// another asset in the meantime are skipped; nothing else is touched.
	SaveValuations(ctx context.Context, userID string, fresh []domain.Holding) error
	Users(ctx context.Context) ([]string, error)
}

// columns is the flat row shape shared by the SQL repositories.
// Numbers travel as text so no precision is lost in either dialect.
type columns struct {
	ID         string
	Kind       string
	Name       string
	Symbol     string
	Quantity   string
	UnitCost   string
	AcquiredOn string

	Price    *string
	Value    *string
	Gain     *string
	Percent  *string
	Currency *string
	PricedAt *time.Time
}

func toColumns(h domain.Holding) columns {
	c := columns{
		ID:         h.ID,
		Kind:       string(h.Kind),
		Name:       h.Name,
		Symbol:     h.Symbol,
		Quantity:   h.Quantity.String(),
		UnitCost:   h.UnitCost.String(),
		AcquiredOn: h.AcquiredOn.String(),
	}
	if v := h.Valuation; v != nil {
		c.Price = ptr(v.CurrentUnitPrice.String())
		c.Value = ptr(v.CurrentTotalValue.String())
		c.Gain = ptr(v.UnallocatedGain.String())
		c.Percent = ptr(v.UnallocatedGainPercent.String())
		c.Currency = ptr(v.Currency)
		pricedAt := v.PricedAt.UTC()
		c.PricedAt = &pricedAt
	}
	return c
}

func (c columns) holding() (domain.Holding, error) {
	h := domain.Holding{
		ID:     c.ID,
		Kind:   domain.Kind(c.Kind),
		Name:   c.Name,
		Symbol: c.Symbol,
	}

	var err error
	if h.Quantity, err = decimal.NewFromString(c.Quantity); err != nil {
		return domain.Holding{}, fmt.Errorf("holding %s: parsing quantity: %w", c.ID, err)
	}
	if h.UnitCost, err = decimal.NewFromString(c.UnitCost); err != nil {
		return domain.Holding{}, fmt.Errorf("holding %s: parsing unit cost: %w", c.ID, err)
	}
	if h.AcquiredOn, err = domain.ParseDate(c.AcquiredOn); err != nil {
		return domain.Holding{}, fmt.Errorf("holding %s: parsing acquired date: %w", c.ID, err)
	}

	if c.Price == nil {
		return h, nil
	}
	v := domain.Valuation{
		CurrentUnitPrice:       domain.SafeParse(*c.Price),
		CurrentTotalValue:      domain.SafeParse(deref(c.Value)),
		UnallocatedGain:        domain.SafeParse(deref(c.Gain)),
		UnallocatedGainPercent: domain.SafeParse(deref(c.Percent)),
		Currency:               deref(c.Currency),
	}
	if c.PricedAt != nil {
		v.PricedAt = c.PricedAt.UTC()
	}
	h.Valuation = &v
	return h, nil
}

// pricedOnly drops unpriced holdings; they have nothing to save.
func pricedOnly(fresh []domain.Holding) []domain.Holding {
	return lo.Filter(fresh, func(h domain.Holding, _ int) bool { return h.Valuation != nil })
}

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
