package holding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/investracker/tracker/internal/domain"
)

// Refresher revalues holdings at current market prices.
type Refresher interface {
	RefreshPrices(ctx context.Context, holdings []domain.Holding) []domain.Holding
}

// Service implements holding management on top of a Repository.
type Service struct {
	repo      Repository
	refresher Refresher
	newID     func() string
}

// NewService creates a new holding Service. All dependencies are required.
func NewService(repo Repository, refresher Refresher) *Service {
	if repo == nil {
		panic("holding.NewService: repo is nil")
	}
	if refresher == nil {
		panic("holding.NewService: refresher is nil")
	}
	return &Service{repo: repo, refresher: refresher, newID: uuid.NewString}
}

// List returns the user's holdings in saved order.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Holding, error) {
	holdings, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing holdings for %s: %w", userID, err)
	}
	return holdings, nil
}

// Users returns every user that has saved holdings.
func (s *Service) Users(ctx context.Context) ([]string, error) {
	return s.repo.Users(ctx)
}

// Create validates h, assigns it a new ID and stores it unpriced.
func (s *Service) Create(ctx context.Context, userID string, h domain.Holding) (domain.Holding, error) {
	h = normalize(h)
	if err := h.Validate(); err != nil {
		return domain.Holding{}, err
	}
	h.ID = s.newID()
	h.Valuation = nil

	if err := s.repo.Insert(ctx, userID, h); err != nil {
		return domain.Holding{}, fmt.Errorf("creating holding: %w", err)
	}
	slog.Info("holding created", "user", userID, "id", h.ID, "kind", h.Kind)
	return h, nil
}

// Update applies patch to a stored holding. An existing valuation is recomputed
// at its last known price so derived fields stay consistent.
func (s *Service) Update(ctx context.Context, userID, id string, patch domain.HoldingPatch) (domain.Holding, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return domain.Holding{}, err
	}

	updated := normalize(patch.Apply(current))
	if err := updated.Validate(); err != nil {
		return domain.Holding{}, err
	}
	if err := s.repo.Update(ctx, userID, updated); err != nil {
		return domain.Holding{}, err
	}
	return updated, nil
}

// Delete removes a holding.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// ReplaceAll validates every holding and replaces the user's whole set with them.
// Holdings without an ID get one. A supplied valuation keeps only its unit price,
// currency and timestamp; the derived fields are recomputed.
func (s *Service) ReplaceAll(ctx context.Context, userID string, holdings []domain.Holding) ([]domain.Holding, error) {
	prepared := make([]domain.Holding, len(holdings))
	for i, h := range holdings {
		h = normalize(h)
		if err := h.Validate(); err != nil {
			return nil, fmt.Errorf("holding %d: %w", i, err)
		}
		if h.ID == "" {
			h.ID = s.newID()
		}
		h.Revalue()
		prepared[i] = h
	}

	if dups := lo.FindDuplicatesBy(prepared, func(h domain.Holding) string { return h.ID }); len(dups) > 0 {
		return nil, &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("duplicate id %s", dups[0].ID)}
	}

	if err := s.repo.ReplaceAll(ctx, userID, prepared); err != nil {
		return nil, fmt.Errorf("saving holdings for %s: %w", userID, err)
	}
	return prepared, nil
}

// Refresh revalues the user's holdings at current prices and saves the new valuations.
// Holdings whose price is unavailable keep their previous valuation. Only valuations
// are written back, so holdings added, edited or removed while prices were being
// fetched are left as they are now.
func (s *Service) Refresh(ctx context.Context, userID string) ([]domain.Holding, error) {
	holdings, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing holdings for %s: %w", userID, err)
	}

	refreshed := s.refresher.RefreshPrices(ctx, holdings)
	if err := s.repo.SaveValuations(ctx, userID, refreshed); err != nil {
		return nil, fmt.Errorf("saving valuations for %s: %w", userID, err)
	}

	current, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing refreshed holdings for %s: %w", userID, err)
	}
	priced := lo.CountBy(current, func(h domain.Holding) bool { return h.Valuation != nil })
	slog.Info("holdings refreshed", "user", userID, "holdings", len(current), "priced", priced)
	return current, nil
}

func normalize(h domain.Holding) domain.Holding {
	h.Name = strings.TrimSpace(h.Name)
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	return h
}
