package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/holding"
	"github.com/investracker/tracker/internal/portfolio"
)

const (
	userHeader  = "X-User-ID"
	defaultUser = "default_user"
	maxBodySize = 1 << 20
)

// HoldingService is the holding management the HTTP layer exposes.
type HoldingService interface {
	List(ctx context.Context, userID string) ([]domain.Holding, error)
	Create(ctx context.Context, userID string, h domain.Holding) (domain.Holding, error)
	Update(ctx context.Context, userID, id string, patch domain.HoldingPatch) (domain.Holding, error)
	Delete(ctx context.Context, userID, id string) error
	ReplaceAll(ctx context.Context, userID string, holdings []domain.Holding) ([]domain.Holding, error)
	Refresh(ctx context.Context, userID string) ([]domain.Holding, error)
}

// Handler provides HTTP endpoints for holdings and the portfolio summary.
type Handler struct {
	holdings HoldingService
}

// NewHandler creates a new API handler.
func NewHandler(holdings HoldingService) *Handler {
	return &Handler{holdings: holdings}
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListHoldings handles GET /api/v1/holdings.
func (h *Handler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.holdings.List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, "failed to list holdings", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(holdings))
}

// CreateHolding handles POST /api/v1/holdings.
func (h *Handler) CreateHolding(w http.ResponseWriter, r *http.Request) {
	var in domain.Holding
	if !decodeBody(w, r, &in) {
		return
	}
	created, err := h.holdings.Create(r.Context(), userID(r), in)
	if err != nil {
		writeServiceError(w, "failed to create holding", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateHolding handles PUT /api/v1/holdings/{id}.
func (h *Handler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	var patch domain.HoldingPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	updated, err := h.holdings.Update(r.Context(), userID(r), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, "failed to update holding", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteHolding handles DELETE /api/v1/holdings/{id}.
func (h *Handler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.holdings.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, "failed to delete holding", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceHoldings handles POST /api/v1/holdings/bulk.
func (h *Handler) ReplaceHoldings(w http.ResponseWriter, r *http.Request) {
	var in []domain.Holding
	if !decodeBody(w, r, &in) {
		return
	}
	saved, err := h.holdings.ReplaceAll(r.Context(), userID(r), in)
	if err != nil {
		writeServiceError(w, "failed to save holdings", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(saved))
}

// RefreshHoldings handles POST /api/v1/holdings/refresh.
func (h *Handler) RefreshHoldings(w http.ResponseWriter, r *http.Request) {
	refreshed, err := h.holdings.Refresh(withAPIKey(r), userID(r))
	if err != nil {
		writeServiceError(w, "failed to refresh holdings", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(refreshed))
}

// GetSummary handles GET /api/v1/portfolio/summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.holdings.List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, "failed to list holdings", err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio.Summarize(holdings))
}

func userID(r *http.Request) string {
	if u := r.Header.Get(userHeader); u != "" {
		return u
	}
	return defaultUser
}

func nonNil(holdings []domain.Holding) []domain.Holding {
	if holdings == nil {
		return []domain.Holding{}
	}
	return holdings
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps service errors to status codes. Unexpected errors are
// logged and reported as internal.
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, holding.ErrNotFound):
		writeError(w, http.StatusNotFound, "holding not found")
	default:
		slog.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
