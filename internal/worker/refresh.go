package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/investracker/tracker/internal/domain"
)

// HoldingRefresher defines the holding operations the refresh worker drives.
type HoldingRefresher interface {
	Users(ctx context.Context) ([]string, error)
	Refresh(ctx context.Context, userID string) ([]domain.Holding, error)
}

// AfterRefreshHook is called with each user's holdings after a successful refresh.
type AfterRefreshHook interface {
	Export(ctx context.Context, userID string, holdings []domain.Holding) error
}

// RefreshWorker periodically revalues every user's holdings.
type RefreshWorker struct {
	holdings HoldingRefresher
	interval time.Duration
	hook     AfterRefreshHook // optional
}

// NewRefreshWorker creates a new RefreshWorker with an optional post-refresh hook.
func NewRefreshWorker(holdings HoldingRefresher, interval time.Duration, hook AfterRefreshHook) *RefreshWorker {
	return &RefreshWorker{
		holdings: holdings,
		interval: interval,
		hook:     hook,
	}
}

// Run starts the refresh loop. It blocks until the context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("RefreshWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	w.refreshAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RefreshWorker: shutting down")
			return
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

// refreshAll refreshes users one at a time; a failure for one user does not stop the others.
func (w *RefreshWorker) refreshAll(ctx context.Context) {
	users, err := w.holdings.Users(ctx)
	if err != nil {
		slog.Error("RefreshWorker: listing users failed", "error", err)
		return
	}

	var failed int
	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		holdings, err := w.holdings.Refresh(ctx, user)
		if err != nil {
			failed++
			slog.Error("RefreshWorker: refresh failed", "user", user, "error", err)
			continue
		}
		w.runHook(ctx, user, holdings)
	}
	slog.Info("RefreshWorker: refresh completed", "users", len(users), "failed", failed)
}

// runHook calls the post-refresh hook if one is configured.
func (w *RefreshWorker) runHook(ctx context.Context, user string, holdings []domain.Holding) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, user, holdings); err != nil {
		slog.Error("RefreshWorker: export hook failed", "user", user, "error", err)
	}
}
