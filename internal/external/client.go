package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrRateLimited indicates the upstream answered HTTP 429 or the local call budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded indicates a 200 response carrying a provider quota note.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrNotFound indicates the source has no price for the requested symbol.
	ErrNotFound = errors.New("price not found")
)

// StatusError is returned for non-200 responses other than 429.
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.Source, e.StatusCode, e.Body)
}

const maxErrorBody = 512

// getter performs single-attempt GET requests with a per-request timeout.
// There is no retry: callers own their fallback chains.
type getter struct {
	source     string
	httpClient *http.Client
	timeout    time.Duration
}

func newGetter(source string, timeout time.Duration) getter {
	return getter{
		source:     source,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// getJSON fetches rawURL and decodes the JSON body into dest.
func (g getter) getJSON(ctx context.Context, rawURL string, dest any) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", g.source, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// The URL may carry an API key, so only the source name is reported.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%s request failed: %w", g.source, err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading %s response: %w", g.source, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", g.source, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &StatusError{Source: g.source, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing %s response: %w", g.source, err)
	}
	return nil
}
