package price

import (
	"context"
	"errors"
	"net/http"

	"github.com/investracker/tracker/internal/domain"
	"github.com/investracker/tracker/internal/external"
)

// Status explains the outcome of a price lookup. Every status other than StatusOK
// means "no price this cycle"; callers currently treat them alike.
type Status int

const (
	StatusOK Status = iota
	StatusNotConfigured
	StatusNotFound
	StatusRateLimited
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotConfigured:
		return "not_configured"
	case StatusNotFound:
		return "not_found"
	case StatusRateLimited:
		return "rate_limited"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Result is either a Quote (Status == StatusOK) or an absent price with its reason.
type Result struct {
	Quote  domain.Quote
	Status Status
	Err    error
}

// OK reports whether the result carries a usable quote.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Found wraps a quote in a successful result.
func Found(q domain.Quote) Result {
	return Result{Quote: q, Status: StatusOK}
}

// Absent builds an unsuccessful result.
func Absent(status Status, err error) Result {
	return Result{Status: status, Err: err}
}

// failed maps a source error to an absent result.
func failed(err error) Result {
	return Absent(classify(err), err)
}

func classify(err error) Status {
	var statusErr *external.StatusError
	switch {
	case errors.Is(err, external.ErrRateLimited), errors.Is(err, external.ErrQuotaExceeded):
		return StatusRateLimited
	case errors.Is(err, external.ErrNotFound):
		return StatusNotFound
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		return StatusNotFound
	default:
		return StatusUnavailable
	}
}

// attempt is one step of a fallback chain.
type attempt func(ctx context.Context) Result

// firstQuote runs attempts in order and returns the first successful result.
// After a failed attempt, proceed decides whether the next one runs;
// when the chain stops, the last failure is returned.
func firstQuote(ctx context.Context, proceed func(Result) bool, attempts ...attempt) Result {
	last := Absent(StatusNotFound, nil)
	for i, try := range attempts {
		if i > 0 && ctx.Err() != nil {
			return Absent(StatusUnavailable, ctx.Err())
		}
		last = try(ctx)
		if last.OK() || !proceed(last) {
			return last
		}
	}
	return last
}

// whenNotFound continues a chain only while sources report the price as missing.
func whenNotFound(r Result) bool {
	return r.Status == StatusNotFound
}

// unlessRateLimited continues a chain on any failure except a rate limit.
func unlessRateLimited(r Result) bool {
	return r.Status != StatusRateLimited
}

// always continues a chain on any failure.
func always(Result) bool {
	return true
}
