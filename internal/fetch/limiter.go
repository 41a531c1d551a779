package fetch

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"trendwatch/internal/domain"
)

// Limited wraps a Fetcher with a process-wide token bucket so concurrent
// workers cap simultaneous outbound calls to the upstream source. The
// token is acquired before every fetch on every path; token-bucket
// semantics need no release.
type Limited struct {
	inner   Fetcher
	limiter *rate.Limiter
}

func NewLimited(inner Fetcher, rps float64, burst int) *Limited {
	return &Limited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (l *Limited) Fetch(ctx context.Context, handle string) ([]domain.FetchedPost, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for fetch slot: %w", err)
	}

	return l.inner.Fetch(ctx, handle)
}
