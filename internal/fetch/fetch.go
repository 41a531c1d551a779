package fetch

import (
	"context"
	"errors"

	"trendwatch/internal/domain"
)

// ErrRateLimited means the upstream source throttled us. The caller backs
// off and retries next cycle, never mid-cycle.
var ErrRateLimited = errors.New("upstream rate limited")

// ErrNotFound means the account is no longer resolvable upstream. The
// caller marks it stale but keeps historical data.
var ErrNotFound = errors.New("account not found upstream")

// Fetcher returns a bounded list of an account's recent posts with their
// current metrics. Any error other than ErrRateLimited and ErrNotFound is
// transient: the caller skips the account for the cycle and writes
// nothing.
type Fetcher interface {
	Fetch(ctx context.Context, handle string) ([]domain.FetchedPost, error)
}
