package trend

import "trendwatch/internal/domain"

// Baseline derives an account's expected views-per-hour from its own
// recent per-post rates, excluding the post currently under evaluation so
// a post is never compared against a baseline it dominates. Rates that are
// not positive carry no signal and are skipped.
//
// The second return value is false when no qualifying post remains; an
// undefined baseline means no post from the account can trend this cycle.
func Baseline(rates []domain.PostRate, excludePostID int64) (float64, bool) {
	var sum float64
	var count int

	for _, r := range rates {
		if r.PostID == excludePostID {
			continue
		}
		if r.ViewsPerHour <= 0 {
			continue
		}

		sum += r.ViewsPerHour
		count++
	}

	if count == 0 {
		return 0, false
	}

	return sum / float64(count), true
}

// Average is the account-level rolling views-per-hour persisted after each
// cycle, the mean over all positive per-post rates.
func Average(rates []domain.PostRate) float64 {
	var sum float64
	var count int

	for _, r := range rates {
		if r.ViewsPerHour <= 0 {
			continue
		}

		sum += r.ViewsPerHour
		count++
	}

	if count == 0 {
		return 0
	}

	return sum / float64(count)
}
