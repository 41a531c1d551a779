package trend

import (
	"time"

	"trendwatch/internal/domain"
)

// epsilonHours guards the rate division when two snapshots share a
// timestamp.
const epsilonHours = 1e-9

type Config struct {
	// GrowthThresholdPercent is the growth over baseline required to
	// trend, as a percentage: 150 means the post must run at 2.5x the
	// account baseline.
	GrowthThresholdPercent float64

	// SpeedMultiplier is the independent second condition: views-per-hour
	// must also exceed baseline * SpeedMultiplier, so near-zero baselines
	// cannot trend on ratio alone.
	SpeedMultiplier float64

	MinSnapshots int
	MaxPostAge   time.Duration
}

// Decision is the detector's verdict for one post.
type Decision struct {
	Trending bool
	Metrics  domain.PostMetrics
}

// Evaluate decides whether a post is trending given its snapshot history
// (oldest first) and the account baseline. It is pure: no clock reads, no
// store access.
//
// The measured rate spans the largest time gap inside the allowed age
// window: the oldest snapshot still within MaxPostAge against the newest
// snapshot overall. First-vs-last would let one stale early snapshot
// flatten the rate for long-lived posts.
func Evaluate(
	cfg Config,
	post domain.Post,
	snapshots []domain.Snapshot,
	baseline float64,
	baselineDefined bool,
	now time.Time,
) Decision {
	if len(snapshots) < cfg.MinSnapshots {
		return Decision{}
	}

	if now.Sub(post.PublishedAt) > cfg.MaxPostAge {
		return Decision{}
	}

	newest := snapshots[len(snapshots)-1]

	oldestIdx := -1
	cutoff := now.Add(-cfg.MaxPostAge)
	for i, s := range snapshots {
		if !s.CheckedAt.Before(cutoff) {
			oldestIdx = i
			break
		}
	}

	if oldestIdx < 0 || oldestIdx == len(snapshots)-1 {
		// Fewer than two snapshots inside the window: no measurable gap.
		return Decision{}
	}

	oldest := snapshots[oldestIdx]

	hours := newest.CheckedAt.Sub(oldest.CheckedAt).Hours()
	viewsPerHour := float64(newest.Views-oldest.Views) / max(hours, epsilonHours)

	metrics := domain.PostMetrics{
		Views:        newest.Views,
		ViewsPerHour: viewsPerHour,
	}

	if !baselineDefined || baseline <= 0 {
		// Undefined growth is not a trend.
		return Decision{Metrics: metrics}
	}

	metrics.AvgViewsPerHour = baseline
	metrics.GrowthRate = viewsPerHour / baseline

	thresholdRatio := 1 + cfg.GrowthThresholdPercent/100

	trending := metrics.GrowthRate >= thresholdRatio &&
		viewsPerHour >= baseline*cfg.SpeedMultiplier

	return Decision{Trending: trending, Metrics: metrics}
}
