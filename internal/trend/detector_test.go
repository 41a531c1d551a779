package trend

import (
	"testing"
	"time"

	"trendwatch/internal/domain"
)

func defaultConfig() Config {
	return Config{
		GrowthThresholdPercent: 150,
		SpeedMultiplier:        2.0,
		MinSnapshots:           2,
		MaxPostAge:             48 * time.Hour,
	}
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := domain.Post{ID: 1, PublishedAt: now.Add(-2 * time.Hour)}

	tests := []struct {
		name         string
		latestViews  int64
		wantTrending bool
	}{
		{"exactly at threshold is trending", 250, true},
		{"just below threshold is not trending", 249, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			snapshots := []domain.Snapshot{
				{Views: 0, CheckedAt: now.Add(-time.Hour)},
				{Views: test.latestViews, CheckedAt: now},
			}

			decision := Evaluate(defaultConfig(), post, snapshots, 100, true, now)

			if decision.Trending != test.wantTrending {
				t.Fatalf("trending = %v, want %v (viewsPerHour = %v, growthRate = %v)",
					decision.Trending,
					test.wantTrending,
					decision.Metrics.ViewsPerHour,
					decision.Metrics.GrowthRate)
			}
		})
	}
}

func TestEvaluateScenarioGrowthRate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := domain.Post{ID: 1, PublishedAt: now.Add(-time.Hour)}

	snapshots := []domain.Snapshot{
		{Views: 0, CheckedAt: now.Add(-time.Hour)},
		{Views: 3000, CheckedAt: now},
	}

	decision := Evaluate(defaultConfig(), post, snapshots, 1000, true, now)

	if !decision.Trending {
		t.Fatalf("expected post running at 3x baseline to trend")
	}

	if decision.Metrics.ViewsPerHour != 3000 {
		t.Fatalf("viewsPerHour = %v, want 3000", decision.Metrics.ViewsPerHour)
	}

	if decision.Metrics.GrowthRate != 3.0 {
		t.Fatalf("growthRate = %v, want 3.0", decision.Metrics.GrowthRate)
	}
}

func TestEvaluateUndefinedBaselineIsNotATrend(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := domain.Post{ID: 1, PublishedAt: now.Add(-time.Hour)}

	snapshots := []domain.Snapshot{
		{Views: 0, CheckedAt: now.Add(-time.Hour)},
		{Views: 100000, CheckedAt: now},
	}

	for _, baseline := range []float64{0, -1} {
		if d := Evaluate(defaultConfig(), post, snapshots, baseline, true, now); d.Trending {
			t.Fatalf("expected no trend with baseline %v", baseline)
		}
	}

	if d := Evaluate(defaultConfig(), post, snapshots, 0, false, now); d.Trending {
		t.Fatalf("expected no trend with undefined baseline")
	}
}

func TestEvaluateRequiresMinSnapshots(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := domain.Post{ID: 1, PublishedAt: now.Add(-time.Hour)}

	snapshots := []domain.Snapshot{
		{Views: 100000, CheckedAt: now},
	}

	if d := Evaluate(defaultConfig(), post, snapshots, 10, true, now); d.Trending {
		t.Fatalf("expected no trend with a single snapshot")
	}
}

func TestEvaluateSkipsOldPosts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := domain.Post{ID: 1, PublishedAt: now.Add(-49 * time.Hour)}

	snapshots := []domain.Snapshot{
		{Views: 0, CheckedAt: now.Add(-time.Hour)},
		{Views: 100000, CheckedAt: now},
	}

	if d := Evaluate(defaultConfig(), post, snapshots, 10, true, now); d.Trending {
		t.Fatalf("expected no trend for a post older than the age window")
	}
}

func TestEvaluateUsesOldestSnapshotInsideWindow(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxPostAge = 10 * time.Hour

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := domain.Post{ID: 1, PublishedAt: now.Add(-9 * time.Hour)}

	// The stale first measurement sits outside the age window; the rate
	// must come from the in-window pair (500 -> 1300 over 4h = 200/h),
	// not from first-vs-last (1300 over 20h = 65/h).
	snapshots := []domain.Snapshot{
		{Views: 0, CheckedAt: now.Add(-20 * time.Hour)},
		{Views: 500, CheckedAt: now.Add(-4 * time.Hour)},
		{Views: 1300, CheckedAt: now},
	}

	decision := Evaluate(cfg, post, snapshots, 50, true, now)

	if decision.Metrics.ViewsPerHour != 200 {
		t.Fatalf("viewsPerHour = %v, want 200", decision.Metrics.ViewsPerHour)
	}

	if !decision.Trending {
		t.Fatalf("expected in-window rate of 4x baseline to trend")
	}
}

func TestEvaluateNeedsTwoSnapshotsInsideWindow(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxPostAge = 10 * time.Hour

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	post := domain.Post{ID: 1, PublishedAt: now.Add(-9 * time.Hour)}

	snapshots := []domain.Snapshot{
		{Views: 0, CheckedAt: now.Add(-20 * time.Hour)},
		{Views: 100000, CheckedAt: now},
	}

	if d := Evaluate(cfg, post, snapshots, 10, true, now); d.Trending {
		t.Fatalf("expected no trend with a single in-window snapshot")
	}
}
