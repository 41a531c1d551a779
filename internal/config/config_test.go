package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DBPath != "trendwatch.sqlite" {
		t.Fatalf("dbPath = %q", cfg.DBPath)
	}
	if cfg.PollIntervalMinutes != 60 {
		t.Fatalf("pollIntervalMinutes = %d", cfg.PollIntervalMinutes)
	}
	if cfg.GrowthThreshold != 150 {
		t.Fatalf("growthThreshold = %v", cfg.GrowthThreshold)
	}
	if cfg.MinSnapshots != 2 {
		t.Fatalf("minSnapshots = %d", cfg.MinSnapshots)
	}
	if cfg.SpeedMultiplier != 2.0 {
		t.Fatalf("speedMultiplier = %v", cfg.SpeedMultiplier)
	}
	if cfg.PostsLimit != 30 {
		t.Fatalf("postsLimit = %d", cfg.PostsLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL_MINUTES", "5")
	t.Setenv("GROWTH_THRESHOLD", "200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.PollIntervalMinutes != 5 {
		t.Fatalf("pollIntervalMinutes = %d", cfg.PollIntervalMinutes)
	}
	if cfg.GrowthThreshold != 200 {
		t.Fatalf("growthThreshold = %v", cfg.GrowthThreshold)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"single snapshot can not measure growth", "MIN_SNAPSHOTS", "1"},
		{"zero poll interval", "POLL_INTERVAL_MINUTES", "0"},
		{"zero concurrency", "FETCH_CONCURRENCY", "0"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv(test.key, test.value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected an error for %s=%s", test.key, test.value)
			}
		})
	}
}
