package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DBPath           string `env:"DB_PATH"            envDefault:"trendwatch.sqlite"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	ApifyToken   string `env:"APIFY_TOKEN"`
	ApifyActorID string `env:"APIFY_ACTOR_ID"`

	PostsLimit          int `env:"POSTS_LIMIT"           envDefault:"30"`
	MaxPostAgeHours     int `env:"MAX_POST_AGE_HOURS"    envDefault:"48"`
	PollIntervalMinutes int `env:"POLL_INTERVAL_MINUTES" envDefault:"60"`
	CycleTimeoutMinutes int `env:"CYCLE_TIMEOUT_MINUTES" envDefault:"15"`

	GrowthThreshold         float64 `env:"GROWTH_THRESHOLD"             envDefault:"150"`
	MaxPostAgeForTrendHours int     `env:"MAX_POST_AGE_FOR_TREND_HOURS" envDefault:"48"`
	MinSnapshots            int     `env:"MIN_SNAPSHOTS"                envDefault:"2"`
	SpeedMultiplier         float64 `env:"SPEED_MULTIPLIER"             envDefault:"2.0"`
	BaselineLookbackHours   int     `env:"BASELINE_LOOKBACK_HOURS"      envDefault:"48"`

	FetchConcurrency int     `env:"FETCH_CONCURRENCY" envDefault:"4"`
	FetchRPS         float64 `env:"FETCH_RPS"         envDefault:"1"`
	FetchBurst       int     `env:"FETCH_BURST"       envDefault:"2"`

	MetricsAddr string `env:"METRICS_ADDR"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.MinSnapshots < 2 {
		return Config{}, fmt.Errorf("MIN_SNAPSHOTS must be >= 2, got %d", cfg.MinSnapshots)
	}
	if cfg.PollIntervalMinutes <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL_MINUTES must be positive, got %d", cfg.PollIntervalMinutes)
	}
	if cfg.FetchConcurrency <= 0 {
		return Config{}, fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", cfg.FetchConcurrency)
	}

	return cfg, nil
}
