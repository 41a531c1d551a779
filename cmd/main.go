package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendwatch/internal/config"
	"trendwatch/internal/database"
	"trendwatch/internal/fetch"
	"trendwatch/internal/metrics"
	"trendwatch/internal/monitor"
	"trendwatch/internal/notify"
	"trendwatch/internal/scheduler"
	"trendwatch/internal/trend"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	if cfg.ApifyToken == "" || cfg.ApifyActorID == "" {
		log.ErrorContext(ctx, "APIFY_TOKEN and APIFY_ACTOR_ID are required",
			"envVars", []string{"APIFY_TOKEN", "APIFY_ACTOR_ID"})

		return
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	fetcher := fetch.NewLimited(
		fetch.NewApifyFetcher(
			cfg.ApifyToken,
			cfg.ApifyActorID,
			cfg.PostsLimit,
			time.Duration(cfg.MaxPostAgeHours)*time.Hour,
			log,
		),
		cfg.FetchRPS,
		cfg.FetchBurst,
	)

	notifier := initNotifier(ctx, cfg, log)

	mon := monitor.New(db, fetcher, notifier, monitor.Config{
		Concurrency:      cfg.FetchConcurrency,
		BaselineLookback: time.Duration(cfg.BaselineLookbackHours) * time.Hour,
		Trend: trend.Config{
			GrowthThresholdPercent: cfg.GrowthThreshold,
			SpeedMultiplier:        cfg.SpeedMultiplier,
			MinSnapshots:           cfg.MinSnapshots,
			MaxPostAge:             time.Duration(cfg.MaxPostAgeForTrendHours) * time.Hour,
		},
	}, log)

	interval := time.Duration(cfg.PollIntervalMinutes) * time.Minute
	cycleTimeout := time.Duration(cfg.CycleTimeoutMinutes) * time.Minute

	sched := scheduler.New(ctx, mon, interval, cycleTimeout, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"intervalMinutes", cfg.PollIntervalMinutes)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"intervalMinutes", cfg.PollIntervalMinutes,
		"cycleTimeoutMinutes", cfg.CycleTimeoutMinutes)

	metrics.StartServer(ctx, cfg.MetricsAddr, log)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())
}

func initNotifier(ctx context.Context, cfg config.Config, log *slog.Logger) notify.Notifier {
	if cfg.TelegramBotToken == "" {
		log.WarnContext(ctx, "TELEGRAM_BOT_TOKEN is missing so alerts will only be logged",
			"envVar", "TELEGRAM_BOT_TOKEN")

		return notify.NewLogNotifier(log)
	}

	n, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create Telegram notifier so alerts will only be logged",
			"error", err,
			"envVar", "TELEGRAM_BOT_TOKEN")

		return notify.NewLogNotifier(log)
	}

	log.InfoContext(ctx, "Telegram notifier is initialized")

	return n
}
