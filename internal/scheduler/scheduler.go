package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"trendwatch/internal/metrics"
	"trendwatch/internal/monitor"
)

// Scheduler drives one monitoring cycle per interval. Cycles never
// overlap: a cycle still running when the next tick fires makes the tick
// a no-op, and every cycle runs under its own deadline.
type Scheduler struct {
	ctx          context.Context
	cron         *cron.Cron
	monitor      *monitor.Monitor
	interval     time.Duration
	cycleTimeout time.Duration
	log          *slog.Logger
}

func New(
	ctx context.Context,
	m *monitor.Monitor,
	interval time.Duration,
	cycleTimeout time.Duration,
	log *slog.Logger,
) *Scheduler {
	cronLog := &cronLogger{ctx: ctx, log: log}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)

	return &Scheduler{
		ctx:          ctx,
		cron:         c,
		monitor:      m,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		log:          log,
	}
}

func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)

	if _, err := s.cron.AddFunc(spec, s.runCycle); err != nil {
		return fmt.Errorf("add cron func: %w", err)
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cycleTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	start := time.Now()
	metrics.CycleRuns.Inc()

	s.log.InfoContext(ctx, "Monitoring cycle is started")

	err := s.monitor.RunCycle(ctx)

	metrics.CycleDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.log.ErrorContext(ctx, "Monitoring cycle finished with errors",
			"error", err,
			"durationSeconds", time.Since(start).Seconds())

		return
	}

	s.log.InfoContext(ctx, "Monitoring cycle is finished",
		"durationSeconds", time.Since(start).Seconds())
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	ctx context.Context
	log *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.InfoContext(l.ctx, msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := append([]any{"error", err}, keysAndValues...)
	l.log.ErrorContext(l.ctx, msg, fields...)
}
