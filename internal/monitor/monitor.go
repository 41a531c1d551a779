package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"trendwatch/internal/database"
	"trendwatch/internal/domain"
	"trendwatch/internal/fetch"
	"trendwatch/internal/metrics"
	"trendwatch/internal/notify"
	"trendwatch/internal/trend"
)

type Config struct {
	Concurrency      int
	BaselineLookback time.Duration
	Trend            trend.Config
}

// Monitor runs one polling cycle: fan out per-account work across a
// bounded pool, write snapshots, recompute baselines, detect trends,
// record alerts per tracking user, then deliver pending alerts.
type Monitor struct {
	db       *database.Database
	fetcher  fetch.Fetcher
	notifier notify.Notifier
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

func New(
	db *database.Database,
	fetcher fetch.Fetcher,
	notifier notify.Notifier,
	cfg Config,
	log *slog.Logger,
) *Monitor {
	return &Monitor{
		db:       db,
		fetcher:  fetcher,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunCycle processes every tracked account once. A failure on one account
// never aborts the others; per-account errors are joined into the return
// value for logging.
func (m *Monitor) RunCycle(ctx context.Context) error {
	accounts, err := m.db.ListTrackedAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list tracked accounts: %w", err)
	}

	if len(accounts) == 0 {
		m.log.InfoContext(ctx, "No tracked accounts, skipping cycle")
		return nil
	}

	var wg sync.WaitGroup

	concurrency := min(m.cfg.Concurrency, len(accounts))
	semCh := make(chan struct{}, concurrency)
	errCh := make(chan error, len(accounts))

	// Flipped by the first RateLimited fetch; remaining accounts wait for
	// the next cycle instead of hammering a throttled upstream.
	var rateLimited atomic.Bool

	for _, account := range accounts {
		if rateLimited.Load() {
			break
		}

		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		semCh <- struct{}{}

		go func(copiedAccount domain.Account) {
			defer wg.Done()

			if processErr := m.processAccount(ctx, copiedAccount, &rateLimited); processErr != nil {
				errCh <- fmt.Errorf("process account %s: %w", copiedAccount.Handle, processErr)
			}

			<-semCh
		}(account)
	}

	wg.Wait()
	close(semCh)
	close(errCh)

	var errs []error
	for cycleErr := range errCh {
		errs = append(errs, cycleErr)
	}

	if sweepErr := m.DeliverPending(ctx); sweepErr != nil {
		errs = append(errs, fmt.Errorf("deliver pending alerts: %w", sweepErr))
	}

	return errors.Join(errs...)
}

func (m *Monitor) processAccount(
	ctx context.Context,
	account domain.Account,
	rateLimited *atomic.Bool,
) error {
	if rateLimited.Load() {
		m.log.InfoContext(ctx, "Skipping account until next cycle, upstream is rate limited",
			"handle", account.Handle)

		return nil
	}

	fetched, err := m.fetcher.Fetch(ctx, account.Handle)
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrRateLimited):
			rateLimited.Store(true)
			metrics.FetchErrors.WithLabelValues("rate_limited").Inc()

			return fmt.Errorf("fetch: %w", err)

		case errors.Is(err, fetch.ErrNotFound):
			metrics.FetchErrors.WithLabelValues("not_found").Inc()

			m.log.WarnContext(ctx, "Account is not resolvable upstream, marking stale",
				"handle", account.Handle)

			if staleErr := m.db.MarkAccountStale(ctx, account.ID); staleErr != nil {
				return fmt.Errorf("mark account stale: %w", staleErr)
			}

			return nil

		default:
			metrics.FetchErrors.WithLabelValues("transient").Inc()

			// Transient upstream failure: skip this account for the
			// cycle, no partial writes happened.
			return fmt.Errorf("fetch: %w", err)
		}
	}

	now := m.now()

	posts, inserted, err := m.db.IngestBatch(ctx, account.ID, fetched, now)
	if err != nil {
		return fmt.Errorf("ingest batch: %w", err)
	}
	metrics.SnapshotsRecorded.Add(float64(inserted))

	rates, err := m.db.AccountPostRates(ctx, account.ID, m.cfg.BaselineLookback, now)
	if err != nil {
		return fmt.Errorf("account post rates: %w", err)
	}

	if err = m.db.UpdateAccountStats(ctx, account.ID, trend.Average(rates), now); err != nil {
		return fmt.Errorf("update account stats: %w", err)
	}

	var errs []error
	for _, post := range posts {
		if evalErr := m.evaluatePost(ctx, account, post, rates, now); evalErr != nil {
			errs = append(errs, fmt.Errorf("evaluate post %s: %w", post.Code, evalErr))
		}
	}

	return errors.Join(errs...)
}

func (m *Monitor) evaluatePost(
	ctx context.Context,
	account domain.Account,
	post domain.Post,
	rates []domain.PostRate,
	now time.Time,
) error {
	history, err := m.db.PostHistory(ctx, post.ID, m.cfg.Trend.MaxPostAge, now)
	if err != nil {
		return fmt.Errorf("post history: %w", err)
	}

	baseline, defined := trend.Baseline(rates, post.ID)

	decision := trend.Evaluate(m.cfg.Trend, post, history, baseline, defined, now)
	if !decision.Trending {
		return nil
	}

	m.log.InfoContext(ctx, "Trending post detected",
		"handle", account.Handle,
		"postCode", post.Code,
		"views", decision.Metrics.Views,
		"viewsPerHour", decision.Metrics.ViewsPerHour,
		"avgViewsPerHour", decision.Metrics.AvgViewsPerHour,
		"growthRate", decision.Metrics.GrowthRate)

	return m.raiseAlerts(ctx, account, post, decision.Metrics, now)
}

func (m *Monitor) raiseAlerts(
	ctx context.Context,
	account domain.Account,
	post domain.Post,
	postMetrics domain.PostMetrics,
	now time.Time,
) error {
	userIDs, err := m.db.ListTrackersOf(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("list trackers: %w", err)
	}

	var errs []error
	for _, userID := range userIDs {
		created, insertErr := m.db.TryInsertAlert(ctx, userID, post.ID, postMetrics, now)
		if insertErr != nil {
			errs = append(errs, fmt.Errorf("insert alert (userID = %d): %w", userID, insertErr))
			continue
		}

		if created {
			metrics.AlertsCreated.Inc()
		}
	}

	return errors.Join(errs...)
}

// DeliverPending hands every undelivered alert to the notification sink.
// The sweep only attempts delivery, never re-decides trending; a failed
// send leaves the alert pending for the next sweep.
func (m *Monitor) DeliverPending(ctx context.Context) error {
	pending, err := m.db.PendingAlerts(ctx)
	if err != nil {
		return fmt.Errorf("load pending alerts: %w", err)
	}

	var errs []error
	for _, alert := range pending {
		if sendErr := m.notifier.Send(ctx, alert); sendErr != nil {
			metrics.DeliveryErrors.Inc()

			m.log.ErrorContext(ctx, "Failed to deliver alert",
				"error", sendErr,
				"alertID", alert.ID,
				"userID", alert.UserID,
				"handle", alert.Handle)

			continue
		}

		if markErr := m.db.MarkAlertSent(ctx, alert.ID); markErr != nil {
			errs = append(errs, fmt.Errorf("mark alert sent (alertID = %d): %w", alert.ID, markErr))
			continue
		}

		metrics.AlertsDelivered.Inc()
	}

	return errors.Join(errs...)
}
