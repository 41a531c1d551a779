package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CycleRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trendwatch_cycle_runs_total",
		Help: "Total monitoring cycles started",
	})
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trendwatch_cycle_duration_seconds",
		Help:    "Monitoring cycle duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trendwatch_fetch_errors_total",
		Help: "Account fetch failures by reason",
	}, []string{"reason"})
	SnapshotsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trendwatch_snapshots_recorded_total",
		Help: "Total post snapshots recorded",
	})
	AlertsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trendwatch_alerts_created_total",
		Help: "Total alerts created",
	})
	AlertsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trendwatch_alerts_delivered_total",
		Help: "Total alerts delivered to the notification sink",
	})
	DeliveryErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trendwatch_delivery_errors_total",
		Help: "Total alert delivery failures",
	})
)

func init() {
	prometheus.MustRegister(
		CycleRuns,
		CycleDuration,
		FetchErrors,
		SnapshotsRecorded,
		AlertsCreated,
		AlertsDelivered,
		DeliveryErrors,
	)
}

const serverReadHeaderTimeout = 5 * time.Second

// StartServer exposes /metrics on addr. An empty addr disables the
// endpoint.
func StartServer(ctx context.Context, addr string, log *slog.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Metrics server failed",
				"error", err,
				"addr", addr)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverReadHeaderTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(ctx, "Failed to shut down metrics server",
				"error", err,
				"addr", addr)
		}
	}()

	log.InfoContext(ctx, "Metrics server is started",
		"addr", addr)
}
