package notify

import (
	"context"
	"log/slog"

	"trendwatch/internal/domain"
)

// LogNotifier is the fallback sink used when no Telegram token is
// configured: alerts are logged and counted as delivered.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, alert domain.PendingAlert) error {
	n.log.InfoContext(ctx, "Trending post alert",
		"userID", alert.UserID,
		"handle", alert.Handle,
		"postURL", alert.PostURL,
		"views", alert.Views,
		"viewsPerHour", alert.ViewsPerHour,
		"avgViewsPerHour", alert.AvgViewsPerHour,
		"growthRate", alert.GrowthRate)

	return nil
}
