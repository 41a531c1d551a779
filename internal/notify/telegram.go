package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"trendwatch/internal/domain"
)

// TelegramNotifier delivers alerts as HTML messages to the user's bound
// chat.
type TelegramNotifier struct {
	bot *bot.Bot
	log *slog.Logger
}

func NewTelegramNotifier(token string, log *slog.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramNotifier{bot: b, log: log}, nil
}

func (n *TelegramNotifier) Send(ctx context.Context, alert domain.PendingAlert) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    alert.ChatID,
		Text:      FormatAlert(alert),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send message (chatID = %d): %w: %w", alert.ChatID, ErrDelivery, err)
	}

	return nil
}

// FormatAlert renders the alert message. GrowthRate is a ratio against
// the baseline, shown to the user as percent growth over it.
func FormatAlert(alert domain.PendingAlert) string {
	folder := alert.Folder
	if folder == "" {
		folder = "—"
	}

	growthPercent := (alert.GrowthRate - 1) * 100

	var b strings.Builder

	b.WriteString("🚀 <b>Trending post detected!</b>\n\n")
	fmt.Fprintf(&b, "👤 Account: @%s\n", alert.Handle)
	fmt.Fprintf(&b, "🗓 Published: %s UTC\n", alert.PublishedAt.UTC().Format("01-02 15:04"))
	fmt.Fprintf(&b, "📁 Folder: %s\n", folder)
	fmt.Fprintf(&b, "📊 Views: %d\n", alert.Views)
	fmt.Fprintf(&b, "⚡ Speed: %.0f views/hour\n", alert.ViewsPerHour)
	fmt.Fprintf(&b, "📈 Growth: +%.0f%% over the usual %.0f views/hour\n\n", growthPercent, alert.AvgViewsPerHour)
	fmt.Fprintf(&b, "<a href=%q>Open post</a>", alert.PostURL)

	return b.String()
}
