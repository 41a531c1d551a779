package notify

import (
	"context"
	"errors"

	"trendwatch/internal/domain"
)

// ErrDelivery marks a failed handoff to the notification channel. The
// alert stays persisted with sent=false and is retried by the next sweep;
// delivery failure never corrupts engine state.
var ErrDelivery = errors.New("alert delivery failed")

// Notifier is the external collaborator that carries a formatted alert to
// the user.
type Notifier interface {
	Send(ctx context.Context, alert domain.PendingAlert) error
}
