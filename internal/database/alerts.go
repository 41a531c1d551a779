package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trendwatch/internal/domain"
)

// TryInsertAlert attempts to record a new alert for a (user, post) pair.
// It reports false without error when the pair was already alerted; the
// unique constraint makes the check-and-insert atomic under concurrent
// cycles.
func (d *Database) TryInsertAlert(
	ctx context.Context,
	userID int64,
	postID int64,
	metrics domain.PostMetrics,
	detectedAt time.Time,
) (bool, error) {
	query := `insert or ignore into alerts
	(user_id, post_id, views, views_per_hour, avg_views_per_hour, growth_rate, detected_at)
	values (?, ?, ?, ?, ?, ?, ?)`

	result, err := d.db.ExecContext(ctx, query,
		userID,
		postID,
		metrics.Views,
		metrics.ViewsPerHour,
		metrics.AvgViewsPerHour,
		metrics.GrowthRate,
		detectedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

// PendingAlerts returns undelivered alerts for users with a chat binding,
// joined with the display fields the notification sink needs.
func (d *Database) PendingAlerts(ctx context.Context) ([]domain.PendingAlert, error) {
	query := `select a.id, a.user_id, a.post_id, a.views, a.views_per_hour,
	a.avg_views_per_hour, a.growth_rate, a.detected_at,
	ac.handle, p.url, p.published_at, coalesce(t.folder, ''), u.chat_id
	from alerts as a
	join posts as p
	on p.id = a.post_id
	join accounts as ac
	on ac.id = p.account_id
	join users as u
	on u.id = a.user_id
	left join trackers as t
	on t.account_id = ac.id and t.user_id = a.user_id
	where a.sent = 0 and u.chat_id is not null
	order by a.detected_at`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer d.closeRows(ctx, rows, "PendingAlerts")

	var pending []domain.PendingAlert
	for rows.Next() {
		var pa domain.PendingAlert
		var chatID sql.NullInt64

		if err = rows.Scan(
			&pa.ID, &pa.UserID, &pa.PostID, &pa.Views, &pa.ViewsPerHour,
			&pa.AvgViewsPerHour, &pa.GrowthRate, &pa.DetectedAt,
			&pa.Handle, &pa.PostURL, &pa.PublishedAt, &pa.Folder, &chatID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		pa.ChatID = chatID.Int64

		pending = append(pending, pa)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return pending, nil
}

// MarkAlertSent flips the delivery flag; the only mutation an alert row
// ever sees.
func (d *Database) MarkAlertSent(ctx context.Context, alertID int64) error {
	query := "update alerts set sent = 1 where id = ?"

	_, err := d.db.ExecContext(ctx, query, alertID)

	return err
}

// RecentAlerts returns one user's alert history, newest first, for the
// CRUD layer.
func (d *Database) RecentAlerts(ctx context.Context, userID int64, limit int) ([]domain.AlertView, error) {
	query := `select ac.handle, p.url, a.views, a.views_per_hour,
	a.avg_views_per_hour, a.growth_rate, a.detected_at
	from alerts as a
	join posts as p
	on p.id = a.post_id
	join accounts as ac
	on ac.id = p.account_id
	where a.user_id = ?
	order by a.detected_at desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer d.closeRows(ctx, rows, "RecentAlerts")

	var views []domain.AlertView
	for rows.Next() {
		var v domain.AlertView
		if err = rows.Scan(
			&v.Handle, &v.PostURL, &v.Views, &v.ViewsPerHour,
			&v.AvgViewsPerHour, &v.GrowthRate, &v.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		views = append(views, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return views, nil
}
