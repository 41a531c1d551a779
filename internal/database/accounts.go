package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trendwatch/internal/domain"
)

// EnsureUser registers a user and its notification chat binding. A zero
// chatID leaves the binding empty; such users accumulate undelivered
// alerts until a chat is bound.
func (d *Database) EnsureUser(ctx context.Context, userID int64, chatID int64) error {
	query := `insert into users (id, chat_id)
	values (?, ?)
	on conflict (id) do update
	set chat_id = coalesce(nullif(excluded.chat_id, 0), users.chat_id)`

	var chat any
	if chatID != 0 {
		chat = chatID
	}

	_, err := d.db.ExecContext(ctx, query, userID, chat)

	return err
}

// UpsertAccount creates the account on first track and returns it. The
// handle is shared across users; the row is never deleted while referenced.
func (d *Database) UpsertAccount(ctx context.Context, handle string) (*domain.Account, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, errors.New("account handle is empty")
	}

	query := "insert or ignore into accounts (handle) values (?)"

	if _, err := d.db.ExecContext(ctx, query, handle); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return d.getAccountByHandle(ctx, handle)
}

func (d *Database) getAccountByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	query := `select id, handle, avg_views_per_hour, last_checked, stale
	from accounts
	where handle = ?`

	var a domain.Account
	var lastChecked sql.NullTime

	err := d.db.QueryRowContext(ctx, query, handle).
		Scan(&a.ID, &a.Handle, &a.AvgViewsPerHour, &lastChecked, &a.Stale)
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if lastChecked.Valid {
		a.LastChecked = lastChecked.Time
	}

	return &a, nil
}

// Track records that a user follows an account. Re-tracking a stale
// account makes it eligible for fetching again.
func (d *Database) Track(ctx context.Context, userID int64, accountID int64, folder string) error {
	query := `insert or ignore into trackers (user_id, account_id, folder)
	values (?, ?, ?)`

	if _, err := d.db.ExecContext(ctx, query, userID, accountID, strings.TrimSpace(folder)); err != nil {
		return fmt.Errorf("insert tracker: %w", err)
	}

	query = "update accounts set stale = 0 where id = ?"

	if _, err := d.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("clear stale flag: %w", err)
	}

	return nil
}

// Untrack removes one user's tracking relation only. The account, its
// posts, snapshots and other users' alerts stay untouched.
func (d *Database) Untrack(ctx context.Context, userID int64, accountID int64) error {
	query := "delete from trackers where user_id = ? and account_id = ?"

	_, err := d.db.ExecContext(ctx, query, userID, accountID)

	return err
}

// ListTrackedAccounts returns the distinct accounts with at least one
// active tracker, excluding accounts marked stale by a NotFound fetch.
func (d *Database) ListTrackedAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `select distinct a.id, a.handle, a.avg_views_per_hour, a.last_checked, a.stale
	from accounts as a
	join trackers as t
	on t.account_id = a.id
	where a.stale = 0
	order by a.id`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer d.closeRows(ctx, rows, "ListTrackedAccounts")

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var lastChecked sql.NullTime

		if err = rows.Scan(&a.ID, &a.Handle, &a.AvgViewsPerHour, &lastChecked, &a.Stale); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if lastChecked.Valid {
			a.LastChecked = lastChecked.Time
		}

		accounts = append(accounts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return accounts, nil
}

// ListTrackersOf returns the user IDs currently tracking an account.
func (d *Database) ListTrackersOf(ctx context.Context, accountID int64) ([]int64, error) {
	query := "select user_id from trackers where account_id = ? order by user_id"

	rows, err := d.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer d.closeRows(ctx, rows, "ListTrackersOf")

	var userIDs []int64
	for rows.Next() {
		var userID int64
		if err = rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		userIDs = append(userIDs, userID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return userIDs, nil
}

// UpdateAccountStats persists the recomputed rolling average and the
// last-checked timestamp after an account's batch is processed.
func (d *Database) UpdateAccountStats(
	ctx context.Context,
	accountID int64,
	avgViewsPerHour float64,
	checkedAt time.Time,
) error {
	query := `update accounts
	set avg_views_per_hour = ?, last_checked = ?
	where id = ?`

	_, err := d.db.ExecContext(ctx, query, avgViewsPerHour, checkedAt.UTC(), accountID)

	return err
}

// MarkAccountStale stops fetching an account that is no longer resolvable
// upstream. Historical posts, snapshots and alerts are kept.
func (d *Database) MarkAccountStale(ctx context.Context, accountID int64) error {
	query := "update accounts set stale = 1 where id = ?"

	_, err := d.db.ExecContext(ctx, query, accountID)

	return err
}

// ListCompetitors returns one user's tracked accounts with their rolling
// averages, for the CRUD layer's competitor list.
func (d *Database) ListCompetitors(ctx context.Context, userID int64) ([]domain.CompetitorStat, error) {
	query := `select a.handle, t.folder, a.avg_views_per_hour, a.last_checked
	from accounts as a
	join trackers as t
	on t.account_id = a.id
	where t.user_id = ?
	order by a.handle`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer d.closeRows(ctx, rows, "ListCompetitors")

	var stats []domain.CompetitorStat
	for rows.Next() {
		var s domain.CompetitorStat
		var lastChecked sql.NullTime

		if err = rows.Scan(&s.Handle, &s.Folder, &s.AvgViewsPerHour, &lastChecked); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if lastChecked.Valid {
			s.LastChecked = lastChecked.Time
		}

		stats = append(stats, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return stats, nil
}
