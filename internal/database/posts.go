package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trendwatch/internal/domain"
)

// IngestBatch writes one fetch result for an account: every post is
// created on first observation (keyed by its external code) and one
// snapshot is appended per post. The whole batch runs in a single
// transaction, so a failed account batch writes nothing. The int result
// is the number of snapshots actually appended.
//
// Ingestion is idempotent with respect to posts: re-fetching a known code
// never creates a second post row. A snapshot older than the post's newest
// recorded one is skipped, keeping per-post timestamps non-decreasing.
func (d *Database) IngestBatch(
	ctx context.Context,
	accountID int64,
	fetched []domain.FetchedPost,
	checkedAt time.Time,
) ([]domain.Post, int, error) {
	checkedAt = checkedAt.UTC()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil &&
			!errors.Is(rollbackErr, sql.ErrTxDone) {
			d.log.ErrorContext(ctx, "Failed to rollback tx",
				"error", rollbackErr,
				"accountID", accountID,
				"operation", "IngestBatch")
		}
	}()

	posts := make([]domain.Post, 0, len(fetched))

	var inserted int

	for _, f := range fetched {
		post, getOrCreateErr := getOrCreatePost(ctx, tx, accountID, f)
		if getOrCreateErr != nil {
			return nil, 0, fmt.Errorf("get or create post: %w", getOrCreateErr)
		}

		appended, appendErr := appendSnapshot(ctx, tx, post.ID, f, checkedAt)
		if appendErr != nil {
			return nil, 0, fmt.Errorf("append snapshot: %w", appendErr)
		}
		if appended {
			inserted++
		}

		posts = append(posts, *post)
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit tx: %w", err)
	}

	return posts, inserted, nil
}

func getOrCreatePost(
	ctx context.Context,
	tx *sql.Tx,
	accountID int64,
	f domain.FetchedPost,
) (*domain.Post, error) {
	query := `insert or ignore into posts (account_id, code, url, published_at)
	values (?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, query, accountID, f.Code, f.URL, f.PublishedAt.UTC()); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	query = "select id, account_id, code, url, published_at from posts where code = ?"

	var p domain.Post
	err := tx.QueryRowContext(ctx, query, f.Code).
		Scan(&p.ID, &p.AccountID, &p.Code, &p.URL, &p.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}

	return &p, nil
}

func appendSnapshot(
	ctx context.Context,
	tx *sql.Tx,
	postID int64,
	f domain.FetchedPost,
	checkedAt time.Time,
) (bool, error) {
	query := `insert into snapshots (post_id, views, likes, checked_at)
	select ?, ?, ?, ?
	where not exists (
		select 1 from snapshots where post_id = ? and checked_at > ?
	)`

	result, err := tx.ExecContext(ctx, query,
		postID, f.Views, f.Likes, checkedAt,
		postID, checkedAt)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

// PostHistory returns a post's snapshots newer than maxAge, oldest first.
func (d *Database) PostHistory(
	ctx context.Context,
	postID int64,
	maxAge time.Duration,
	now time.Time,
) ([]domain.Snapshot, error) {
	cutoff := now.UTC().Add(-maxAge)

	query := `select post_id, views, likes, checked_at
	from snapshots
	where post_id = ? and checked_at >= ?
	order by checked_at`

	rows, err := d.db.QueryContext(ctx, query, postID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer d.closeRows(ctx, rows, "PostHistory")

	var snapshots []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		if err = rows.Scan(&s.PostID, &s.Views, &s.Likes, &s.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return snapshots, nil
}

// AccountPostRates measures views-per-hour per post across an account's
// snapshots observed within lookback. Each rate spans a post's first to
// last snapshot in the window; posts with fewer than two snapshots in the
// window produce no rate.
func (d *Database) AccountPostRates(
	ctx context.Context,
	accountID int64,
	lookback time.Duration,
	now time.Time,
) ([]domain.PostRate, error) {
	cutoff := now.UTC().Add(-lookback)

	query := `select p.id, s.views, s.checked_at
	from snapshots as s
	join posts as p
	on p.id = s.post_id
	where p.account_id = ? and s.checked_at >= ?
	order by p.id, s.checked_at`

	rows, err := d.db.QueryContext(ctx, query, accountID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer d.closeRows(ctx, rows, "AccountPostRates")

	var rates []domain.PostRate

	var currentPostID int64
	var first, last domain.Snapshot
	var count int

	flush := func() {
		if count < 2 {
			return
		}

		hours := last.CheckedAt.Sub(first.CheckedAt).Hours()
		if hours <= 0 {
			return
		}

		rates = append(rates, domain.PostRate{
			PostID:       currentPostID,
			ViewsPerHour: float64(last.Views-first.Views) / hours,
		})
	}

	for rows.Next() {
		var postID int64
		var s domain.Snapshot

		if err = rows.Scan(&postID, &s.Views, &s.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if postID != currentPostID {
			flush()

			currentPostID = postID
			first = s
			count = 0
		}

		last = s
		count++
	}
	flush()

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return rates, nil
}
