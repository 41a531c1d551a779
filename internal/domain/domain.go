package domain

import "time"

// Account is an external identity being polled for new posts. It is shared
// across users and owned by the engine's persistence layer.
type Account struct {
	ID              int64
	Handle          string
	AvgViewsPerHour float64
	LastChecked     time.Time
	Stale           bool
}

// Post is one piece of content published by an Account, identified by an
// immutable external code. Posts are never mutated after creation; only
// snapshots accumulate.
type Post struct {
	ID          int64
	AccountID   int64
	Code        string
	URL         string
	PublishedAt time.Time
}

// Snapshot is one timestamped (views, likes) measurement of a Post.
// Snapshots are append-only.
type Snapshot struct {
	PostID    int64
	Views     int64
	Likes     int64
	CheckedAt time.Time
}

// FetchedPost is a single item returned by an account fetcher.
type FetchedPost struct {
	Code        string
	URL         string
	PublishedAt time.Time
	Views       int64
	Likes       int64
}

// PostRate is one post's measured views-per-hour over a lookback window.
// Only posts with at least two snapshots produce a rate.
type PostRate struct {
	PostID       int64
	ViewsPerHour float64
}

// PostMetrics carries the measurements behind a trending decision.
// GrowthRate is the ratio of the post's views-per-hour to the account
// baseline, so 2.5 means 2.5x the baseline.
type PostMetrics struct {
	Views           int64
	ViewsPerHour    float64
	AvgViewsPerHour float64
	GrowthRate      float64
}

// Alert records that a (user, post) pair was flagged as trending. At most
// one alert per pair ever exists; only the Sent flag is ever updated.
type Alert struct {
	ID              int64
	UserID          int64
	PostID          int64
	Views           int64
	ViewsPerHour    float64
	AvgViewsPerHour float64
	GrowthRate      float64
	DetectedAt      time.Time
	Sent            bool
}

// PendingAlert is an undelivered alert joined with the display fields the
// notification sink needs.
type PendingAlert struct {
	Alert
	Handle      string
	PostURL     string
	PublishedAt time.Time
	Folder      string
	ChatID      int64
}

// AlertView is the CRUD-facing projection of a user's alert history.
type AlertView struct {
	Handle          string
	PostURL         string
	Views           int64
	ViewsPerHour    float64
	AvgViewsPerHour float64
	GrowthRate      float64
	DetectedAt      time.Time
}

// CompetitorStat is the CRUD-facing projection of one tracked account.
type CompetitorStat struct {
	Handle          string
	Folder          string
	AvgViewsPerHour float64
	LastChecked     time.Time
}
