package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"trendwatch/internal/domain"
)

const (
	apifyBaseURL     = "https://api.apify.com/v2"
	apifyHTTPTimeout = 30 * time.Second
	apifyPollEvery   = 5 * time.Second
)

// ApifyFetcher resolves an account's recent posts through an Apify actor:
// start a run, poll until it finishes, then download the dataset items.
type ApifyFetcher struct {
	client  *http.Client
	baseURL string
	token   string
	actorID string
	limit   int
	maxAge  time.Duration
	log     *slog.Logger
}

func NewApifyFetcher(
	token string,
	actorID string,
	limit int,
	maxAge time.Duration,
	log *slog.Logger,
) *ApifyFetcher {
	return &ApifyFetcher{
		client:  &http.Client{Timeout: apifyHTTPTimeout},
		baseURL: apifyBaseURL,
		token:   token,
		actorID: actorID,
		limit:   limit,
		maxAge:  maxAge,
		log:     log,
	}
}

type apifyRunPayload struct {
	Username           string `json:"username"`
	ResultsType        string `json:"resultsType"`
	ResultsLimit       int    `json:"resultsLimit"`
	OnlyPostsNewerThan string `json:"onlyPostsNewerThan"`
}

type apifyRunResponse struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

type apifyItem struct {
	ShortCode      string `json:"shortCode"`
	URL            string `json:"url"`
	Timestamp      int64  `json:"timestamp"`
	VideoViewCount int64  `json:"videoViewCount"`
	LikesCount     int64  `json:"likesCount"`
}

func (f *ApifyFetcher) Fetch(ctx context.Context, handle string) ([]domain.FetchedPost, error) {
	runID, err := f.startRun(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	datasetID, err := f.waitForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("wait for run: %w", err)
	}

	items, err := f.datasetItems(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("get dataset items: %w", err)
	}

	return f.mapItems(ctx, handle, items), nil
}

func (f *ApifyFetcher) startRun(ctx context.Context, handle string) (string, error) {
	newerThan := time.Now().UTC().Add(-f.maxAge).Format(time.RFC3339)

	body, err := json.Marshal(apifyRunPayload{
		Username:           handle,
		ResultsType:        "posts",
		ResultsLimit:       f.limit,
		OnlyPostsNewerThan: newerThan,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/acts/%s/runs?token=%s", f.baseURL, f.actorID, f.token)

	var run apifyRunResponse
	if err = f.doJSON(ctx, http.MethodPost, url, body, &run); err != nil {
		return "", err
	}

	return run.Data.ID, nil
}

func (f *ApifyFetcher) waitForRun(ctx context.Context, runID string) (string, error) {
	url := fmt.Sprintf("%s/actor-runs/%s?token=%s", f.baseURL, runID, f.token)

	ticker := time.NewTicker(apifyPollEvery)
	defer ticker.Stop()

	for {
		var run apifyRunResponse
		if err := f.doJSON(ctx, http.MethodGet, url, nil, &run); err != nil {
			return "", err
		}

		switch run.Data.Status {
		case "SUCCEEDED":
			return run.Data.DefaultDatasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", fmt.Errorf("actor run %s finished with status %s", runID, run.Data.Status)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *ApifyFetcher) datasetItems(ctx context.Context, datasetID string) ([]apifyItem, error) {
	url := fmt.Sprintf("%s/datasets/%s/items?token=%s", f.baseURL, datasetID, f.token)

	var items []apifyItem
	if err := f.doJSON(ctx, http.MethodGet, url, nil, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (f *ApifyFetcher) mapItems(ctx context.Context, handle string, items []apifyItem) []domain.FetchedPost {
	cutoff := time.Now().UTC().Add(-f.maxAge)

	posts := make([]domain.FetchedPost, 0, len(items))
	for _, item := range items {
		if item.ShortCode == "" {
			f.log.WarnContext(ctx, "Skipping dataset item without short code",
				"handle", handle,
				"url", item.URL)

			continue
		}

		publishedAt := time.Unix(item.Timestamp, 0).UTC()
		if publishedAt.Before(cutoff) {
			continue
		}

		views := item.VideoViewCount
		if views == 0 {
			views = item.LikesCount
		}

		posts = append(posts, domain.FetchedPost{
			Code:        item.ShortCode,
			URL:         item.URL,
			PublishedAt: publishedAt,
			Views:       views,
			Likes:       item.LikesCount,
		})

		if len(posts) == f.limit {
			break
		}
	}

	return posts
}

func (f *ApifyFetcher) doJSON(
	ctx context.Context,
	method string,
	url string,
	body []byte,
	out any,
) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"url", url)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", url, ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
