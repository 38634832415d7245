package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tasklane/tasklane-api/internal/domain"
)

// CommentFetcher loads the authoritative comment list of a task.
type CommentFetcher interface {
	FetchComments(ctx context.Context, taskID int64) ([]*domain.Comment, error)
}

// HTTPCommentFetcher reads GET {BaseURL}/tasks/{id}/comments.
type HTTPCommentFetcher struct {
	BaseURL string
	Token   string
	Limit   int
	Client  *http.Client
}

// FetchComments implements CommentFetcher.
func (f *HTTPCommentFetcher) FetchComments(ctx context.Context, taskID int64) ([]*domain.Comment, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	endpoint := fmt.Sprintf("%s/tasks/%d/comments?limit=%s", f.BaseURL, taskID, strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}

	httpClient := f.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch comments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch comments: unexpected status %d", resp.StatusCode)
	}

	var comments []*domain.Comment
	if err := json.NewDecoder(resp.Body).Decode(&comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

// Resync returns an OnConnected hook that merges the fetched comment list
// into view. Failures are logged; the live stream continues regardless.
func Resync(fetcher CommentFetcher, taskID int64, view *CommentView, logger *slog.Logger) func(ctx context.Context) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) {
		comments, err := fetcher.FetchComments(ctx, taskID)
		if err != nil {
			logger.Warn("comment resync failed", "task_id", taskID, "error", err)
			return
		}
		added := view.Merge(comments)
		logger.Debug("comments resynced", "task_id", taskID, "fetched", len(comments), "added", added)
	}
}

// withQuery sets key=value on rawURL, leaving rawURL unchanged if it does
// not parse.
func withQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
