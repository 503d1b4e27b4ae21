package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// MaxPageSize is the largest page commentThreads.list accepts.
const MaxPageSize = 100

// Comment orderings understood by the Data API.
const (
	OrderTime      = "time"
	OrderRelevance = "relevance"
)

// CommentFetcher pulls top-level comments through the YouTube Data API v3.
type CommentFetcher struct {
	service  *ytapi.Service
	pageSize int64
	limiter  *rate.Limiter

	// Order is "time" (API default) or "relevance" for top comments.
	Order string
}

// NewCommentFetcher builds the Data API client. pagesPerSecond <= 0 disables pacing.
func NewCommentFetcher(ctx context.Context, apiKey string, pageSize int64, pagesPerSecond float64, opts ...option.ClientOption) (*CommentFetcher, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	limit := rate.Inf
	if pagesPerSecond > 0 {
		limit = rate.Limit(pagesPerSecond)
	}
	return &CommentFetcher{
		service:  svc,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// Fetch returns up to limit top-level comments in display order; limit <= 0
// fetches every page. Reaching the limit is not an error.
func (f *CommentFetcher) Fetch(ctx context.Context, videoID string, limit int) ([]string, error) {
	var comments []string
	pageToken := ""

	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return comments, err
		}

		call := f.service.CommentThreads.List([]string{"snippet"}).
			VideoId(videoID).
			MaxResults(f.pageSize).
			TextFormat("plainText")
		if f.Order != "" {
			call = call.Order(f.Order)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return comments, fmt.Errorf("commentThreads.list for %s: %w", videoID, err)
		}

		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			text := strings.ReplaceAll(item.Snippet.TopLevelComment.Snippet.TextDisplay, "\u2028", "\n")
			comments = append(comments, text)
			if limit > 0 && len(comments) >= limit {
				return comments, nil
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	slog.Info("fetched comments", slog.String("video", videoID), slog.Int("count", len(comments)))
	return comments, nil
}

// JoinComments renders comments the way they are stored on disk: blank-line separated.
func JoinComments(comments []string) string {
	return strings.Join(comments, "\n\n")
}
