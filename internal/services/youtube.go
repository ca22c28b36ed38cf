package services

import (
	"context"
	"fmt"
	"html"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"sp2yt/internal/shared"
)

// Video is the top search hit for a query.
type Video struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

// YouTubeService wraps the YouTube Data API v3 search endpoint.
type YouTubeService struct {
	svc *youtube.Service
}

// NewYouTubeService creates a YouTube client authenticated with an API key.
// Extra options come after the key so tests can point the client at a fake
// endpoint.
func NewYouTubeService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api key is required", shared.ErrMissingCredentials)
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	return &YouTubeService{svc: svc}, nil
}

// Search returns the first video result for the query, or (nil, nil) when
// the query matches nothing.
func (y *YouTubeService) Search(ctx context.Context, query string) (*Video, error) {
	call := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(1).
		Type("video").
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	if len(resp.Items) == 0 {
		return nil, nil
	}

	item := resp.Items[0]
	if item.Id == nil || item.Id.VideoId == "" {
		return nil, nil
	}

	video := &Video{
		ID:   item.Id.VideoId,
		Link: WatchURL(item.Id.VideoId),
	}
	if item.Snippet != nil {
		// The API returns HTML-escaped titles ("&amp;" etc.).
		video.Title = html.UnescapeString(item.Snippet.Title)
	}

	return video, nil
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
