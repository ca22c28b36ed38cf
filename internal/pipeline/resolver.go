package pipeline

import (
	"context"
	"errors"
	"net/url"

	"google.golang.org/api/googleapi"

	"sp2yt/internal/services"
	"sp2yt/internal/shared"
)

// Status classifies the outcome of resolving one track.
type Status int

const (
	// StatusFound means the search returned a video and Link is set.
	StatusFound Status = iota
	// StatusNotFound means the search succeeded but matched nothing.
	StatusNotFound
	// StatusError means the search itself failed; Reason and Err are set.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not found"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MatchResult is the outcome for a single track.
type MatchResult struct {
	Track  services.Track
	Link   string
	Status Status
	// Reason is a short machine-friendly label for StatusError results:
	// "transport", "quota", "auth", "canceled", or "upstream".
	Reason string
	Err    error
}

// Searcher finds the top video for a query. A nil video with a nil error
// means the query matched nothing.
type Searcher interface {
	Search(ctx context.Context, query string) (*services.Video, error)
}

// BuildQuery forms the search query for a track: title followed by artist,
// whitespace-normalized.
func BuildQuery(t services.Track) string {
	return shared.CollapseWhitespace(t.Title + " " + t.Artist)
}

// YouTubeResolver resolves tracks against a Searcher and shapes the link
// according to the configured link style.
type YouTubeResolver struct {
	searcher  Searcher
	linkStyle string
}

// NewYouTubeResolver creates a resolver. An empty linkStyle defaults to
// watch URLs.
func NewYouTubeResolver(searcher Searcher, linkStyle string) *YouTubeResolver {
	if linkStyle == "" {
		linkStyle = shared.LinkStyleWatchURL
	}
	return &YouTubeResolver{searcher: searcher, linkStyle: linkStyle}
}

// Resolve finds the link for one track. It always returns a usable
// MatchResult; search failures become StatusError results rather than
// errors, so one bad track cannot sink a whole run.
func (r *YouTubeResolver) Resolve(ctx context.Context, track services.Track) MatchResult {
	video, err := r.searcher.Search(ctx, BuildQuery(track))
	if err != nil {
		return MatchResult{
			Track:  track,
			Status: StatusError,
			Reason: classifySearchError(err),
			Err:    err,
		}
	}

	if video == nil {
		return MatchResult{Track: track, Status: StatusNotFound}
	}

	link := services.WatchURL(video.ID)
	if r.linkStyle == shared.LinkStyleAPILink && video.Link != "" {
		link = video.Link
	}

	return MatchResult{Track: track, Link: link, Status: StatusFound}
}

// classifySearchError buckets a search failure into a short reason label.
func classifySearchError(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401:
			return "auth"
		case 403:
			return "quota"
		}
		return "upstream"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "transport"
	}

	return "upstream"
}
