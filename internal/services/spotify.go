package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"sp2yt/internal/auth"
	"sp2yt/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// Spotify playlist IDs are base62 strings of exactly this length.
const playlistIDLength = 22

// tracksPageLimit is the maximum page size the playlist tracks endpoint allows.
const tracksPageLimit = 100

// Track is one playlist entry reduced to what the matcher needs.
type Track struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	SourceIndex int    `json:"source_index"`
}

// Playlist is playlist metadata without its tracks.
type Playlist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Total  int    `json:"total"`
	Public bool   `json:"public"`
}

// PlaylistExport is a fully read playlist: metadata plus every track in
// playlist order.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// User is the authenticated Spotify account profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// SpotifyService talks to the Spotify Web API.
type SpotifyService struct {
	provider auth.Provider
	client   *http.Client
	baseURL  string
	logger   *log.Logger
}

// NewSpotifyService creates a Spotify client using the given credential
// provider. An empty baseURL selects the production API.
func NewSpotifyService(provider auth.Provider, baseURL string, logger *log.Logger) *SpotifyService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyService{
		provider: provider,
		client:   &http.Client{},
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// ExtractPlaylistID normalizes a playlist reference into a bare playlist ID.
//
// Accepted forms:
//   - open.spotify.com URLs: https://open.spotify.com/playlist/<id>[?si=...]
//   - Spotify URIs: spotify:playlist:<id>
//   - bare 22 character IDs
func ExtractPlaylistID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty playlist reference", shared.ErrInvalidPlaylistReference)
	}

	var id string
	switch {
	case strings.Contains(ref, "/playlist/"):
		_, rest, _ := strings.Cut(ref, "/playlist/")
		id, _, _ = strings.Cut(rest, "?")
		id = strings.TrimSuffix(id, "/")
	case strings.HasPrefix(ref, "spotify:playlist:"):
		id = strings.TrimPrefix(ref, "spotify:playlist:")
	default:
		// A bare reference has no identifying segment, so only a string
		// that already looks like a playlist ID is accepted.
		if len(ref) != playlistIDLength {
			return "", fmt.Errorf("%w: %q", shared.ErrInvalidPlaylistReference, ref)
		}
		id = ref
	}

	if !isBase62(id) {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidPlaylistReference, ref)
	}

	return id, nil
}

func isBase62(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// spotifyPlaylist mirrors the playlist object fields we read.
type spotifyPlaylist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Public bool `json:"public"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// spotifyTracksPage mirrors one page of the playlist tracks endpoint.
type spotifyTracksPage struct {
	Items []struct {
		Track *struct {
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"track"`
	} `json:"items"`
	Next *string `json:"next"`
}

// ReadPlaylist fetches playlist metadata and every page of its tracks.
//
// Entries without a track object or without any artist (removed episodes,
// local files with stripped metadata) are skipped; SourceIndex numbers the
// tracks that survive, so downstream ordering is dense.
func (s *SpotifyService) ReadPlaylist(ctx context.Context, playlistID string) (*PlaylistExport, error) {
	var meta spotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, "/playlists/"+playlistID, nil, &meta); err != nil {
		return nil, err
	}

	export := &PlaylistExport{
		Playlist: Playlist{
			ID:     meta.ID,
			Name:   meta.Name,
			Owner:  meta.Owner.DisplayName,
			Total:  meta.Tracks.Total,
			Public: meta.Public,
		},
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=0", playlistID, tracksPageLimit)
	for {
		var page spotifyTracksPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.Name == "" || len(item.Track.Artists) == 0 {
				s.logger.Debug("skipping malformed playlist entry", "playlist", playlistID)
				continue
			}
			export.Tracks = append(export.Tracks, Track{
				Title:       shared.CollapseWhitespace(item.Track.Name),
				Artist:      shared.CollapseWhitespace(item.Track.Artists[0].Name),
				SourceIndex: len(export.Tracks),
			})
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		next, err := s.relativeEndpoint(*page.Next)
		if err != nil {
			return nil, err
		}
		endpoint = next
	}

	s.logger.Debug("playlist read", "playlist", playlistID, "tracks", len(export.Tracks))
	return export, nil
}

// UserPlaylists lists the authenticated user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context) ([]Playlist, error) {
	type page struct {
		Items []spotifyPlaylist `json:"items"`
		Next  *string           `json:"next"`
	}

	var playlists []Playlist
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=0", 50)
	for {
		var p page
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &p); err != nil {
			return nil, err
		}

		for _, item := range p.Items {
			playlists = append(playlists, Playlist{
				ID:     item.ID,
				Name:   item.Name,
				Owner:  item.Owner.DisplayName,
				Total:  item.Tracks.Total,
				Public: item.Public,
			})
		}

		if p.Next == nil || *p.Next == "" {
			break
		}
		next, err := s.relativeEndpoint(*p.Next)
		if err != nil {
			return nil, err
		}
		endpoint = next
	}

	return playlists, nil
}

// UserProfile fetches the authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*User, error) {
	var user User
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// relativeEndpoint rewrites an absolute "next" URL from a paginated response
// into a path-and-query endpoint relative to the service base URL.
func (s *SpotifyService) relativeEndpoint(absolute string) (string, error) {
	u, err := url.Parse(absolute)
	if err != nil {
		return "", fmt.Errorf("%w: bad pagination url: %v", shared.ErrAPIRequest, err)
	}
	endpoint := u.Path
	if i := strings.Index(endpoint, "/v1/"); i >= 0 {
		endpoint = endpoint[i+len("/v1"):]
	}
	if u.RawQuery != "" {
		endpoint += "?" + u.RawQuery
	}
	return endpoint, nil
}

// doRequest performs an authenticated request against the Web API and decodes
// the JSON response into result. Upstream status codes are mapped to shared
// sentinel errors.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	token, err := s.provider.Token(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Debug("spotify request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode)

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: spotify rejected the access token", shared.ErrTokenExpired)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", shared.ErrPlaylistForbidden, endpoint)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: rate limited by spotify", shared.ErrServiceUnavailable)
		default:
			return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(payload)))
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
