package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"sp2yt/internal/shared"
)

// fakeTokenEndpoint serves oauth2 token responses and counts requests.
func fakeTokenEndpoint(t *testing.T, accessToken string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"token_type":    "Bearer",
			"refresh_token": "refresh-new",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestCodeFlow(t *testing.T, tokenURL string) *CodeFlow {
	t.Helper()
	flow, err := NewCodeFlow(shared.SpotifyConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/callback",
	}, openTestStore(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flow.config.Endpoint = oauth2.Endpoint{AuthURL: AuthURL, TokenURL: tokenURL}
	return flow
}

func TestNewCodeFlow(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := NewCodeFlow(shared.SpotifyConfig{ClientID: "only-id"}, nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestCodeFlowAuthURL(t *testing.T) {
	flow := newTestCodeFlow(t, TokenURL)
	url := flow.AuthURL("state-token")

	if !strings.HasPrefix(url, AuthURL) {
		t.Errorf("expected authorize endpoint, got %q", url)
	}
	if !strings.Contains(url, "state=state-token") {
		t.Errorf("expected state parameter, got %q", url)
	}
	if !strings.Contains(url, "playlist-read-private") {
		t.Errorf("expected playlist scope, got %q", url)
	}
}

func TestCodeFlowExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("redeems and persists", func(t *testing.T) {
		server := fakeTokenEndpoint(t, "access-abc", nil)
		flow := newTestCodeFlow(t, server.URL)

		token, err := flow.Exchange(ctx, "code-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "access-abc" {
			t.Errorf("expected access-abc, got %q", token.AccessToken)
		}

		stored, err := flow.store.LoadToken(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stored == nil || stored.AccessToken != "access-abc" {
			t.Errorf("expected token persisted, got %+v", stored)
		}
	})

	t.Run("duplicate code hits endpoint once", func(t *testing.T) {
		var hits atomic.Int64
		server := fakeTokenEndpoint(t, "access-dup", &hits)
		flow := newTestCodeFlow(t, server.URL)

		first, err := flow.Exchange(ctx, "code-2")
		if err != nil {
			t.Fatal(err)
		}
		second, err := flow.Exchange(ctx, "code-2")
		if err != nil {
			t.Fatal(err)
		}

		if first.AccessToken != second.AccessToken {
			t.Errorf("expected identical tokens, got %q and %q", first.AccessToken, second.AccessToken)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 token endpoint hit, got %d", hits.Load())
		}
	})

	t.Run("empty code", func(t *testing.T) {
		flow := newTestCodeFlow(t, TokenURL)
		if _, err := flow.Exchange(ctx, ""); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("endpoint failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid_grant", http.StatusBadRequest)
		}))
		defer server.Close()

		flow := newTestCodeFlow(t, server.URL)
		if _, err := flow.Exchange(ctx, "bad-code"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestCodeFlowToken(t *testing.T) {
	ctx := context.Background()

	t.Run("not authenticated", func(t *testing.T) {
		flow := newTestCodeFlow(t, TokenURL)
		if _, err := flow.Token(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("valid token returned as-is", func(t *testing.T) {
		var hits atomic.Int64
		server := fakeTokenEndpoint(t, "unused", &hits)
		flow := newTestCodeFlow(t, server.URL)

		if err := flow.store.SaveToken(ctx, &oauth2.Token{
			AccessToken: "still-good",
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatal(err)
		}

		token, err := flow.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "still-good" {
			t.Errorf("expected cached token, got %q", token.AccessToken)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no refresh, got %d endpoint hits", hits.Load())
		}
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		server := fakeTokenEndpoint(t, "refreshed-access", nil)
		flow := newTestCodeFlow(t, server.URL)

		if err := flow.store.SaveToken(ctx, &oauth2.Token{
			AccessToken:  "stale",
			TokenType:    "Bearer",
			RefreshToken: "refresh-old",
			Expiry:       time.Now().Add(-time.Minute),
		}); err != nil {
			t.Fatal(err)
		}

		token, err := flow.Token(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "refreshed-access" {
			t.Errorf("expected refreshed token, got %q", token.AccessToken)
		}

		stored, err := flow.store.LoadToken(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stored.AccessToken != "refreshed-access" {
			t.Errorf("expected refreshed token persisted, got %q", stored.AccessToken)
		}
	})

	t.Run("expired without refresh token", func(t *testing.T) {
		flow := newTestCodeFlow(t, TokenURL)

		if err := flow.store.SaveToken(ctx, &oauth2.Token{
			AccessToken: "stale",
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(-time.Minute),
		}); err != nil {
			t.Fatal(err)
		}

		if _, err := flow.Token(ctx); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})
}

func TestCodeFlowInvalidate(t *testing.T) {
	ctx := context.Background()
	server := fakeTokenEndpoint(t, "access-gone", nil)
	flow := newTestCodeFlow(t, server.URL)

	if _, err := flow.Exchange(ctx, "code-3"); err != nil {
		t.Fatal(err)
	}
	if err := flow.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := flow.Token(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated after invalidate, got %v", err)
	}
}

func TestClientFlow(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := NewClientFlow(shared.SpotifyConfig{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("names itself", func(t *testing.T) {
		flow, err := NewClientFlow(shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret"})
		if err != nil {
			t.Fatal(err)
		}
		if flow.Name() != "client credentials" {
			t.Errorf("unexpected name %q", flow.Name())
		}
		if err := flow.Invalidate(context.Background()); err != nil {
			t.Errorf("invalidate should be a no-op, got %v", err)
		}
	})
}
