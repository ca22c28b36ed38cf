// package auth supplies Spotify credentials to the rest of the application.
//
// Two flows implement the same [Provider] interface: [CodeFlow] runs the
// browser-based authorization code flow and caches the resulting token in
// sqlite, while [ClientFlow] uses the client credentials grant and only ever
// holds its token in memory. Which one is active is a configuration choice;
// callers just ask for a token.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"sp2yt/internal/shared"
)

// Spotify OAuth endpoints.
const (
	AuthURL  = "https://accounts.spotify.com/authorize"
	TokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes requested during the authorization code flow.
var UserScopes = []string{"playlist-read-private", "playlist-read-collaborative"}

// expirySkew treats tokens expiring within this window as already expired so
// a request never leaves with a token about to lapse mid-flight.
const expirySkew = 30 * time.Second

// Provider yields a usable access token on demand.
type Provider interface {
	// Token returns a currently valid token, refreshing or minting one as
	// needed. Returns shared.ErrNotAuthenticated when no credential exists
	// and the flow cannot create one without user interaction.
	Token(ctx context.Context) (*oauth2.Token, error)

	// Invalidate discards any cached credential.
	Invalidate(ctx context.Context) error

	// Name identifies the flow for logging and status output.
	Name() string
}

// BrowserProvider is a Provider that needs a user-interactive authorization
// step before Token can succeed.
type BrowserProvider interface {
	Provider

	// AuthURL builds the authorization URL the user's browser should visit.
	AuthURL(state string) string

	// Exchange redeems an authorization code for a token and persists it.
	// Redeeming the same code twice returns the first result instead of
	// hitting the token endpoint again.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// CodeFlow implements the authorization code flow with a persistent token
// cache. Tokens survive process restarts; refresh happens lazily in Token.
type CodeFlow struct {
	config *oauth2.Config
	store  *Store

	mu        sync.Mutex
	lastCode  string
	lastToken *oauth2.Token
}

// NewCodeFlow builds a CodeFlow from Spotify app credentials.
func NewCodeFlow(cfg shared.SpotifyConfig, store *Store) (*CodeFlow, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client id and secret are required", shared.ErrMissingCredentials)
	}

	return &CodeFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       UserScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthURL,
				TokenURL: TokenURL,
			},
		},
		store: store,
	}, nil
}

func (f *CodeFlow) Name() string { return "authorization code" }

// AuthURL builds the authorization URL with the given CSRF state.
func (f *CodeFlow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange redeems an authorization code and persists the resulting token.
//
// OAuth callback handlers can fire more than once for a single login
// (browser refresh, duplicate request), so Exchange remembers the last code
// it redeemed and replays the cached token instead of burning the code at
// the token endpoint a second time.
func (f *CodeFlow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", shared.ErrAuthFailed)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if code == f.lastCode && f.lastToken != nil {
		return f.lastToken, nil
	}

	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if err := f.store.SaveToken(ctx, token); err != nil {
		return nil, err
	}

	f.lastCode = code
	f.lastToken = token
	return token, nil
}

// Token returns the cached token, refreshing it through the token endpoint
// when it is expired and a refresh token is available.
func (f *CodeFlow) Token(ctx context.Context) (*oauth2.Token, error) {
	token, err := f.store.LoadToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: run the login command first", shared.ErrNotAuthenticated)
	}

	if token.Expiry.IsZero() || time.Until(token.Expiry) > expirySkew {
		return token, nil
	}

	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired at %s", shared.ErrNoRefreshToken, token.Expiry.Format(time.RFC3339))
	}

	refreshed, err := f.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh failed: %v", shared.ErrTokenExpired, err)
	}

	// Spotify omits the refresh token from refresh responses; carry the
	// old one forward so the next refresh still works.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	if err := f.store.SaveToken(ctx, refreshed); err != nil {
		return nil, err
	}

	return refreshed, nil
}

// Invalidate deletes the persisted token and the in-memory exchange cache.
func (f *CodeFlow) Invalidate(ctx context.Context) error {
	f.mu.Lock()
	f.lastCode = ""
	f.lastToken = nil
	f.mu.Unlock()

	return f.store.DeleteToken(ctx)
}

// ClientFlow implements the client credentials grant. Tokens grant access to
// public data only and are held in memory for the life of the process.
type ClientFlow struct {
	source oauth2.TokenSource
}

// NewClientFlow builds a ClientFlow from Spotify app credentials.
func NewClientFlow(cfg shared.SpotifyConfig) (*ClientFlow, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client id and secret are required", shared.ErrMissingCredentials)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     TokenURL,
	}

	// ReuseTokenSource caches the token until expiry and refreshes under
	// its own lock, so Token is safe for concurrent use.
	return &ClientFlow{source: oauth2.ReuseTokenSource(nil, cc.TokenSource(context.Background()))}, nil
}

func (f *ClientFlow) Name() string { return "client credentials" }

// Token mints or reuses an app token.
func (f *ClientFlow) Token(ctx context.Context) (*oauth2.Token, error) {
	token, err := f.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Invalidate is a no-op: app tokens are stateless and simply expire.
func (f *ClientFlow) Invalidate(ctx context.Context) error { return nil }
