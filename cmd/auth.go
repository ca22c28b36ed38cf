package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"sp2yt/internal/auth"
	"sp2yt/internal/server"
	"sp2yt/internal/shared"
)

// AuthLogin runs the browser OAuth flow and stores the resulting token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.config.Credentials.Spotify.Flow == shared.FlowApp {
		return fmt.Errorf("%w: the app flow needs no login; set credentials.spotify.flow = \"user\" to use one",
			shared.ErrInvalidArgument)
	}

	provider, closeDB, err := r.newProvider()
	if err != nil {
		return err
	}
	defer closeDB()

	flow, ok := provider.(*auth.CodeFlow)
	if !ok {
		return fmt.Errorf("%w: provider %s cannot run a browser login", shared.ErrInvalidArgument, provider.Name())
	}

	token, err := r.doOAuth(ctx, flow)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if !token.Expiry.IsZero() {
		r.writePlain("✓ Token valid until %s\n\n", token.Expiry.Local().Format(time.RFC1123))
	}
	r.writePlain("You can now use: sp2yt convert <playlist>\n")

	return nil
}

// AuthLogout discards stored credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	provider, closeDB, err := r.newProvider()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := provider.Invalidate(ctx); err != nil {
		return err
	}

	return r.writePlain("✓ Credentials discarded\n")
}

// AuthStatus reports whether a usable credential exists.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	provider, closeDB, err := r.newProvider()
	if err != nil {
		return err
	}
	defer closeDB()

	r.writePlain("Flow: %s\n", provider.Name())

	token, err := provider.Token(ctx)
	switch {
	case err == nil:
		r.writePlain("Credentials: ✓ valid\n")
		if !token.Expiry.IsZero() {
			r.writePlain("Expires: %s\n", token.Expiry.Local().Format(time.RFC1123))
		}
		return nil
	case errors.Is(err, shared.ErrNotAuthenticated):
		r.writePlain("Credentials: ✗ not logged in\n")
		return nil
	case errors.Is(err, shared.ErrNoRefreshToken), errors.Is(err, shared.ErrTokenExpired):
		r.writePlain("Credentials: ✗ expired, run: sp2yt auth login\n")
		return nil
	default:
		return err
	}
}

// doOAuth starts a local HTTP server, opens the browser for authorization,
// and waits for the callback to deliver a token.
func (r *Runner) doOAuth(ctx context.Context, flow *auth.CodeFlow) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	handler := server.NewCallbackHandler(state, func(code string) (*oauth2.Token, error) {
		return flow.Exchange(ctx, code)
	})
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	authURL := flow.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.CallbackResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
