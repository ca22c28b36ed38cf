package server

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// CallbackResult is the outcome of one OAuth login attempt.
type CallbackResult struct {
	Token *oauth2.Token
	err   error
}

func (r *CallbackResult) Error() error { return r.err }

// CallbackHandler serves the OAuth redirect endpoint during a login.
// Implements [Handler] for registration with a [Router].
type CallbackHandler struct {
	exchange func(code string) (*oauth2.Token, error)
	state    string

	resultChan chan CallbackResult
	once       sync.Once

	mu  sync.Mutex
	hit bool
}

// NewCallbackHandler creates a callback handler. The state token must match
// the one embedded in the authorization URL; exchange redeems the received
// code.
func NewCallbackHandler(state string, exchange func(code string) (*oauth2.Token, error)) *CallbackHandler {
	return &CallbackHandler{
		exchange:   exchange,
		state:      state,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates the state parameter, redeems the authorization code,
// and delivers the result through the result channel. Only the first request
// is processed; repeats get a 400.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.send(CallbackResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.send(CallbackResult{err: fmt.Errorf("authorization failed: %s - %s",
			query.Get("error"), query.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.exchange(code)
	if err != nil {
		h.send(CallbackResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(CallbackResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Login Complete</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Login Complete</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// send delivers the result exactly once and closes the channel.
func (h *CallbackHandler) send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel carrying the login outcome. It receives exactly
// one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}
