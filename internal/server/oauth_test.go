package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newTestCallback(t *testing.T) (*CallbackHandler, *int) {
	t.Helper()
	exchanges := 0
	handler := NewCallbackHandler("expected-state", func(code string) (*oauth2.Token, error) {
		exchanges++
		if code == "bad-code" {
			return nil, errors.New("invalid_grant")
		}
		return &oauth2.Token{AccessToken: "token-for-" + code, TokenType: "Bearer"}, nil
	})
	return handler, &exchanges
}

func TestCallbackHandler(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		handler, exchanges := newTestCallback(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=good-code", nil)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Login Complete") {
			t.Errorf("expected success page, got %q", rec.Body.String())
		}
		if *exchanges != 1 {
			t.Errorf("expected 1 exchange, got %d", *exchanges)
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "token-for-good-code" {
			t.Errorf("unexpected token %q", result.Token.AccessToken)
		}

		// channel closes after the single result
		if _, open := <-handler.Result(); open {
			t.Error("expected result channel closed")
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		handler, exchanges := newTestCallback(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=good-code", nil)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if *exchanges != 0 {
			t.Errorf("expected no exchange on bad state, got %d", *exchanges)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("provider denial", func(t *testing.T) {
		handler, _ := newTestCallback(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/callback?state=expected-state&error=access_denied&error_description=user+said+no", nil)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied in error, got %v", result.Error())
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		handler, _ := newTestCallback(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=bad-code", nil)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("second request is rejected", func(t *testing.T) {
		handler, exchanges := newTestCallback(t)

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=good-code", nil))

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=good-code", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for repeat callback, got %d", second.Code)
		}
		if *exchanges != 1 {
			t.Errorf("expected single exchange, got %d", *exchanges)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("routes a registered handler", func(t *testing.T) {
		router := NewBasicRouter()
		handler, _ := newTestCallback(t)
		router.Handler(handler)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=expected-state&code=good-code", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "pong")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("expected pong, got %q", rec.Body.String())
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		router := NewBasicRouter()
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		router.Use(mark("outer"), mark("inner"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		want := []string{"outer", "inner", "handler"}
		if len(order) != len(want) {
			t.Fatalf("expected %v, got %v", want, order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, order)
			}
		}
	})
}
