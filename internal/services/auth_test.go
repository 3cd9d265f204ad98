package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/scrapectl/internal/shared"
	tu "github.com/desertthunder/scrapectl/internal/testing"
)

func TestAuthService(t *testing.T) {
	ctx := context.Background()

	t.Run("Login", func(t *testing.T) {
		t.Run("Stores Identity", func(t *testing.T) {
			_, session, c := loggedIn(t)

			id, _ := session.Get()
			if id != "alice" {
				t.Errorf("expected identity 'alice', got %q", id)
			}
			s, err := c.auth.Status()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !s.IsAuthenticated() {
				t.Error("expected authenticated session")
			}
		})

		t.Run("Bad Credentials", func(t *testing.T) {
			backend := tu.NewBackend(testUsers)
			defer backend.Close()
			session := tu.NewSessionStub("")
			c := newTestClients(t, backend.URL, session)

			err := c.auth.Login(ctx, "alice", "wrong")
			if !errors.Is(err, shared.ErrBadCredentials) {
				t.Fatalf("expected ErrBadCredentials, got %v", err)
			}
			if msg := LoginMessage(err); msg != "Bad credentials" {
				t.Errorf("expected 'Bad credentials', got %q", msg)
			}
			if n := backend.Count(http.MethodPost, RefreshPath); n != 0 {
				t.Errorf("expected login to never refresh, got %d", n)
			}
			if id, _ := session.Get(); id != "" {
				t.Errorf("expected no identity, got %q", id)
			}
		})

		t.Run("Other Status", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "maintenance", http.StatusServiceUnavailable)
			}))
			defer server.Close()
			c := newTestClients(t, server.URL, tu.NewSessionStub(""))

			err := c.auth.Login(ctx, "alice", "secret")
			if msg := LoginMessage(err); msg != "Request failed: 503: maintenance" {
				t.Errorf("unexpected message %q", msg)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			c := newTestClients(t, "http://example.com", tu.NewSessionStub(""))

			for _, tc := range []struct{ user, pass string }{{"", "x"}, {"  ", "x"}, {"alice", ""}} {
				if err := c.auth.Login(ctx, tc.user, tc.pass); !errors.Is(err, shared.ErrMissingArgument) {
					t.Errorf("Login(%q, %q): expected ErrMissingArgument, got %v", tc.user, tc.pass, err)
				}
			}
		})
	})

	t.Run("LogOut", func(t *testing.T) {
		t.Run("Clears Session", func(t *testing.T) {
			backend, session, c := loggedIn(t)

			if err := c.auth.LogOut(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if session.Clears() != 1 {
				t.Errorf("expected 1 clear, got %d", session.Clears())
			}
			if n := backend.Count(http.MethodPost, LogOutPath); n != 1 {
				t.Errorf("expected 1 logout request, got %d", n)
			}

			// The backend expired both cookies, so the next call cannot recover.
			_, err := c.scrape.ListTasks(ctx)
			if Classify(err) != KindAuthExpired {
				t.Errorf("expected KindAuthExpired after logout, got %v", err)
			}
		})

		t.Run("Not Logged In", func(t *testing.T) {
			c := newTestClients(t, "http://example.com", tu.NewSessionStub(""))

			if err := c.auth.LogOut(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Recovers Expired Access", func(t *testing.T) {
			backend, session, c := loggedIn(t)
			backend.ExpireAccess()

			if err := c.auth.LogOut(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if session.Clears() != 1 {
				t.Errorf("expected 1 clear, got %d", session.Clears())
			}
		})
	})
}
