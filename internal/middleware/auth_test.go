package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dulbrich/wardclean/internal/database"
	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/store"
)

func setupAuthTest(t *testing.T) (*store.AuthSessionStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewAuthSessionStore(db), store.NewUserStore(db)
}

func TestAuthenticateWithValidCookie(t *testing.T) {
	sessions, users := setupAuthTest(t)

	user, err := users.Create("alice@example.com", "hash", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := sessions.Create(user.ID, "token-abc", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}

	var gotUserID int64
	var gotIdentity identity.Identity
	handler := Authenticate(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = identity.UserID(r.Context())
		gotIdentity, _ = identity.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "token-abc"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotUserID != user.ID {
		t.Errorf("user id = %d, want %d", gotUserID, user.ID)
	}
	if !gotIdentity.IsAuthenticated() || gotIdentity.UserID != user.ID {
		t.Errorf("identity = %+v, want authenticated user %d", gotIdentity, user.ID)
	}
}

func TestAuthenticateWithoutCookieContinuesAnonymously(t *testing.T) {
	sessions, _ := setupAuthTest(t)

	called := false
	handler := Authenticate(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := identity.AuthFromContext(r.Context()); ok {
			t.Error("expected no auth context")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Fatal("handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticateWithExpiredSession(t *testing.T) {
	sessions, users := setupAuthTest(t)

	user, _ := users.Create("bob@example.com", "hash", "Bob")
	sessions.Create(user.ID, "stale-token", time.Now().Add(-time.Hour))

	handler := Authenticate(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.AuthFromContext(r.Context()); ok {
			t.Error("expired session should not authenticate")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-token"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequireAuthRejectsGuests(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthPassesAuthenticated(t *testing.T) {
	called := false
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := identity.WithAuth(req.Context(), identity.AuthContext{UserID: 1, SessionID: 1})
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	if !called {
		t.Error("handler should run for authenticated request")
	}
}
