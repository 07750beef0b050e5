package middleware

import (
	"net/http"

	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/store"
)

const SessionCookieName = "wardclean_session"

// Authenticate resolves the session cookie into an authenticated identity on
// the request context. Requests without a valid cookie continue anonymously —
// the board is open to guests, so this middleware never rejects.
func Authenticate(authSessions *store.AuthSessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := authSessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := identity.WithAuth(r.Context(), identity.AuthContext{
				UserID:    sess.UserID,
				SessionID: sess.ID,
			})
			ctx = identity.WithIdentity(ctx, identity.Authenticated(sess.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that did not authenticate. Used for the
// ward-administration and profile surfaces; board endpoints accept guests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.AuthFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
