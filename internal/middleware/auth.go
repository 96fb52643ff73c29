// internal/middleware/auth.go
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/coin-wallet/internal/api/httpx"
	"github.com/baharkarakas/coin-wallet/internal/auth"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "session"

type SessionMiddleware struct {
	TM    *auth.TokenManager
	Store auth.SessionStore
	Log   *slog.Logger
}

func NewSessionMiddleware(tm *auth.TokenManager, store auth.SessionStore, log *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{TM: tm, Store: store, Log: log}
}

// Load attaches the caller's session to the request context when the cookie
// resolves to a live session. Requests without one pass through untouched.
func (m *SessionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := m.resolve(r); ok {
			r = r.WithContext(WithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionMiddleware) resolve(r *http.Request) (auth.Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return auth.Session{}, false
	}
	claims, err := m.TM.Parse(c.Value)
	if err != nil {
		return auth.Session{}, false
	}
	s, err := m.Store.Get(r.Context(), claims.ID)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			m.Log.Error("session lookup", "err", err, "request_id", RequestIDFrom(r.Context()))
		}
		return auth.Session{}, false
	}
	// a token minted for one account must not unlock another account's session
	if s.AccountID != claims.AccountID {
		return auth.Session{}, false
	}
	return s, true
}

// RequireSession answers 401 JSON when Load found no session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFrom(r.Context()); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authorization required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePage redirects browsers without a session to the login page.
func RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFrom(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
