package http

import (
	"context"
	"net/http"
	"time"

	"github.com/assetverse/assetverse/internal/backend"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/pkg/logger"
)

type sessionCtxKey struct{}

// boundSession is what the cookie middleware binds to the request context.
type boundSession struct {
	id    string
	store *session.Store
}

// SessionCookie binds the browser's session store to the request context
// when a valid session cookie is present. Requests without one pass through
// anonymous; the guards downstream decide what that means.
func SessionCookie(manager *session.Manager, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			store, ok := manager.Get(cookie.Value)
			if !ok {
				// Stale cookie for an expired session.
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey{}, boundSession{id: cookie.Value, store: store})
			ctx = logger.WithSessionID(ctx, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// storeFrom resolves the request's session store, or nil. Satisfies
// guard.StoreFunc.
func storeFrom(r *http.Request) *session.Store {
	if bound, ok := r.Context().Value(sessionCtxKey{}).(boundSession); ok {
		return bound.store
	}
	return nil
}

func sessionIDFrom(r *http.Request) string {
	if bound, ok := r.Context().Value(sessionCtxKey{}).(boundSession); ok {
		return bound.id
	}
	return ""
}

// authCtx binds the session's bearer authorizer to the request context so
// backend calls made on behalf of this session carry its token.
func authCtx(r *http.Request, store *session.Store) context.Context {
	return backend.WithAuthorizer(r.Context(), store)
}

// cookieWriter issues and clears the session cookie.
type cookieWriter struct {
	name   string
	ttl    time.Duration
	secure bool
}

func (c cookieWriter) set(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieWriter) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
