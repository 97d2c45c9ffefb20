package guard

import (
	"net/http"
	"time"

	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/session"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httputil"
)

// StoreFunc resolves the session store bound to a request, or nil when the
// browser has no session.
type StoreFunc func(r *http.Request) *session.Store

// settleTimeout bounds how long a guard waits for an in-flight profile fetch
// before deciding on whatever state it has.
const settleTimeout = 3 * time.Second

func settle(r *http.Request, stores StoreFunc) (session.Snapshot, bool) {
	store := stores(r)
	if store == nil {
		return session.Snapshot{}, false
	}
	return WaitSettled(r.Context(), store, settleTimeout), true
}

// PresencePages guards page-style routes: anonymous browsers get a 302 to
// login carrying the original path.
func PresencePages(stores StoreFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := settle(r, stores)
			if !ok {
				http.Redirect(w, r, loginRedirect(r.URL.Path), http.StatusFound)
				return
			}

			_, decision := EvaluatePresence(snap, r.URL.Path)
			if !decision.Allowed {
				http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RolePages guards page-style routes by role: wrong-role browsers get a 302
// to their own dashboard, profileless ones back to login.
func RolePages(stores StoreFunc, allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := settle(r, stores)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			_, decision := EvaluateRole(snap, allowed...)
			if !decision.Allowed {
				http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession guards API routes: anonymous requests get 401 JSON.
func RequireSession(stores StoreFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := settle(r, stores)
			if !ok || snap.Identity == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("sign in required"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole guards API routes by role: wrong-role requests get 403 JSON,
// profileless ones 401.
func RequireRole(stores StoreFunc, allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := settle(r, stores)
			if !ok || snap.Identity == nil || snap.Profile == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("sign in required"), nil)
				return
			}

			state, _ := EvaluateRole(snap, allowed...)
			if state != RoleAuthorized {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient role"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
