package guard

import (
	"context"
	"net/url"
	"time"

	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/session"
)

// PresenceState is the presence guard's view of a session.
type PresenceState int

const (
	PresenceChecking PresenceState = iota
	PresenceAuthenticated
	PresenceAnonymous
)

// RoleState is the role guard's view of a session.
type RoleState int

const (
	RoleChecking RoleState = iota
	RoleAuthorized
	RoleUnauthorized
	RoleUnauthenticated
)

// Decision is a guard verdict: either the request may proceed, or RedirectTo
// names where the browser should go instead.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// EvaluatePresence decides whether a session may see a protected page.
// Anonymous sessions are sent to login with the original path preserved so
// the browser returns where it was headed.
func EvaluatePresence(snap session.Snapshot, fromPath string) (PresenceState, Decision) {
	switch {
	case snap.Loading:
		return PresenceChecking, Decision{}
	case snap.Identity == nil:
		return PresenceAnonymous, Decision{RedirectTo: loginRedirect(fromPath)}
	default:
		return PresenceAuthenticated, Decision{Allowed: true}
	}
}

// EvaluateRole decides whether a session may see a role-gated page. A
// session without a profile cannot be role-checked and goes back to login;
// a wrong role lands on its own dashboard rather than an error page.
func EvaluateRole(snap session.Snapshot, allowed ...domain.Role) (RoleState, Decision) {
	switch {
	case snap.Loading || snap.ProfileLoading:
		return RoleChecking, Decision{}
	case snap.Identity == nil, snap.Profile == nil:
		return RoleUnauthenticated, Decision{RedirectTo: "/login"}
	}

	for _, role := range allowed {
		if snap.Profile.Role == role {
			return RoleAuthorized, Decision{Allowed: true}
		}
	}
	return RoleUnauthorized, Decision{RedirectTo: LandingPath(snap.Profile.Role)}
}

// LandingPath maps a role to its dashboard. An unknown role gets the bare
// dashboard redirect, which re-runs the role resolution.
func LandingPath(role domain.Role) string {
	switch role {
	case domain.RoleHR:
		return "/dashboard/hr"
	case domain.RoleEmployee:
		return "/dashboard/employee"
	default:
		return "/dashboard"
	}
}

func loginRedirect(fromPath string) string {
	if fromPath == "" || fromPath == "/login" {
		return "/login"
	}
	return "/login?from=" + url.QueryEscape(fromPath)
}

// WaitSettled blocks until the store is out of its checking states or the
// timeout passes, and returns the latest snapshot. Guards never render a
// verdict off a snapshot that is still loading when a settled one is moments
// away.
func WaitSettled(ctx context.Context, store *session.Store, timeout time.Duration) session.Snapshot {
	snap := store.Snapshot()
	if !snap.Loading && !snap.ProfileLoading {
		return snap
	}

	updates, cancel := store.Subscribe()
	defer cancel()

	// Re-check after subscribing: the settle may have raced the Subscribe.
	snap = store.Snapshot()
	if !snap.Loading && !snap.ProfileLoading {
		return snap
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return snap
		case <-deadline.C:
			return snap
		case next, ok := <-updates:
			if !ok {
				return snap
			}
			snap = next
			if !snap.Loading && !snap.ProfileLoading {
				return snap
			}
		}
	}
}
