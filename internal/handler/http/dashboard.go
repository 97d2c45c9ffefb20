package http

import (
	"log/slog"
	"net/http"

	"github.com/assetverse/assetverse/internal/guard"
	"github.com/assetverse/assetverse/pkg/httputil"
)

// DashboardHandler serves the page-style dashboard routes. The guards in
// front of these decide access; the handlers hand the shell its session.
type DashboardHandler struct {
	logger *slog.Logger
}

func NewDashboardHandler(logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{logger: logger}
}

// Root handles GET /dashboard: a signed-in browser lands on its role's
// dashboard, everything else was already redirected by the presence guard.
func (h *DashboardHandler) Root(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	if store == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	snap := guard.WaitSettled(r.Context(), store, settleTimeout)
	if snap.Profile == nil {
		// Signed in but not onboarded; no role to land on yet.
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toSessionResponse(snap)})
		return
	}
	http.Redirect(w, r, guard.LandingPath(snap.Profile.Role), http.StatusFound)
}

// HR handles GET /dashboard/hr.
func (h *DashboardHandler) HR(w http.ResponseWriter, r *http.Request) {
	h.shell(w, r)
}

// Employee handles GET /dashboard/employee.
func (h *DashboardHandler) Employee(w http.ResponseWriter, r *http.Request) {
	h.shell(w, r)
}

func (h *DashboardHandler) shell(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	if store == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	snap := guard.WaitSettled(r.Context(), store, settleTimeout)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toSessionResponse(snap)})
}
