package http

import (
	"log/slog"
	"net/http"

	"github.com/assetverse/assetverse/internal/backend"
	"github.com/assetverse/assetverse/pkg/httputil"
	"github.com/assetverse/assetverse/pkg/validator"
)

// EmployeeHandler serves the team views: the HR roster with package
// headroom, and the employee's colleague and assigned-asset views.
type EmployeeHandler struct {
	backend *backend.Client
	logger  *slog.Logger
}

func NewEmployeeHandler(client *backend.Client, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{backend: client, logger: logger}
}

// RemoveEmployeeRequest names the employee to detach from the company.
type RemoveEmployeeRequest struct {
	EmployeeEmail string `json:"employeeEmail" validate:"required,email"`
}

// DirectAssignRequest assigns an asset to a team member without a request.
type DirectAssignRequest struct {
	EmployeeEmail string `json:"employeeEmail" validate:"required,email"`
	AssetID       string `json:"assetId" validate:"required"`
}

// MyEmployees handles GET /api/v1/my-employees (HR only).
func (h *EmployeeHandler) MyEmployees(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	report, err := h.backend.MyEmployees(authCtx(r, store), prof.email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}

// Remove handles PATCH /api/v1/remove-employee (HR only).
func (h *EmployeeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req RemoveEmployeeRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.backend.RemoveEmployee(authCtx(r, store), prof.email, req.EmployeeEmail); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DirectAssign handles PATCH /api/v1/direct-assign (HR only).
func (h *EmployeeHandler) DirectAssign(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req DirectAssignRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.backend.DirectAssign(authCtx(r, store), prof.email, req.EmployeeEmail, req.AssetID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Affiliations handles GET /api/v1/affiliations (employee only). An
// employee attached to several companies picks one to browse.
func (h *EmployeeHandler) Affiliations(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	affiliations, err := h.backend.EmployeeAffiliations(authCtx(r, store), prof.email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: affiliations})
}

// MyTeam handles GET /api/v1/my-team (employee only). companyName selects
// which of the employee's companies to show; it defaults to the profile's.
func (h *EmployeeHandler) MyTeam(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	companyName := r.URL.Query().Get("companyName")
	if companyName == "" {
		companyName = prof.companyName
	}

	team, err := h.backend.MyTeam(authCtx(r, store), companyName, prof.email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: team})
}

// AssignedAssets handles GET /api/v1/assigned-assets (employee only).
func (h *EmployeeHandler) AssignedAssets(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	assets, err := h.backend.AssignedAssets(authCtx(r, store), prof.email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: assets})
}
