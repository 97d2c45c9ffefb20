package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/request"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httputil"
	"github.com/assetverse/assetverse/pkg/validator"
)

// RequestHandler serves the asset-request views: the employee's own
// requests with optimistic pending entries, and the HR approval queue.
type RequestHandler struct {
	cache  *request.Cache
	logger *slog.Logger
}

func NewRequestHandler(cache *request.Cache, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{cache: cache, logger: logger}
}

// SubmitRequestBody is the payload for filing a new asset request.
type SubmitRequestBody struct {
	AssetID   string `json:"assetId" validate:"required"`
	AssetName string `json:"assetName" validate:"required"`
	AssetType string `json:"assetType" validate:"omitempty,oneof=Returnable Non-returnable"`
	Note      string `json:"note" validate:"max=500"`
}

// List handles GET /api/v1/requests. The caller's projection is refreshed
// from the backend and returned with any optimistic entries the backend has
// not served yet.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	proj := h.cache.For(prof.email)
	search := r.URL.Query().Get("search")
	status := r.URL.Query().Get("status")
	if err := proj.Refresh(authCtx(r, store), search, status); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: proj.Requests()})
}

// Submit handles POST /api/v1/requests (employee only). The response carries
// the optimistic pending entry; the next List reflects the backend's record.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var body SubmitRequestBody
	if err := validator.DecodeAndValidate(r, &body); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	asset := domain.Asset{
		ID:          body.AssetID,
		ProductName: body.AssetName,
		ProductType: body.AssetType,
	}
	entry, err := h.cache.For(prof.email).Submit(authCtx(r, store), asset, body.Note)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: entry})
}

// Approve handles PATCH /api/v1/requests/{id}/approve (HR only).
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, (*request.Projection).Approve)
}

// Reject handles PATCH /api/v1/requests/{id}/reject (HR only).
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, (*request.Projection).Reject)
}

func (h *RequestHandler) decide(w http.ResponseWriter, r *http.Request, apply func(*request.Projection, context.Context, string, string) error) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("request id is required"), h.logger)
		return
	}

	if err := apply(h.cache.For(prof.email), authCtx(r, store), requestID, prof.email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
