package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/backend"
	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/media"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httputil"
	"github.com/assetverse/assetverse/pkg/validator"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// AssetHandler proxies the asset catalog: browsing for everyone signed in,
// inventory management for HR.
type AssetHandler struct {
	backend  *backend.Client
	uploader *media.Uploader
	logger   *slog.Logger
}

func NewAssetHandler(client *backend.Client, uploader *media.Uploader, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{backend: client, uploader: uploader, logger: logger}
}

// CreateAssetRequest is the payload for adding an asset to the inventory.
type CreateAssetRequest struct {
	ProductName     string `json:"productName" validate:"required,min=1,max=200"`
	ProductType     string `json:"productType" validate:"required,oneof=Returnable Non-returnable"`
	ProductQuantity int    `json:"productQuantity" validate:"required,min=1"`
	ProductImage    string `json:"productImage" validate:"omitempty,url"`
}

// UpdateAssetRequest carries the editable asset fields.
type UpdateAssetRequest struct {
	ProductName     string `json:"productName" validate:"required,min=1,max=200"`
	ProductQuantity int    `json:"productQuantity" validate:"min=0"`
	ProductImage    string `json:"productImage" validate:"omitempty,url"`
}

// List handles GET /api/v1/assets
// @Summary List the asset catalog
// @Description Employees see their company's catalog; HR sees their own
// inventory. Search and pagination pass through to the asset backend.
// @Tags assets
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Items per page (default 10, max 100)"
// @Param search query string false "Filter by product name"
// @Success 200 {object} backend.AssetPage
// @Router /api/v1/assets [get]
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	query := backend.AssetQuery{
		Search: r.URL.Query().Get("search"),
		Page:   1,
		Limit:  defaultPageSize,
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a positive integer"},
			})
			return
		}
		query.Page = page
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageSize {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "limit must be between 1 and 100"},
			})
			return
		}
		query.Limit = limit
	}

	// The catalog is scoped to an HR inventory: the HR's own, or the
	// employee's affiliated company HR.
	query.Email = catalogEmail(r, prof)

	page, err := h.backend.ListAssets(authCtx(r, store), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// catalogEmail resolves which HR inventory a catalog request targets. HR
// users always browse their own; employees may name their company HR via
// the hrEmail query param.
func catalogEmail(r *http.Request, prof *sessionProfile) string {
	if prof.role == domain.RoleHR {
		return prof.email
	}
	return r.URL.Query().Get("hrEmail")
}

// Create handles POST /api/v1/assets (HR only). Multipart bodies carry the
// product image as a file; JSON bodies carry a pre-hosted URL.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req CreateAssetRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxRegistrationBody); err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("malformed multipart body"), h.logger)
			return
		}
		qty, err := strconv.Atoi(r.FormValue("productQuantity"))
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("productQuantity must be an integer"), h.logger)
			return
		}
		req = CreateAssetRequest{
			ProductName:     r.FormValue("productName"),
			ProductType:     r.FormValue("productType"),
			ProductQuantity: qty,
			ProductImage:    r.FormValue("productImage"),
		}
		if err := validator.Validate(&req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
		uploaded, err := h.productImage(r)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		if uploaded != "" {
			req.ProductImage = uploaded
		}
	} else if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	asset := domain.Asset{
		ProductName:     req.ProductName,
		ProductType:     req.ProductType,
		ProductQuantity: req.ProductQuantity,
		Image:           req.ProductImage,
		HREmail:         prof.email,
	}
	if err := h.backend.CreateAsset(authCtx(r, store), asset); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: asset})
}

// Update handles PATCH /api/v1/assets/{id} (HR only).
func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	assetID := chi.URLParam(r, "id")
	if assetID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("asset id is required"), h.logger)
		return
	}

	var req UpdateAssetRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	update := backend.AssetUpdate{
		ProductName:     req.ProductName,
		ProductQuantity: req.ProductQuantity,
		ProductImage:    req.ProductImage,
		HREmail:         prof.email,
	}
	if err := h.backend.UpdateAsset(authCtx(r, store), assetID, update); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/assets/{id} (HR only).
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	assetID := chi.URLParam(r, "id")
	if assetID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("asset id is required"), h.logger)
		return
	}

	if err := h.backend.DeleteAsset(authCtx(r, store), assetID, prof.email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssetHandler) productImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("productImage")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.InvalidInput("malformed productImage upload")
	}
	defer func() { _ = file.Close() }()

	return h.uploader.Upload(r.Context(), header.Filename, file)
}
