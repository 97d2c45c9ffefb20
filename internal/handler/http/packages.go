package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetverse/assetverse/internal/backend"
	"github.com/assetverse/assetverse/internal/payment"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httputil"
	"github.com/assetverse/assetverse/pkg/validator"
)

// PackageHandler serves the subscription tiers and hosted checkout.
type PackageHandler struct {
	backend  *backend.Client
	payments *payment.Service
	logger   *slog.Logger
}

func NewPackageHandler(client *backend.Client, payments *payment.Service, logger *slog.Logger) *PackageHandler {
	return &PackageHandler{backend: client, payments: payments, logger: logger}
}

// CheckoutRequest names the package to buy. The price comes from the
// backend's package record, never from the browser.
type CheckoutRequest struct {
	PackageID string `json:"packageId" validate:"required"`
}

// List handles GET /api/v1/packages. Public: the pricing page shows tiers
// before registration.
func (h *PackageHandler) List(w http.ResponseWriter, r *http.Request) {
	packages, err := h.backend.ListPackages(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: packages})
}

// Get handles GET /api/v1/packages/{id}.
func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("package id is required"), h.logger)
		return
	}

	pkg, err := h.backend.GetPackage(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pkg})
}

// Checkout handles POST /api/v1/payments/checkout-session (HR only). It
// returns the hosted checkout URL for the browser to redirect to.
func (h *PackageHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	store, prof, err := profileOf(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req CheckoutRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess, err := h.payments.Checkout(authCtx(r, store), req.PackageID, prof.email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sess})
}
