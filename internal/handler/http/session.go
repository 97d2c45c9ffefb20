package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/guard"
	"github.com/assetverse/assetverse/internal/media"
	"github.com/assetverse/assetverse/internal/session"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httputil"
	"github.com/assetverse/assetverse/pkg/validator"
)

// SessionHandler exposes the reconciled session snapshot and profile updates.
type SessionHandler struct {
	uploader *media.Uploader
	logger   *slog.Logger
}

func NewSessionHandler(uploader *media.Uploader, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{uploader: uploader, logger: logger}
}

// UpdateProfileRequest is the JSON body for a display-info update.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=1,max=200"`
	PhotoURL    string `json:"photoUrl" validate:"omitempty,url"`
}

// Get handles GET /api/v1/session. It never errors: an anonymous request
// still gets a snapshot, just one with authenticated=false.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	if store == nil {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SessionResponse{}})
		return
	}
	snap := guard.WaitSettled(r.Context(), store, settleTimeout)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toSessionResponse(snap)})
}

// UpdateProfile handles PUT /api/v1/profile. Multipart bodies carry the new
// photo as a file; JSON bodies carry a pre-hosted URL.
func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	store := storeFrom(r)
	if store == nil {
		httputil.WriteError(w, r, apperrors.Unauthorized("sign in to update your profile"), h.logger)
		return
	}

	var req UpdateProfileRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxRegistrationBody); err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("malformed multipart body"), h.logger)
			return
		}
		req = UpdateProfileRequest{
			DisplayName: r.FormValue("displayName"),
			PhotoURL:    r.FormValue("photoUrl"),
		}
		if err := validator.Validate(&req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
		uploaded, err := h.uploadedPhoto(r)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		if uploaded != "" {
			req.PhotoURL = uploaded
		}
	} else if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// Committing the refreshed identity re-triggers the profile fetch, so
	// the settled snapshot below reflects the update.
	if err := store.UpdateDisplayInfo(r.Context(), req.DisplayName, req.PhotoURL); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	snap := guard.WaitSettled(r.Context(), store, settleTimeout)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toSessionResponse(snap)})
}

func (h *SessionHandler) uploadedPhoto(r *http.Request) (string, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.InvalidInput("malformed photo upload")
	}
	defer func() { _ = file.Close() }()

	return h.uploader.Upload(r.Context(), header.Filename, file)
}

// profileOf pulls the settled profile for handlers that key requests off the
// signed-in user. The role guards upstream guarantee it exists on gated
// routes; the nil check keeps direct calls safe.
func profileOf(r *http.Request) (*session.Store, *sessionProfile, error) {
	store := storeFrom(r)
	if store == nil {
		return nil, nil, apperrors.Unauthorized("authentication required")
	}
	snap := guard.WaitSettled(r.Context(), store, settleTimeout)
	if snap.Identity == nil {
		return nil, nil, apperrors.Unauthorized("authentication required")
	}
	if snap.Profile == nil {
		return nil, nil, apperrors.Forbidden("complete your registration first")
	}
	return store, &sessionProfile{email: snap.Profile.Email, role: snap.Profile.Role, companyName: snap.Profile.CompanyName}, nil
}

type sessionProfile struct {
	email       string
	role        domain.Role
	companyName string
}
