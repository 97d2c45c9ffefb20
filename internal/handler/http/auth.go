package http

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/media"
	"github.com/assetverse/assetverse/internal/session"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httputil"
	"github.com/assetverse/assetverse/pkg/validator"
)

// maxRegistrationBody caps multipart registration bodies (fields + image).
const maxRegistrationBody = 33 << 20

// settleTimeout bounds how long a handler waits for the session to reconcile
// before responding with whatever snapshot it has.
const settleTimeout = 3 * time.Second

// AuthHandler handles registration, login, and logout.
type AuthHandler struct {
	manager  *session.Manager
	uploader *media.Uploader
	cookies  cookieWriter
	logger   *slog.Logger
}

// NewAuthHandler creates the auth HTTP handler.
func NewAuthHandler(manager *session.Manager, uploader *media.Uploader, cookies cookieWriter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		manager:  manager,
		uploader: uploader,
		cookies:  cookies,
		logger:   logger,
	}
}

// --- Request DTOs ---

// RegisterHRRequest is the form payload for an HR registration.
type RegisterHRRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	CompanyName string `json:"companyName" validate:"required,min=1,max=200"`
	PackageID   string `json:"packageId"`
	CompanyLogo string `json:"companyLogo" validate:"omitempty,url"`
}

// RegisterEmployeeRequest is the form payload for an employee registration.
type RegisterEmployeeRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Photo       string `json:"photo" validate:"omitempty,url"`
}

// LoginRequest is the JSON body for a sign-in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// waitAuthenticated blocks until the store has committed an identity and
// finished its profile fetch, or the timeout passes. Sign-in flows need this
// rather than guard.WaitSettled: the identity commit travels through the
// watcher asynchronously, so right after SignIn the store can be settled but
// still anonymous.
func waitAuthenticated(ctx context.Context, store *session.Store, timeout time.Duration) session.Snapshot {
	settled := func(snap session.Snapshot) bool {
		return snap.Authenticated() && !snap.Loading && !snap.ProfileLoading
	}

	snap := store.Snapshot()
	if settled(snap) {
		return snap
	}

	updates, cancel := store.Subscribe()
	defer cancel()

	if snap = store.Snapshot(); settled(snap) {
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
			if settled(snap) {
				return snap
			}
		}
	}
}

// ensureStore returns the request's session store, creating a fresh session
// (and setting its cookie) when the browser has none yet.
func (h *AuthHandler) ensureStore(w http.ResponseWriter, r *http.Request) *session.Store {
	if store := storeFrom(r); store != nil {
		return store
	}
	id, store := h.manager.Create()
	h.cookies.set(w, id)
	return store
}

// formImage uploads the named multipart file when present and returns its
// hosted URL. A missing file is not an error; registrations may instead
// carry a pre-hosted URL field.
func (h *AuthHandler) formImage(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.InvalidInput("malformed " + field + " upload")
	}
	defer func() { _ = file.Close() }()

	return h.uploader.Upload(r.Context(), header.Filename, file)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// RegisterHR handles POST /api/v1/auth/register/hr
// @Summary Register an HR account
// @Description Creates the identity account and company profile, uploads the
// company logo when one is attached, and signs the new session in.
// @Tags auth
// @Accept mpfd,json
// @Produce json
// @Success 201 {object} SessionResponse
// @Router /api/v1/auth/register/hr [post]
func (h *AuthHandler) RegisterHR(w http.ResponseWriter, r *http.Request) {
	var req RegisterHRRequest
	hasFile := false

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxRegistrationBody); err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("malformed multipart body"), h.logger)
			return
		}
		req = RegisterHRRequest{
			Name:        r.FormValue("name"),
			Email:       r.FormValue("email"),
			Password:    r.FormValue("password"),
			CompanyName: r.FormValue("companyName"),
			PackageID:   r.FormValue("packageId"),
			CompanyLogo: r.FormValue("companyLogo"),
		}
		hasFile = true
		if err := validator.Validate(&req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	} else if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	logoURL := req.CompanyLogo
	if hasFile {
		uploaded, err := h.formImage(r, "companyLogo")
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		if uploaded != "" {
			logoURL = uploaded
		}
	}

	store := h.ensureStore(w, r)
	err := store.Register(r.Context(), session.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		PhotoURL: logoURL,
		Profile: domain.Profile{
			Email:       req.Email,
			Name:        req.Name,
			Role:        domain.RoleHR,
			Photo:       logoURL,
			CompanyName: req.CompanyName,
			CompanyLogo: logoURL,
			PackageID:   req.PackageID,
		},
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	snap := waitAuthenticated(r.Context(), store, settleTimeout)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: toSessionResponse(snap)})
}

// RegisterEmployee handles POST /api/v1/auth/register/employee
func (h *AuthHandler) RegisterEmployee(w http.ResponseWriter, r *http.Request) {
	var req RegisterEmployeeRequest
	hasFile := false

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxRegistrationBody); err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("malformed multipart body"), h.logger)
			return
		}
		req = RegisterEmployeeRequest{
			Name:        r.FormValue("name"),
			Email:       r.FormValue("email"),
			Password:    r.FormValue("password"),
			DateOfBirth: r.FormValue("dateOfBirth"),
			Photo:       r.FormValue("photo"),
		}
		hasFile = true
		if err := validator.Validate(&req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	} else if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	photoURL := req.Photo
	if hasFile {
		uploaded, err := h.formImage(r, "photo")
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		if uploaded != "" {
			photoURL = uploaded
		}
	}

	store := h.ensureStore(w, r)
	err := store.Register(r.Context(), session.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		PhotoURL: photoURL,
		Profile: domain.Profile{
			Email:       req.Email,
			Name:        req.Name,
			Role:        domain.RoleEmployee,
			Photo:       photoURL,
			DateOfBirth: req.DateOfBirth,
		},
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	snap := waitAuthenticated(r.Context(), store, settleTimeout)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: toSessionResponse(snap)})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	store := h.ensureStore(w, r)
	if err := store.SignIn(r.Context(), req.Email, req.Password); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	snap := waitAuthenticated(r.Context(), store, settleTimeout)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toSessionResponse(snap)})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := sessionIDFrom(r); id != "" {
		h.manager.Destroy(id)
	}
	h.cookies.clear(w)
	w.WriteHeader(http.StatusNoContent)
}
