package http

import (
	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/session"
)

// IdentityResponse is the identity provider's slice of the session DTO.
type IdentityResponse struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// SessionResponse is the reconciled session state as the browser sees it.
// Profile is null while the account has not finished onboarding.
type SessionResponse struct {
	Authenticated  bool              `json:"authenticated"`
	Loading        bool              `json:"loading"`
	ProfileLoading bool              `json:"profileLoading"`
	Identity       *IdentityResponse `json:"identity,omitempty"`
	Profile        *domain.Profile   `json:"profile,omitempty"`
}

func toSessionResponse(snap session.Snapshot) SessionResponse {
	resp := SessionResponse{
		Authenticated:  snap.Authenticated(),
		Loading:        snap.Loading,
		ProfileLoading: snap.ProfileLoading,
		Profile:        snap.Profile,
	}
	if snap.Identity != nil {
		resp.Identity = &IdentityResponse{
			UID:         snap.Identity.UID,
			Email:       snap.Identity.Email,
			DisplayName: snap.Identity.DisplayName,
			PhotoURL:    snap.Identity.PhotoURL,
		}
	}
	return resp
}
