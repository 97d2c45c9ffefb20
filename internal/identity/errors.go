package identity

import (
	"net/http"
	"strings"

	apperrors "github.com/assetverse/assetverse/pkg/errors"
)

// mapIdentityError translates the provider's message codes into the closed
// credential error taxonomy. Unknown codes pass through as unauthorized so a
// new provider code can never be mistaken for success.
func mapIdentityError(message string) error {
	// Trailing human-readable notes follow " : ".
	code, detail, _ := strings.Cut(message, " : ")
	code = strings.TrimSpace(code)

	switch code {
	case "EMAIL_EXISTS":
		return &apperrors.AppError{
			Code:    "EMAIL_IN_USE",
			Message: "an account with this email already exists",
			Status:  http.StatusConflict,
			Err:     apperrors.ErrEmailInUse,
		}
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return apperrors.InvalidCredential()
	case "WEAK_PASSWORD":
		msg := strings.TrimSpace(detail)
		if msg == "" {
			msg = "password is too weak"
		}
		return apperrors.WeakPassword(msg)
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return apperrors.Unauthorized("too many attempts, try again later")
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "USER_NOT_FOUND":
		return apperrors.Unauthorized("session expired, sign in again")
	default:
		return apperrors.Unauthorized(message)
	}
}
