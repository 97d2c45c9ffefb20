package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/assetverse/assetverse/pkg/errors"
)

// upstreamErrorBody covers the two error shapes returned by the collaborators
// this gateway talks to: an enveloped {"error":{code,message}} and a flat
// {"message":...} body.
type upstreamErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The upstream message is preserved verbatim so callers
// can surface it to the user unchanged (e.g. a limit-exceeded rejection). The
// response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var upstream upstreamErrorBody
	if json.Unmarshal(bodyBytes, &upstream) == nil {
		if upstream.Error != nil {
			return mapUpstreamError(resp.StatusCode, upstream.Error.Code, upstream.Error.Message, serviceName)
		}
		if upstream.Message != "" {
			return mapUpstreamError(resp.StatusCode, "", upstream.Message, serviceName)
		}
	}

	// Fallback: unstructured error body.
	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes))
}

// mapUpstreamError translates an upstream HTTP status and error body into an
// AppError that preserves the error semantics and original message.
func mapUpstreamError(status int, code, message, serviceName string) error {
	switch status {
	case http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: message,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case http.StatusBadRequest:
		return apperrors.InvalidInput(message)
	case http.StatusConflict:
		return apperrors.Conflict(message)
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case http.StatusForbidden:
		return apperrors.Forbidden(message)
	case http.StatusUnprocessableEntity:
		return apperrors.LimitExceeded(message)
	case http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: message,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	}

	if status >= 500 {
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	}

	return &apperrors.AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
