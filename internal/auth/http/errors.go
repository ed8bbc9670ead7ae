package http

import (
	"errors"
	"net/http"

	"github.com/vergehq/verge/internal/auth/service"
	"github.com/vergehq/verge/pkg/httpx"
	"github.com/vergehq/verge/pkg/slogx"
)

// ErrorResponse is the JSON error envelope shared by all endpoints.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func writeError(w http.ResponseWriter, statusCode int, code, description string) {
	httpx.WriteJSON(w, statusCode, ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// writeAuthError maps service-layer failures onto HTTP responses. The
// unauthorized descriptions are deliberately generic; they reveal no
// more than the coarse category implied by the endpoint itself.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "invalid_request", validationErr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "conflict", "Email is already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
	case errors.Is(err, service.ErrInvalidChallengeToken):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
	case errors.Is(err, service.ErrNotChallengeToken):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Token is not a 2FA challenge")
	case errors.Is(err, service.ErrTwoFactorNotConfigured):
		writeError(w, http.StatusUnauthorized, "unauthorized", "User not found or 2FA not configured")
	case errors.Is(err, service.ErrInvalidTOTPCode):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid verification code")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
