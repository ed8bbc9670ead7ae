package http

import (
	"encoding/json"
	"net/http"

	"github.com/vergehq/verge/internal/auth/service"
	"github.com/vergehq/verge/pkg/httpx"
	"github.com/vergehq/verge/pkg/slogx"
)

// VerifyTwoFactorRequest is the JSON body for POST /v1/auth/verify-2fa.
type VerifyTwoFactorRequest struct {
	TempToken string `json:"tempToken"`
	Code      string `json:"code"`
}

// VerifyTwoFactorHandler completes authentication from a pending challenge.
type VerifyTwoFactorHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /v1/auth/verify-2fa
//
//	@Summary		Complete a two-factor challenge
//	@Description	Exchanges a valid challenge token and TOTP code for an access and
//	@Description	refresh token pair. The first successful exchange also marks the
//	@Description	account's two-factor enrollment as verified.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyTwoFactorRequest	true	"Challenge token and TOTP code"
//	@Success		200		{object}	domain.SessionResult	"Access and refresh tokens"
//	@Failure		400		{object}	ErrorResponse			"Invalid request body"
//	@Failure		401		{object}	ErrorResponse			"Invalid token or verification code"
//	@Failure		500		{object}	ErrorResponse			"Internal server error"
//	@Router			/v1/auth/verify-2fa [post].
func (h *VerifyTwoFactorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req VerifyTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := h.AuthService.VerifyTwoFactor(ctx, req.TempToken, req.Code)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	log.Info("two-factor verification completed", "user_id", result.User.ID)
	httpx.WriteJSON(w, http.StatusOK, result)
}
