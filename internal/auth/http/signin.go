package http

import (
	"encoding/json"
	"net/http"

	"github.com/vergehq/verge/internal/auth/service"
	"github.com/vergehq/verge/pkg/httpx"
	"github.com/vergehq/verge/pkg/slogx"
)

// SignInRequest is the JSON body for POST /v1/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInHandler handles the credential step of authentication.
type SignInHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /v1/auth/signin
//
//	@Summary		Verify credentials and open a two-factor challenge
//	@Description	Checks email and password and, on success, returns a short-lived
//	@Description	challenge token. No access or refresh token is issued yet.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignInRequest			true	"Credentials"
//	@Success		200		{object}	domain.ChallengeResult	"Pending two-factor challenge"
//	@Failure		400		{object}	ErrorResponse			"Invalid request body"
//	@Failure		401		{object}	ErrorResponse			"Invalid credentials"
//	@Failure		500		{object}	ErrorResponse			"Internal server error"
//	@Router			/v1/auth/signin [post].
func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := h.AuthService.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	log.Info("two-factor challenge opened", "user_id", result.User.ID)
	httpx.WriteJSON(w, http.StatusOK, result)
}
