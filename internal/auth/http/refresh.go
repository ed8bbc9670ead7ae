package http

import (
	"encoding/json"
	"net/http"

	"github.com/vergehq/verge/internal/auth/service"
	"github.com/vergehq/verge/pkg/httpx"
	"github.com/vergehq/verge/pkg/slogx"
)

// RefreshRequest is the JSON body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshHandler rotates token pairs from a valid refresh token.
type RefreshHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /v1/auth/refresh
//
//	@Summary		Exchange a refresh token for a new token pair
//	@Description	Verifies the refresh token against the refresh signing secret and
//	@Description	issues a fresh access and refresh token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshRequest			true	"Refresh token"
//	@Success		200		{object}	domain.SessionResult	"New access and refresh tokens"
//	@Failure		400		{object}	ErrorResponse			"Invalid request body"
//	@Failure		401		{object}	ErrorResponse			"Invalid or expired token"
//	@Failure		500		{object}	ErrorResponse			"Internal server error"
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := h.AuthService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	log.Info("session refreshed", "user_id", result.User.ID)
	httpx.WriteJSON(w, http.StatusOK, result)
}
