package http

import (
	"encoding/json"
	"net/http"

	"github.com/vergehq/verge/internal/auth/service"
	"github.com/vergehq/verge/pkg/httpx"
	"github.com/vergehq/verge/pkg/slogx"
)

// SignUpRequest is the JSON body for POST /v1/auth/signup.
type SignUpRequest struct {
	FirmName  string  `json:"firmName"`
	Address   *string `json:"address,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	Zip       *string `json:"zip,omitempty"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Phone     *string `json:"phone,omitempty"`
}

// SignUpHandler handles firm registration.
type SignUpHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP handles POST /v1/auth/signup
//
//	@Summary		Register a firm and its first admin user
//	@Description	Creates a firm and its founding admin account, then returns the
//	@Description	one-time TOTP enrollment payload. The raw secret is never shown again.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignUpRequest	true	"Firm and admin details"
//	@Success		201		{object}	domain.SignUpResult	"Firm, user, and TOTP enrollment"
//	@Failure		400		{object}	ErrorResponse		"Validation failure"
//	@Failure		409		{object}	ErrorResponse		"Email is already registered"
//	@Failure		500		{object}	ErrorResponse		"Internal server error"
//	@Router			/v1/auth/signup [post].
func (h *SignUpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := h.AuthService.SignUp(ctx, service.SignUpParams{
		FirmName:  req.FirmName,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
	})
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	log.Info("firm registered", "firm_id", result.Firm.ID, "user_id", result.User.ID)
	httpx.WriteJSON(w, http.StatusCreated, result)
}
