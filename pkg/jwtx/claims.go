package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. Challenge tokens bridge the gap between a password
// check and the TOTP code; access tokens are short-lived; refresh tokens
// carry the session long-term.
const (
	ChallengeTokenTTL = 5 * time.Minute
	AccessTokenTTL    = 1 * time.Hour
	RefreshTokenTTL   = 30 * 24 * time.Hour
)

// Purpose tags carried in the "type" claim. Access tokens carry no tag.
const (
	PurposeChallenge = "2fa"
	PurposeRefresh   = "refresh"
)

// Claims are the token claims shared by challenge, access, and refresh
// tokens. Changes must stay additive to keep previously issued tokens
// verifiable.
type Claims struct {
	jwt.RegisteredClaims

	// FirmID is the tenant the subject user belongs to.
	FirmID string `json:"firmId,omitempty"`

	// Purpose discriminates challenge ("2fa") and refresh ("refresh")
	// tokens. Plain access tokens omit it.
	Purpose string `json:"type,omitempty"`
}

// NewClaims builds minimally-correct claims for a token of the given purpose.
func NewClaims(subject, firmID, purpose, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		FirmID:  firmID,
		Purpose: purpose,
	}
}
