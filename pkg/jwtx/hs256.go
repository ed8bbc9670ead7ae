package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: malformed input,
// bad signature, wrong algorithm, and expired or not-yet-valid claims.
// Callers get no finer detail than this.
var ErrInvalidToken = errors.New("jwtx: invalid token")

// Signer is anything that can sign Claims into a compact token.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a token and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Key signs and verifies HS256 tokens with a single shared secret.
// Distinct token classes get distinct Keys so a leaked secret for one
// class cannot forge the other.
type Key struct {
	secret []byte
	issuer string

	// Now is the clock used during verification. Tests override it to
	// simulate expiry; when nil, time.Now is used.
	Now func() time.Time
}

// NewKey builds a Key around a shared secret. Issuer, when non-empty, is
// stamped on signed tokens and enforced during verification.
func NewKey(secret []byte, issuer string) *Key {
	return &Key{secret: secret, issuer: issuer}
}

// Sign serializes and signs the claims with HMAC-SHA256.
func (k *Key) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
}

// Verify parses and validates a compact token. Signature, algorithm,
// expiry, not-before, and issuer are all checked; every failure is
// reported as ErrInvalidToken.
func (k *Key) Verify(token string) (Claims, error) {
	now := k.Now
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if k.issuer != "" {
		opts = append(opts, jwt.WithIssuer(k.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return k.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
