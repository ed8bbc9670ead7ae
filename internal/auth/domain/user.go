package domain

import "time"

// User roles. The first user of a firm is always the admin.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Two-factor enrollment states. Enrollment is mandatory: the secret is
// minted at signup and the status flips to verified exactly once, on the
// first successful code verification.
const (
	TwoFactorPending  = "pending"
	TwoFactorVerified = "verified"
)

type User struct {
	ID              string
	FirmID          string
	Email           string // normalized lowercase, unique across all firms
	PasswordHash    string // argon2id PHC encoded
	FirstName       string
	LastName        string
	Phone           *string
	Role            string
	TwoFactorSecret *string // TOTP secret (base32 encoded)
	TwoFactorStatus string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserSummary is the user shape returned by the auth endpoints. It never
// carries secret material.
type UserSummary struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Phone           *string `json:"phone,omitempty"`
	Role            string  `json:"role"`
	TwoFactorStatus string  `json:"twoFactorStatus,omitempty"`
}
