package domain

import "time"

// Plan tiers a firm can be subscribed to. New firms start on the free tier.
const (
	PlanTierFree = "free"
)

// Firm is a tenant: an immigration law firm owning a set of users.
// Firms are created once at signup and never mutated by the auth flows.
type Firm struct {
	ID       string
	Name     string
	Address  *string
	City     *string
	State    *string
	Zip      *string
	PlanTier string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FirmSummary is the firm shape returned by the auth endpoints. PlanTier
// is only populated where the flow calls for it (sign-in and onwards).
type FirmSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PlanTier string `json:"planTier,omitempty"`
}
