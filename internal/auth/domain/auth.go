package domain

// TwoFactorEnrollment is the one-time enrollment payload returned at
// signup. The raw secret is not retrievable again through any later
// operation.
type TwoFactorEnrollment struct {
	Type            string `json:"type"` // always "totp"
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

// SignUpResult is the response of a successful signup. No tokens are
// issued at this stage; the account still has to pass sign-in and
// two-factor verification.
type SignUpResult struct {
	Firm                FirmSummary         `json:"firm"`
	User                UserSummary         `json:"user"`
	TwoFactorEnrollment TwoFactorEnrollment `json:"twoFactorEnrollment"`
}

// ChallengeResult is the response of a successful sign-in: a pending
// two-factor challenge. TempToken expires after five minutes.
type ChallengeResult struct {
	TwoFactorRequired bool        `json:"twoFactorRequired"` // always true
	TempToken         string      `json:"tempToken"`
	User              UserSummary `json:"user"`
	Firm              FirmSummary `json:"firm"`
}

// SessionResult is the response of a completed authentication: a
// short-lived access token plus a long-lived refresh token.
type SessionResult struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         UserSummary `json:"user"`
	Firm         FirmSummary `json:"firm"`
}
