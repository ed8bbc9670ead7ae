// Package totpx wraps time-based one-time-password generation and
// verification for authenticator-app enrollment.
package totpx

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the code rotation interval in seconds.
	Period = 30

	// Digits is the code length.
	Digits = 6

	// SecretSize is the entropy in bytes before base32 encoding.
	SecretSize = 20

	// Window is the accepted clock-skew tolerance in steps either side
	// of the current one, giving a ~90 second acceptance window.
	Window = 1
)

// Enrollment is the one-time payload handed to a user at enrollment. The
// secret is never recoverable in plaintext afterwards.
type Enrollment struct {
	Secret          string // base32 encoded shared secret
	ProvisioningURI string // otpauth:// URL for authenticator apps
}

// GenerateSecret produces a fresh shared secret and its provisioning URI,
// labelled with the issuing product and the account (normally an email).
func GenerateSecret(issuer, account string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return Enrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// ComputeCode derives the 6-digit code for the time bucket containing at.
func ComputeCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, validateOpts())
}

// VerifyCode reports whether code matches the secret for the bucket
// containing at or any bucket within ±Window steps. Codes of the wrong
// length or shape simply fail to verify.
func VerifyCode(secret, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, validateOpts())
	return err == nil && ok
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      Window,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
