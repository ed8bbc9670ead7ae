package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

const minPasswordLength = 8

// usPhonePattern accepts common US formats: optional +1 country code,
// optional separators, 10 digits.
var usPhonePattern = regexp.MustCompile(`^\+?1?[ .-]?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}$`)

// ValidationError reports a malformed input field. Requests failing
// validation are rejected before touching storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func validateSignUp(p SignUpParams) error {
	if strings.TrimSpace(p.FirmName) == "" {
		return invalidField("firmName", "must not be empty")
	}
	if strings.TrimSpace(p.FirstName) == "" {
		return invalidField("firstName", "must not be empty")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return invalidField("lastName", "must not be empty")
	}
	if err := validateEmail(p.Email); err != nil {
		return err
	}
	if len(p.Password) < minPasswordLength {
		return invalidField("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if p.Phone != nil && !usPhonePattern.MatchString(strings.TrimSpace(*p.Phone)) {
		return invalidField("phone", "must be a valid US phone number")
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalidField("email", "must not be empty")
	}

	// Reject display-name forms like "Jane <jane@x.test>"; only a bare
	// address is acceptable.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalidField("email", "must be a valid email address")
	}
	return nil
}

// normalizeEmail lowercases the address for all lookups and storage.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
