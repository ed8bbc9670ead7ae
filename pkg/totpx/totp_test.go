package totpx

import (
	"encoding/base32"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	enrollment, err := GenerateSecret("Verge", "qa@x.test")
	require.NoError(t, err)

	// Secret must decode to at least 20 bytes of entropy
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).
		DecodeString(enrollment.Secret)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), SecretSize)

	// Provisioning URI must be a standard otpauth URL carrying the secret
	require.True(t, strings.HasPrefix(enrollment.ProvisioningURI, "otpauth://totp/"))

	u, err := url.Parse(enrollment.ProvisioningURI)
	require.NoError(t, err)
	require.Equal(t, enrollment.Secret, u.Query().Get("secret"))
	require.Equal(t, "Verge", u.Query().Get("issuer"))
	require.Contains(t, u.Path, "qa@x.test")
}

func TestGenerateSecret_Unique(t *testing.T) {
	a, err := GenerateSecret("Verge", "one@x.test")
	require.NoError(t, err)
	b, err := GenerateSecret("Verge", "two@x.test")
	require.NoError(t, err)

	require.NotEqual(t, a.Secret, b.Secret)
}

func TestVerifyCode_Window(t *testing.T) {
	enrollment, err := GenerateSecret("Verge", "qa@x.test")
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 9, 0, 15, 0, time.UTC)

	code, err := ComputeCode(enrollment.Secret, at)
	require.NoError(t, err)
	require.Len(t, code, Digits)

	step := Period * time.Second
	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"bucket T-2", -2 * step, false},
		{"bucket T-1", -step, true},
		{"bucket T", 0, true},
		{"bucket T+1", step, true},
		{"bucket T+2", 2 * step, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, VerifyCode(enrollment.Secret, code, at.Add(tt.offset)))
		})
	}
}

func TestVerifyCode_RejectsMalformedCodes(t *testing.T) {
	enrollment, err := GenerateSecret("Verge", "qa@x.test")
	require.NoError(t, err)

	at := time.Now()

	for _, code := range []string{"", "12345", "1234567", "abcdef", "12 456", "००००००"} {
		require.False(t, VerifyCode(enrollment.Secret, code, at), "code %q", code)
	}
}

func TestVerifyCode_WrongSecret(t *testing.T) {
	a, err := GenerateSecret("Verge", "one@x.test")
	require.NoError(t, err)
	b, err := GenerateSecret("Verge", "two@x.test")
	require.NoError(t, err)

	at := time.Now()
	code, err := ComputeCode(a.Secret, at)
	require.NoError(t, err)

	require.True(t, VerifyCode(a.Secret, code, at))
	require.False(t, VerifyCode(b.Secret, code, at))
}
