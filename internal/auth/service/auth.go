package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vergehq/verge/internal/auth/domain"
	"github.com/vergehq/verge/internal/auth/store"
	"github.com/vergehq/verge/pkg/cryptox"
	"github.com/vergehq/verge/pkg/idx"
	"github.com/vergehq/verge/pkg/jwtx"
	"github.com/vergehq/verge/pkg/slogx"
	"github.com/vergehq/verge/pkg/totpx"
)

var (
	// ErrEmailTaken reports a duplicate normalized email at signup.
	ErrEmailTaken = errors.New("email_taken")

	// ErrInvalidCredentials covers unknown emails and wrong passwords
	// alike; callers must not be able to tell which one failed.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidChallengeToken covers malformed, tampered, and expired
	// challenge tokens uniformly.
	ErrInvalidChallengeToken = errors.New("invalid_challenge_token")

	// ErrNotChallengeToken rejects access or refresh tokens replayed
	// into the two-factor verification step.
	ErrNotChallengeToken = errors.New("not_a_challenge_token")

	// ErrTwoFactorNotConfigured is returned when the challenge subject no
	// longer exists or carries no TOTP secret.
	ErrTwoFactorNotConfigured = errors.New("two_factor_not_configured")

	// ErrInvalidTOTPCode is returned when no step in the tolerance window
	// matches the supplied code.
	ErrInvalidTOTPCode = errors.New("invalid_totp_code")

	// ErrInvalidRefreshToken covers every refresh grant failure,
	// including access tokens replayed into the refresh endpoint.
	ErrInvalidRefreshToken = errors.New("invalid_refresh_token")
)

// AuthService orchestrates signup, credential sign-in, and two-factor
// verification. It owns no state of its own; the credential store is the
// only shared mutable resource.
type AuthService struct {
	Store store.Store

	// AccessKey signs the 2FA challenge and access tokens; RefreshKey
	// signs refresh tokens. The two are deliberately independent secrets.
	AccessKey  *jwtx.Key
	RefreshKey *jwtx.Key

	// Issuer is stamped into every token's iss claim and must match the
	// issuer the keys verify against.
	Issuer string

	// Product labels TOTP provisioning URIs in authenticator apps.
	Product string

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

// SignUpParams carries the signup request fields. Address parts and
// phone are optional.
type SignUpParams struct {
	FirmName  string
	Address   *string
	City      *string
	State     *string
	Zip       *string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     *string
}

// SignUp validates the request, creates a firm and its first (admin)
// user atomically, and returns the one-time TOTP enrollment payload. The
// unique email index is the authoritative duplicate guard; the lookup
// beforehand only makes the common case fail before hashing work.
func (s *AuthService) SignUp(ctx context.Context, p SignUpParams) (domain.SignUpResult, error) {
	if err := validateSignUp(p); err != nil {
		return domain.SignUpResult{}, err
	}

	email := normalizeEmail(p.Email)

	_, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.SignUpResult{}, ErrEmailTaken
	case !errors.Is(err, store.ErrNotFound):
		return domain.SignUpResult{}, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.SignUpResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	enrollment, err := totpx.GenerateSecret(s.Product, email)
	if err != nil {
		return domain.SignUpResult{}, err
	}

	secret := enrollment.Secret
	firm := domain.Firm{
		ID:       idx.New().String(),
		Name:     p.FirmName,
		Address:  p.Address,
		City:     p.City,
		State:    p.State,
		Zip:      p.Zip,
		PlanTier: domain.PlanTierFree,
	}
	user := domain.User{
		ID:              idx.New().String(),
		FirmID:          firm.ID,
		Email:           email,
		PasswordHash:    passwordHash,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Phone:           p.Phone,
		Role:            domain.RoleAdmin,
		TwoFactorSecret: &secret,
		TwoFactorStatus: domain.TwoFactorPending,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Firms().CreateFirm(ctx, firm); err != nil {
			return fmt.Errorf("failed to create firm: %w", err)
		}
		return tx.Users().CreateUser(ctx, user)
	})
	if err != nil {
		// A racing signup with the same email lost to the unique index
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.SignUpResult{}, ErrEmailTaken
		}
		return domain.SignUpResult{}, err
	}

	slogx.FromContext(ctx).Info("firm signed up",
		"firm_id", firm.ID,
		"user_id", user.ID,
	)

	return domain.SignUpResult{
		Firm: domain.FirmSummary{ID: firm.ID, Name: firm.Name},
		User: domain.UserSummary{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Phone:     user.Phone,
			Role:      user.Role,
		},
		TwoFactorEnrollment: domain.TwoFactorEnrollment{
			Type:            "totp",
			Secret:          enrollment.Secret,
			ProvisioningURI: enrollment.ProvisioningURI,
		},
	}, nil
}

// SignIn checks the credentials and, on success, opens a pending
// two-factor challenge. It never issues access or refresh tokens
// directly; two-factor verification is mandatory for every account.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (domain.ChallengeResult, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ChallengeResult{}, ErrInvalidCredentials
		}
		return domain.ChallengeResult{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("password verification failed", "user_id", user.ID)
		return domain.ChallengeResult{}, ErrInvalidCredentials
	}

	firm, err := s.Store.Firms().GetFirmByID(ctx, user.FirmID)
	if err != nil {
		return domain.ChallengeResult{}, fmt.Errorf("failed to load firm: %w", err)
	}

	claims := jwtx.NewClaims(
		user.ID,
		user.FirmID,
		jwtx.PurposeChallenge,
		s.issuer(),
		jwtx.ChallengeTokenTTL,
		s.now(),
	)
	tempToken, err := s.AccessKey.Sign(claims)
	if err != nil {
		return domain.ChallengeResult{}, fmt.Errorf("failed to sign challenge token: %w", err)
	}

	return domain.ChallengeResult{
		TwoFactorRequired: true,
		TempToken:         tempToken,
		User:              sessionUserSummary(user),
		Firm:              sessionFirmSummary(firm),
	}, nil
}

// VerifyTwoFactor redeems a pending challenge token with a TOTP code and
// issues the access/refresh token pair. The first successful
// verification flips the user's two-factor status to verified; repeat
// verifications succeed without writing again.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, tempToken, code string) (domain.SessionResult, error) {
	claims, err := s.AccessKey.Verify(tempToken)
	if err != nil {
		return domain.SessionResult{}, ErrInvalidChallengeToken
	}
	if claims.Purpose != jwtx.PurposeChallenge {
		return domain.SessionResult{}, ErrNotChallengeToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SessionResult{}, ErrTwoFactorNotConfigured
		}
		return domain.SessionResult{}, err
	}
	if user.TwoFactorSecret == nil || *user.TwoFactorSecret == "" {
		return domain.SessionResult{}, ErrTwoFactorNotConfigured
	}

	if !totpx.VerifyCode(*user.TwoFactorSecret, code, s.now()) {
		slogx.FromContext(ctx).Info("TOTP verification failed", "user_id", user.ID)
		return domain.SessionResult{}, ErrInvalidTOTPCode
	}

	if user.TwoFactorStatus != domain.TwoFactorVerified {
		err := s.Store.Users().UpdateTwoFactorStatus(ctx, user.ID, domain.TwoFactorVerified)
		if err != nil {
			return domain.SessionResult{}, fmt.Errorf("failed to update two-factor status: %w", err)
		}
		user.TwoFactorStatus = domain.TwoFactorVerified
	}

	return s.openSession(ctx, user)
}

// Refresh redeems a refresh token for a fresh access/refresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.SessionResult, error) {
	claims, err := s.RefreshKey.Verify(refreshToken)
	if err != nil {
		return domain.SessionResult{}, ErrInvalidRefreshToken
	}
	if claims.Purpose != jwtx.PurposeRefresh {
		return domain.SessionResult{}, ErrInvalidRefreshToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SessionResult{}, ErrInvalidRefreshToken
		}
		return domain.SessionResult{}, err
	}

	return s.openSession(ctx, user)
}

// openSession loads the user's firm and mints the access/refresh pair.
func (s *AuthService) openSession(ctx context.Context, user domain.User) (domain.SessionResult, error) {
	firm, err := s.Store.Firms().GetFirmByID(ctx, user.FirmID)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("failed to load firm: %w", err)
	}

	now := s.now()

	accessToken, err := s.AccessKey.Sign(
		jwtx.NewClaims(user.ID, user.FirmID, "", s.issuer(), jwtx.AccessTokenTTL, now),
	)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.RefreshKey.Sign(
		jwtx.NewClaims(user.ID, user.FirmID, jwtx.PurposeRefresh, s.issuer(), jwtx.RefreshTokenTTL, now),
	)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return domain.SessionResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         sessionUserSummary(user),
		Firm:         sessionFirmSummary(firm),
	}, nil
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) issuer() string {
	return s.Issuer
}

func sessionUserSummary(u domain.User) domain.UserSummary {
	return domain.UserSummary{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		TwoFactorStatus: u.TwoFactorStatus,
	}
}

func sessionFirmSummary(f domain.Firm) domain.FirmSummary {
	return domain.FirmSummary{
		ID:       f.ID,
		Name:     f.Name,
		PlanTier: f.PlanTier,
	}
}
