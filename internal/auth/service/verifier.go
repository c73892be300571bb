package service

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/pquerna/otp/totp"

	"github.com/plateful/auth/internal/auth/domain"
	"github.com/plateful/auth/internal/auth/store"
)

// StepUpVerifier checks one verification method for a user. Verification
// failure is an error; the service maps it to ErrVerificationFailed.
type StepUpVerifier interface {
	Verify(ctx context.Context, user domain.User, code string) error
}

// TOTPVerifier validates time-based one-time codes against the user's
// enrolled secret.
type TOTPVerifier struct{}

func (TOTPVerifier) Verify(_ context.Context, user domain.User, code string) error {
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return errors.New("totp not enrolled")
	}
	if !totp.Validate(code, *user.TOTPSecret) {
		return errors.New("invalid totp code")
	}
	return nil
}

// BiometricVerifier delegates to an injected check. In production the check
// calls out to the platform attestation provider; the default compares the
// assertion against a pre-shared credential in constant time.
type BiometricVerifier struct {
	Check func(ctx context.Context, user domain.User, assertion string) error
}

func (v BiometricVerifier) Verify(ctx context.Context, user domain.User, assertion string) error {
	if v.Check == nil {
		return errors.New("biometric verification not configured")
	}
	return v.Check(ctx, user, assertion)
}

// StaticAssertionCheck builds a biometric check that accepts a single
// pre-shared assertion value. Useful for tests and single-tenant setups.
func StaticAssertionCheck(expected string) func(context.Context, domain.User, string) error {
	return func(_ context.Context, _ domain.User, assertion string) error {
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(assertion)) != 1 {
			return errors.New("invalid biometric assertion")
		}
		return nil
	}
}

// EnrollTOTP generates and stores a TOTP secret for the user, returning
// the otpauth provisioning URL for the authenticator app.
func (s *SessionService) EnrollTOTP(ctx context.Context, userID string) (string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrTokenInvalid
		}
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
	})
	if err != nil {
		return "", err
	}

	if err := s.Store.Users().UpdateTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return "", err
	}

	return key.URL(), nil
}
