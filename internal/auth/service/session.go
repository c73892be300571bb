package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/plateful/auth/internal/auth/domain"
	"github.com/plateful/auth/internal/auth/store"
	"github.com/plateful/auth/pkg/cryptox"
	"github.com/plateful/auth/pkg/idx"
	"github.com/plateful/auth/pkg/jwtx"
	"github.com/plateful/auth/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrValidation         = errors.New("validation_failed")
	ErrUserExists         = errors.New("user_already_exists")
	ErrTokenInvalid       = errors.New("token_invalid")
	ErrTokenExpired       = errors.New("token_expired")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrVerificationFailed = errors.New("verification_failed")
)

const minPasswordLength = 8

// SessionService owns the session lifecycle: registration, login, refresh
// rotation, logout revocation, and tiered step-up.
type SessionService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RotateRefresh mints a new refresh token on every refresh and
	// blacklists the old one. Default configuration enables it.
	RotateRefresh bool

	// Verifiers maps step-up method names ("two_factor", "biometric") to
	// their verification implementations.
	Verifiers map[string]StepUpVerifier
}

// RegisterParams carries the registration request fields. Profile fields
// are optional.
type RegisterParams struct {
	Username    string
	Email       string
	Password    string
	PhoneNumber string
	Address     string
	Allergies   string

	UserAgent string
	IP        string
}

// LoginParams carries the login request. Identifier may be a username or
// an email address.
type LoginParams struct {
	Identifier string
	Password   string
	UserAgent  string
	IP         string
}

// StepUpParams carries a step-up verification attempt. UserID comes from
// the access token; RefreshToken is the session lineage being elevated.
type StepUpParams struct {
	UserID       string
	Method       string
	Code         string
	RefreshToken string
}

// Register creates the account, its profile, and the initial auth level
// row, then issues a level-1 token pair.
func (s *SessionService) Register(ctx context.Context, p RegisterParams) (domain.User, *domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	if p.Username == "" || p.Email == "" {
		return domain.User{}, nil, ErrValidation
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return domain.User{}, nil, ErrValidation
	}
	if len(p.Password) < minPasswordLength {
		return domain.User{}, nil, ErrValidation
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, nil, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrUserExists
			}
			return err
		}

		// Get-or-create keeps registration idempotent if a profile row
		// somehow already exists for this id.
		if _, err := tx.Profiles().GetProfile(ctx, user.ID); errors.Is(err, store.ErrNotFound) {
			if err := tx.Profiles().CreateProfile(ctx, domain.Profile{
				UserID:      user.ID,
				PhoneNumber: p.PhoneNumber,
				Address:     p.Address,
				Allergies:   p.Allergies,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		return tx.AuthLevels().InitAuthLevel(ctx, user.ID, now)
	})
	if err != nil {
		return domain.User{}, nil, err
	}

	pair, err := s.issuePair(user, newDeviceIdentity(p.UserAgent, p.IP), now.Unix(), domain.LevelPassword, now)
	if err != nil {
		return domain.User{}, nil, err
	}

	l.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, pair, nil
}

// Login verifies credentials and issues a fresh level-1 token pair. Any
// prior step-up state is reset: elevation never survives a new login.
func (s *SessionService) Login(ctx context.Context, p LoginParams) (domain.User, *domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	user, err := s.resolveUser(ctx, p.Identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, nil, ErrInvalidCredentials
		}
		return domain.User{}, nil, err
	}

	if err := cryptox.VerifyPassword(p.Password, user.PasswordHash); err != nil {
		l.Info("password verification failed", "user_id", user.ID)
		return domain.User{}, nil, ErrInvalidCredentials
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthLevels().InitAuthLevel(ctx, user.ID, now); err != nil {
			return err
		}
		return tx.AuthLevels().ResetAuthLevel(ctx, user.ID, now)
	})
	if err != nil {
		return domain.User{}, nil, err
	}

	pair, err := s.issuePair(user, newDeviceIdentity(p.UserAgent, p.IP), now.Unix(), domain.LevelPassword, now)
	if err != nil {
		return domain.User{}, nil, err
	}

	l.Info("user logged in", "user_id", user.ID)
	return user, pair, nil
}

// resolveUser maps an identifier to a user. Identifiers containing "@" try
// the email index first and silently fall back to a literal username
// lookup, so "a@b" usernames still work.
func (s *SessionService) resolveUser(ctx context.Context, identifier string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)

	if strings.Contains(identifier, "@") {
		user, err := s.Store.Users().GetUserByEmail(ctx, strings.ToLower(identifier))
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return domain.User{}, err
		}
	}

	return s.Store.Users().GetUserByUsername(ctx, identifier)
}

// Refresh validates a refresh token and mints a new access token. With
// rotation enabled the refresh token itself is replaced and the old jti
// blacklisted in the same transaction, so concurrent refreshes of the same
// token resolve to exactly one winner.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	claims, err := s.verifyRefreshClaims(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	identity := deviceIdentity{
		deviceID:    claims.DeviceID,
		ip:          claims.IP,
		fingerprint: claims.Fingerprint,
	}

	if !s.RotateRefresh {
		access, err := s.signAccess(user, claims.AuthLevel, now)
		if err != nil {
			return nil, err
		}
		// Caller keeps presenting the same refresh token.
		return &domain.TokenPair{
			AccessToken: access,
			TokenType:   "Bearer",
			ExpiresIn:   int64(s.AccessTTL.Seconds()),
			AuthLevel:   claims.AuthLevel,
		}, nil
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		created, err := tx.RevokedTokens().InsertRevokedToken(ctx, domain.RevokedToken{
			JTI:       claims.ID,
			UserID:    claims.UserID,
			ExpiresAt: claims.ExpiresAt.Time,
			RevokedAt: now,
		})
		if err != nil {
			return err
		}
		if !created {
			// Someone else rotated this token first.
			return ErrTokenRevoked
		}

		pair, err = s.issuePair(user, identity, claims.CreatedAt, claims.AuthLevel, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout blacklists the refresh token's jti. An undecodable or expired
// token is not an error: the session is equally dead either way.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	claims, err := s.verifyRefreshClaims(ctx, refreshToken)
	if err != nil {
		l.Info("logout with unusable refresh token", "err", err)
		return nil
	}

	_, err = s.Store.RevokedTokens().InsertRevokedToken(ctx, domain.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: now,
	})
	if err != nil {
		return err
	}

	l.Info("session revoked", "user_id", claims.UserID, "jti", claims.ID)
	return nil
}

// StepUp runs the requested verification method and, on success, advances
// the durable auth level and re-issues the pair at the elevated level.
// The previous refresh token is blacklisted in the same transaction.
func (s *SessionService) StepUp(ctx context.Context, p StepUpParams) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	claims, err := s.verifyRefreshClaims(ctx, p.RefreshToken)
	if err != nil {
		return nil, err
	}
	if claims.UserID != p.UserID {
		return nil, ErrTokenInvalid
	}

	var target int
	switch p.Method {
	case "two_factor":
		target = domain.LevelTwoFactor
	case "biometric":
		target = domain.LevelBiometric
	default:
		return nil, ErrValidation
	}

	verifier, ok := s.Verifiers[p.Method]
	if !ok {
		return nil, ErrValidation
	}

	user, err := s.Store.Users().GetUserByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if err := verifier.Verify(ctx, user, p.Code); err != nil {
		l.Info("step-up verification failed", "user_id", user.ID, "method", p.Method)
		return nil, ErrVerificationFailed
	}

	// Within a lineage the level only moves up.
	newLevel := max(claims.AuthLevel, target)

	identity := deviceIdentity{
		deviceID:    claims.DeviceID,
		ip:          claims.IP,
		fingerprint: claims.Fingerprint,
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AuthLevels().InitAuthLevel(ctx, user.ID, now); err != nil {
			return err
		}
		if err := tx.AuthLevels().AdvanceAuthLevel(ctx, user.ID, target, now); err != nil {
			return err
		}

		created, err := tx.RevokedTokens().InsertRevokedToken(ctx, domain.RevokedToken{
			JTI:       claims.ID,
			UserID:    claims.UserID,
			ExpiresAt: claims.ExpiresAt.Time,
			RevokedAt: now,
		})
		if err != nil {
			return err
		}
		if !created {
			return ErrTokenRevoked
		}

		pair, err = s.issuePair(user, identity, claims.CreatedAt, newLevel, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.Info("auth level elevated", "user_id", user.ID, "method", p.Method, "level", newLevel)
	return pair, nil
}

// UserInfo returns the user record plus the durable auth level state.
func (s *SessionService) UserInfo(ctx context.Context, userID string) (domain.User, domain.AuthLevel, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.AuthLevel{}, ErrTokenInvalid
		}
		return domain.User{}, domain.AuthLevel{}, err
	}

	level, err := s.Store.AuthLevels().GetAuthLevel(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		level = domain.AuthLevel{UserID: userID, CurrentLevel: domain.LevelPassword}
	} else if err != nil {
		return domain.User{}, domain.AuthLevel{}, err
	}

	return user, level, nil
}

// verifyRefreshClaims parses a refresh token and folds the jwtx sentinels
// plus the blacklist check into the service error taxonomy.
func (s *SessionService) verifyRefreshClaims(ctx context.Context, refreshToken string) (jwtx.RefreshClaims, error) {
	if refreshToken == "" {
		return jwtx.RefreshClaims{}, ErrTokenInvalid
	}

	claims, err := s.KeyManager.Verifier.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return jwtx.RefreshClaims{}, ErrTokenExpired
		}
		return jwtx.RefreshClaims{}, ErrTokenInvalid
	}

	revoked, err := s.Store.RevokedTokens().IsRevoked(ctx, claims.ID)
	if err != nil {
		return jwtx.RefreshClaims{}, err
	}
	if revoked {
		return jwtx.RefreshClaims{}, ErrTokenRevoked
	}

	return claims, nil
}

// deviceIdentity is the client binding carried in refresh claims.
type deviceIdentity struct {
	deviceID    string
	ip          string
	fingerprint string
}

// newDeviceIdentity derives a fresh per-login device identity. The random
// salt makes the device id unique per login event; a durable device
// identity would need a client-provided installation id instead.
func newDeviceIdentity(userAgent, ip string) deviceIdentity {
	deviceID := cryptox.DeviceID(userAgent, cryptox.MustGenerateToken(cryptox.TokenSize128))
	return deviceIdentity{
		deviceID:    deviceID,
		ip:          ip,
		fingerprint: cryptox.ClientFingerprint(ip, deviceID),
	}
}

// issuePair signs an access/refresh pair at the given level. createdAt is
// the lineage origin (unix seconds) and survives rotation unchanged.
func (s *SessionService) issuePair(u domain.User, id deviceIdentity, createdAt int64, authLevel int, now time.Time) (*domain.TokenPair, error) {
	access, err := s.signAccess(u, authLevel, now)
	if err != nil {
		return nil, err
	}

	refreshClaims := jwtx.NewRefreshClaims(
		u.ID, u.Username,
		id.deviceID, id.ip, id.fingerprint,
		createdAt, authLevel,
		s.Issuer, s.Audience, s.RefreshTTL, now,
	)

	refresh, err := s.KeyManager.GetSigner().Sign(refreshClaims)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
		AuthLevel:    authLevel,
	}, nil
}

func (s *SessionService) signAccess(u domain.User, authLevel int, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(
		u.ID, u.Username, authLevel,
		s.Issuer, s.Audience, s.AccessTTL, now,
	)
	return s.KeyManager.GetSigner().Sign(claims)
}
