package store

import (
	"context"
	"errors"
	"time"

	"github.com/plateful/auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns separated and make the
// transaction boundary explicit.
type Store interface {
	Users() Users
	Profiles() Profiles
	AuthLevels() AuthLevels
	RevokedTokens() RevokedTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn errors,
	// committed otherwise. Preferred over Tx for multi-step mutations like
	// rotation or step-up.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store: same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is the login-path lookup.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail supports email-as-identifier login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists on a username or email collision.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateTOTPSecret stores the two-factor secret and bumps updated_at.
	UpdateTOTPSecret(ctx context.Context, userID, secret string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

type Profiles interface {
	// GetProfile returns the profile for a user, ErrNotFound when missing.
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)

	// CreateProfile inserts a profile row. Used with GetProfile for
	// get-or-create semantics during registration.
	CreateProfile(ctx context.Context, p domain.Profile) error
}

type AuthLevels interface {
	// GetAuthLevel returns the verification state for a user.
	GetAuthLevel(ctx context.Context, userID string) (domain.AuthLevel, error)

	// InitAuthLevel lazily creates the row at password level. A no-op when
	// the row already exists.
	InitAuthLevel(ctx context.Context, userID string, at time.Time) error

	// ResetAuthLevel drops the user back to password level on fresh login.
	ResetAuthLevel(ctx context.Context, userID string, at time.Time) error

	// AdvanceAuthLevel raises current_level to max(current, level) and marks
	// the method flag for the tier reached. Never lowers the level.
	AdvanceAuthLevel(ctx context.Context, userID string, level int, at time.Time) error
}

type RevokedTokens interface {
	// InsertRevokedToken blacklists a jti. Returns created=false when the
	// jti was already blacklisted, which lets concurrent rotations resolve
	// to exactly one winner.
	InsertRevokedToken(ctx context.Context, t domain.RevokedToken) (created bool, err error)

	// IsRevoked reports whether a jti is on the blacklist.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpiredRevokedTokens sweeps entries whose token has passed its
	// natural expiry. Housekeeping only.
	DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}
