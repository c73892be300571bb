package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/plateful/auth/internal/auth/domain"
	"github.com/plateful/auth/internal/auth/store"
	"github.com/plateful/auth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestUser() domain.User {
	now := time.Now().UTC()
	id := idx.New().String()
	return domain.User{
		ID:           id,
		Username:     "user-" + id[:8],
		Email:        "user-" + id[:8] + "@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUsersRepo(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	t.Run("create and fetch by id, username, email", func(t *testing.T) {
		user := newTestUser()
		require.NoError(t, st.Users().CreateUser(ctx, user))

		byID, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, user.Username, byID.Username)
		require.Nil(t, byID.TOTPSecret)

		byName, err := st.Users().GetUserByUsername(ctx, user.Username)
		require.NoError(t, err)
		require.Equal(t, user.ID, byName.ID)

		byEmail, err := st.Users().GetUserByEmail(ctx, user.Email)
		require.NoError(t, err)
		require.Equal(t, user.ID, byEmail.ID)
	})

	t.Run("missing user returns ErrNotFound", func(t *testing.T) {
		_, err := st.Users().GetUserByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username returns ErrAlreadyExists", func(t *testing.T) {
		user := newTestUser()
		require.NoError(t, st.Users().CreateUser(ctx, user))

		dup := newTestUser()
		dup.Username = user.Username
		require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

		dup2 := newTestUser()
		dup2.Email = user.Email
		require.ErrorIs(t, st.Users().CreateUser(ctx, dup2), store.ErrAlreadyExists)
	})

	t.Run("update TOTP secret", func(t *testing.T) {
		user := newTestUser()
		require.NoError(t, st.Users().CreateUser(ctx, user))

		require.NoError(t, st.Users().UpdateTOTPSecret(ctx, user.ID, "JBSWY3DPEHPK3PXP"))

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TOTPSecret)
		require.Equal(t, "JBSWY3DPEHPK3PXP", *got.TOTPSecret)
	})

	t.Run("update password hash", func(t *testing.T) {
		user := newTestUser()
		require.NoError(t, st.Users().CreateUser(ctx, user))

		require.NoError(t, st.Users().UpdatePasswordHash(ctx, user.ID, "new-hash"))

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)
	})
}

func TestProfilesRepo(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, user))

	_, err := st.Profiles().GetProfile(ctx, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	profile := domain.Profile{
		UserID:      user.ID,
		PhoneNumber: "+61400000000",
		Address:     "1 Example St",
		Allergies:   "peanuts",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.Profiles().CreateProfile(ctx, profile))

	got, err := st.Profiles().GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, profile.PhoneNumber, got.PhoneNumber)
	require.Equal(t, profile.Allergies, got.Allergies)
}

func TestAuthLevelsRepo(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, user))

	t.Run("init creates at password level", func(t *testing.T) {
		require.NoError(t, st.AuthLevels().InitAuthLevel(ctx, user.ID, now))

		level, err := st.AuthLevels().GetAuthLevel(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, domain.LevelPassword, level.CurrentLevel)
		require.False(t, level.TwoFactorVerified)
		require.False(t, level.BiometricVerified)
	})

	t.Run("init is a no-op when the row exists", func(t *testing.T) {
		require.NoError(t, st.AuthLevels().AdvanceAuthLevel(ctx, user.ID, domain.LevelTwoFactor, now))
		require.NoError(t, st.AuthLevels().InitAuthLevel(ctx, user.ID, now))

		level, err := st.AuthLevels().GetAuthLevel(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, domain.LevelTwoFactor, level.CurrentLevel, "init must not clobber an advanced level")
	})

	t.Run("advance never lowers the level", func(t *testing.T) {
		require.NoError(t, st.AuthLevels().AdvanceAuthLevel(ctx, user.ID, domain.LevelBiometric, now))
		require.NoError(t, st.AuthLevels().AdvanceAuthLevel(ctx, user.ID, domain.LevelPassword, now))

		level, err := st.AuthLevels().GetAuthLevel(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, domain.LevelBiometric, level.CurrentLevel)
		require.True(t, level.TwoFactorVerified)
		require.True(t, level.BiometricVerified)
	})

	t.Run("reset drops back to password level", func(t *testing.T) {
		require.NoError(t, st.AuthLevels().ResetAuthLevel(ctx, user.ID, now))

		level, err := st.AuthLevels().GetAuthLevel(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, domain.LevelPassword, level.CurrentLevel)
	})
}

func TestRevokedTokensRepo(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := newTestUser()
	require.NoError(t, st.Users().CreateUser(ctx, user))

	t.Run("first insert wins, second reports already revoked", func(t *testing.T) {
		token := domain.RevokedToken{
			JTI:       idx.New().String(),
			UserID:    user.ID,
			ExpiresAt: now.Add(time.Hour),
			RevokedAt: now,
		}

		created, err := st.RevokedTokens().InsertRevokedToken(ctx, token)
		require.NoError(t, err)
		require.True(t, created)

		created, err = st.RevokedTokens().InsertRevokedToken(ctx, token)
		require.NoError(t, err)
		require.False(t, created, "replayed jti must not count as a fresh revocation")
	})

	t.Run("IsRevoked", func(t *testing.T) {
		jti := idx.New().String()

		revoked, err := st.RevokedTokens().IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.False(t, revoked)

		_, err = st.RevokedTokens().InsertRevokedToken(ctx, domain.RevokedToken{
			JTI: jti, UserID: user.ID, ExpiresAt: now.Add(time.Hour), RevokedAt: now,
		})
		require.NoError(t, err)

		revoked, err = st.RevokedTokens().IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.True(t, revoked)
	})

	t.Run("sweep removes only expired entries", func(t *testing.T) {
		expired := domain.RevokedToken{JTI: idx.New().String(), UserID: user.ID, ExpiresAt: now.Add(-time.Minute), RevokedAt: now.Add(-time.Hour)}
		live := domain.RevokedToken{JTI: idx.New().String(), UserID: user.ID, ExpiresAt: now.Add(time.Hour), RevokedAt: now}

		_, err := st.RevokedTokens().InsertRevokedToken(ctx, expired)
		require.NoError(t, err)
		_, err = st.RevokedTokens().InsertRevokedToken(ctx, live)
		require.NoError(t, err)

		deleted, err := st.RevokedTokens().DeleteExpiredRevokedTokens(ctx, now)
		require.NoError(t, err)
		require.GreaterOrEqual(t, deleted, int64(1))

		revoked, err := st.RevokedTokens().IsRevoked(ctx, live.JTI)
		require.NoError(t, err)
		require.True(t, revoked, "unexpired revocations must survive the sweep")

		revoked, err = st.RevokedTokens().IsRevoked(ctx, expired.JTI)
		require.NoError(t, err)
		require.False(t, revoked)
	})
}

func TestWithTx(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	t.Run("commit on success", func(t *testing.T) {
		user := newTestUser()
		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().CreateUser(ctx, user)
		})
		require.NoError(t, err)

		_, err = st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		user := newTestUser()
		sentinel := context.Canceled // any error will do

		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Users().CreateUser(ctx, user); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		_, err = st.Users().GetUserByID(ctx, user.ID)
		require.ErrorIs(t, err, store.ErrNotFound, "failed tx must leave no trace")
	})
}
