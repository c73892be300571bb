package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/plateful/auth/internal/auth/domain"
)

type authLevelsRepo struct {
	db dbtx
}

func (r *authLevelsRepo) GetAuthLevel(ctx context.Context, userID string) (domain.AuthLevel, error) {
	var (
		al           domain.AuthLevel
		lastVerified sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, current_level, two_factor_verified, biometric_verified, last_verification, updated_at
		 FROM auth_levels WHERE user_id = ?`, userID,
	).Scan(&al.UserID, &al.CurrentLevel, &al.TwoFactorVerified, &al.BiometricVerified, &lastVerified, &al.UpdatedAt)
	if err != nil {
		return domain.AuthLevel{}, mapNotFound(err)
	}
	al.LastVerification = mapNullTimePtr(lastVerified)
	return al, nil
}

func (r *authLevelsRepo) InitAuthLevel(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO auth_levels (user_id, current_level, two_factor_verified, biometric_verified, updated_at)
		 VALUES (?, ?, 0, 0, ?)`,
		userID, domain.LevelPassword, at,
	)
	return err
}

func (r *authLevelsRepo) ResetAuthLevel(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_levels
		 SET current_level = ?, two_factor_verified = 0, biometric_verified = 0, updated_at = ?
		 WHERE user_id = ?`,
		domain.LevelPassword, at, userID,
	)
	return err
}

// AdvanceAuthLevel only ever raises the level: MAX keeps the invariant in
// the database even under concurrent step-ups.
func (r *authLevelsRepo) AdvanceAuthLevel(ctx context.Context, userID string, level int, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_levels
		 SET current_level = MAX(current_level, ?),
		     two_factor_verified = CASE WHEN ? >= 2 THEN 1 ELSE two_factor_verified END,
		     biometric_verified = CASE WHEN ? >= 3 THEN 1 ELSE biometric_verified END,
		     last_verification = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		level, level, level, at, at, userID,
	)
	return err
}
