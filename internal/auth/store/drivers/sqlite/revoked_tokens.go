package sqlite

import (
	"context"
	"time"

	"github.com/plateful/auth/internal/auth/domain"
)

type revokedTokensRepo struct {
	db dbtx
}

// InsertRevokedToken uses INSERT OR IGNORE so the rows-affected count tells
// us whether this caller won the race to blacklist the jti.
func (r *revokedTokensRepo) InsertRevokedToken(ctx context.Context, t domain.RevokedToken) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, user_id, expires_at, revoked_at)
		 VALUES (?, ?, ?, ?)`,
		t.JTI, t.UserID, t.ExpiresAt, t.RevokedAt,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *revokedTokensRepo) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
