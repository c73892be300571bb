package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/plateful/auth/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password_hash, totp_secret, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, totp_secret, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, mapOptionalString(u.TOTPSecret),
		u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateTOTPSecret(ctx context.Context, userID, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), userID,
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u      domain.User
		secret sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &secret, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.TOTPSecret = mapNullStringPtr(secret)
	return u, nil
}
