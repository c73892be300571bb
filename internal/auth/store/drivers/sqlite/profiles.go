package sqlite

import (
	"context"

	"github.com/plateful/auth/internal/auth/domain"
)

type profilesRepo struct {
	db dbtx
}

func (r *profilesRepo) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, phone_number, address, allergies, created_at
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.PhoneNumber, &p.Address, &p.Allergies, &p.CreatedAt)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return p, nil
}

func (r *profilesRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, phone_number, address, allergies, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.PhoneNumber, p.Address, p.Allergies, p.CreatedAt,
	)
	return mapConstraint(err)
}
