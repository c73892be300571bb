package domain

import "time"

// Authentication tiers. A session starts at password level and can only
// move up within its lineage.
const (
	LevelPassword  = 1
	LevelTwoFactor = 2
	LevelBiometric = 3
)

// AuthLevel is the durable per-user verification state. It records the
// highest tier proven and which step-up methods have been completed.
type AuthLevel struct {
	UserID            string
	CurrentLevel      int
	TwoFactorVerified bool
	BiometricVerified bool
	LastVerification  *time.Time
	UpdatedAt         time.Time
}
