package domain

import "time"

// User is an account record. TOTPSecret is nil until the user enrolls in
// two-factor step-up.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	TOTPSecret   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile holds the non-credential account details created lazily on
// registration.
type Profile struct {
	UserID      string
	PhoneNumber string
	Address     string
	Allergies   string
	CreatedAt   time.Time
}
