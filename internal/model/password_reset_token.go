package model

import "time"

// PasswordResetToken is a single-use, time-limited reset credential.
// At most one live token exists per email.
type PasswordResetToken struct {
	Token     string    `db:"token" json:"-"`
	Email     string    `db:"email" json:"email"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}
