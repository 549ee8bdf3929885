package model

import "time"

// User represents an account. PasswordHash is nil for accounts created
// through an external identity provider.
type User struct {
	ID                 string    `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	Name               string    `db:"name" json:"name"`
	PasswordHash       *string   `db:"password_hash" json:"-"`
	ProfileImageKey    *string   `db:"profile_image_key" json:"profile_image_key,omitempty"`
	MeasurementCredits int       `db:"measurement_credits" json:"measurement_credits"`
	GenerationCredits  int       `db:"generation_credits" json:"generation_credits"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// CreditBalance is the pair of per-user credit counters.
type CreditBalance struct {
	Measurement int `json:"measurement_credits"`
	Generation  int `json:"generation_credits"`
}
