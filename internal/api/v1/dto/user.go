package dto

import "time"

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	MeasurementCredits int       `json:"measurement_credits"`
	GenerationCredits  int       `json:"generation_credits"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreditBalanceResponseDTO is returned from the credits endpoint
type CreditBalanceResponseDTO struct {
	MeasurementCredits int `json:"measurement_credits"`
	GenerationCredits  int `json:"generation_credits"`
}

// AvatarResponseDTO is returned after an avatar upload
type AvatarResponseDTO struct {
	AvatarURL string `json:"avatar_url"`
}
