package dto

// RegisterDTO is used for incoming registration requests
type RegisterDTO struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginDTO is used for incoming login requests
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponseDTO is returned after a successful register or login
type AuthResponseDTO struct {
	Token string          `json:"token,omitempty"`
	User  UserResponseDTO `json:"user"`
}

// PasswordResetRequestDTO asks for a reset email
type PasswordResetRequestDTO struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetRedeemDTO consumes a reset token
type PasswordResetRedeemDTO struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// PasswordResetVerifyResponseDTO reports whether a token is redeemable
type PasswordResetVerifyResponseDTO struct {
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
}
