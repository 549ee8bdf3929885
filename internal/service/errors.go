package service

import (
	"errors"

	"thoub/internal/repository"
)

// Re-exported so handlers can branch on credit exhaustion without
// reaching into the repository layer.
var (
	ErrInsufficientMeasurementCredits = repository.ErrInsufficientMeasurementCredits
	ErrInsufficientGenerationCredits  = repository.ErrInsufficientGenerationCredits
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired reset link")
	ErrTokenExpired       = errors.New("reset link has expired")
	ErrNoItems            = errors.New("no items in order")
	ErrInvalidItems       = errors.New("invalid measurements detected")
)
