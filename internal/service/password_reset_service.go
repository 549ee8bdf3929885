package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"thoub/internal/model"
	"thoub/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenBytes = 32 // 256 bits of entropy
	resetTokenTTL   = time.Hour
)

// PasswordResetService issues and redeems single-use reset tokens.
// Request never reveals whether an account exists.
type PasswordResetService interface {
	Request(ctx context.Context, email string) error
	Redeem(ctx context.Context, token, newPassword string) error
	// Verify reports whether a token is currently redeemable and for
	// which email, without consuming it.
	Verify(ctx context.Context, token string) (valid bool, email string)
}

type passwordResetService struct {
	tokenRepo repository.ResetTokenRepository
	userRepo  repository.UserRepository
	email     EmailSender
	logger    zerolog.Logger
}

func NewPasswordResetService(
	tokenRepo repository.ResetTokenRepository,
	userRepo repository.UserRepository,
	email EmailSender,
	logger zerolog.Logger,
) PasswordResetService {
	return &passwordResetService{
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		email:     email,
		logger:    logger.With().Str("service", "PasswordResetService").Logger(),
	}
}

func (s *passwordResetService) Request(ctx context.Context, email string) error {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		// Log and swallow: the response must not distinguish failures
		// from unknown addresses.
		s.logger.Error().Err(err).Msg("Failed to look up user for password reset")
		return nil
	}
	if user == nil {
		return nil
	}

	token, err := randomToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate reset token")
		return nil
	}
	t := &model.PasswordResetToken{
		Token:     token,
		Email:     email,
		ExpiresAt: time.Now().UTC().Add(resetTokenTTL),
	}
	if err := s.tokenRepo.Replace(ctx, t); err != nil {
		s.logger.Error().Err(err).Msg("Failed to store reset token")
		return nil
	}
	if err := s.email.SendPasswordReset(ctx, email, token); err != nil {
		s.logger.Error().Err(err).Msg("Failed to send reset email")
	}
	return nil
}

func (s *passwordResetService) Redeem(ctx context.Context, token, newPassword string) error {
	t, err := s.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to look up reset token")
		return err
	}
	if t == nil {
		return ErrInvalidToken
	}
	if t.ExpiresAt.Before(time.Now().UTC()) {
		if err := s.tokenRepo.Delete(ctx, token); err != nil {
			s.logger.Error().Err(err).Msg("Failed to delete expired reset token")
		}
		return ErrTokenExpired
	}
	// The token survives a weak-password attempt so the user can retry.
	if len(newPassword) < minPasswordLen {
		return ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing new password: %w", err)
	}
	if err := s.userRepo.UpdatePasswordByEmail(ctx, t.Email, string(hash)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to update password")
		return err
	}
	if err := s.tokenRepo.Delete(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete redeemed reset token")
	}
	s.logger.Info().Msg("Password reset completed")
	return nil
}

func (s *passwordResetService) Verify(ctx context.Context, token string) (bool, string) {
	t, err := s.tokenRepo.GetByToken(ctx, token)
	if err != nil || t == nil || t.ExpiresAt.Before(time.Now().UTC()) {
		return false, ""
	}
	return true, t.Email
}

func randomToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
