package service

import (
	"context"
	"fmt"
	"time"

	"thoub/internal/model"
	"thoub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost     = 12
	minPasswordLen = 8
	sessionTTL     = 24 * time.Hour
)

// AuthService handles registration and credential login. Tokens are
// HS256 JWTs with the user id as subject.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (token string, user *model.User, err error)
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	logger    zerolog.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, logger zerolog.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("service", "AuthService").Logger(),
	}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to check for existing user")
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	hashStr := string(hash)
	u := &model.User{
		ID:                 uuid.NewString(),
		Email:              email,
		Name:               name,
		PasswordHash:       &hashStr,
		MeasurementCredits: StarterMeasurementCredits,
		GenerationCredits:  StarterGenerationCredits,
	}
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID).Msg("User registered")
	return u, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch user for login")
		return "", nil, err
	}
	if u == nil || u.PasswordHash == nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(sessionTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, fmt.Errorf("signing session token: %w", err)
	}
	return token, u, nil
}
