package service

import (
	"context"

	"thoub/internal/model"
	"thoub/internal/repository"

	"github.com/rs/zerolog"
)

// Credit pack contents for one top-up purchase.
const (
	TopUpMeasurementCredits = 2
	TopUpGenerationCredits  = 10
)

// Starter credits granted at registration.
const (
	StarterMeasurementCredits = 1
	StarterGenerationCredits  = 3
)

// CreditService exposes the per-user credit balances. Spending and
// topping up happen inside repository transactions, so reads are all
// the handlers need from here.
type CreditService interface {
	GetBalance(ctx context.Context, userID string) (*model.CreditBalance, error)
}

type creditService struct {
	repo   repository.CreditRepository
	logger zerolog.Logger
}

func NewCreditService(repo repository.CreditRepository, logger zerolog.Logger) CreditService {
	return &creditService{
		repo:   repo,
		logger: logger.With().Str("service", "CreditService").Logger(),
	}
}

func (s *creditService) GetBalance(ctx context.Context, userID string) (*model.CreditBalance, error) {
	b, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch credit balance")
		return nil, err
	}
	if b == nil {
		return nil, ErrUserNotFound
	}
	return b, nil
}
