package service

import (
	"context"
	"errors"

	"thoub/internal/model"
	"thoub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GenerationService runs the try-on flow with the same ordering
// discipline as MeasurementService: balance check, vision call, then
// one transaction persisting the row and spending the credit.
type GenerationService interface {
	Generate(ctx context.Context, userID, measurementID, profileImageID string, cfg model.StyleConfig) (*model.Generation, error)
	Get(ctx context.Context, userID, generationID string) (*model.Generation, error)
	List(ctx context.Context, userID string) ([]model.Generation, error)
	Delete(ctx context.Context, userID, generationID string) error
}

type generationService struct {
	repo            repository.GenerationRepository
	measurementRepo repository.MeasurementRepository
	creditRepo      repository.CreditRepository
	vision          VisionClient
	logger          zerolog.Logger
}

func NewGenerationService(
	repo repository.GenerationRepository,
	measurementRepo repository.MeasurementRepository,
	creditRepo repository.CreditRepository,
	vision VisionClient,
	logger zerolog.Logger,
) GenerationService {
	return &generationService{
		repo:            repo,
		measurementRepo: measurementRepo,
		creditRepo:      creditRepo,
		vision:          vision,
		logger:          logger.With().Str("service", "GenerationService").Logger(),
	}
}

func (s *generationService) Generate(ctx context.Context, userID, measurementID, profileImageID string, cfg model.StyleConfig) (*model.Generation, error) {
	m, err := s.measurementRepo.GetByID(ctx, measurementID)
	if err != nil {
		s.logger.Error().Err(err).Str("measurement_id", measurementID).Msg("Failed to fetch measurement for generation")
		return nil, err
	}
	if m == nil || m.UserID != userID {
		return nil, ErrNotFound
	}

	balance, err := s.creditRepo.GetBalance(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch balance for generation")
		return nil, err
	}
	if balance == nil {
		return nil, ErrUserNotFound
	}
	// Fail before the expensive vision call; the conditional decrement
	// inside CreateWithCredit remains the authoritative check.
	if balance.Generation <= 0 {
		return nil, repository.ErrInsufficientGenerationCredits
	}

	imageURL, err := s.vision.TryOn(ctx, profileImageID, cfg)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Vision try-on call failed")
		return nil, err
	}

	g := &model.Generation{
		ID:            uuid.NewString(),
		UserID:        userID,
		MeasurementID: measurementID,
		ImageURL:      imageURL,
		Config:        cfg,
	}
	if err := s.repo.CreateWithCredit(ctx, g); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Generation persist refused")
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Str("generation_id", g.ID).Msg("Generation created")
	return g, nil
}

func (s *generationService) Get(ctx context.Context, userID, generationID string) (*model.Generation, error) {
	g, err := s.repo.GetByID(ctx, generationID)
	if err != nil {
		s.logger.Error().Err(err).Str("generation_id", generationID).Msg("Failed to fetch generation")
		return nil, err
	}
	if g == nil || g.UserID != userID {
		return nil, ErrNotFound
	}
	return g, nil
}

func (s *generationService) List(ctx context.Context, userID string) ([]model.Generation, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *generationService) Delete(ctx context.Context, userID, generationID string) error {
	if err := s.repo.DeleteOwned(ctx, userID, generationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error().Err(err).Str("generation_id", generationID).Msg("Failed to delete generation")
		return err
	}
	return nil
}
