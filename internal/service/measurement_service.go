package service

import (
	"context"
	"errors"

	"thoub/internal/model"
	"thoub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MeasurementService runs the capture flow: balance check, vision call,
// then a single transaction that persists the row and spends the
// credit. A failed vision call never costs a credit; a persisted row
// always cost exactly one.
type MeasurementService interface {
	Capture(ctx context.Context, userID string, in CaptureInput, heightCm float64, fitType string) (*model.Measurement, error)
	List(ctx context.Context, userID string) ([]model.Measurement, error)
	AttachProfileImage(ctx context.Context, userID, measurementID, profileImageID string) error
}

type measurementService struct {
	repo     repository.MeasurementRepository
	userRepo repository.UserRepository
	vision   VisionClient
	logger   zerolog.Logger
}

func NewMeasurementService(
	repo repository.MeasurementRepository,
	userRepo repository.UserRepository,
	vision VisionClient,
	logger zerolog.Logger,
) MeasurementService {
	return &measurementService{
		repo:     repo,
		userRepo: userRepo,
		vision:   vision,
		logger:   logger.With().Str("service", "MeasurementService").Logger(),
	}
}

func (s *measurementService) Capture(ctx context.Context, userID string, in CaptureInput, heightCm float64, fitType string) (*model.Measurement, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for capture")
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	// Fail before the expensive vision call. The authoritative check is
	// the conditional decrement inside CreateWithCredit; this one only
	// saves an upstream round trip.
	if user.MeasurementCredits <= 0 {
		return nil, repository.ErrInsufficientMeasurementCredits
	}

	result, err := s.vision.Measure(ctx, in, heightCm, fitType)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Vision measure call failed")
		return nil, err
	}

	m := &model.Measurement{
		ID:             uuid.NewString(),
		UserID:         userID,
		ThobeLength:    result.ThobeLength,
		Chest:          result.Chest,
		Sleeve:         result.Sleeve,
		Shoulder:       result.Shoulder,
		HeightCm:       heightCm,
		FrontImageID:   result.FrontImageID,
		SideImageID:    result.SideImageID,
		ProfileImageID: &result.ProfileImageID,
	}
	if err := s.repo.CreateWithCredit(ctx, m); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Measurement persist refused")
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Str("measurement_id", m.ID).Msg("Measurement captured")
	return m, nil
}

func (s *measurementService) List(ctx context.Context, userID string) ([]model.Measurement, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *measurementService) AttachProfileImage(ctx context.Context, userID, measurementID, profileImageID string) error {
	if err := s.repo.AttachProfileImage(ctx, userID, measurementID, profileImageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Missing and not-owned are indistinguishable to the caller.
			return ErrNotFound
		}
		s.logger.Error().Err(err).Str("measurement_id", measurementID).Msg("Failed to attach profile image")
		return err
	}
	return nil
}
