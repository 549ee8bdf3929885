package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"thoub/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const presignTTL = 15 * time.Minute

// MediaService stores user avatars in object storage and hands out
// short-lived read URLs. Keys are stored on the user row; URLs are
// minted per request.
type MediaService interface {
	UploadAvatar(ctx context.Context, userID, filename string, body io.Reader, contentType string) (string, error)
	// AvatarURL returns a presigned GET URL for the stored key, or ""
	// when the user has no avatar.
	AvatarURL(ctx context.Context, key string) (string, error)
}

type mediaService struct {
	userRepo      repository.UserRepository
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

func NewMediaService(userRepo repository.UserRepository, s3Client *s3.Client, bucketName string, logger zerolog.Logger) MediaService {
	return &mediaService{
		userRepo:      userRepo,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "MediaService").Logger(),
	}
}

// UploadAvatar writes the object and then records its key on the user.
// An orphaned object from a failed record update is overwritten by the
// next upload since the key is deterministic per user.
func (s *mediaService) UploadAvatar(ctx context.Context, userID, filename string, body io.Reader, contentType string) (string, error) {
	key := fmt.Sprintf("avatars/%s%s", userID, path.Ext(filename))
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to upload avatar to storage")
		return "", fmt.Errorf("uploading avatar: %w", err)
	}
	if err := s.userRepo.UpdateProfileImageKey(ctx, userID, key); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to record avatar key")
		return "", err
	}
	return key, nil
}

func (s *mediaService) AvatarURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("generating presigned URL: %w", err)
	}
	return resp.URL, nil
}
