package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"thoub/internal/api/v1/handler"
	"thoub/internal/config"
	"thoub/internal/middleware"
	"thoub/internal/pubsub"
	"thoub/internal/repository"
	"thoub/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection pool
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection pool")
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize Pub/Sub publisher for fulfillment events
	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
		return nil, nil, err
	}

	// 5. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	creditRepo := repository.NewCreditRepo(pool)
	measurementRepo := repository.NewMeasurementRepo(pool)
	generationRepo := repository.NewGenerationRepo(pool)
	orderRepo := repository.NewOrderRepo(pool)
	resetTokenRepo := repository.NewResetTokenRepo(pool)
	webhookEventRepo := repository.NewWebhookEventRepo(pool)

	visionClient := service.NewVisionClient(cfg.VisionServiceBaseURL, cfg.VisionServiceAPIKey,
		time.Duration(cfg.VisionRequestTimeoutSec)*time.Second, logger)
	emailSender := service.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppBaseURL, logger)

	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, logger)
	userSvc := service.NewUserService(userRepo)
	creditSvc := service.NewCreditService(creditRepo, logger)
	mediaSvc := service.NewMediaService(userRepo, s3Client, cfg.S3Bucket, logger)
	measurementSvc := service.NewMeasurementService(measurementRepo, userRepo, visionClient, logger)
	generationSvc := service.NewGenerationService(generationRepo, measurementRepo, creditRepo, visionClient, logger)
	resetSvc := service.NewPasswordResetService(resetTokenRepo, userRepo, emailSender, logger)
	stripeSvc := service.NewStripeService(cfg, webhookEventRepo, pubSubPublisher, logger)
	checkoutSvc := service.NewCheckoutService(orderRepo, measurementRepo, userRepo, stripeSvc, cfg.AppBaseURL, logger)

	authHandler := handler.NewAuthHandler(authSvc, resetSvc, validate)
	userHandler := handler.NewUserHandler(userSvc, creditSvc, mediaSvc)
	measurementHandler := handler.NewMeasurementHandler(measurementSvc, validate)
	generationHandler := handler.NewGenerationHandler(generationSvc, validate)
	orderHandler := handler.NewOrderHandler(checkoutSvc, validate)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	authHandler.RegisterRoutes(apiV1Mux)
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	measurementHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	generationHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	orderHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Stripe authenticates via its signature header, not a session.
	apiV1Mux.HandleFunc("/webhooks/stripe", stripeSvc.HandleWebhook)

	apiV1Mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
