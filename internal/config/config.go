package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`

	// Public base URL of the frontend, used for Stripe redirects and
	// password-reset links.
	AppBaseURL string `envconfig:"APP_BASE_URL" required:"true"`

	// Stripe settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`

	// Vision service (measurement + try-on) settings
	VisionServiceBaseURL    string `envconfig:"VISION_SERVICE_BASE_URL" required:"true"`
	VisionServiceAPIKey     string `envconfig:"VISION_SERVICE_API_KEY" required:"true"`
	VisionRequestTimeoutSec int    `envconfig:"VISION_REQUEST_TIMEOUT_SEC" default:"120"`

	// Email settings
	ResendAPIKey string `envconfig:"RESEND_API_KEY" required:"true"`
	EmailFrom    string `envconfig:"EMAIL_FROM" default:"Thoub AI <onboarding@resend.dev>"`

	// S3-compatible object storage for profile images
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Fulfillment event publishing
	GCPProjectID           string `envconfig:"GCP_PROJECT_ID" required:"true"`
	PubSubFulfillmentTopic string `envconfig:"PUBSUB_FULFILLMENT_TOPIC" default:"order_fulfillment"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
