package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"thoub/internal/config"
	"thoub/internal/pubsub"
	"thoub/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeService is the payment-gateway boundary: it creates hosted
// checkout sessions and consumes checkout webhooks.
type StripeService struct {
	cfg         *config.Config
	webhookRepo repository.WebhookEventRepository
	publisher   pubsub.Publisher
	logger      zerolog.Logger
}

// NewStripeService initializes the Stripe key and returns the service
// with a scoped logger.
func NewStripeService(cfg *config.Config, webhookRepo repository.WebhookEventRepository, publisher pubsub.Publisher, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{cfg: cfg, webhookRepo: webhookRepo, publisher: publisher, logger: lg}
}

// CreateCheckoutSession implements PaymentGateway.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, customerEmail string, items []CheckoutLineItem, successURL, cancelURL string, metadata map[string]string) (string, string, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, len(items))
	for i, item := range items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:        stripe.String(item.Name),
			Description: stripe.String(item.Description),
		}
		if item.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		lineItems[i] = &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(item.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		}
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(stripe.CheckoutSessionModePayment),
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(cancelURL),
		CustomerEmail:      stripe.String(customerEmail),
		Metadata:           metadata,
	}
	params.Context = ctx
	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create Stripe checkout session")
		return "", "", err
	}
	return sess.ID, sess.URL, nil
}

// HandleWebhook processes Stripe webhook events. The HTTP status code
// is the contract with Stripe's retry loop: 4xx means do not retry,
// 5xx means redeliver.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		if cs.Metadata["type"] == "credit_topup" {
			userID := cs.Metadata["userId"]
			if userID == "" {
				s.logger.Error().Str("session_id", cs.ID).Msg("Missing userId in top-up session metadata")
				http.Error(w, "missing userId in metadata", http.StatusBadRequest)
				return
			}
			applied, err := s.webhookRepo.ApplyCreditTopUp(ctx, event.ID, userID, TopUpMeasurementCredits, TopUpGenerationCredits)
			if err != nil {
				s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to apply credit top-up")
				http.Error(w, "failed to apply top-up", http.StatusInternalServerError)
				return
			}
			if !applied {
				s.logger.Info().Str("event_id", event.ID).Msg("Duplicate top-up event, already applied")
			} else {
				s.logger.Info().Str("user_id", userID).Msg("Credits incremented")
			}
		} else {
			order, err := s.webhookRepo.MarkOrderPaid(ctx, event.ID, cs.ID)
			if err != nil {
				s.logger.Error().Err(err).Str("session_id", cs.ID).Msg("Failed to mark order paid")
				http.Error(w, "failed to update order", http.StatusInternalServerError)
				return
			}
			if order == nil {
				s.logger.Warn().Str("event_id", event.ID).Str("session_id", cs.ID).Msg("No pending order for session, or event already applied")
			} else {
				s.logger.Info().Str("order_id", order.ID).Msg("Order marked PAID")
				s.publishFulfillment(ctx, order.ID, order.UserID, order.Total, cs.ID)
			}
		}
	default:
		// Unrecognized events are acked; Stripe delivers every type the
		// endpoint is subscribed to.
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	w.WriteHeader(http.StatusOK)
}

type fulfillmentEvent struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	Total     int64  `json:"total"`
	SessionID string `json:"session_id"`
}

// publishFulfillment hands the paid order to the fulfillment pipeline.
// The order transition is already committed, so a publish failure is
// logged and the webhook still acks.
func (s *StripeService) publishFulfillment(ctx context.Context, orderID, userID string, total int64, sessionID string) {
	payload, err := json.Marshal(fulfillmentEvent{OrderID: orderID, UserID: userID, Total: total, SessionID: sessionID})
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to marshal fulfillment event")
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := s.publisher.Publish(pubCtx, s.cfg.PubSubFulfillmentTopic, payload); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to publish fulfillment event")
	}
}
