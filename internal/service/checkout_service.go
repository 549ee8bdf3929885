package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"thoub/internal/model"
	"thoub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server-side prices in minor units. Clients never supply amounts; the
// service is the only source of pricing.
const (
	GarmentUnitAmount int64 = 49900 // $499.00 per garment
	TopUpPackAmount   int64 = 200   // £2.00 per credit pack
)

// CheckoutLineItem is one priced line passed to the payment gateway.
type CheckoutLineItem struct {
	Name        string
	Description string
	ImageURL    string
	Currency    string
	UnitAmount  int64
	Quantity    int64
}

// PaymentGateway creates hosted checkout sessions. Implemented by
// StripeService; faked in tests.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, customerEmail string, items []CheckoutLineItem, successURL, cancelURL string, metadata map[string]string) (sessionID, redirectURL string, err error)
}

// CheckoutItem is one requested garment line.
type CheckoutItem struct {
	MeasurementID string
	Config        model.StyleConfig
	Quantity      int
	ImageURL      string
}

type CheckoutService interface {
	// CreateCheckout validates ownership of every referenced
	// measurement, prices the order server-side, creates the gateway
	// session and persists a PENDING order keyed by the session id.
	CreateCheckout(ctx context.Context, userID string, items []CheckoutItem, shipping model.ShippingDetails) (redirectURL string, err error)
	// CreateTopUpSession starts a hosted checkout for one credit pack.
	CreateTopUpSession(ctx context.Context, userID string) (redirectURL string, err error)
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
}

type checkoutService struct {
	orderRepo       repository.OrderRepository
	measurementRepo repository.MeasurementRepository
	userRepo        repository.UserRepository
	gateway         PaymentGateway
	appBaseURL      string
	logger          zerolog.Logger
}

func NewCheckoutService(
	orderRepo repository.OrderRepository,
	measurementRepo repository.MeasurementRepository,
	userRepo repository.UserRepository,
	gateway PaymentGateway,
	appBaseURL string,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo:       orderRepo,
		measurementRepo: measurementRepo,
		userRepo:        userRepo,
		gateway:         gateway,
		appBaseURL:      appBaseURL,
		logger:          logger.With().Str("service", "CheckoutService").Logger(),
	}
}

func (s *checkoutService) CreateCheckout(ctx context.Context, userID string, items []CheckoutItem, shipping model.ShippingDetails) (string, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}

	// Each item must reference its own measurement: duplicate ids in one
	// order are rejected outright rather than deduplicated.
	ids := make([]string, 0, len(items))
	distinct := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return "", ErrInvalidItems
		}
		if _, ok := distinct[item.MeasurementID]; ok {
			return "", ErrInvalidItems
		}
		distinct[item.MeasurementID] = struct{}{}
		ids = append(ids, item.MeasurementID)
	}
	owned, err := s.measurementRepo.CountOwned(ctx, userID, ids)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to verify measurement ownership")
		return "", err
	}
	if owned != len(ids) {
		return "", ErrInvalidItems
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for checkout")
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	lineItems := make([]CheckoutLineItem, len(items))
	var total int64
	for i, item := range items {
		lineItems[i] = CheckoutLineItem{
			Name:        "Bespoke Thoub - " + item.Config.Style,
			Description: fmt.Sprintf("Tailored in %s. Pattern: %s.", item.Config.Fabric, item.Config.Pattern),
			ImageURL:    item.ImageURL,
			Currency:    "usd",
			UnitAmount:  GarmentUnitAmount,
			Quantity:    int64(item.Quantity),
		}
		total += GarmentUnitAmount * int64(item.Quantity)
	}

	shippingJSON, err := json.Marshal(shipping)
	if err != nil {
		return "", fmt.Errorf("marshaling shipping details: %w", err)
	}
	metadata := map[string]string{
		"userId":          userID,
		"itemsCount":      strconv.Itoa(len(items)),
		"shippingDetails": string(shippingJSON),
	}

	sessionID, redirectURL, err := s.gateway.CreateCheckoutSession(ctx, user.Email, lineItems,
		s.appBaseURL+"/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		s.appBaseURL+"/checkout",
		metadata)
	if err != nil {
		// Fail closed: no order row without a gateway session.
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create checkout session")
		return "", err
	}

	order := &model.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		ShippingDetails: shipping,
		Total:           total,
		Status:          model.OrderStatusPending,
		StripeSessionID: sessionID,
	}
	for _, item := range items {
		order.Items = append(order.Items, model.OrderItem{
			ID:            uuid.NewString(),
			MeasurementID: item.MeasurementID,
			Config:        item.Config,
			Quantity:      item.Quantity,
			UnitAmount:    GarmentUnitAmount,
		})
	}
	if err := s.orderRepo.CreateWithItems(ctx, order); err != nil {
		// The gateway session is now orphaned; the webhook tolerates a
		// completed session with no matching order.
		s.logger.Error().Err(err).Str("user_id", userID).Str("session_id", sessionID).Msg("Failed to persist pending order")
		return "", err
	}
	s.logger.Info().Str("user_id", userID).Str("order_id", order.ID).Int64("total", total).Msg("Pending order created")
	return redirectURL, nil
}

func (s *checkoutService) CreateTopUpSession(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for top-up")
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	items := []CheckoutLineItem{{
		Name:        "Thoub AI Credit Pack",
		Description: fmt.Sprintf("%d Measurement Credits + %d Generation Credits", TopUpMeasurementCredits, TopUpGenerationCredits),
		Currency:    "gbp",
		UnitAmount:  TopUpPackAmount,
		Quantity:    1,
	}}
	metadata := map[string]string{
		"userId": userID,
		"type":   "credit_topup",
	}
	_, redirectURL, err := s.gateway.CreateCheckoutSession(ctx, user.Email, items,
		s.appBaseURL+"/dashboard?status=success",
		s.appBaseURL+"/dashboard?status=cancelled",
		metadata)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create top-up session")
		return "", err
	}
	return redirectURL, nil
}

func (s *checkoutService) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}
