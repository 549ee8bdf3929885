package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"thoub/internal/model"

	"github.com/rs/zerolog"
)

type fakeOrderRepo struct {
	orders    []*model.Order
	createErr error
}

func (r *fakeOrderRepo) CreateWithItems(ctx context.Context, o *model.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.orders = append(r.orders, o)
	return nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	var out []model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeGateway struct {
	sessionID   string
	redirectURL string
	err         error

	gotEmail    string
	gotItems    []CheckoutLineItem
	gotSuccess  string
	gotCancel   string
	gotMetadata map[string]string
	calls       int
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, customerEmail string, items []CheckoutLineItem, successURL, cancelURL string, metadata map[string]string) (string, string, error) {
	g.calls++
	g.gotEmail = customerEmail
	g.gotItems = items
	g.gotSuccess = successURL
	g.gotCancel = cancelURL
	g.gotMetadata = metadata
	if g.err != nil {
		return "", "", g.err
	}
	return g.sessionID, g.redirectURL, nil
}

func checkoutFixture(t *testing.T) (CheckoutService, *fakeUserRepo, *fakeMeasurementRepo, *fakeOrderRepo, *fakeGateway) {
	t.Helper()
	users := newFakeUserRepo()
	addTestUser(users, "u1", 3, 3)
	measurements := newFakeMeasurementRepo(users)
	orders := &fakeOrderRepo{}
	gateway := &fakeGateway{sessionID: "cs_test_1", redirectURL: "https://pay.example.com/cs_test_1"}
	svc := NewCheckoutService(orders, measurements, users, gateway, "https://app.example.com", zerolog.Nop())
	return svc, users, measurements, orders, gateway
}

func ownedMeasurement(t *testing.T, users *fakeUserRepo, measurements *fakeMeasurementRepo, userID string) string {
	t.Helper()
	m, err := NewMeasurementService(measurements, users, &fakeVision{}, zerolog.Nop()).
		Capture(context.Background(), userID, captureInput(), 178, "regular")
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	return m.ID
}

func shippingFixture() model.ShippingDetails {
	return model.ShippingDetails{Name: "Ali", Address: "1 Main St", City: "Dubai", Phone: "+97150"}
}

func TestCreateCheckoutPricesServerSide(t *testing.T) {
	svc, users, measurements, orders, gateway := checkoutFixture(t)
	m1 := ownedMeasurement(t, users, measurements, "u1")
	m2 := ownedMeasurement(t, users, measurements, "u1")

	items := []CheckoutItem{
		{MeasurementID: m1, Config: styleConfig(), Quantity: 2},
		{MeasurementID: m2, Config: styleConfig(), Quantity: 1},
	}
	redirect, err := svc.CreateCheckout(context.Background(), "u1", items, shippingFixture())
	if err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if redirect != gateway.redirectURL {
		t.Errorf("redirect = %q", redirect)
	}

	if len(orders.orders) != 1 {
		t.Fatalf("persisted %d orders, want 1", len(orders.orders))
	}
	order := orders.orders[0]
	if order.Total != 3*GarmentUnitAmount {
		t.Errorf("total = %d, want %d", order.Total, 3*GarmentUnitAmount)
	}
	if order.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want PENDING", order.Status)
	}
	if order.StripeSessionID != "cs_test_1" {
		t.Errorf("session id = %q", order.StripeSessionID)
	}
	for _, item := range order.Items {
		if item.UnitAmount != GarmentUnitAmount {
			t.Errorf("item unit amount = %d, want %d", item.UnitAmount, GarmentUnitAmount)
		}
	}

	// The gateway sees server prices only.
	for _, line := range gateway.gotItems {
		if line.UnitAmount != GarmentUnitAmount {
			t.Errorf("gateway line amount = %d, want %d", line.UnitAmount, GarmentUnitAmount)
		}
	}
	if gateway.gotMetadata["userId"] != "u1" {
		t.Errorf("metadata userId = %q", gateway.gotMetadata["userId"])
	}
	if gateway.gotMetadata["itemsCount"] != "2" {
		t.Errorf("metadata itemsCount = %q", gateway.gotMetadata["itemsCount"])
	}
	var shipping model.ShippingDetails
	if err := json.Unmarshal([]byte(gateway.gotMetadata["shippingDetails"]), &shipping); err != nil {
		t.Fatalf("shipping metadata is not JSON: %v", err)
	}
	if shipping.City != "Dubai" {
		t.Errorf("shipping city = %q", shipping.City)
	}
}

func TestCreateCheckoutRejectsEmptyCart(t *testing.T) {
	svc, _, _, _, gateway := checkoutFixture(t)
	if _, err := svc.CreateCheckout(context.Background(), "u1", nil, shippingFixture()); !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
	if gateway.calls != 0 {
		t.Error("gateway called for empty cart")
	}
}

func TestCreateCheckoutRejectsDuplicateMeasurements(t *testing.T) {
	svc, users, measurements, _, gateway := checkoutFixture(t)
	m1 := ownedMeasurement(t, users, measurements, "u1")

	items := []CheckoutItem{
		{MeasurementID: m1, Config: styleConfig(), Quantity: 1},
		{MeasurementID: m1, Config: styleConfig(), Quantity: 1},
	}
	if _, err := svc.CreateCheckout(context.Background(), "u1", items, shippingFixture()); !errors.Is(err, ErrInvalidItems) {
		t.Fatalf("expected ErrInvalidItems for duplicate ids, got %v", err)
	}
	if gateway.calls != 0 {
		t.Error("gateway called for invalid cart")
	}
}

func TestCreateCheckoutRejectsForeignMeasurement(t *testing.T) {
	svc, users, measurements, _, _ := checkoutFixture(t)
	addTestUser(users, "u2", 1, 0)
	foreign := ownedMeasurement(t, users, measurements, "u2")

	items := []CheckoutItem{{MeasurementID: foreign, Config: styleConfig(), Quantity: 1}}
	if _, err := svc.CreateCheckout(context.Background(), "u1", items, shippingFixture()); !errors.Is(err, ErrInvalidItems) {
		t.Fatalf("expected ErrInvalidItems for foreign measurement, got %v", err)
	}
}

func TestCreateCheckoutRejectsNonPositiveQuantity(t *testing.T) {
	svc, users, measurements, _, _ := checkoutFixture(t)
	m1 := ownedMeasurement(t, users, measurements, "u1")

	items := []CheckoutItem{{MeasurementID: m1, Config: styleConfig(), Quantity: 0}}
	if _, err := svc.CreateCheckout(context.Background(), "u1", items, shippingFixture()); !errors.Is(err, ErrInvalidItems) {
		t.Fatalf("expected ErrInvalidItems for zero quantity, got %v", err)
	}
}

func TestCreateCheckoutGatewayFailureLeavesNoOrder(t *testing.T) {
	svc, users, measurements, orders, gateway := checkoutFixture(t)
	gateway.err = errors.New("stripe unavailable")
	m1 := ownedMeasurement(t, users, measurements, "u1")

	items := []CheckoutItem{{MeasurementID: m1, Config: styleConfig(), Quantity: 1}}
	if _, err := svc.CreateCheckout(context.Background(), "u1", items, shippingFixture()); err == nil {
		t.Fatal("expected gateway error")
	}
	if len(orders.orders) != 0 {
		t.Errorf("order persisted despite gateway failure")
	}
}

func TestCreateTopUpSession(t *testing.T) {
	svc, _, _, orders, gateway := checkoutFixture(t)

	redirect, err := svc.CreateTopUpSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CreateTopUpSession returned error: %v", err)
	}
	if redirect != gateway.redirectURL {
		t.Errorf("redirect = %q", redirect)
	}
	if gateway.gotMetadata["type"] != "credit_topup" {
		t.Errorf("metadata type = %q, want credit_topup", gateway.gotMetadata["type"])
	}
	if len(gateway.gotItems) != 1 || gateway.gotItems[0].UnitAmount != TopUpPackAmount {
		t.Errorf("unexpected top-up line items: %+v", gateway.gotItems)
	}
	// Top-ups never create order rows; credits land via the webhook.
	if len(orders.orders) != 0 {
		t.Errorf("top-up created %d orders", len(orders.orders))
	}
}
