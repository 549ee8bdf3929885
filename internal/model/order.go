package model

import "time"

// Order status values. PAID is terminal and is only ever set by the
// Stripe webhook, never by a client-facing operation.
const (
	OrderStatusPending = "PENDING"
	OrderStatusPaid    = "PAID"
)

// ShippingDetails is the delivery address captured at checkout.
type ShippingDetails struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
}

// Order is a garment purchase. StripeSessionID is the reconciliation
// key the webhook uses to flip status to PAID.
type Order struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	ShippingDetails ShippingDetails `db:"shipping_details" json:"shipping_details"`
	Total           int64           `db:"total" json:"total"`
	Status          string          `db:"status" json:"status"`
	StripeSessionID string          `db:"stripe_session_id" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	Items           []OrderItem     `db:"-" json:"items,omitempty"`
}

// OrderItem is one garment line within an order, snapshotting the
// styling config and server-side unit price at purchase time.
type OrderItem struct {
	ID            string      `db:"id" json:"id"`
	OrderID       string      `db:"order_id" json:"order_id"`
	MeasurementID string      `db:"measurement_id" json:"measurement_id"`
	Config        StyleConfig `db:"config" json:"config"`
	Quantity      int         `db:"quantity" json:"quantity"`
	UnitAmount    int64       `db:"unit_amount" json:"unit_amount"`
}
