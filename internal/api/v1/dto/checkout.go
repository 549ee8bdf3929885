package dto

import "time"

// ShippingDetailsDTO is the delivery address captured at checkout
type ShippingDetailsDTO struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}

// CheckoutItemDTO is one requested garment line. No price fields: the
// server prices every line.
type CheckoutItemDTO struct {
	MeasurementID string         `json:"measurement_id" validate:"required"`
	Config        StyleConfigDTO `json:"config" validate:"required"`
	Quantity      int            `json:"quantity" validate:"required,min=1"`
	ImageURL      string         `json:"image_url,omitempty"`
}

// CheckoutCreateDTO is used for incoming checkout requests
type CheckoutCreateDTO struct {
	Items    []CheckoutItemDTO  `json:"items" validate:"required,min=1,dive"`
	Shipping ShippingDetailsDTO `json:"shipping" validate:"required"`
}

// CheckoutResponseDTO carries the hosted checkout redirect
type CheckoutResponseDTO struct {
	RedirectURL string `json:"redirect_url"`
}

// OrderItemResponseDTO is one garment line within an order
type OrderItemResponseDTO struct {
	OrderItemID   string         `json:"order_item_id"`
	MeasurementID string         `json:"measurement_id"`
	Config        StyleConfigDTO `json:"config"`
	Quantity      int            `json:"quantity"`
	UnitAmount    int64          `json:"unit_amount"`
}

// OrderResponseDTO is returned in API responses for orders
type OrderResponseDTO struct {
	OrderID   string                 `json:"order_id"`
	Shipping  ShippingDetailsDTO     `json:"shipping"`
	Total     int64                  `json:"total"`
	Status    string                 `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	Items     []OrderItemResponseDTO `json:"items"`
}
