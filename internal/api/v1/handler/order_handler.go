package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"thoub/internal/api/v1/dto"
	"thoub/internal/middleware"
	"thoub/internal/model"
	"thoub/internal/service"

	"github.com/go-playground/validator/v10"
)

type OrderHandler struct {
	checkoutService service.CheckoutService
	validate        *validator.Validate
}

func NewOrderHandler(checkoutService service.CheckoutService, v *validator.Validate) *OrderHandler {
	return &OrderHandler{checkoutService: checkoutService, validate: v}
}

// RegisterRoutes mounts v1 checkout and order routes
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/checkout", authMw(http.HandlerFunc(h.createCheckout)))
	mux.Handle("/checkout/top-up", authMw(http.HandlerFunc(h.createTopUp)))
	mux.Handle("/orders", authMw(http.HandlerFunc(h.listOrders)))
}

// createCheckout godoc
// @Summary Start a garment checkout
// @Description Validates the cart, prices it server-side and returns a hosted payment page URL.
// @Tags orders
// @Accept json
// @Produce json
// @Success 201 {object} dto.CheckoutResponseDTO
// @Failure 400 {string} string "Invalid items"
// @Router /checkout [post]
func (h *OrderHandler) createCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.CheckoutCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	items := make([]service.CheckoutItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CheckoutItem{
			MeasurementID: item.MeasurementID,
			Config: model.StyleConfig{
				Fabric:  item.Config.Fabric,
				Pattern: item.Config.Pattern,
				Style:   item.Config.Style,
				Closure: item.Config.Closure,
				Pocket:  item.Config.Pocket,
			},
			Quantity: item.Quantity,
			ImageURL: item.ImageURL,
		}
	}
	shipping := model.ShippingDetails{
		Name:    req.Shipping.Name,
		Address: req.Shipping.Address,
		City:    req.Shipping.City,
		Phone:   req.Shipping.Phone,
	}

	redirectURL, err := h.checkoutService.CreateCheckout(r.Context(), userID, items, shipping)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoItems), errors.Is(err, service.ErrInvalidItems):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to create checkout: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dto.CheckoutResponseDTO{RedirectURL: redirectURL})
}

func (h *OrderHandler) createTopUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	redirectURL, err := h.checkoutService.CreateTopUpSession(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to create top-up session: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dto.CheckoutResponseDTO{RedirectURL: redirectURL})
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	orders, err := h.checkoutService.ListOrders(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to retrieve orders: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.OrderResponseDTO, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderDTO(&orders[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func toOrderDTO(o *model.Order) dto.OrderResponseDTO {
	items := make([]dto.OrderItemResponseDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, dto.OrderItemResponseDTO{
			OrderItemID:   item.ID,
			MeasurementID: item.MeasurementID,
			Config:        toStyleConfigDTO(item.Config),
			Quantity:      item.Quantity,
			UnitAmount:    item.UnitAmount,
		})
	}
	return dto.OrderResponseDTO{
		OrderID: o.ID,
		Shipping: dto.ShippingDetailsDTO{
			Name:    o.ShippingDetails.Name,
			Address: o.ShippingDetails.Address,
			City:    o.ShippingDetails.City,
			Phone:   o.ShippingDetails.Phone,
		},
		Total:     o.Total,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		Items:     items,
	}
}
