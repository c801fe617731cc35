package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shoplane/api/internal/middleware"
	"github.com/shoplane/api/internal/service"
	"github.com/shoplane/api/internal/ws"
	"github.com/shopspring/decimal"
)

// OrderPlacer is the slice of the order service the handler needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrderWithCustomer(ctx context.Context, id uuid.UUID) (database.OrderWithCustomer, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListAllOrders(ctx context.Context) ([]database.OrderWithCustomer, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	MarkOrderDelivered(ctx context.Context, arg database.MarkOrderDeliveredParams) (database.Order, error)
}

// OrderHandler handles order placement and tracking endpoints.
type OrderHandler struct {
	svc   OrderPlacer
	store OrderStore
	hub   *ws.Hub
}

// NewOrderHandler creates a new OrderHandler. hub may be nil in tests.
func NewOrderHandler(svc OrderPlacer, store OrderStore, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterCustomerRoutes registers endpoints for the logged-in customer.
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/orders", h.Place)
	r.Get("/orders/my-orders", h.MyOrders)
}

// RegisterSharedRoutes registers endpoints reachable by owner or admin.
func (h *OrderHandler) RegisterSharedRoutes(r chi.Router) {
	r.Get("/orders/{id}", h.Get)
}

// RegisterAdminRoutes registers the staff-facing endpoints.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders/admin/all", h.ListAll)
	r.Put("/orders/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type placeOrderRequest struct {
	Items []struct {
		ProductID string `json:"product_id"`
		Quantity  int32  `json:"quantity"`
	} `json:"items"`
	ShippingAddress string                `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	IsPaid          bool                  `json:"is_paid"`
	PaidAt          *time.Time            `json:"paid_at"`
	PaymentResult   *paymentResultRequest `json:"payment_result"`
	ItemsPrice      decimal.Decimal       `json:"items_price"`
	ShippingPrice   decimal.Decimal       `json:"shipping_price"`
	TaxPrice        decimal.Decimal       `json:"tax_price"`
	TotalPrice      decimal.Decimal       `json:"total_price"`
}

// paymentResultRequest is gateway metadata forwarded by the client after a
// card or Stripe charge.
type paymentResultRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID        uuid.UUID  `json:"id"`
	ProductID *uuid.UUID `json:"product_id"`
	Name      string     `json:"name"`
	Price     string     `json:"price"`
	Image     *string    `json:"image"`
	Quantity  int32      `json:"quantity"`
}

type orderResponse struct {
	ID              uuid.UUID              `json:"id"`
	CustomerID      uuid.UUID              `json:"customer_id"`
	CustomerName    string                 `json:"customer_name,omitempty"`
	CustomerEmail   string                 `json:"customer_email,omitempty"`
	Status          string                 `json:"status"`
	PaymentMethod   string                 `json:"payment_method"`
	IsPaid          bool                   `json:"is_paid"`
	PaidAt          *time.Time             `json:"paid_at"`
	DeliveredAt     *time.Time             `json:"delivered_at"`
	PaymentResult   *paymentResultResponse `json:"payment_result,omitempty"`
	ShippingAddress string                 `json:"shipping_address"`
	ItemsPrice      string                 `json:"items_price"`
	ShippingPrice   string                 `json:"shipping_price"`
	TaxPrice        string                 `json:"tax_price"`
	TotalPrice      string                 `json:"total_price"`
	Items           []orderItemResponse    `json:"items,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

type paymentResultResponse struct {
	ID           string `json:"id,omitempty"`
	Status       string `json:"status,omitempty"`
	UpdateTime   string `json:"update_time,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		IsPaid:          o.IsPaid,
		ShippingAddress: o.ShippingAddress,
		ItemsPrice:      numericToString(o.ItemsPrice),
		ShippingPrice:   numericToString(o.ShippingPrice),
		TaxPrice:        numericToString(o.TaxPrice),
		TotalPrice:      numericToString(o.TotalPrice),
	}
	if o.PaidAt.Valid {
		resp.PaidAt = &o.PaidAt.Time
	}
	if o.DeliveredAt.Valid {
		resp.DeliveredAt = &o.DeliveredAt.Time
	}
	if o.PaymentResultID.Valid || o.PaymentResultState.Valid || o.PaymentResultTime.Valid || o.PaymentResultEmail.Valid {
		resp.PaymentResult = &paymentResultResponse{
			ID:           o.PaymentResultID.String,
			Status:       o.PaymentResultState.String,
			UpdateTime:   o.PaymentResultTime.String,
			EmailAddress: o.PaymentResultEmail.String,
		}
	}
	if o.CreatedAt.Valid {
		resp.CreatedAt = o.CreatedAt.Time
	}
	return resp
}

func toOrderWithCustomerResponse(o database.OrderWithCustomer) orderResponse {
	resp := toOrderResponse(o.Order)
	resp.CustomerName = o.CustomerName
	resp.CustomerEmail = o.CustomerEmail
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:       it.ID,
		Name:     it.Name,
		Price:    numericToString(it.Price),
		Quantity: it.Quantity,
	}
	if it.ProductID.Valid {
		pid := uuid.UUID(it.ProductID.Bytes)
		resp.ProductID = &pid
	}
	if it.Image.Valid {
		resp.Image = &it.Image.String
	}
	return resp
}

// --- Handlers ---

// Place creates an order for the logged-in customer. The customer id always
// comes from the token, never the body.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.PlaceOrderRequest{
		CustomerID:      claims.UserID.String(),
		PaymentMethod:   req.PaymentMethod,
		IsPaid:          req.IsPaid,
		PaidAt:          req.PaidAt,
		ShippingAddress: req.ShippingAddress,
		ItemsPrice:      req.ItemsPrice,
		ShippingPrice:   req.ShippingPrice,
		TaxPrice:        req.TaxPrice,
		TotalPrice:      req.TotalPrice,
	}
	if pr := req.PaymentResult; pr != nil {
		svcReq.PaymentResult = &service.PaymentResult{
			ID:           pr.ID,
			Status:       pr.Status,
			UpdateTime:   pr.UpdateTime,
			EmailAddress: pr.EmailAddress,
		}
	}
	for _, item := range req.Items {
		svcReq.Items = append(svcReq.Items, service.PlaceOrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.svc.PlaceOrder(r.Context(), svcReq)
	if err != nil {
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: place order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(result.Order)
	for _, it := range result.Items {
		resp.Items = append(resp.Items, toOrderItemResponse(it))
	}

	h.broadcast("order.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// MyOrders lists the logged-in customer's orders, newest first.
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.store.ListOrdersByCustomer(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list orders by customer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order with its items. Customers can only read their own
// orders; admins can read any.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	order, err := h.store.GetOrderWithCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if claims.Role != enum.RoleAdmin && order.CustomerID != claims.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderWithCustomerResponse(order)
	for _, it := range items {
		resp.Items = append(resp.Items, toOrderItemResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAll returns every order with joined customer name/email, newest first.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListAllOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: list all orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderWithCustomerResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus sets the order status. Delivered also stamps payment and
// delivery timestamps; re-delivering is idempotent. Any valid status can be
// set from any other, including backwards.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !enum.IsValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	var order database.Order
	if req.Status == enum.OrderStatusDelivered {
		order, err = h.store.MarkOrderDelivered(r.Context(), database.MarkOrderDeliveredParams{
			ID:     id,
			Status: req.Status,
		})
	} else {
		order, err = h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
			ID:     id,
			Status: req.Status,
		})
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	h.broadcast("order.status_updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *OrderHandler) broadcast(eventType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal ws payload: %v", err)
		return
	}
	h.hub.Broadcast(ws.Event{Type: eventType, Payload: data})
}

func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrNoOrderItems) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrShippingAddress) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrInsufficientStock) ||
		errors.Is(err, service.ErrInvalidCustomerID)
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
