package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrNoOrderItems         = errors.New("order items are required")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrShippingAddress      = errors.New("shipping_address is required")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidCustomerID    = errors.New("invalid customer_id")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to place orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	DecrementProductStock(ctx context.Context, arg database.DecrementProductStockParams) (int64, error)
	DecrementProductStockGuarded(ctx context.Context, arg database.DecrementProductStockParams) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// PlaceOrderRequest is the validated input for placing an order.
// The price breakdown comes from the client cart and is stored as sent;
// the server does not recompute it.
type PlaceOrderRequest struct {
	CustomerID      string
	PaymentMethod   string
	IsPaid          bool
	PaidAt          *time.Time
	PaymentResult   *PaymentResult
	ShippingAddress string
	ItemsPrice      decimal.Decimal
	ShippingPrice   decimal.Decimal
	TaxPrice        decimal.Decimal
	TotalPrice      decimal.Decimal
	Items           []PlaceOrderItemRequest
}

// PlaceOrderItemRequest is a single line in the order.
type PlaceOrderItemRequest struct {
	ProductID string
	Quantity  int32
}

// PaymentResult carries gateway metadata submitted with the order.
// All fields are optional and stored as sent.
type PaymentResult struct {
	ID           string
	Status       string
	UpdateTime   string
	EmailAddress string
}

// PlaceOrderResult is the full created order with its item snapshots.
type PlaceOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order placement business logic.
type OrderService struct {
	pool        TxBeginner
	newStore    NewOrderStore
	stockPolicy string
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, stockPolicy string) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, stockPolicy: stockPolicy}
}

// PlaceOrder validates the request, derives payment state from the payment
// method, and writes the order, its item snapshots, and the stock
// decrements in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoOrderItems
	}
	if !enum.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.ShippingAddress == "" {
		return nil, ErrShippingAddress
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, ErrInvalidCustomerID
	}

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if _, err := uuid.Parse(item.ProductID); err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
	}

	// --- Derive payment state from the payment method ---
	// Cash settles in person, so the order is born delivered and paid.
	// Card and Stripe charge up front. Pay-on-delivery starts unpaid
	// unless the client flags it paid (recorded by a clerk after the fact).
	now := time.Now()
	status := enum.OrderStatusProcessing
	isPaid := req.IsPaid
	paidAt := pgtype.Timestamptz{}
	deliveredAt := pgtype.Timestamptz{}

	switch req.PaymentMethod {
	case enum.PaymentMethodCash:
		status = enum.OrderStatusDelivered
		isPaid = true
		deliveredAt = pgtype.Timestamptz{Time: now, Valid: true}
	case enum.PaymentMethodCard, enum.PaymentMethodStripe:
		isPaid = true
	}
	if isPaid {
		paidAt = pgtype.Timestamptz{Time: now, Valid: true}
		if req.PaidAt != nil {
			paidAt.Time = *req.PaidAt
		}
	}

	var resultID, resultState, resultTime, resultEmail pgtype.Text
	if pr := req.PaymentResult; pr != nil {
		resultID = optionalText(pr.ID)
		resultState = optionalText(pr.Status)
		resultTime = optionalText(pr.UpdateTime)
		resultEmail = optionalText(pr.EmailAddress)
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerID:         customerID,
		Status:             status,
		PaymentMethod:      req.PaymentMethod,
		IsPaid:             isPaid,
		PaidAt:             paidAt,
		DeliveredAt:        deliveredAt,
		ShippingAddress:    req.ShippingAddress,
		ItemsPrice:         database.DecimalToNumeric(req.ItemsPrice),
		ShippingPrice:      database.DecimalToNumeric(req.ShippingPrice),
		TaxPrice:           database.DecimalToNumeric(req.TaxPrice),
		TotalPrice:         database.DecimalToNumeric(req.TotalPrice),
		PaymentResultID:    resultID,
		PaymentResultState: resultState,
		PaymentResultTime:  resultTime,
		PaymentResultEmail: resultEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert item snapshots and take stock ---
	var items []database.OrderItem
	for i, item := range req.Items {
		productID, _ := uuid.Parse(item.ProductID)

		product, err := store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}

		created, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: pgtype.UUID{Bytes: productID, Valid: true},
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("item[%d]: create order item: %w", i, err)
		}
		items = append(items, created)

		arg := database.DecrementProductStockParams{ID: productID, Quantity: item.Quantity}
		if s.stockPolicy == enum.StockPolicyReject {
			affected, err := store.DecrementProductStockGuarded(ctx, arg)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: decrement stock: %w", i, err)
			}
			if affected == 0 {
				return nil, fmt.Errorf("item[%d] (%s): %w", i, product.Name, ErrInsufficientStock)
			}
		} else {
			if _, err := store.DecrementProductStock(ctx, arg); err != nil {
				return nil, fmt.Errorf("item[%d]: decrement stock: %w", i, err)
			}
		}
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PlaceOrderResult{Order: order, Items: items}, nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
