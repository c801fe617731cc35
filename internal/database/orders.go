package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_id, shipping_address, payment_method,
       items_price, shipping_price, tax_price, total_price,
       is_paid, paid_at, status, delivered_at,
       payment_result_id, payment_result_state, payment_result_time, payment_result_email,
       created_at, updated_at`

const createOrder = `
INSERT INTO orders (customer_id, shipping_address, payment_method,
                    items_price, shipping_price, tax_price, total_price,
                    is_paid, paid_at, status, delivered_at,
                    payment_result_id, payment_result_state, payment_result_time, payment_result_email)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	CustomerID         uuid.UUID
	ShippingAddress    string
	PaymentMethod      string
	ItemsPrice         pgtype.Numeric
	ShippingPrice      pgtype.Numeric
	TaxPrice           pgtype.Numeric
	TotalPrice         pgtype.Numeric
	IsPaid             bool
	PaidAt             pgtype.Timestamptz
	Status             string
	DeliveredAt        pgtype.Timestamptz
	PaymentResultID    pgtype.Text
	PaymentResultState pgtype.Text
	PaymentResultTime  pgtype.Text
	PaymentResultEmail pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.CustomerID, arg.ShippingAddress, arg.PaymentMethod,
		arg.ItemsPrice, arg.ShippingPrice, arg.TaxPrice, arg.TotalPrice,
		arg.IsPaid, arg.PaidAt, arg.Status, arg.DeliveredAt,
		arg.PaymentResultID, arg.PaymentResultState, arg.PaymentResultTime, arg.PaymentResultEmail)
	var o Order
	err := scanOrder(row, &o)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, name, price, image, quantity)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, name, price, image, quantity
`

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID pgtype.UUID
	Name      string
	Price     pgtype.Numeric
	Image     pgtype.Text
	Quantity  int32
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Name, arg.Price, arg.Image, arg.Quantity)
	var it OrderItem
	err := scanOrderItem(row, &it)
	return it, err
}

const getOrderWithCustomer = `
SELECT o.id, o.customer_id, o.shipping_address, o.payment_method,
       o.items_price, o.shipping_price, o.tax_price, o.total_price,
       o.is_paid, o.paid_at, o.status, o.delivered_at,
       o.payment_result_id, o.payment_result_state, o.payment_result_time, o.payment_result_email,
       o.created_at, o.updated_at, c.name, c.email
FROM orders o
JOIN customers c ON c.id = o.customer_id
WHERE o.id = $1
`

func (q *Queries) GetOrderWithCustomer(ctx context.Context, id uuid.UUID) (OrderWithCustomer, error) {
	row := q.db.QueryRow(ctx, getOrderWithCustomer, id)
	var o OrderWithCustomer
	err := scanOrderWithCustomer(row, &o)
	return o, err
}

const listAllOrders = `
SELECT o.id, o.customer_id, o.shipping_address, o.payment_method,
       o.items_price, o.shipping_price, o.tax_price, o.total_price,
       o.is_paid, o.paid_at, o.status, o.delivered_at,
       o.payment_result_id, o.payment_result_state, o.payment_result_time, o.payment_result_email,
       o.created_at, o.updated_at, c.name, c.email
FROM orders o
JOIN customers c ON c.id = o.customer_id
ORDER BY o.created_at DESC
`

func (q *Queries) ListAllOrders(ctx context.Context) ([]OrderWithCustomer, error) {
	rows, err := q.db.Query(ctx, listAllOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderWithCustomer
	for rows.Next() {
		var o OrderWithCustomer
		if err := scanOrderWithCustomer(rows, &o); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrdersByCustomer = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByCustomer, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, name, price, image, quantity
FROM order_items
WHERE order_id = $1
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := scanOrderItem(rows, &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listAllOrderItems = `
SELECT id, order_id, product_id, name, price, image, quantity
FROM order_items
`

func (q *Queries) ListAllOrderItems(ctx context.Context) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listAllOrderItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := scanOrderItem(rows, &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	var o Order
	err := scanOrder(row, &o)
	return o, err
}

const markOrderDelivered = `
UPDATE orders
SET status = $2,
    is_paid = TRUE,
    paid_at = now(),
    delivered_at = now(),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type MarkOrderDeliveredParams struct {
	ID     uuid.UUID
	Status string
}

// MarkOrderDelivered stamps payment and delivery together. Replaying the
// transition overwrites both timestamps with the current time.
func (q *Queries) MarkOrderDelivered(ctx context.Context, arg MarkOrderDeliveredParams) (Order, error) {
	row := q.db.QueryRow(ctx, markOrderDelivered, arg.ID, arg.Status)
	var o Order
	err := scanOrder(row, &o)
	return o, err
}

func scanOrder(row interface{ Scan(...interface{}) error }, o *Order) error {
	return row.Scan(&o.ID, &o.CustomerID, &o.ShippingAddress, &o.PaymentMethod,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.IsPaid, &o.PaidAt, &o.Status, &o.DeliveredAt,
		&o.PaymentResultID, &o.PaymentResultState, &o.PaymentResultTime, &o.PaymentResultEmail,
		&o.CreatedAt, &o.UpdatedAt)
}

func scanOrderWithCustomer(row interface{ Scan(...interface{}) error }, o *OrderWithCustomer) error {
	return row.Scan(&o.ID, &o.CustomerID, &o.ShippingAddress, &o.PaymentMethod,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.IsPaid, &o.PaidAt, &o.Status, &o.DeliveredAt,
		&o.PaymentResultID, &o.PaymentResultState, &o.PaymentResultTime, &o.PaymentResultEmail,
		&o.CreatedAt, &o.UpdatedAt, &o.CustomerName, &o.CustomerEmail)
}

func scanOrderItem(row interface{ Scan(...interface{}) error }, it *OrderItem) error {
	return row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Price, &it.Image, &it.Quantity)
}
