package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	HashedPassword string
	Role           string
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

type Customer struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Phone          pgtype.Text
	Address        pgtype.Text
	HashedPassword string
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	Image       pgtype.Text
	Category    pgtype.Text
	Stock       int32
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

type Order struct {
	ID                 uuid.UUID
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
	CreatedAt          pgtype.Timestamptz
	UpdatedAt          pgtype.Timestamptz
}

type OrderWithCustomer struct {
	Order
	CustomerName  string
	CustomerEmail string
}

// OrderItem is a point-in-time snapshot of the catalog line. It carries no
// FK to products, so snapshots survive catalog deletes.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID pgtype.UUID
	Name      string
	Price     pgtype.Numeric
	Image     pgtype.Text
	Quantity  int32
}

type FinanceRecord struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	TotalAmount   pgtype.Numeric
	PaidAmount    pgtype.Numeric
	PendingAmount pgtype.Numeric
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

type FinanceRecordWithCustomer struct {
	FinanceRecord
	CustomerName  string
	CustomerEmail string
}

type EmailMessage struct {
	ID             uuid.UUID
	TrackingID     uuid.UUID
	RecipientEmail string
	Subject        string
	Status         string
	LastOpenedAt   pgtype.Timestamptz
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}
