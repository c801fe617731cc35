package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCustomer = `
INSERT INTO customers (name, email, phone, address, hashed_password)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, email, phone, address, hashed_password, created_at, updated_at
`

type CreateCustomerParams struct {
	Name           string
	Email          string
	Phone          pgtype.Text
	Address        pgtype.Text
	HashedPassword string
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer, arg.Name, arg.Email, arg.Phone, arg.Address, arg.HashedPassword)
	var c Customer
	err := scanCustomer(row, &c)
	return c, err
}

const getCustomer = `
SELECT id, name, email, phone, address, hashed_password, created_at, updated_at
FROM customers
WHERE id = $1
`

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomer, id)
	var c Customer
	err := scanCustomer(row, &c)
	return c, err
}

const getCustomerByEmail = `
SELECT id, name, email, phone, address, hashed_password, created_at, updated_at
FROM customers
WHERE email = $1
`

func (q *Queries) GetCustomerByEmail(ctx context.Context, email string) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomerByEmail, email)
	var c Customer
	err := scanCustomer(row, &c)
	return c, err
}

const listCustomers = `
SELECT id, name, email, phone, address, hashed_password, created_at, updated_at
FROM customers
ORDER BY created_at DESC
`

func (q *Queries) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Customer
	for rows.Next() {
		var c Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateCustomer = `
UPDATE customers
SET name = $2, email = $3, phone = $4, address = $5, updated_at = now()
WHERE id = $1
RETURNING id, name, email, phone, address, hashed_password, created_at, updated_at
`

type UpdateCustomerParams struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Phone   pgtype.Text
	Address pgtype.Text
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomer, arg.ID, arg.Name, arg.Email, arg.Phone, arg.Address)
	var c Customer
	err := scanCustomer(row, &c)
	return c, err
}

const deleteCustomer = `
DELETE FROM customers
WHERE id = $1
`

func (q *Queries) DeleteCustomer(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteCustomer, id)
	return tag.RowsAffected(), err
}

func scanCustomer(row interface{ Scan(...interface{}) error }, c *Customer) error {
	return row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.HashedPassword, &c.CreatedAt, &c.UpdatedAt)
}
