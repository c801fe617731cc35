package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createProduct = `
INSERT INTO products (name, description, price, image, category, stock)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, description, price, image, category, stock, created_at, updated_at
`

type CreateProductParams struct {
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	Image       pgtype.Text
	Category    pgtype.Text
	Stock       int32
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.Name, arg.Description, arg.Price, arg.Image, arg.Category, arg.Stock)
	var p Product
	err := scanProduct(row, &p)
	return p, err
}

const getProduct = `
SELECT id, name, description, price, image, category, stock, created_at, updated_at
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var p Product
	err := scanProduct(row, &p)
	return p, err
}

const listProducts = `
SELECT id, name, description, price, image, category, stock, created_at, updated_at
FROM products
ORDER BY created_at DESC
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updateProduct = `
UPDATE products
SET name = $2, description = $3, price = $4, image = $5, category = $6, stock = $7, updated_at = now()
WHERE id = $1
RETURNING id, name, description, price, image, category, stock, created_at, updated_at
`

type UpdateProductParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	Image       pgtype.Text
	Category    pgtype.Text
	Stock       int32
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Name, arg.Description, arg.Price, arg.Image, arg.Category, arg.Stock)
	var p Product
	err := scanProduct(row, &p)
	return p, err
}

const deleteProduct = `
DELETE FROM products
WHERE id = $1
`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteProduct, id)
	return tag.RowsAffected(), err
}

const decrementProductStock = `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1
`

type DecrementProductStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

func (q *Queries) DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx, decrementProductStock, arg.ID, arg.Quantity)
	return tag.RowsAffected(), err
}

const decrementProductStockGuarded = `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2
`

// DecrementProductStockGuarded refuses to take stock below zero. A zero
// rows-affected result means the product had insufficient stock.
func (q *Queries) DecrementProductStockGuarded(ctx context.Context, arg DecrementProductStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx, decrementProductStockGuarded, arg.ID, arg.Quantity)
	return tag.RowsAffected(), err
}

func scanProduct(row interface{ Scan(...interface{}) error }, p *Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
}
