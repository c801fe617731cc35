package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createFinanceRecord = `
INSERT INTO finance_records (customer_id, total_amount, paid_amount, pending_amount)
VALUES ($1, $2, $3, $4)
RETURNING id, customer_id, total_amount, paid_amount, pending_amount, created_at, updated_at
`

type CreateFinanceRecordParams struct {
	CustomerID    uuid.UUID
	TotalAmount   pgtype.Numeric
	PaidAmount    pgtype.Numeric
	PendingAmount pgtype.Numeric
}

func (q *Queries) CreateFinanceRecord(ctx context.Context, arg CreateFinanceRecordParams) (FinanceRecord, error) {
	row := q.db.QueryRow(ctx, createFinanceRecord,
		arg.CustomerID, arg.TotalAmount, arg.PaidAmount, arg.PendingAmount)
	var f FinanceRecord
	err := row.Scan(&f.ID, &f.CustomerID, &f.TotalAmount, &f.PaidAmount, &f.PendingAmount, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

const listFinanceRecords = `
SELECT f.id, f.customer_id, f.total_amount, f.paid_amount, f.pending_amount,
       f.created_at, f.updated_at, c.name, c.email
FROM finance_records f
JOIN customers c ON c.id = f.customer_id
ORDER BY f.created_at DESC
`

func (q *Queries) ListFinanceRecords(ctx context.Context) ([]FinanceRecordWithCustomer, error) {
	rows, err := q.db.Query(ctx, listFinanceRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FinanceRecordWithCustomer
	for rows.Next() {
		var f FinanceRecordWithCustomer
		if err := rows.Scan(&f.ID, &f.CustomerID, &f.TotalAmount, &f.PaidAmount, &f.PendingAmount,
			&f.CreatedAt, &f.UpdatedAt, &f.CustomerName, &f.CustomerEmail); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

const sumFinanceRecords = `
SELECT COALESCE(SUM(total_amount), 0), COALESCE(SUM(paid_amount), 0), COALESCE(SUM(pending_amount), 0)
FROM finance_records
`

type SumFinanceRecordsRow struct {
	TotalAmount   pgtype.Numeric
	PaidAmount    pgtype.Numeric
	PendingAmount pgtype.Numeric
}

func (q *Queries) SumFinanceRecords(ctx context.Context) (SumFinanceRecordsRow, error) {
	row := q.db.QueryRow(ctx, sumFinanceRecords)
	var s SumFinanceRecordsRow
	err := row.Scan(&s.TotalAmount, &s.PaidAmount, &s.PendingAmount)
	return s, err
}

const deleteFinanceRecord = `
DELETE FROM finance_records
WHERE id = $1
`

func (q *Queries) DeleteFinanceRecord(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteFinanceRecord, id)
	return tag.RowsAffected(), err
}
