package database

import (
	"context"

	"github.com/google/uuid"
)

const createEmailMessage = `
INSERT INTO email_messages (tracking_id, recipient_email, subject, status)
VALUES ($1, $2, $3, $4)
RETURNING id, tracking_id, recipient_email, subject, status, last_opened_at, created_at, updated_at
`

type CreateEmailMessageParams struct {
	TrackingID     uuid.UUID
	RecipientEmail string
	Subject        string
	Status         string
}

func (q *Queries) CreateEmailMessage(ctx context.Context, arg CreateEmailMessageParams) (EmailMessage, error) {
	row := q.db.QueryRow(ctx, createEmailMessage,
		arg.TrackingID, arg.RecipientEmail, arg.Subject, arg.Status)
	var m EmailMessage
	err := scanEmailMessage(row, &m)
	return m, err
}

const markEmailSeen = `
UPDATE email_messages
SET status = $2, last_opened_at = now(), updated_at = now()
WHERE tracking_id = $1
RETURNING id, tracking_id, recipient_email, subject, status, last_opened_at, created_at, updated_at
`

type MarkEmailSeenParams struct {
	TrackingID uuid.UUID
	Status     string
}

func (q *Queries) MarkEmailSeen(ctx context.Context, arg MarkEmailSeenParams) (EmailMessage, error) {
	row := q.db.QueryRow(ctx, markEmailSeen, arg.TrackingID, arg.Status)
	var m EmailMessage
	err := scanEmailMessage(row, &m)
	return m, err
}

const listEmailMessages = `
SELECT id, tracking_id, recipient_email, subject, status, last_opened_at, created_at, updated_at
FROM email_messages
ORDER BY created_at DESC
`

func (q *Queries) ListEmailMessages(ctx context.Context) ([]EmailMessage, error) {
	rows, err := q.db.Query(ctx, listEmailMessages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EmailMessage
	for rows.Next() {
		var m EmailMessage
		if err := scanEmailMessage(rows, &m); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func scanEmailMessage(row interface{ Scan(...interface{}) error }, m *EmailMessage) error {
	return row.Scan(&m.ID, &m.TrackingID, &m.RecipientEmail, &m.Subject, &m.Status, &m.LastOpenedAt, &m.CreatedAt, &m.UpdatedAt)
}
