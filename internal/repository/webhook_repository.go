package repository

import (
	"context"
	"fmt"

	"supportdesk/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const webhookColumns = "id, event_type, payload, status, attempts, response_status, last_error, delivered_at, created_at"

type WebhookRepository struct {
	db *pgxpool.Pool
}

func NewWebhookRepository(db *pgxpool.Pool) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func scanEvent(row pgx.Row, e *entities.WebhookEvent) error {
	return row.Scan(&e.ID, &e.EventType, &e.Payload, &e.Status, &e.Attempts, &e.ResponseStatus,
		&e.LastError, &e.DeliveredAt, &e.CreatedAt)
}

func (r *WebhookRepository) Create(ctx context.Context, e *entities.WebhookEvent) error {
	err := scanEvent(r.db.QueryRow(ctx, `
		INSERT INTO webhook_events (id, event_type, payload, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+webhookColumns,
		e.ID, e.EventType, e.Payload, string(entities.WebhookPending)), e)
	return mapError(err, "create webhook event")
}

func (r *WebhookRepository) Get(ctx context.Context, id string) (*entities.WebhookEvent, error) {
	var e entities.WebhookEvent
	if err := scanEvent(r.db.QueryRow(ctx, "SELECT "+webhookColumns+" FROM webhook_events WHERE id = $1", id), &e); err != nil {
		return nil, mapError(err, "get webhook event")
	}
	return &e, nil
}

func (r *WebhookRepository) List(ctx context.Context, status entities.WebhookStatus, limit int) ([]entities.WebhookEvent, error) {
	query := "SELECT " + webhookColumns + " FROM webhook_events"
	args := []any{}
	if status != "" {
		args = append(args, string(status))
		query += " WHERE status = $1"
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []entities.WebhookEvent{}
	for rows.Next() {
		var e entities.WebhookEvent
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecordAttempt stores the outcome of one relay call.
func (r *WebhookRepository) RecordAttempt(ctx context.Context, id string, res entities.DeliveryResult) (*entities.WebhookEvent, error) {
	status := entities.WebhookFailed
	if res.Delivered {
		status = entities.WebhookDelivered
	}
	var responseStatus *int
	if res.ResponseStatus != 0 {
		responseStatus = &res.ResponseStatus
	}

	var e entities.WebhookEvent
	err := scanEvent(r.db.QueryRow(ctx, `
		UPDATE webhook_events
		SET attempts = attempts + 1,
		    status = $2,
		    response_status = $3,
		    last_error = $4,
		    delivered_at = CASE WHEN $5 THEN NOW() ELSE delivered_at END
		WHERE id = $1
		RETURNING `+webhookColumns,
		id, string(status), responseStatus, res.Error, res.Delivered), &e)
	if err != nil {
		return nil, mapError(err, "record webhook attempt")
	}
	return &e, nil
}
