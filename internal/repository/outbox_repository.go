package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"petshop-backend/internal/db"
	"petshop-backend/internal/domain"
)

// OutboxRepository writes domain events next to the rows they describe.
type OutboxRepository struct {
	DB *db.Postgres
	Tx pgx.Tx
}

func (r OutboxRepository) Add(ctx context.Context, ev domain.OutboxEvent) error {
	_, err := querier(r.DB, r.Tx).Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1,$2,$3,$4::jsonb, now())
	`, ev.AggregateType, ev.AggregateID, ev.EventType, string(ev.Payload))
	return err
}

// FetchUnpublished locks up to limit pending events for the caller's tx.
func (r OutboxRepository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxEvent, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload::text, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		var payload string
		if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Payload = []byte(payload)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r OutboxRepository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`, ids)
	return err
}
