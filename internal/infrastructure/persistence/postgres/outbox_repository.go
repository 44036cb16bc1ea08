package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianpay/meridian/internal/application/ports"
)

var _ ports.OutboxRepository = (*OutboxRepository)(nil)

// OutboxRepository appends events to the wallet outbox. Append must run
// inside the same transaction as the state change it describes; the
// external relay (out of scope here) reads unprocessed rows and stamps
// processed_at after delivery.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) Append(ctx context.Context, eventType string, payload map[string]any) error {
	q := querierFor(ctx, r.pool)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}

	query := `INSERT INTO wallet_outbox_events (event_type, payload) VALUES ($1, $2)`
	if _, err := q.Exec(ctx, query, eventType, body); err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}
