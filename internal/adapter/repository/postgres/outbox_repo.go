package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/goaccount/internal/domain"
	"github.com/iho/goaccount/internal/infrastructure/eventpublisher"
)

const insertOutboxEventSQL = `INSERT INTO event_outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// OutboxRepository appends domain events to the event_outbox table for an
// external relay to forward. Rows start unpublished.
type OutboxRepository struct {
	pool pgxPool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return newOutboxRepositoryWithPool(pool)
}

func newOutboxRepositoryWithPool(pool pgxPool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Publish inserts one outbox row.
func (r *OutboxRepository) Publish(ctx context.Context, event domain.Event) error {
	envelope, err := eventpublisher.NewEnvelope(event)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, insertOutboxEventSQL,
		envelope.ID,
		envelope.AggregateID,
		envelope.AggregateType,
		envelope.EventType,
		[]byte(envelope.Payload),
		envelope.OccurredAt,
	); err != nil {
		return fmt.Errorf("insert outbox event %s: %w", envelope.EventType, err)
	}

	return nil
}
