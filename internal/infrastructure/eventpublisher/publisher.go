package eventpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/goaccount/internal/domain"
)

// Envelope is the wire form of a published domain event.
type Envelope struct {
	ID            string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps event with a fresh event id.
func NewEnvelope(event domain.Event) (Envelope, error) {
	payload, err := json.Marshal(domain.EventPayload(event))
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}

	return Envelope{
		ID:            ulid.Make().String(),
		EventType:     event.EventType(),
		AggregateType: domain.AggregateTypeAccount,
		AggregateID:   event.AccountID().String(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
	}, nil
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event domain.Event) error {
	envelope, err := NewEnvelope(event)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", envelope.ID).
		Str("event_type", envelope.EventType).
		Str("aggregate_type", envelope.AggregateType).
		Str("aggregate_id", envelope.AggregateID).
		Time("occurred_at", envelope.OccurredAt).
		RawJSON("payload", envelope.Payload).
		Msg("event published")

	return nil
}

// RedisStreamPublisher appends events to a Redis stream with XADD.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a publisher for stream. maxLen caps the
// stream approximately; zero means unbounded.
func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends the event to the stream.
func (p *RedisStreamPublisher) Publish(ctx context.Context, event domain.Event) error {
	envelope, err := NewEnvelope(event)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":       envelope.ID,
			"event_type":     envelope.EventType,
			"aggregate_type": envelope.AggregateType,
			"aggregate_id":   envelope.AggregateID,
			"occurred_at":    envelope.OccurredAt.Format(time.RFC3339Nano),
			"payload":        string(envelope.Payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Publisher is what the instrumented wrapper delegates to.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Observer receives one call per delivery attempt.
type Observer interface {
	ObservePublish(eventType string, err error)
}

// InstrumentedPublisher reports every delivery attempt to an Observer.
type InstrumentedPublisher struct {
	next     Publisher
	observer Observer
}

// Instrument wraps next.
func Instrument(next Publisher, observer Observer) *InstrumentedPublisher {
	return &InstrumentedPublisher{next: next, observer: observer}
}

// Publish delegates and records the outcome.
func (p *InstrumentedPublisher) Publish(ctx context.Context, event domain.Event) error {
	err := p.next.Publish(ctx, event)
	p.observer.ObservePublish(event.EventType(), err)
	return err
}
