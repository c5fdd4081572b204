package usecase

import (
	"context"
	"time"

	"github.com/iho/goaccount/internal/domain"
)

// AccountStore persists account snapshots.
//
// Save is last-write-wins; GetByID returns domain.ErrAccountNotFound for an
// unknown id. Implementations never hand out live pointers: the returned
// aggregate is rebuilt from the stored snapshot.
type AccountStore interface {
	Save(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
}

// Locker serializes mutations of a single account.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (func(), error)
}

// EventPublisher delivers domain events to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// IDGenerator generates account identifiers.
type IDGenerator interface {
	NewAccountID() domain.AccountID
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Metrics records account operation outcomes.
type Metrics interface {
	ObserveOperation(operation, outcome string, duration time.Duration)
	ObserveFee(currency string, fee float64)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string, time.Duration) {}
func (nopMetrics) ObserveFee(string, float64)                     {}
