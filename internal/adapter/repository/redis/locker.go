package redis

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var errLockHeld = errors.New("lock held by another owner")

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a distributed per-key lock: SET NX PX with a random token,
// released by compare-and-delete. The TTL bounds how long a crashed owner
// can block others.
type Locker struct {
	client          *redis.Client
	prefix          string
	ttl             time.Duration
	initialInterval time.Duration
	maxInterval     time.Duration
	logger          zerolog.Logger
}

// NewLocker creates a new Locker.
func NewLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Locker {
	return &Locker{
		client:          client,
		prefix:          "goaccount:lock:",
		ttl:             ttl,
		initialInterval: 5 * time.Millisecond,
		maxInterval:     200 * time.Millisecond,
		logger:          logger,
	}
}

// Lock retries SET NX with exponential backoff until it wins, ctx is done,
// or the TTL has elapsed.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := ulid.Make().String()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.initialInterval
	b.MaxInterval = l.maxInterval
	b.MaxElapsedTime = l.ttl

	err := backoff.Retry(func() error {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}

	return func() {
		// The caller's ctx may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}, nil
}
