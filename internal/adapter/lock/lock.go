// Package lock provides a best-effort per-key write lease backed by Redis.
//
// The lease keeps concurrent analysis requests for the same fingerprint from
// paying for duplicate model calls. Correctness never depends on it: the
// database upsert is atomic, so losing or skipping the lease only costs an
// extra provider round trip.
package lock

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/algoprep/algoprep-api/internal/domain"
)

// RedisLocker implements domain.Locker with SET NX PX leases.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker connects to redisURL and returns the locker. The URL is in
// go-redis form, e.g. redis://localhost:6379/0.
func NewRedisLocker(redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisLocker{client: redis.NewClient(opts), prefix: "analysis:lease:"}, nil
}

// Acquire takes the lease for key. ok is false when another holder has it.
// Redis being unreachable reports the lease as held-by-us so callers proceed;
// the lease is an optimization, not a gate.
func (l *RedisLocker) Acquire(ctx domain.Context, key string, ttl time.Duration) (func(), bool) {
	token := uuid.NewString()
	full := l.prefix + key

	acquired, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		slog.Warn("lease backend unavailable, proceeding without lease", slog.Any("error", err))
		return func() {}, true
	}
	if !acquired {
		return func() {}, false
	}
	return func() {
		// Release only our own lease; a compare-and-delete keeps an expired
		// lease from deleting the next holder's.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		if err := l.client.Eval(ctx, script, []string{full}, token).Err(); err != nil && err != redis.Nil {
			slog.Debug("lease release failed", slog.String("key", key), slog.Any("error", err))
		}
	}, true
}

// Ping reports whether the lease backend is reachable.
func (l *RedisLocker) Ping(ctx domain.Context) error { return l.client.Ping(ctx).Err() }

// Close releases the underlying connection pool.
func (l *RedisLocker) Close() error { return l.client.Close() }

// NoopLocker always grants the lease. Used when no Redis URL is configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(domain.Context, string, time.Duration) (func(), bool) {
	return func() {}, true
}
