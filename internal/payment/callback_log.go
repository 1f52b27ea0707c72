package payment

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CallbackLog records which provider callbacks have been processed,
// keyed by correlation key. It exists for audit: the order's own
// terminal-state check remains the authoritative idempotency guard,
// so every implementation is best-effort and must never block
// reconciliation.
type CallbackLog interface {
	// Seen reports whether a callback with this correlation key was
	// recorded before.
	Seen(ctx context.Context, correlationKey string) bool

	// Record marks a callback as processed.
	Record(ctx context.Context, correlationKey string)
}

type redisCallbackLog struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisCallbackLog creates a Redis-backed callback log. Entries
// expire after ttl.
func NewRedisCallbackLog(addr string, ttl time.Duration, logger zerolog.Logger) CallbackLog {
	return &redisCallbackLog{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		logger: logger.With().Str("component", "callback-log").Logger(),
	}
}

func (l *redisCallbackLog) key(correlationKey string) string {
	return "shopfront:callback:" + correlationKey
}

// Seen reports whether the correlation key was recorded. Redis errors
// degrade to "not seen" so callbacks are never dropped on an outage.
func (l *redisCallbackLog) Seen(ctx context.Context, correlationKey string) bool {
	_, err := l.client.Get(ctx, l.key(correlationKey)).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		l.logger.Warn().Err(err).Str("correlation_key", correlationKey).Msg("callback log read failed")
		return false
	}
	return true
}

// Record marks a callback as processed.
func (l *redisCallbackLog) Record(ctx context.Context, correlationKey string) {
	err := l.client.Set(ctx, l.key(correlationKey), time.Now().UTC().Format(time.RFC3339), l.ttl).Err()
	if err != nil {
		l.logger.Warn().Err(err).Str("correlation_key", correlationKey).Msg("callback log write failed")
	}
}

// noopCallbackLog is used when the callback log is disabled.
type noopCallbackLog struct{}

// NewNoopCallbackLog returns a callback log that records nothing.
func NewNoopCallbackLog() CallbackLog {
	return noopCallbackLog{}
}

func (noopCallbackLog) Seen(context.Context, string) bool { return false }
func (noopCallbackLog) Record(context.Context, string)    {}
