package paymentstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps the record under a single key. The key expires after the
// staleness window so abandoned records clean themselves up.
type RedisStore struct {
	redis  *redis.Client
	key    string
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if client == nil {
		panic("paymentstate: redis client required")
	}
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{
		redis:  client,
		key:    key,
		ttl:    MaxAge,
		tracer: otel.Tracer("frontdesk.internal.paymentstate.redis"),
	}
}

// WithTTL overrides the key expiry.
func (s *RedisStore) WithTTL(ttl time.Duration) *RedisStore {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context) (*PendingPayment, error) {
	ctx, span := s.tracer.Start(ctx, "paymentstate.redis.get")
	defer span.End()

	raw, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("paymentstate: redis get: %w", err)
	}
	return Decode(raw)
}

func (s *RedisStore) Set(ctx context.Context, p PendingPayment) error {
	raw, err := Encode(p)
	if err != nil {
		return err
	}
	ctx, span := s.tracer.Start(ctx, "paymentstate.redis.set")
	defer span.End()

	if err := s.redis.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("paymentstate: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, p PendingPayment) (bool, error) {
	raw, err := Encode(p)
	if err != nil {
		return false, err
	}
	ctx, span := s.tracer.Start(ctx, "paymentstate.redis.set_nx")
	defer span.End()

	ok, err := s.redis.SetNX(ctx, s.key, raw, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("paymentstate: redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "paymentstate.redis.clear")
	defer span.End()

	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("paymentstate: redis del: %w", err)
	}
	return nil
}
