package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

// RedisStore implements Store on a Redis instance. Documents are plain
// string values; change notifications ride a pub/sub channel so other
// execution contexts (a second daemon, a debugging shell) observe writes.
type RedisStore struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisStore creates a Redis-backed document store.
func NewRedisStore(client *redis.Client, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: log,
	}
}

// Get fetches the requested documents with a single MGET.
func (s *RedisStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	result := make(map[string][]byte, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type for key %s", keys[i])
		}
		result[keys[i]] = []byte(str)
	}
	return result, nil
}

// Set writes all documents in one transaction and publishes a change
// notification per key. Publish failures are logged, not surfaced: a
// missed notification only delays other contexts until their next read.
func (s *RedisStore) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write documents: %w", err)
	}

	for key := range values {
		if err := s.client.Publish(ctx, ChangeChannel, key).Err(); err != nil {
			s.logger.Warn("failed to publish change notification",
				logger.String("key", key),
				logger.Error(err))
		}
	}
	return nil
}

// Watch subscribes to the change channel and forwards notifications
// until ctx is done.
func (s *RedisStore) Watch(ctx context.Context) (<-chan Change, error) {
	sub := s.client.Subscribe(ctx, ChangeChannel)

	// Confirm the subscription before returning so callers never miss
	// writes that happen right after Watch.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to change channel: %w", err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- Change{Key: msg.Payload}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Ping reports store reachability, used by the readiness endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("redis client not initialized")
	}
	return s.client.Ping(ctx).Err()
}
