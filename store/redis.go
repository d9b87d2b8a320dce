package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "store")

const (
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second

	keyPrefix = "lastvalue:"
)

// RedisStore implements LastValueStore on a single Redis key per topic.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Put overwrites the topic's slot with the payload, retrying transient
// failures with exponential backoff.
func (s *RedisStore) Put(ctx context.Context, topic string, payload json.RawMessage) error {
	operation := func() error {
		return s.client.Set(ctx, keyPrefix+topic, []byte(payload), 0).Err()
	}

	backoffStrategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(initialBackoff),
				backoff.WithMaxInterval(maxBackoff),
			),
			maxRetries,
		),
		ctx,
	)

	return backoff.RetryNotify(operation, backoffStrategy, func(err error, d time.Duration) {
		log.WithError(err).WithField("topic", topic).
			Warnf("retrying redis write (next attempt in %s)", d)
	})
}

// Get returns the topic's slot, or nil with no error when the slot is empty.
func (s *RedisStore) Get(ctx context.Context, topic string) (json.RawMessage, error) {
	data, err := s.client.Get(ctx, keyPrefix+topic).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis read failed: %w", err)
	}
	return json.RawMessage(data), nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
