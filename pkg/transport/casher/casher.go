// Package casher provides Redis-based caching of encoded form records
package casher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FORM_KEY_TEMPLATE namespaces every cached form under "form:"
const FORM_KEY_TEMPLATE = "form:%s"

// ErrMiss is returned by GetCashFor when the key is not cached
var ErrMiss = errors.New("cash miss")

// Casher handles caching operations using Redis as the backend
type Casher struct {
	client *redis.Client
	logger *logger.Logger
	ttl    time.Duration
}

// Init creates a Casher. A zero ttl keeps entries until they are removed.
func Init(client *redis.Client, logger *logger.Logger, ttl time.Duration) *Casher {
	return &Casher{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// NewClient builds a Redis client from a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Key returns the Redis key of a form ID.
func Key(id string) string {
	return fmt.Sprintf(FORM_KEY_TEMPLATE, id)
}

func (c *Casher) Close() error {
	return c.client.Close()
}

func (c *Casher) IsHealthy() bool {
	return c.client.Ping(context.Background()).Err() == nil
}

// AddToCash stores a payload in Redis using the provided key
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - key: Form ID
//   - payload: Encoded form; strings and byte slices are stored as is
//
// Returns an error if the Redis operation fails
func (c *Casher) AddToCash(ctx context.Context, key string, payload any) error {
	res := c.client.Set(ctx, Key(key), payload, c.ttl)

	if err := res.Err(); err != nil {
		c.logger.Error("failed to cash payload with",
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// GetCashFor retrieves cached data from Redis for the specified key
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - key: Form ID to look up
//
// Returns:
//   - []byte: The cached data if found
//   - error: ErrMiss when nothing is cached, or the Redis error
func (c *Casher) GetCashFor(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		c.logger.Error("error get cash",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, err
	}

	return data, nil
}

func (c *Casher) RemoveFromCash(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, Key(key)).Err(); err != nil {
		c.logger.Error("error delete from redis",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	return nil
}
