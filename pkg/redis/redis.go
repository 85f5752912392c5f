package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/rideplanner/pkg/config"
)

// ErrCacheMiss is returned by GetString when the key does not exist.
var ErrCacheMiss = redis.Nil

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// Wrap adapts an existing go-redis client, e.g. one built by redismock.
func Wrap(client *redis.Client) *Client {
	return &Client{Client: client}
}

// IsMiss reports whether err means the key was absent.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// SetWithExpiration sets a key-value pair with expiration, retrying transient failures
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.RetryableSet(ctx, key, value, expiration)
}

// GetString gets a string value by key. A missing key yields ErrCacheMiss.
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	return c.RetryableGet(ctx, key)
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.RetryableDelete(ctx, keys...)
}

// Ping checks connectivity; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}
