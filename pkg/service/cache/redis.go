package cache

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
)

const keyPrefix = "tally:"

// Redis implements Cache with a Redis server
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis server at the given URL, e.g. redis://localhost:6379/0
func NewRedis(ctx context.Context, url string) (interfaces.Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid redis URL")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", opts.Addr))
	}

	ctxlog.From(ctx).Info("Redis cache initialized", "addr", opts.Addr, "db", opts.DB)

	return &Redis{client: client}, nil
}

// Get returns the value stored under the key
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, goerr.New("cache key is empty")
	}

	value, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to get cache entry", goerr.V("key", key))
	}
	return value, true, nil
}

// Set stores the value with the TTL. A zero TTL never expires.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return goerr.New("cache key is empty")
	}
	if ttl < 0 {
		return goerr.New("cache TTL must not be negative", goerr.V("ttl", ttl))
	}

	if err := r.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return goerr.Wrap(err, "failed to set cache entry", goerr.V("key", key))
	}
	return nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close redis client")
	}
	return nil
}
