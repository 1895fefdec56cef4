package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
	"github.com/secmon-lab/tally/pkg/service/cache"
	"github.com/urfave/cli/v3"
)

// Cache holds cache configuration
type Cache struct {
	RedisURL string
	// TimeoutSeconds is the TTL of cached datasets and figures
	TimeoutSeconds int
	Graphs         bool
}

// Flags returns CLI flags for Cache configuration
func (c *Cache) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL for the shared cache (in-process cache when empty)",
			Category:    "Cache",
			Sources:     cli.EnvVars("REDIS_URL"),
			Destination: &c.RedisURL,
		},
		&cli.IntFlag{
			Name:        "cache-timeout",
			Usage:       "Cache TTL in seconds",
			Category:    "Cache",
			Value:       3600,
			Sources:     cli.EnvVars("CACHE_TIMEOUT"),
			Destination: &c.TimeoutSeconds,
		},
		&cli.BoolFlag{
			Name:        "cache-graphs",
			Usage:       "Also cache built figures",
			Category:    "Cache",
			Sources:     cli.EnvVars("CACHE_GRAPHS"),
			Destination: &c.Graphs,
		},
	}
}

// TTL returns the cache timeout as a duration
func (c *Cache) TTL() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Configure creates the cache backend
func (c *Cache) Configure(ctx context.Context) (interfaces.Cache, error) {
	if c.TimeoutSeconds < 0 {
		return nil, goerr.New("cache timeout must not be negative", goerr.V("timeout", c.TimeoutSeconds))
	}

	if c.RedisURL == "" {
		ctxlog.From(ctx).Warn("Using in-process cache. Cached data is not shared between processes")
		return cache.NewMemory(), nil
	}

	backend, err := cache.NewRedis(ctx, c.RedisURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to init redis cache")
	}
	return backend, nil
}

// LogValue returns structured log value
func (c Cache) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("redis", c.RedisURL != ""),
		slog.Int("timeout", c.TimeoutSeconds),
		slog.Bool("graphs", c.Graphs),
	)
}
