package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/domain/interfaces"
	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
	"github.com/secmon-lab/tally/pkg/utils/metrics"
	"golang.org/x/sync/singleflight"
)

const cacheKindDataset = "dataset"

// Cached wraps a DataSource and keeps its dataset in a cache until the TTL expires
type Cached struct {
	source interfaces.DataSource
	cache  interfaces.Cache
	ttl    time.Duration
	group  singleflight.Group
}

// NewCached creates a caching data source
func NewCached(source interfaces.DataSource, cache interfaces.Cache, ttl time.Duration) *Cached {
	return &Cached{
		source: source,
		cache:  cache,
		ttl:    ttl,
	}
}

func (c *Cached) key() string {
	return "dataset:" + c.source.Name().String()
}

// Fetch returns the cached dataset or loads it from the wrapped source.
// Concurrent misses share one load. Cache errors are logged and bypassed;
// source errors are marked with ErrSourceFailure.
func (c *Cached) Fetch(ctx context.Context) (*model.Dataset, error) {
	logger := ctxlog.From(ctx)
	key := c.key()

	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("failed to read dataset cache", "key", key, "error", err)
	}
	if ok {
		var ds model.Dataset
		if err := json.Unmarshal(data, &ds); err == nil {
			metrics.CacheRequestsTotal.WithLabelValues(cacheKindDataset, metrics.ResultHit).Inc()
			return &ds, nil
		}
		logger.Warn("discarding undecodable dataset cache entry", "key", key)
	}
	metrics.CacheRequestsTotal.WithLabelValues(cacheKindDataset, metrics.ResultMiss).Inc()

	// The load is shared by every waiter, so one caller going away must not
	// cancel it. The logger and other values are kept.
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(key, func() (any, error) {
		ds, err := c.source.Fetch(loadCtx)
		if err != nil {
			return nil, errors.Join(model.ErrSourceFailure, err)
		}

		raw, err := json.Marshal(ds)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode dataset")
		}
		if err := c.cache.Set(loadCtx, key, raw, c.ttl); err != nil {
			logger.Warn("failed to write dataset cache", "key", key, "error", err)
		}
		return ds, nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch dataset", goerr.V("source", c.source.Name()))
	}
	if shared {
		logger.Debug("dataset load shared with concurrent request", "key", key)
	}

	return v.(*model.Dataset), nil
}

// Name returns the wrapped source name
func (c *Cached) Name() types.SourceName {
	return c.source.Name()
}

// Close closes the wrapped source
func (c *Cached) Close() error {
	return c.source.Close()
}
