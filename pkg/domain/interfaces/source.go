package interfaces

//go:generate moq -out mocks/source_mock.go -pkg mocks . DataSource Cache

import (
	"context"
	"time"

	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
)

// DataSource loads download rows
type DataSource interface {
	// Fetch returns the current download rows
	Fetch(ctx context.Context) (*model.Dataset, error)

	// Name identifies the source in logs, metrics and cache keys
	Name() types.SourceName

	// Close releases the underlying client
	Close() error
}

// Cache stores serialized values with an expiry
type Cache interface {
	// Get returns the value and true on hit, or false when the key is absent or expired
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
