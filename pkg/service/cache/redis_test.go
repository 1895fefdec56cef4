package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tally/pkg/service/cache"
)

func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	ctx := context.Background()
	r, err := cache.NewRedis(ctx, url)
	gt.NoError(t, err).Required()
	defer r.Close()

	key := "test:" + uuid.NewString()

	_, ok, err := r.Get(ctx, key)
	gt.NoError(t, err)
	gt.False(t, ok)

	gt.NoError(t, r.Set(ctx, key, []byte("value"), time.Minute))

	got, ok, err := r.Get(ctx, key)
	gt.NoError(t, err)
	gt.True(t, ok)
	gt.Equal(t, string(got), "value")
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := cache.NewRedis(context.Background(), "not a url")
	gt.Error(t, err)
}
