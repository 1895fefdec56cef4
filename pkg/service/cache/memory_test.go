package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tally/pkg/service/cache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := cache.NewMemory()
	defer m.Close()

	_, ok, err := m.Get(ctx, "missing")
	gt.NoError(t, err)
	gt.False(t, ok)

	value := []byte("hello")
	gt.NoError(t, m.Set(ctx, "key", value, time.Minute))
	value[0] = 'j'

	got, ok, err := m.Get(ctx, "key")
	gt.NoError(t, err)
	gt.True(t, ok)
	gt.Equal(t, string(got), "hello")

	got[0] = 'y'
	again, _, _ := m.Get(ctx, "key")
	gt.Equal(t, string(again), "hello")
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)}
	m := cache.NewMemoryWithClock(c.Now)

	gt.NoError(t, m.Set(ctx, "short", []byte("1"), time.Hour))
	gt.NoError(t, m.Set(ctx, "forever", []byte("2"), 0))

	c.Advance(59 * time.Minute)
	_, ok, _ := m.Get(ctx, "short")
	gt.True(t, ok)

	c.Advance(time.Minute)
	_, ok, _ = m.Get(ctx, "short")
	gt.False(t, ok)

	c.Advance(24 * time.Hour)
	_, ok, _ = m.Get(ctx, "forever")
	gt.True(t, ok)
}

func TestMemory_InvalidInput(t *testing.T) {
	ctx := context.Background()
	m := cache.NewMemory()

	gt.Error(t, m.Set(ctx, "", []byte("x"), time.Minute))
	gt.Error(t, m.Set(ctx, "key", []byte("x"), -time.Second))

	_, _, err := m.Get(ctx, "")
	gt.Error(t, err)
}

func TestMemory_Close(t *testing.T) {
	ctx := context.Background()
	m := cache.NewMemory()

	gt.NoError(t, m.Set(ctx, "key", []byte("x"), 0))
	gt.NoError(t, m.Close())

	_, ok, err := m.Get(ctx, "key")
	gt.NoError(t, err)
	gt.False(t, ok)
}
