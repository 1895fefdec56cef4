package cache

import "time"

// NewMemoryWithClock creates a memory cache with a controllable clock for tests
func NewMemoryWithClock(now func() time.Time) *Memory {
	return newMemory(now)
}
