// Package schedule drives periodic maintenance passes from explicit state and an injectable clock.
package schedule

import (
	"sync"
	"time"
)

// Clock yields the current time in unix seconds.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// EventClock follows the timestamps of processed blocks, so replays schedule identically.
type EventClock struct {
	mu  sync.RWMutex
	now uint64
}

// Advance moves the clock forward. Earlier timestamps are ignored.
func (c *EventClock) Advance(ts uint64) {
	c.mu.Lock()
	if ts > c.now {
		c.now = ts
	}
	c.mu.Unlock()
}

func (c *EventClock) Now() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// FixedClock is a settable clock for tests.
type FixedClock struct {
	mu sync.Mutex
	ts uint64
}

func NewFixedClock(ts uint64) *FixedClock { return &FixedClock{ts: ts} }

func (c *FixedClock) Set(ts uint64) {
	c.mu.Lock()
	c.ts = ts
	c.mu.Unlock()
}

func (c *FixedClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ts
}
