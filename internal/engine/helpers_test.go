package engine

import (
	"sync"
	"time"
)

// constSource returns the same draw forever. 0.25 zeroes the Box–Muller
// normal, never jumps and never spawns.
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

// stepClock advances one second on every read.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}
