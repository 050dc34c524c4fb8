// Package testutil holds deterministic stand-ins for time and ID sources,
// so scenario runs and golden traces are reproducible.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time a StepClock starts from: 2024-01-01T00:00:00Z.
var Epoch = time.UnixMilli(1_704_067_200_000).UTC()

// SeqClock is a resettable logical clock. The first call to Next returns 1.
//
// Thread-safety: All methods are safe for concurrent use.
type SeqClock struct {
	mu  sync.Mutex
	seq int64
}

// NewSeqClock creates a clock at 0.
func NewSeqClock() *SeqClock {
	return &SeqClock{}
}

// Next advances the clock and returns the new value.
func (c *SeqClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last value handed out.
func (c *SeqClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to 0.
func (c *SeqClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// StepClock is a fake wall clock that advances by a fixed step on every
// read. Its Now method fits store.WithNow.
type StepClock struct {
	seq  SeqClock
	step time.Duration
}

// NewStepClock creates a clock whose first reading is Epoch+step.
// A non-positive step defaults to one millisecond.
func NewStepClock(step time.Duration) *StepClock {
	if step <= 0 {
		step = time.Millisecond
	}
	return &StepClock{step: step}
}

// Now returns the next reading.
func (c *StepClock) Now() time.Time {
	return Epoch.Add(time.Duration(c.seq.Next()) * c.step)
}
