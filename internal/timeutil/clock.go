// Package timeutil provides the monotonic seconds-since-boot clock the
// engine uses for filter deltas, with a manual clock for tests.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Seconds returns a monotonic timestamp in seconds. Only differences
	// between readings are meaningful.
	Seconds() float64

	// Sleep pauses for the specified duration.
	Sleep(d time.Duration)
}

// monoClock counts from process start using the runtime's monotonic clock.
type monoClock struct {
	start time.Time
}

func (c monoClock) Seconds() float64    { return time.Since(c.start).Seconds() }
func (monoClock) Sleep(d time.Duration) { time.Sleep(d) }

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu     sync.Mutex
	now    float64
	sleeps []time.Duration
}

// NewMockClock creates a MockClock reading t seconds.
func NewMockClock(t float64) *MockClock {
	return &MockClock{now: t}
}

// Seconds returns the mocked time.
func (c *MockClock) Seconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to t seconds.
func (c *MockClock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d.Seconds()
}

// Sleep records the sleep duration but returns immediately.
func (c *MockClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
}

// Sleeps returns all recorded sleep durations.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]time.Duration, len(c.sleeps))
	copy(result, c.sleeps)
	return result
}
