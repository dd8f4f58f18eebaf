package types

import "sync/atomic"

// Counter is a named monotonic counter sampled periodically by
// internal/monitor and reset to zero after each sample, giving a simple
// per-interval rate (messages/sec, chances/sec, orders/sec) without pulling
// a full metrics client into the hot path. Safe for concurrent increment
// from many goroutines.
type Counter struct {
	name  string
	value atomic.Int64
}

// NewCounter creates a zeroed counter with the given name.
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Name returns the counter's registered name.
func (c *Counter) Name() string {
	return c.name
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add increments the counter by delta.
func (c *Counter) Add(delta int64) {
	c.value.Add(delta)
}

// Sample returns the current value and resets the counter to zero,
// matching the "sample then reset" semantics internal/monitor relies on to
// report an interval rate rather than a lifetime total.
func (c *Counter) Sample() int64 {
	return c.value.Swap(0)
}

// Value returns the current value without resetting it.
func (c *Counter) Value() int64 {
	return c.value.Load()
}
