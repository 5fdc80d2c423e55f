// Package clock is the time source behind run timestamps and durations.
// Tests replace Default with a Manual clock to get stable metrics.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Manual only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock stopped at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t, backwards if need be.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Default backs the package-level helpers.
var Default Clock = System{}

// Now returns Default's time.
func Now() time.Time { return Default.Now() }

// Since returns the time elapsed on Default since t.
func Since(t time.Time) time.Duration { return Default.Now().Sub(t) }

// Swap installs c as Default and returns a func restoring the previous one.
func Swap(c Clock) (restore func()) {
	prev := Default
	Default = c
	return func() { Default = prev }
}
