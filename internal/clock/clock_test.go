package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManual(start)
	assert.True(t, m.Now().Equal(start))

	m.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), m.Now())

	m.Set(start.Add(-time.Hour))
	assert.Equal(t, start.Add(-time.Hour), m.Now())
}

func TestSwap(t *testing.T) {
	fixed := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	restore := Swap(NewManual(fixed))

	assert.True(t, Now().Equal(fixed))
	assert.Equal(t, time.Minute, Since(fixed.Add(-time.Minute)))

	restore()
	_, isSystem := Default.(System)
	assert.True(t, isSystem)
}

func TestSystem(t *testing.T) {
	before := time.Now()
	assert.False(t, System{}.Now().Before(before))
	assert.GreaterOrEqual(t, Since(before), time.Duration(0))
}
