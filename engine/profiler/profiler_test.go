package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickReportsOnlyAfterInterval(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(time.Hour))

	for i := 0; i < 10; i++ {
		assert.False(t, p.Tick())
	}
}

func TestTickReportsOnceIntervalElapsed(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(100 * time.Millisecond))
	p.lastTime = time.Now().Add(-time.Second)

	assert.True(t, p.Tick())

	// The window resets after reporting.
	assert.False(t, p.Tick())
}

func TestUpdateIntervalFloor(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(time.Nanosecond))
	assert.Equal(t, 100*time.Millisecond, p.updateInterval)
}
