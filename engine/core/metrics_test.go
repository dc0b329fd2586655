package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(10 * time.Millisecond)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	// The 101st frame of 10ms crosses the one second mark.
	for i := 0; i < 71; i++ {
		m.Update(10 * time.Millisecond)
	}
	assert.InDelta(t, 100.0, m.FPS(), 1.0)
}

func TestClockElapsed(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewClock()
	c.now = func() time.Time { return now }

	c.Update()
	assert.Zero(t, c.Elapsed(), "not started")

	c.Start()
	now = now.Add(16 * time.Millisecond)
	c.Update()
	assert.Equal(t, 16*time.Millisecond, c.Elapsed())

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	assert.Equal(t, 16*time.Millisecond, c.Elapsed())
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("DEBUG")
	assert.NoError(t, err)
	assert.Equal(t, DebugLevel, level)

	_, err = ParseLogLevel("chatty")
	assert.Error(t, err)
}
