package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresInOrder(t *testing.T) {
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(20*time.Minute, func() { fired = append(fired, "b") })
	c.AfterFunc(10*time.Minute, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(15*time.Minute, func() { fired = append(fired, "x") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(15 * time.Minute)
	assert.Equal(t, []string{"a"}, fired)
	assert.Equal(t, start.Add(15*time.Minute), c.Now())

	c.Advance(5 * time.Minute)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_CallbackCanScheduleTimers(t *testing.T) {
	c := NewFake(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	count := 0
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(time.Minute, tick)
	}
	c.AfterFunc(time.Minute, tick)

	c.Advance(5 * time.Minute)
	assert.Equal(t, 5, count)
	assert.Equal(t, 1, c.Pending())
}
