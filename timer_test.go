package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_accessors(t *testing.T) {
	r, _ := newFakeReactor(t)

	var called *Timer
	callback := func(timer *Timer) { called = timer }
	timer := r.AddPeriodicTimer(time.Second, callback)

	assert.Same(t, r, timer.Loop())
	assert.Equal(t, time.Second, timer.Interval())
	assert.True(t, timer.IsPeriodic())
	assert.True(t, timer.IsActive())

	timer.Callback()(timer)
	assert.Same(t, timer, called)

	assert.Nil(t, timer.Data())
	timer.SetData(`data`)
	assert.Equal(t, `data`, timer.Data())

	timer.Cancel()
	assert.False(t, timer.IsActive())
	timer.Cancel()
}

func TestTimer_minInterval(t *testing.T) {
	r, _ := newFakeReactor(t)
	for _, interval := range []time.Duration{-time.Second, 0, time.Nanosecond} {
		assert.Equal(t, MinInterval, r.AddTimer(interval, nil).Interval())
	}
	assert.Equal(t, MinInterval, r.AddTimer(MinInterval, nil).Interval())
}

func TestTimer_otherLoop(t *testing.T) {
	a, _ := newFakeReactor(t)
	b, _ := newFakeReactor(t)
	timer := a.AddTimer(time.Second, nil)
	assert.False(t, b.IsTimerActive(timer))
	b.CancelTimer(timer)
	assert.True(t, timer.IsActive())
}
