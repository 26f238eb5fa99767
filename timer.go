package reactor

import (
	"time"
)

// MinInterval is the smallest interval a timer may have. Non-positive (or
// smaller) intervals are clamped to it, rather than rejected.
const MinInterval = time.Microsecond

// Timer is a handle to a one-shot or periodic callback, scheduled on a
// [Loop].
//
// A timer is active while the loop's timer collection contains it, see
// [Timer.IsActive]. It stops being active when it is cancelled, when a
// one-shot timer has fired, or when the loop is closed.
type Timer struct {
	loop     Loop
	callback func(*Timer)
	data     any
	// due is maintained by the timer collection
	due      time.Time
	interval time.Duration
	// seq orders timers with equal due times, maintained by the collection
	seq      uint64
	periodic bool
}

func newTimer(loop Loop, interval time.Duration, callback func(*Timer), periodic bool) *Timer {
	t := &Timer{
		loop:     loop,
		callback: callback,
		periodic: periodic,
	}
	t.setInterval(interval)
	return t
}

// Loop returns the loop the timer was scheduled on.
func (t *Timer) Loop() Loop { return t.loop }

// Interval returns the (clamped) interval.
func (t *Timer) Interval() time.Duration { return t.interval }

// Callback returns the callback the timer invokes.
func (t *Timer) Callback() func(*Timer) { return t.callback }

// SetData attaches an arbitrary value to the timer.
func (t *Timer) SetData(data any) { t.data = data }

// Data returns the value set by [Timer.SetData].
func (t *Timer) Data() any { return t.data }

// IsPeriodic reports whether the timer repeats.
func (t *Timer) IsPeriodic() bool { return t.periodic }

// IsActive reports whether the timer is still scheduled.
func (t *Timer) IsActive() bool { return t.loop.IsTimerActive(t) }

// Cancel unschedules the timer. It is safe to call on an inactive timer.
func (t *Timer) Cancel() { t.loop.CancelTimer(t) }

func (t *Timer) setInterval(interval time.Duration) {
	if interval < MinInterval {
		interval = MinInterval
	}
	t.interval = interval
}
