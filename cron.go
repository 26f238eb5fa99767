package reactor

import (
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// cronParser supports standard 5-field cron, an optional leading seconds
// field, descriptors like "@hourly" or "@every 30s", and the CRON_TZ= prefix.
var cronParser = cronlib.NewParser(
	cronlib.SecondOptional | cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseCron parses a cron expression, as accepted by [Reactor.AddCronjob].
func ParseCron(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// AddCronjob installs a periodic timer that fires according to the cron
// expression. The timer's interval is recomputed after every firing, before
// the callback is invoked, so [Timer.Interval] reports the time until the
// following run.
//
// If the schedule runs out of future run times, the timer is cancelled.
func (l *Reactor) AddCronjob(expr string, callback func(*Timer)) (*Timer, error) {
	if l.closed {
		return nil, ErrLoopClosed
	}

	schedule, err := ParseCron(expr)
	if err != nil {
		return nil, fmt.Errorf("reactor: invalid cron expression %q: %w", expr, err)
	}

	now := l.refreshTime()
	next := schedule.Next(l.cronTime(now))
	if next.IsZero() {
		return nil, ErrCronExhausted
	}

	if callback == nil {
		callback = func(*Timer) {}
	}

	return l.AddPeriodicTimer(next.Sub(now), func(t *Timer) {
		// relative to the scheduled time, so the timer collection's anchored
		// re-arm lands on the next run
		ref := l.timers.current()
		if t.due.After(ref) {
			ref = t.due
		}
		next := schedule.Next(l.cronTime(ref))
		if next.IsZero() {
			l.CancelTimer(t)
		} else {
			t.setInterval(next.Sub(t.due))
		}
		callback(t)
	}), nil
}

func (l *Reactor) cronTime(t time.Time) time.Time {
	if l.cronLocation != nil {
		return t.In(l.cronLocation)
	}
	return t
}
