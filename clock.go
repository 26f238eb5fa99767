package reactor

import (
	"time"
)

// Clock is the time source shared by all timers of a loop.
//
// Sleep is used by the select backend in place of select(2) when there are
// no streams to wait on.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
