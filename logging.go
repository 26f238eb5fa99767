package reactor

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
)

// newFailureLimiter validates rates, returning a nil (unlimited) limiter if
// there are none.
func newFailureLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	if len(rates) == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			limiter = nil
			err = fmt.Errorf("reactor: invalid failure log rates: %v", r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

// logFailure records a backend failure that was suppressed, to keep the
// loop live. Logging is rate limited per operation.
func (l *Reactor) logFailure(op string, err error) {
	if l.logger == nil {
		return
	}
	if _, ok := l.failures.Allow(op); !ok {
		return
	}
	l.logger.Warning().
		Str(`op`, op).
		Str(`backend`, l.kind.String()).
		Err(err).
		Log(`reactor: suppressed backend failure`)
}

func (l *Reactor) logPass(timeout time.Duration) {
	if l.logger == nil {
		return
	}
	l.logger.Trace().
		Dur(`timeout`, timeout).
		Int(`next_tick`, l.nextTick.len()).
		Int(`future_tick`, l.futureTick.len()).
		Int(`timers`, l.timers.len()).
		Int(`streams`, l.streams.len()).
		Log(`reactor: polling`)
}
