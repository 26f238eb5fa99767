package reactor

import (
	"errors"
	"fmt"
	"time"
)

// Backend identifies the readiness and timer strategy used by a [Reactor].
type Backend int

const (
	// BackendAuto selects BackendNative where supported, otherwise
	// BackendSelect.
	BackendAuto Backend = iota
	// BackendNative delegates stream watches and timer expiry to the
	// platform's notification facility (epoll or kqueue).
	BackendNative
	// BackendSelect computes timeouts itself, and waits using select(2).
	BackendSelect
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendNative:
		return "native"
	case BackendSelect:
		return "select"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

func (b Backend) valid() bool {
	return b >= BackendAuto && b <= BackendSelect
}

// backend is implemented by each strategy. Both read listeners from the
// reactor's registry at dispatch time, and fire timers via the reactor.
type backend interface {
	// checkFD validates fd before it is registered.
	checkFD(fd int) error

	// watch sets the combined interest for fd, releasing any resources
	// held for it if events is zero.
	watch(fd int, events IOEvents) error

	// schedule is called after t is added to the timer collection.
	schedule(t *Timer) error

	// reschedule is called after a periodic timer has fired and been
	// re-inserted into the collection, with its next due time. The
	// interval may have changed.
	reschedule(t *Timer) error

	// unschedule is called after t is removed from the collection.
	unschedule(t *Timer)

	// expire fires timers that are due, for backends that don't do so
	// while polling.
	expire()

	// poll performs a single wait and dispatch pass. A negative timeout
	// waits indefinitely, zero never blocks.
	poll(timeout time.Duration) error

	// setWake includes (or excludes) the wake fd in subsequent polls.
	setWake(fd int, enabled bool) error

	close() error
}

func newBackend(r *Reactor, kind Backend) (backend, Backend, error) {
	switch kind {
	case BackendAuto:
		if b, err := newNativeBackend(r); err == nil {
			return b, BackendNative, nil
		} else if !errors.Is(err, ErrUnsupported) {
			return nil, kind, err
		}
		return newBackend(r, BackendSelect)
	case BackendNative:
		b, err := newNativeBackend(r)
		if err != nil {
			return nil, kind, err
		}
		return b, kind, nil
	case BackendSelect:
		b, err := newSelectBackend(r)
		if err != nil {
			return nil, kind, err
		}
		return b, kind, nil
	default:
		return nil, kind, ErrInvalidBackend
	}
}
