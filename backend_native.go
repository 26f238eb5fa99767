package reactor

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-reactor/internal/event"
)

// nativeBackend delegates stream watches and timer expiry to
// [event.Base]. Timers fire from within the native wait, so the timer
// collection is only consulted for due times, and membership.
type nativeBackend struct {
	r       *Reactor
	base    *event.Base
	streams map[int]*event.Event
	timers  map[*Timer]*event.Event
	wake    *event.Event
	// deadline bounds polls with a positive timeout
	deadline *event.Event

	// Adapters referenced by every native event, which must outlive all of
	// them. They are only released by close.
	timerCallback  event.Callback
	streamCallback event.Callback
}

func newNativeBackend(r *Reactor) (*nativeBackend, error) {
	base, err := event.NewBase()
	if err != nil {
		if errors.Is(err, event.ErrUnsupported) {
			return nil, ErrUnsupported
		}
		return nil, fmt.Errorf("reactor: native backend: %w", err)
	}

	b := &nativeBackend{
		r:       r,
		base:    base,
		streams: make(map[int]*event.Event),
		timers:  make(map[*Timer]*event.Event),
	}

	b.timerCallback = func(_ int, _ event.Flags, arg any) {
		// the cached time predates the wait
		r.timers.update()
		r.fireTimer(arg.(*Timer))
	}

	b.streamCallback = func(fd int, what event.Flags, _ any) {
		if b.wake != nil && fd == b.wake.FD() {
			drainWakeFd(fd)
			return
		}
		// the read listener may remove the write listener, or vice versa
		if what&event.Read != 0 {
			if listener := r.streams.readListener(fd); listener != nil {
				listener(fd, r)
			}
		}
		if what&event.Write != 0 {
			if listener := r.streams.writeListener(fd); listener != nil {
				listener(fd, r)
			}
		}
	}

	return b, nil
}

func (b *nativeBackend) checkFD(fd int) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}
	return nil
}

func (b *nativeBackend) watch(fd int, events IOEvents) error {
	ev, ok := b.streams[fd]

	if events == 0 {
		if ok {
			ev.Free()
			delete(b.streams, fd)
		}
		return nil
	}

	what := event.Persist | ioEventsToFlags(events)

	if ok {
		// merged interest: re-arm the single watch with the new flags
		if err := ev.Del(); err != nil {
			return err
		}
		if err := ev.Set(b.base, fd, what, b.streamCallback, nil); err != nil {
			return err
		}
	} else {
		ev = event.New(b.base, fd, what, b.streamCallback, nil)
	}

	if err := ev.Add(0); err != nil {
		if !ok {
			ev.Free()
		}
		return err
	}

	b.streams[fd] = ev
	return nil
}

// schedule arms a one-shot native timer for t's first due time. Periodic
// timers are re-armed by reschedule after each firing, rather than repeating
// natively, so they stay anchored to their due times.
func (b *nativeBackend) schedule(t *Timer) error {
	ev := event.New(b.base, -1, event.Timeout, b.timerCallback, t)
	if err := ev.Add(b.untilDue(t)); err != nil {
		ev.Free()
		return err
	}
	b.timers[t] = ev
	return nil
}

func (b *nativeBackend) reschedule(t *Timer) error {
	ev := b.timers[t]
	if ev == nil {
		return nil
	}
	return ev.Add(b.untilDue(t))
}

// untilDue is relative to the actual time, since native timers are armed
// against it. Overdue timers fire as soon as possible.
func (b *nativeBackend) untilDue(t *Timer) time.Duration {
	return max(0, t.due.Sub(b.r.clock.Now()))
}

func (b *nativeBackend) unschedule(t *Timer) {
	if ev := b.timers[t]; ev != nil {
		ev.Free()
		delete(b.timers, t)
	}
}

func (b *nativeBackend) expire() {}

func (b *nativeBackend) poll(timeout time.Duration) error {
	flags := event.LoopOnce
	switch {
	case timeout == 0:
		flags |= event.LoopNonblock
	case timeout > 0:
		// bounds the wait, firing as a no-op
		if b.deadline == nil {
			b.deadline = event.New(b.base, -1, event.Timeout, func(int, event.Flags, any) {}, nil)
		}
		if err := b.deadline.Add(timeout); err != nil {
			return err
		}
		defer func() { _ = b.deadline.Del() }()
	}
	return b.base.Loop(flags)
}

func (b *nativeBackend) setWake(fd int, enabled bool) error {
	if !enabled {
		if b.wake != nil {
			b.wake.Free()
			b.wake = nil
		}
		return nil
	}
	if b.wake != nil {
		return nil
	}
	ev := event.New(b.base, fd, event.Read|event.Persist, b.streamCallback, nil)
	if err := ev.Add(0); err != nil {
		ev.Free()
		return err
	}
	b.wake = ev
	return nil
}

func (b *nativeBackend) close() error {
	for fd, ev := range b.streams {
		ev.Free()
		delete(b.streams, fd)
	}
	for t, ev := range b.timers {
		ev.Free()
		delete(b.timers, t)
	}
	if b.wake != nil {
		b.wake.Free()
		b.wake = nil
	}
	if b.deadline != nil {
		b.deadline.Free()
		b.deadline = nil
	}
	return b.base.Close()
}

func ioEventsToFlags(events IOEvents) (what event.Flags) {
	if events&EventRead != 0 {
		what |= event.Read
	}
	if events&EventWrite != 0 {
		what |= event.Write
	}
	return
}
