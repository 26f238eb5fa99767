// Package event implements a small libevent-style notification base.
//
// A [Base] multiplexes two kinds of [Event]:
//   - I/O events, watching a file descriptor for [Read] and/or [Write]
//     readiness
//   - timer events (fd -1), firing after a relative timeout
//
// Either kind may be [Persist], in which case it stays pending after it fires
// (timer events then repeat at the same relative interval). Non-persistent
// events are deleted just before their callback runs.
//
// Callbacks are invoked synchronously, from within [Base.Loop], on the
// calling goroutine. A Base is not safe for concurrent use.
//
// Platform support:
//   - Linux: epoll, with one timerfd per timer event
//   - Darwin: kqueue, with EVFILT_TIMER for timer events
package event

import (
	"errors"
	"time"
)

// Flags describe what an event watches for, and what it fired with.
type Flags uint16

const (
	// Timeout indicates a timer event, or that a timer fired.
	Timeout Flags = 1 << iota
	// Read indicates read readiness.
	Read
	// Write indicates write readiness.
	Write
	// Persist keeps the event pending after it fires.
	Persist
)

// LoopFlags modify the behavior of [Base.Loop].
type LoopFlags int

const (
	// LoopOnce performs a single pass, blocking (unless combined with
	// LoopNonblock) until at least one event is ready.
	LoopOnce LoopFlags = 1 << iota
	// LoopNonblock never blocks, dispatching only what is ready right now.
	LoopNonblock
)

// Callback is invoked when an event fires. The what argument holds the
// subset of the event's flags that triggered it.
//
// The native layer refers to the callback for as long as the event is
// pending, so it must remain valid (and behave correctly) until the event
// is deleted or freed.
type Callback func(fd int, what Flags, arg any)

var (
	ErrUnsupported = errors.New("event: not supported on this platform")
	ErrClosed      = errors.New("event: base closed")
	ErrPending     = errors.New("event: cannot modify a pending event")
	ErrFDInUse     = errors.New("event: fd is watched by another event")
	ErrInvalid     = errors.New("event: invalid event")
	ErrReentrant   = errors.New("event: loop called from within a callback")
)

// Event is a single registration against a [Base].
type Event struct {
	base    *Base
	cb      Callback
	arg     any
	timeout time.Duration
	fd      int
	// platform handle for timer events (timerfd on linux, kevent ident on
	// darwin), or -1
	handle  int
	what    Flags
	fired   Flags
	pending bool
	active  bool
	freed   bool
}

// New allocates an event. It is not pending until [Event.Add] is called.
func New(base *Base, fd int, what Flags, cb Callback, arg any) *Event {
	e := &Event{handle: -1}
	e.assign(base, fd, what, cb, arg)
	return e
}

func (e *Event) assign(base *Base, fd int, what Flags, cb Callback, arg any) {
	e.base = base
	e.fd = fd
	e.what = what
	e.cb = cb
	e.arg = arg
}

// Set re-initializes a non-pending event.
func (e *Event) Set(base *Base, fd int, what Flags, cb Callback, arg any) error {
	if e.freed {
		return ErrInvalid
	}
	if e.pending {
		return ErrPending
	}
	e.assign(base, fd, what, cb, arg)
	return nil
}

// Add makes the event pending. For timer events, timeout is the relative
// time until the (first) firing, and the repeat interval if [Persist] is set.
// For I/O events the timeout is ignored.
//
// Adding a pending event re-arms it.
func (e *Event) Add(timeout time.Duration) error {
	if e.freed || e.base == nil || e.cb == nil {
		return ErrInvalid
	}
	b := e.base
	if b.closed {
		return ErrClosed
	}
	if e.isTimer() {
		if timeout <= 0 {
			timeout = time.Nanosecond
		}
		e.timeout = timeout
		if err := b.poller.addTimer(e); err != nil {
			return err
		}
	} else {
		if e.fd < 0 || e.what&(Read|Write) == 0 {
			return ErrInvalid
		}
		if err := b.poller.addIO(e); err != nil {
			return err
		}
	}
	if !e.pending {
		e.pending = true
		b.count++
	}
	return nil
}

// Del makes the event non-pending. If the event is queued for dispatch in
// the current [Base.Loop] pass it will not be invoked. Deleting a
// non-pending event is a no-op.
func (e *Event) Del() error {
	e.active = false
	e.fired = 0
	if !e.pending {
		return nil
	}
	e.pending = false
	b := e.base
	if b.closed {
		return nil
	}
	b.count--
	if e.isTimer() {
		return b.poller.delTimer(e)
	}
	return b.poller.delIO(e)
}

// Free deletes the event and releases any platform handle. The event may
// not be used afterwards.
func (e *Event) Free() {
	if e.freed {
		return
	}
	_ = e.Del()
	if e.base != nil && !e.base.closed {
		e.base.poller.release(e)
	}
	e.freed = true
	e.cb = nil
	e.arg = nil
}

// Pending reports whether the event is currently added.
func (e *Event) Pending() bool { return e.pending }

// FD returns the watched file descriptor, or -1 for timer events.
func (e *Event) FD() int { return e.fd }

// What returns the configured flags.
func (e *Event) What() Flags { return e.what }

func (e *Event) isTimer() bool { return e.fd < 0 }

// Base owns the platform multiplexer, and the events registered against it.
type Base struct {
	poller      *poller
	activeList  []*Event
	count       int
	dispatching bool
	closed      bool
}

// NewBase creates a new base, or returns [ErrUnsupported].
func NewBase() (*Base, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	return &Base{poller: p}, nil
}

// Count returns the number of pending events.
func (b *Base) Count() int { return b.count }

// Loop waits for and dispatches events.
//
// With [LoopOnce], a single pass is performed. Otherwise passes are repeated
// until no events remain pending. A blocking pass with no pending events
// returns immediately. An interrupted wait (EINTR) counts as a pass that
// found nothing.
func (b *Base) Loop(flags LoopFlags) error {
	if b.closed {
		return ErrClosed
	}
	if b.dispatching {
		return ErrReentrant
	}
	for {
		if b.count == 0 {
			return nil
		}
		if err := b.pass(flags&LoopNonblock == 0); err != nil {
			return err
		}
		if flags&(LoopOnce|LoopNonblock) != 0 {
			return nil
		}
	}
}

func (b *Base) pass(block bool) error {
	b.activeList = b.activeList[:0]
	if err := b.poller.wait(block, b.activate); err != nil {
		return err
	}
	b.dispatching = true
	defer func() {
		b.dispatching = false
		for _, e := range b.activeList {
			e.active = false
			e.fired = 0
		}
		b.activeList = b.activeList[:0]
	}()
	for i := 0; i < len(b.activeList); i++ {
		e := b.activeList[i]
		if !e.active {
			continue
		}
		what := e.fired
		e.active = false
		e.fired = 0
		if e.what&Persist == 0 {
			_ = e.Del()
		}
		e.cb(e.fd, what, e.arg)
	}
	return nil
}

// activate queues e for dispatch, merging flags if it is already queued.
func (b *Base) activate(e *Event, what Flags) {
	what &= e.what | Timeout
	if what == 0 || !e.pending {
		return
	}
	if e.active {
		e.fired |= what
		return
	}
	e.active = true
	e.fired = what
	b.activeList = append(b.activeList, e)
}

// Close releases the platform multiplexer. Pending events are abandoned.
func (b *Base) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.count = 0
	return b.poller.close()
}
