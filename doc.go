// Package reactor implements a single-goroutine event loop, multiplexing
// file descriptor readiness, one-shot, periodic and cron timers, and two
// queues of deferred callbacks.
//
// # Iterations
//
// Each iteration of [Reactor.Run] (or a single [Reactor.Tick]):
//   - drains the next tick queue, including callbacks it enqueues
//   - drains the future tick queue, likewise
//   - fires due timers, in due time order (ties in scheduling order)
//   - waits for, then dispatches, stream readiness
//
// Dispatch order for streams depends on the backend. [BackendSelect]
// dispatches every ready read listener, then every ready write listener,
// each in registration order. [BackendNative] visits fds in the order the
// kernel reports them, invoking the read listener before the write listener
// for each fd. Timers fire from within the wait with [BackendNative], in
// the order they expire.
//
// Run waits no longer than until the earliest timer is due, and not at all
// if tick callbacks are pending. It returns once there is nothing left to
// wait for: both tick queues are empty, no timers are active, and no
// streams are registered.
//
// Callbacks may add or remove any timer, stream or tick callback, including
// their own. A timer or stream removed by an earlier callback in the same
// iteration is not dispatched.
//
// # Backends
//
// [BackendNative] delegates to the platform's notification facility:
//   - Linux: epoll, with a timerfd per timer
//   - macOS: kqueue, using EVFILT_TIMER
//
// [BackendSelect] uses select(2), and is limited to fds below FD_SETSIZE.
// When there are no streams to wait on, it sleeps using the configured
// [Clock], which makes it suitable for deterministic tests, see [WithClock].
//
// # Thread Safety
//
// None. All methods must be called from the goroutine running the loop, or
// while it is not running. The exception is cancellation of the context
// passed to Run, which interrupts a blocking wait.
package reactor
