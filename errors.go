package reactor

import (
	"errors"
)

// Standard errors.
var (
	// ErrLoopClosed is returned when operations are attempted on a closed loop.
	ErrLoopClosed = errors.New("reactor: loop has been closed")

	// ErrLoopRunning is returned when Run is called while the loop is
	// already running, including from within one of its own callbacks.
	ErrLoopRunning = errors.New("reactor: loop is already running")

	// ErrFDOutOfRange is returned for file descriptors the backend cannot
	// watch, e.g. negative values, or values >= FD_SETSIZE for select.
	ErrFDOutOfRange = errors.New("reactor: fd out of range")

	// ErrUnsupported is returned when the requested backend is not
	// available on this platform.
	ErrUnsupported = errors.New("reactor: backend not supported on this platform")

	// ErrInvalidBackend is returned for an unknown Backend value.
	ErrInvalidBackend = errors.New("reactor: invalid backend")

	// ErrNilListener is returned when registering a nil stream listener.
	ErrNilListener = errors.New("reactor: nil listener")

	// ErrCronExhausted is returned when a cron expression has no future
	// run time, e.g. "0 0 30 2 *".
	ErrCronExhausted = errors.New("reactor: cron schedule has no future run time")
)
