// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// TickListener is a callback deferred via [Loop.NextTick] or
// [Loop.FutureTick].
type TickListener func(loop Loop)

// Loop is the reactor contract. All methods must be called from the
// goroutine running the loop (e.g. from within callbacks), or while it is
// not running.
type Loop interface {
	// AddReadStream registers a listener, invoked when fd is readable.
	// Registering a second read listener for the same fd is a no-op.
	AddReadStream(fd int, listener StreamListener) error

	// AddWriteStream registers a listener, invoked when fd is writable.
	// Registering a second write listener for the same fd is a no-op.
	AddWriteStream(fd int, listener StreamListener) error

	RemoveReadStream(fd int)
	RemoveWriteStream(fd int)

	// RemoveStream removes both listeners, and releases all backend
	// resources held for fd.
	RemoveStream(fd int)

	// AddTimer schedules a one-shot callback, after interval.
	AddTimer(interval time.Duration, callback func(*Timer)) *Timer

	// AddPeriodicTimer schedules a callback every interval, anchored to
	// the time it was scheduled for, until cancelled.
	AddPeriodicTimer(interval time.Duration, callback func(*Timer)) *Timer

	// AddCronjob schedules a callback according to a cron expression.
	AddCronjob(expr string, callback func(*Timer)) (*Timer, error)

	CancelTimer(timer *Timer)
	IsTimerActive(timer *Timer) bool

	// NextTick defers a callback to the start of the next iteration, before
	// any future tick callbacks.
	NextTick(listener TickListener)

	// FutureTick defers a callback to the next iteration, after the next
	// tick callbacks.
	FutureTick(listener TickListener)

	// Tick performs a single iteration, without blocking.
	Tick()

	// Run performs iterations until stopped, the context is cancelled, or
	// there is no remaining work.
	Run(ctx context.Context) error

	// Stop causes Run to return after the current iteration.
	Stop()
}

// Reactor implements [Loop].
type Reactor struct {
	logger       *logiface.Logger[logiface.Event]
	failures     *catrate.Limiter
	clock        Clock
	cronLocation *time.Location

	nextTick   *tickQueue
	futureTick *tickQueue
	timers     *timerCollection
	streams    *streamRegistry

	backend backend
	kind    Backend

	wakeRead  int
	wakeWrite int

	// running is cleared by Stop
	running bool
	// inRun guards against concurrent or re-entrant Run
	inRun bool
	// inPass is set for the duration of each iteration, during which the
	// timer collection's cached time is used as-is
	inPass bool
	closed bool

	// wakeless bounds each wait while running without a wake fd, so that
	// cancellation is still observed
	wakeless time.Duration
}

// wakelessPollInterval is the longest a wait may block, while running with
// a cancellable context but no usable wake fd.
const wakelessPollInterval = 50 * time.Millisecond

var _ Loop = (*Reactor)(nil)

// New creates a reactor. It must be closed, to release the backend.
func New(opts ...Option) (*Reactor, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	failures, err := newFailureLimiter(cfg.failureLogRates)
	if err != nil {
		return nil, err
	}

	l := &Reactor{
		logger:       cfg.logger,
		failures:     failures,
		clock:        cfg.clock,
		cronLocation: cfg.cronLocation,
		timers:       newTimerCollection(cfg.clock),
		streams:      newStreamRegistry(),
		wakeRead:     -1,
		wakeWrite:    -1,
	}
	l.nextTick = newTickQueue(l)
	l.futureTick = newTickQueue(l)

	l.backend, l.kind, err = newBackend(l, cfg.backend)
	if err != nil {
		if errors.Is(err, ErrUnsupported) || errors.Is(err, ErrInvalidBackend) {
			return nil, err
		}
		return nil, fmt.Errorf("reactor: %s backend: %w", cfg.backend, err)
	}

	if r, w, err := createWakeFd(); err == nil {
		l.wakeRead, l.wakeWrite = r, w
	} else if !errors.Is(err, ErrUnsupported) {
		_ = l.backend.close()
		return nil, fmt.Errorf("reactor: wake fd: %w", err)
	}

	l.logger.Debug().
		Str(`backend`, l.kind.String()).
		Str(`requested`, cfg.backend.String()).
		Log(`reactor: created`)

	return l, nil
}

// Backend returns the backend in use, never [BackendAuto].
func (l *Reactor) Backend() Backend { return l.kind }

func (l *Reactor) AddReadStream(fd int, listener StreamListener) error {
	return l.addStream(fd, EventRead, listener)
}

func (l *Reactor) AddWriteStream(fd int, listener StreamListener) error {
	return l.addStream(fd, EventWrite, listener)
}

func (l *Reactor) addStream(fd int, dir IOEvents, listener StreamListener) error {
	if l.closed {
		return ErrLoopClosed
	}
	if listener == nil {
		return ErrNilListener
	}
	if err := l.backend.checkFD(fd); err != nil {
		return err
	}
	prev := l.streams.events(fd)
	if !l.streams.add(fd, dir, listener) {
		return nil
	}
	if err := l.backend.watch(fd, prev|dir); err != nil {
		l.streams.removeDir(fd, dir)
		if prev != 0 {
			if err := l.backend.watch(fd, prev); err != nil {
				l.logFailure(`watch`, err)
			}
		}
		return fmt.Errorf("reactor: watch fd %d: %w", fd, err)
	}
	return nil
}

func (l *Reactor) RemoveReadStream(fd int) { l.removeStream(fd, EventRead) }

func (l *Reactor) RemoveWriteStream(fd int) { l.removeStream(fd, EventWrite) }

func (l *Reactor) removeStream(fd int, dir IOEvents) {
	if l.closed || !l.streams.removeDir(fd, dir) {
		return
	}
	if err := l.backend.watch(fd, l.streams.events(fd)); err != nil {
		l.logFailure(`watch`, err)
	}
}

func (l *Reactor) RemoveStream(fd int) {
	if l.closed || !l.streams.remove(fd) {
		return
	}
	if err := l.backend.watch(fd, 0); err != nil {
		l.logFailure(`watch`, err)
	}
}

// AddTimer schedules a one-shot timer. Intervals less than [MinInterval]
// are clamped. If the backend fails to schedule the timer, the failure is
// logged, and the returned timer is inactive.
func (l *Reactor) AddTimer(interval time.Duration, callback func(*Timer)) *Timer {
	return l.addTimer(interval, callback, false)
}

// AddPeriodicTimer schedules a periodic timer. See also [Reactor.AddTimer].
func (l *Reactor) AddPeriodicTimer(interval time.Duration, callback func(*Timer)) *Timer {
	return l.addTimer(interval, callback, true)
}

func (l *Reactor) addTimer(interval time.Duration, callback func(*Timer), periodic bool) *Timer {
	if callback == nil {
		callback = func(*Timer) {}
	}
	t := newTimer(l, interval, callback, periodic)
	if l.closed {
		return t
	}
	l.refreshTime()
	l.timers.add(t)
	if err := l.backend.schedule(t); err != nil {
		l.timers.remove(t)
		l.logger.Err().
			Err(err).
			Dur(`interval`, t.interval).
			Bool(`periodic`, periodic).
			Log(`reactor: failed to schedule timer`)
	}
	return t
}

func (l *Reactor) CancelTimer(timer *Timer) {
	if timer == nil || !l.timers.remove(timer) {
		return
	}
	l.backend.unschedule(timer)
}

func (l *Reactor) IsTimerActive(timer *Timer) bool {
	return timer != nil && l.timers.contains(timer)
}

func (l *Reactor) NextTick(listener TickListener) {
	if listener != nil {
		l.nextTick.add(listener)
	}
}

func (l *Reactor) FutureTick(listener TickListener) {
	if listener != nil {
		l.futureTick.add(listener)
	}
}

// Tick performs a single, non-blocking iteration: drains both tick queues,
// fires due timers, then dispatches ready streams. Calling Tick from within
// a callback is a no-op.
func (l *Reactor) Tick() {
	if l.closed || l.inPass {
		return
	}
	l.beginPass()
	defer l.endPass()

	l.nextTick.drain()
	l.futureTick.drain()
	l.backend.expire()
	l.poll(0)
}

// Run performs iterations until [Reactor.Stop] is called, ctx is cancelled,
// or there is nothing left to do: both tick queues are empty, and there are
// no active timers or registered streams.
//
// Returns nil if stopped or out of work, or ctx.Err() if cancelled. Panics
// raised by callbacks propagate, leaving the loop usable.
//
// Cancellation interrupts a blocking wait via the wake fd. If the backend
// cannot watch it, e.g. it is at or above FD_SETSIZE with [BackendSelect],
// the failure is logged, and each wait is instead bounded, so cancellation
// is observed within a short interval.
func (l *Reactor) Run(ctx context.Context) error {
	if l.closed {
		return ErrLoopClosed
	}
	if l.inRun || l.inPass {
		return ErrLoopRunning
	}
	if ctx == nil {
		ctx = context.Background()
	}

	l.inRun = true
	l.running = true
	defer func() {
		l.inRun = false
		l.running = false
		l.wakeless = 0
	}()

	if ctx.Done() != nil {
		if l.wakeRead < 0 {
			l.wakeless = wakelessPollInterval
		} else if err := l.backend.setWake(l.wakeRead, true); err != nil {
			l.logFailure(`wake`, err)
			l.wakeless = wakelessPollInterval
		} else {
			defer func() {
				if err := l.backend.setWake(l.wakeRead, false); err != nil {
					l.logFailure(`wake`, err)
				}
			}()
			wakeWrite := l.wakeWrite
			done := make(chan struct{})
			stop := context.AfterFunc(ctx, func() {
				defer close(done)
				_ = signalWakeFd(wakeWrite)
			})
			defer func() {
				if !stop() {
					<-done
				}
			}()
		}
	}

	l.logger.Debug().
		Str(`backend`, l.kind.String()).
		Log(`reactor: run started`)

	reason := `stopped`
	for l.running {
		if err := ctx.Err(); err != nil {
			l.logger.Debug().Err(err).Log(`reactor: run cancelled`)
			return err
		}
		if !l.iterate(ctx) {
			reason = `no remaining work`
			break
		}
	}

	l.logger.Debug().
		Str(`reason`, reason).
		Log(`reactor: run finished`)

	return nil
}

// iterate performs one iteration of Run, returning false if there was no
// work to wait for.
func (l *Reactor) iterate(ctx context.Context) bool {
	l.beginPass()
	defer l.endPass()

	l.nextTick.drain()
	l.futureTick.drain()
	l.backend.expire()

	timeout, ok := l.waitTimeout(ctx)
	if !ok {
		return false
	}

	l.logPass(timeout)
	l.poll(timeout)
	return true
}

// waitTimeout returns how long the backend may wait, or false if there is
// nothing to wait for. Negative means indefinitely.
func (l *Reactor) waitTimeout(ctx context.Context) (time.Duration, bool) {
	if !l.running || ctx.Err() != nil || !l.nextTick.empty() || !l.futureTick.empty() {
		return 0, true
	}
	timeout := time.Duration(-1)
	if due, ok := l.timers.earliest(); ok {
		// kernel timers fire within the wait, and are armed relative to the
		// actual time, not the cached time
		if l.kind != BackendNative {
			timeout = max(0, due.Sub(l.timers.update()))
		}
	} else if l.streams.len() == 0 {
		return 0, false
	}
	if l.wakeless > 0 && (timeout < 0 || timeout > l.wakeless) {
		timeout = l.wakeless
	}
	return timeout, true
}

func (l *Reactor) poll(timeout time.Duration) {
	if err := l.backend.poll(timeout); err != nil {
		l.logFailure(`poll`, err)
	}
}

// Stop causes Run to return once the current iteration completes. It has
// no effect if the loop is not running.
func (l *Reactor) Stop() {
	l.running = false
}

// Close releases the backend and the wake fd. Active timers become
// inactive, and registered streams are forgotten, though not closed.
// It is an error to call Close while the loop is running.
func (l *Reactor) Close() error {
	if l.closed {
		return nil
	}
	if l.inRun || l.inPass {
		return ErrLoopRunning
	}
	l.closed = true

	l.timers.clear()
	l.streams.clear()

	err := l.backend.close()
	if err != nil {
		l.logger.Err().
			Err(err).
			Str(`backend`, l.kind.String()).
			Log(`reactor: failed to close backend`)
	}

	if l.wakeRead >= 0 {
		closeWakeFd(l.wakeRead, l.wakeWrite)
		l.wakeRead, l.wakeWrite = -1, -1
	}

	return err
}

// fireTimer invokes a timer's callback, if it is still active, then
// re-arms it if periodic, or cancels it. A one-shot timer is active during
// its own callback.
func (l *Reactor) fireTimer(t *Timer) {
	if !l.timers.contains(t) {
		return
	}
	defer func() {
		if !l.timers.contains(t) {
			return
		}
		if !t.periodic {
			l.CancelTimer(t)
			return
		}
		l.timers.reschedule(t)
		if err := l.backend.reschedule(t); err != nil {
			l.CancelTimer(t)
			l.logger.Err().
				Err(err).
				Dur(`interval`, t.interval).
				Log(`reactor: failed to reschedule timer`)
		}
	}()
	t.callback(t)
}

func (l *Reactor) beginPass() {
	l.inPass = true
	l.timers.update()
}

func (l *Reactor) endPass() {
	l.inPass = false
}

// refreshTime updates the timer collection's cached time, outside of an
// iteration, and returns it.
func (l *Reactor) refreshTime() time.Time {
	if l.inPass {
		return l.timers.current()
	}
	return l.timers.update()
}
