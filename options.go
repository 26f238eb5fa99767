// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// defaultFailureLogRates bounds how often suppressed backend failures are
// logged, per failure category.
var defaultFailureLogRates = map[time.Duration]int{
	time.Second: 5,
	time.Minute: 30,
}

// loopOptions holds configuration options for Reactor creation.
type loopOptions struct {
	backend         Backend
	clock           Clock
	logger          *logiface.Logger[logiface.Event]
	failureLogRates map[time.Duration]int
	cronLocation    *time.Location
}

// Option configures a Reactor instance.
type Option interface {
	applyLoop(*loopOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (o *optionImpl) applyLoop(opts *loopOptions) error {
	return o.applyLoopFunc(opts)
}

// WithBackend selects the readiness and timer strategy. Defaults to
// [BackendAuto]. Selecting a backend the platform doesn't support causes
// [New] to fail with [ErrUnsupported].
func WithBackend(backend Backend) Option {
	return &optionImpl{func(opts *loopOptions) error {
		if !backend.valid() {
			return ErrInvalidBackend
		}
		opts.backend = backend
		return nil
	}}
}

// WithClock sets the time source used by timers. Intended for testing,
// note that the native backend still uses kernel timers to decide when
// timers fire.
func WithClock(clock Clock) Option {
	return &optionImpl{func(opts *loopOptions) error {
		if clock == nil {
			return errors.New("reactor: nil clock")
		}
		opts.clock = clock
		return nil
	}}
}

// WithLogger configures structured logging. A nil logger (the default)
// disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithFailureLogRates sets the rate limits applied to logging of suppressed
// backend failures, e.g. an interrupted or failing wait. Rates are keyed by
// window, and must be monotonic (see the catrate package). A nil or empty
// map disables rate limiting.
func WithFailureLogRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *loopOptions) error {
		opts.failureLogRates = rates
		return nil
	}}
}

// WithCronLocation sets the location cron expressions are evaluated in,
// unless they specify CRON_TZ. Defaults to [time.Local].
func WithCronLocation(loc *time.Location) Option {
	return &optionImpl{func(opts *loopOptions) error {
		opts.cronLocation = loc
		return nil
	}}
}

// resolveOptions applies Option instances to loopOptions.
func resolveOptions(opts []Option) (*loopOptions, error) {
	cfg := &loopOptions{
		backend:         BackendAuto,
		clock:           realClock{},
		failureLogRates: defaultFailureLogRates,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
