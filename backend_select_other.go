//go:build !linux && !darwin

package reactor

import (
	"time"
)

type selectBackend struct{}

func newSelectBackend(*Reactor) (*selectBackend, error) { return nil, ErrUnsupported }

func (*selectBackend) checkFD(int) error         { return ErrUnsupported }
func (*selectBackend) watch(int, IOEvents) error { return ErrUnsupported }
func (*selectBackend) schedule(*Timer) error     { return ErrUnsupported }
func (*selectBackend) reschedule(*Timer) error   { return ErrUnsupported }
func (*selectBackend) unschedule(*Timer)         {}
func (*selectBackend) expire()                   {}
func (*selectBackend) poll(time.Duration) error  { return ErrUnsupported }
func (*selectBackend) setWake(int, bool) error   { return ErrUnsupported }
func (*selectBackend) close() error              { return nil }
