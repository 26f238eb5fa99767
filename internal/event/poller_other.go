//go:build !linux && !darwin

package event

type poller struct{}

func newPoller() (*poller, error) { return nil, ErrUnsupported }

func (*poller) addIO(*Event) error                   { return ErrUnsupported }
func (*poller) delIO(*Event) error                   { return ErrUnsupported }
func (*poller) addTimer(*Event) error                { return ErrUnsupported }
func (*poller) delTimer(*Event) error                { return ErrUnsupported }
func (*poller) release(*Event)                       {}
func (*poller) wait(bool, func(*Event, Flags)) error { return ErrUnsupported }
func (*poller) close() error                         { return nil }
