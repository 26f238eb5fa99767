//go:build darwin

package event

import (
	"golang.org/x/sys/unix"
)

// poller multiplexes events with kqueue. I/O events map to EVFILT_READ and
// EVFILT_WRITE filters on the fd, timer events to an EVFILT_TIMER filter
// with a per-event ident.
type poller struct {
	fds       map[int]*Event
	timers    map[int]*Event
	kq        int
	nextIdent int
	// filters currently registered per fd
	filters  map[int]Flags
	eventBuf [128]unix.Kevent_t
}

func newPoller() (*poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &poller{
		kq:      kq,
		fds:     make(map[int]*Event),
		timers:  make(map[int]*Event),
		filters: make(map[int]Flags),
	}, nil
}

func (p *poller) addIO(e *Event) error {
	if cur, ok := p.fds[e.fd]; ok && cur != e {
		return ErrFDInUse
	}
	want := e.what & (Read | Write)
	have := p.filters[e.fd]
	if have&^want != 0 {
		// ignore errors on delete, as per UnregisterFD
		_, _ = unix.Kevent(p.kq, filtersToKevents(e.fd, have&^want, unix.EV_DELETE), nil, nil)
	}
	if want&^have != 0 {
		if _, err := unix.Kevent(p.kq, filtersToKevents(e.fd, want&^have, unix.EV_ADD|unix.EV_ENABLE), nil, nil); err != nil {
			if have&want == 0 {
				delete(p.filters, e.fd)
				delete(p.fds, e.fd)
			} else {
				p.filters[e.fd] = have & want
			}
			return err
		}
	}
	p.filters[e.fd] = want
	p.fds[e.fd] = e
	return nil
}

func (p *poller) delIO(e *Event) error {
	if p.fds[e.fd] != e {
		return nil
	}
	have := p.filters[e.fd]
	delete(p.fds, e.fd)
	delete(p.filters, e.fd)
	if have != 0 {
		// closing an fd removes its filters, so errors here are expected
		_, _ = unix.Kevent(p.kq, filtersToKevents(e.fd, have, unix.EV_DELETE), nil, nil)
	}
	return nil
}

func (p *poller) addTimer(e *Event) error {
	if e.handle < 0 {
		p.nextIdent++
		e.handle = p.nextIdent
	}
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if e.what&Persist == 0 {
		flags |= unix.EV_ONESHOT
	}
	usec := e.timeout.Microseconds()
	if usec < 1 {
		usec = 1
	}
	change := []unix.Kevent_t{{
		Ident:  uint64(e.handle),
		Filter: unix.EVFILT_TIMER,
		Flags:  flags,
		Fflags: unix.NOTE_USECONDS,
		Data:   usec,
	}}
	if _, err := unix.Kevent(p.kq, change, nil, nil); err != nil {
		return err
	}
	p.timers[e.handle] = e
	return nil
}

func (p *poller) delTimer(e *Event) error {
	if e.handle < 0 {
		return nil
	}
	delete(p.timers, e.handle)
	change := []unix.Kevent_t{{
		Ident:  uint64(e.handle),
		Filter: unix.EVFILT_TIMER,
		Flags:  unix.EV_DELETE,
	}}
	// a fired one-shot timer is already gone
	if _, err := unix.Kevent(p.kq, change, nil, nil); err != nil && err != unix.ENOENT {
		return err
	}
	return nil
}

func (p *poller) release(e *Event) {
	e.handle = -1
}

func (p *poller) wait(block bool, activate func(*Event, Flags)) error {
	var ts *unix.Timespec
	if !block {
		ts = &unix.Timespec{}
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		kev := &p.eventBuf[i]
		if kev.Flags&unix.EV_ERROR != 0 {
			continue
		}
		switch kev.Filter {
		case unix.EVFILT_TIMER:
			if e, ok := p.timers[int(kev.Ident)]; ok {
				activate(e, Timeout)
			}
		case unix.EVFILT_READ:
			if e, ok := p.fds[int(kev.Ident)]; ok {
				activate(e, Read)
			}
		case unix.EVFILT_WRITE:
			if e, ok := p.fds[int(kev.Ident)]; ok {
				activate(e, Write)
			}
		}
	}
	return nil
}

func (p *poller) close() error {
	p.fds = nil
	p.timers = nil
	p.filters = nil
	return unix.Close(p.kq)
}

func filtersToKevents(fd int, what Flags, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if what&Read != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if what&Write != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	return kevents
}
