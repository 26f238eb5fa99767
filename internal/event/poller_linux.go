//go:build linux

package event

import (
	"golang.org/x/sys/unix"
)

// poller multiplexes I/O events with epoll. Each timer event owns a
// timerfd, which is itself watched by the same epoll instance.
type poller struct {
	// fd or timerfd -> event
	fds      map[int]*Event
	epfd     int
	eventBuf [128]unix.EpollEvent
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{
		epfd: epfd,
		fds:  make(map[int]*Event),
	}, nil
}

func (p *poller) addIO(e *Event) error {
	op := unix.EPOLL_CTL_ADD
	if cur, ok := p.fds[e.fd]; ok {
		if cur != e {
			return ErrFDInUse
		}
		op = unix.EPOLL_CTL_MOD
	}
	ev := unix.EpollEvent{
		Events: flagsToEpoll(e.what),
		Fd:     int32(e.fd),
	}
	if err := unix.EpollCtl(p.epfd, op, e.fd, &ev); err != nil {
		return err
	}
	p.fds[e.fd] = e
	return nil
}

func (p *poller) delIO(e *Event) error {
	if p.fds[e.fd] != e {
		return nil
	}
	delete(p.fds, e.fd)
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, e.fd, nil)
	if err == unix.EBADF || err == unix.ENOENT {
		// closed before it was deleted, the kernel already dropped it
		return nil
	}
	return err
}

func (p *poller) addTimer(e *Event) error {
	if e.handle < 0 {
		tfd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
		if err != nil {
			return err
		}
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(tfd)}
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, tfd, &ev); err != nil {
			_ = unix.Close(tfd)
			return err
		}
		e.handle = tfd
		p.fds[tfd] = e
	}
	spec := unix.ItimerSpec{Value: unix.NsecToTimespec(e.timeout.Nanoseconds())}
	if e.what&Persist != 0 {
		spec.Interval = spec.Value
	}
	return unix.TimerfdSettime(e.handle, 0, &spec, nil)
}

func (p *poller) delTimer(e *Event) error {
	if e.handle < 0 {
		return nil
	}
	// disarm, keeping the timerfd for a later Add
	var spec unix.ItimerSpec
	err := unix.TimerfdSettime(e.handle, 0, &spec, nil)
	p.drainTimer(e.handle)
	return err
}

func (p *poller) release(e *Event) {
	if e.handle < 0 {
		return
	}
	delete(p.fds, e.handle)
	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, e.handle, nil)
	_ = unix.Close(e.handle)
	e.handle = -1
}

func (p *poller) wait(block bool, activate func(*Event, Flags)) error {
	timeout := 0
	if block {
		timeout = -1
	}
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		e, ok := p.fds[fd]
		if !ok {
			continue
		}
		if e.handle == fd {
			if p.drainTimer(fd) {
				activate(e, Timeout)
			}
			continue
		}
		activate(e, epollToFlags(p.eventBuf[i].Events))
	}
	return nil
}

// drainTimer consumes the expiration counter, reporting whether the timer
// had expired at least once.
func (p *poller) drainTimer(tfd int) bool {
	var buf [8]byte
	n, err := unix.Read(tfd, buf[:])
	return err == nil && n == len(buf)
}

func (p *poller) close() error {
	for fd, e := range p.fds {
		if e.handle == fd {
			_ = unix.Close(fd)
			e.handle = -1
		}
	}
	p.fds = nil
	return unix.Close(p.epfd)
}

func flagsToEpoll(what Flags) uint32 {
	var events uint32
	if what&Read != 0 {
		events |= unix.EPOLLIN
	}
	if what&Write != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

// epollToFlags maps readiness, treating error and hangup conditions as
// both readable and writable, so the owner gets a chance to observe them.
func epollToFlags(events uint32) Flags {
	var what Flags
	if events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		what |= Read
	}
	if events&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		what |= Write
	}
	return what
}
