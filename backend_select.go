//go:build linux || darwin

package reactor

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fdSetSize is FD_SETSIZE, the exclusive upper bound for fds that select(2)
// can watch.
var fdSetSize = int(unsafe.Sizeof(unix.FdSet{})) * 8

// selectBackend expires timers from the reactor's timer collection, and
// waits on raw descriptor sets. The registry is read directly, so watch is
// only validation.
type selectBackend struct {
	r      *Reactor
	wakeFD int
	// reused snapshot buffers
	readBuf  []int
	writeBuf []int
}

func newSelectBackend(r *Reactor) (*selectBackend, error) {
	return &selectBackend{r: r, wakeFD: -1}, nil
}

func (b *selectBackend) checkFD(fd int) error {
	if fd < 0 || fd >= fdSetSize {
		return ErrFDOutOfRange
	}
	return nil
}

func (b *selectBackend) watch(int, IOEvents) error { return nil }

func (b *selectBackend) schedule(*Timer) error { return nil }

func (b *selectBackend) reschedule(*Timer) error { return nil }

func (b *selectBackend) unschedule(*Timer) {}

func (b *selectBackend) expire() {
	r := b.r
	for _, t := range r.timers.due(r.timers.update()) {
		// validated by fireTimer, since earlier callbacks may cancel it
		r.fireTimer(t)
	}
}

func (b *selectBackend) poll(timeout time.Duration) error {
	r := b.r

	// snapshot, since listeners may mutate the registry during dispatch
	read := append(b.readBuf[:0], r.streams.readOrder...)
	write := append(b.writeBuf[:0], r.streams.writeOrder...)
	b.readBuf, b.writeBuf = read, write

	if len(read) == 0 && len(write) == 0 && b.wakeFD < 0 {
		// nothing to select on, some platforms reject empty sets
		if timeout > 0 {
			r.clock.Sleep(timeout)
		}
		return nil
	}

	read, write, woke, err := selectReady(read, write, b.wakeFD, timeout)
	if err != nil {
		return err
	}

	if woke {
		drainWakeFd(b.wakeFD)
	}

	for _, fd := range read {
		if listener := r.streams.readListener(fd); listener != nil {
			listener(fd, r)
		}
	}
	for _, fd := range write {
		if listener := r.streams.writeListener(fd); listener != nil {
			listener(fd, r)
		}
	}

	return nil
}

func (b *selectBackend) setWake(fd int, enabled bool) error {
	if !enabled {
		b.wakeFD = -1
		return nil
	}
	if err := b.checkFD(fd); err != nil {
		return err
	}
	b.wakeFD = fd
	return nil
}

func (b *selectBackend) close() error {
	b.wakeFD = -1
	b.readBuf, b.writeBuf = nil, nil
	return nil
}

// selectReady waits using select(2), filtering read and write in place to
// the ready subset. Interrupted waits (EINTR) report nothing ready.
func selectReady(read, write []int, wake int, timeout time.Duration) ([]int, []int, bool, error) {
	var rset, wset unix.FdSet
	nfd := 0
	for _, fd := range read {
		rset.Set(fd)
		nfd = max(nfd, fd+1)
	}
	for _, fd := range write {
		wset.Set(fd)
		nfd = max(nfd, fd+1)
	}
	if wake >= 0 {
		rset.Set(wake)
		nfd = max(nfd, wake+1)
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		v := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &v
	}

	n, err := unix.Select(nfd, &rset, &wset, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return read[:0], write[:0], false, nil
		}
		return read[:0], write[:0], false, err
	}
	if n <= 0 {
		return read[:0], write[:0], false, nil
	}

	return filterFdSet(read, &rset), filterFdSet(write, &wset), wake >= 0 && rset.IsSet(wake), nil
}

func filterFdSet(fds []int, set *unix.FdSet) []int {
	ready := fds[:0]
	for _, fd := range fds {
		if set.IsSet(fd) {
			ready = append(ready, fd)
		}
	}
	return ready
}
