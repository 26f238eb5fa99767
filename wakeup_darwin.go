//go:build darwin

package reactor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// createWakeFd creates a self-pipe for wake-up notifications (Darwin).
// Returns the read end and the write end of the pipe.
func createWakeFd() (int, int, error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}

	// on failure, close both pipe ends to avoid leaking them
	cleanup := func() {
		_ = syscall.Close(fds[0])
		_ = syscall.Close(fds[1])
	}

	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return -1, -1, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return -1, -1, err
	}

	return fds[0], fds[1], nil
}

func closeWakeFd(r, w int) {
	_ = unix.Close(r)
	_ = unix.Close(w)
}
