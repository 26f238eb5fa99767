//go:build linux || darwin

package reactor

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// signalWakeFd makes the read end of the wake fd readable. It is the only
// operation performed off the loop goroutine.
func signalWakeFd(w int) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(w, buf[:])
	if err == unix.EAGAIN {
		// already signalled, and not yet drained
		return nil
	}
	return err
}

// drainWakeFd consumes all pending wake-up notifications.
func drainWakeFd(r int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(r, buf[:]); err != nil {
			break
		}
	}
}
