//go:build !linux && !darwin

package reactor

func createWakeFd() (int, int, error) { return -1, -1, ErrUnsupported }

func closeWakeFd(r, w int) {}

func signalWakeFd(w int) error { return ErrUnsupported }

func drainWakeFd(r int) {}
