//go:build linux

package consolein

import (
	"os"
	"syscall"
)

// canSelect reports whether STDIN has input ready, via a short
// select(2) against the raw file descriptor.
func canSelect() bool {

	var readfds syscall.FdSet

	fd := os.Stdin.Fd()
	readfds.Bits[fd/64] |= 1 << (fd % 64)

	nRead, err := syscall.Select(1, &readfds, nil, nil, &syscall.Timeval{Usec: 200})
	if err != nil {
		return false
	}

	return nRead > 0
}
