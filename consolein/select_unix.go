//go:build unix && !linux && !freebsd

package consolein

import (
	"os"

	"golang.org/x/sys/unix"
)

// canSelect reports whether STDIN has input ready, via a short
// select(2) against the raw file descriptor.
func canSelect() bool {

	fds := &unix.FdSet{}
	fds.Set(int(os.Stdin.Fd()))

	tv := unix.Timeval{Usec: 200}

	nRead, err := unix.Select(1, fds, nil, nil, &tv)
	if err != nil {
		return false
	}

	return nRead > 0
}
