//go:build freebsd

package consolein

import (
	"os"
	"syscall"
)

// fdget returns index and offset of fd in fds.
func fdget(fd int, fds *syscall.FdSet) (index, offset int) {
	index = fd / (syscall.FD_SETSIZE / len(fds.X__fds_bits)) % len(fds.X__fds_bits)
	offset = fd % (syscall.FD_SETSIZE / len(fds.X__fds_bits))
	return
}

// fdset implements the FD_SET macro.
func fdset(fd int, fds *syscall.FdSet) {
	idx, pos := fdget(fd, fds)
	fds.X__fds_bits[idx] = 1 << uint(pos)
}

// canSelect reports whether STDIN has input ready, via a short
// select(2) against the raw file descriptor.
func canSelect() bool {

	var readfds syscall.FdSet

	fdset(int(os.Stdin.Fd()), &readfds)

	err := syscall.Select(1, &readfds, nil, nil, &syscall.Timeval{Usec: 200})
	if err != nil {
		return false
	}

	return true
}
