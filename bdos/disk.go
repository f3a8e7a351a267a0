package bdos

import "golang.org/x/sys/unix"

// diskFreeSectors reports the number of free 128-byte CP/M sectors on
// the host filesystem backing root - DRV_FREESPACE is the one BDOS
// function with a real host-OS counterpart to query rather than
// emulate.
func diskFreeSectors(root string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return 0, err
	}
	bytesFree := uint64(st.Bavail) * uint64(st.Bsize)
	return bytesFree / blkSize, nil
}
