package bdos

import (
	"context"
	"strings"

	"github.com/cpmhost/mtcpm/fcb"
	"github.com/cpmhost/mtcpm/hal"
)

// ccpBufAddr is the scratch guest address the CCP's host-side helpers
// marshal FCBs and path strings through on their way into the real
// BDOS dispatch table - the same BDOSTempBuffer a guest program's own
// path-building handlers use, since the CCP and the program it is about
// to run are never resident at the same time.
const ccpBufAddr = hal.BDOSTempBuffer

// Print emits a host string straight to the session's console output,
// the same path doError uses for its messages - exported for the CCP's
// banner, prompt and built-in command output.
func (b *BDOS) Print(s string) {
	b.writeConsole(s)
}

// ReadLine prompts for (and returns) one line of input through the real
// function-10 console line editor, the same path a guest program's own
// "read command" loop would take - the CCP is a native-Go command
// processor, but it is still just another BDOS client. A CTRL-C ends a
// running program, but at the prompt there is no program to end: the
// halted flag it raises is cleared here and reported back as ctrlC.
func (b *BDOS) ReadLine(ctx context.Context, max uint8) (line string, ctrlC bool, err error) {
	b.HAL.Memory.Set(ccpBufAddr, max)
	if err := b.Call(ctx, 10, ccpBufAddr, 0, 0); err != nil {
		return "", false, err
	}
	if b.BIOS.Halted() {
		b.BIOS.ClearHalted()
		return "", true, nil
	}
	n := b.HAL.Memory.Get(ccpBufAddr + 1)
	return string(b.HAL.Memory.GetRange(ccpBufAddr+2, int(n))), false, nil
}

// CurrentDrive and CurrentUser expose the SCB's active drive/user to
// the CCP prompt and built-ins without reaching into the SCB struct
// directly from another package.
func (b *BDOS) CurrentDrive() int { return int(b.SCB.CurrentDrive) }
func (b *BDOS) CurrentUser() int  { return int(b.SCB.CurrentUser) }

// SelectDrive implements the CCP's bare "A:" drive-change command via
// the real BDOS function 14, so an invalid drive is rejected exactly as
// a guest program's own DRV_SET call would be.
func (b *BDOS) SelectDrive(ctx context.Context, drive int) error {
	return b.Call(ctx, 14, 0, uint16(drive), 0)
}

// SetUser implements the CCP's USER built-in via the real BDOS
// function 32, exactly as a guest program's F_USERNUM set call would.
func (b *BDOS) SetUser(ctx context.Context, user int) error {
	return b.Call(ctx, 32, 0, uint16(user), 0)
}

// encodeFCB builds a guest FCB from a CCP argument, uppercasing and
// expanding wildcards the way ParseFilename does, and writes it to the
// scratch buffer, returning its guest address.
func (b *BDOS) encodeFCB(arg string) uint16 {
	var f fcb.FCB
	for i := range f.Name {
		f.Name[i] = ' '
	}
	for i := range f.Type {
		f.Type[i] = ' '
	}
	fcb.ParseFilename(strings.TrimSpace(arg), &f)
	b.putFCB(ccpBufAddr, f)
	return ccpBufAddr
}

// DeleteFiles implements the CCP's ERA built-in via the real BDOS
// function 19 (wildcards and all).
func (b *BDOS) DeleteFiles(ctx context.Context, pattern string) (uint8, error) {
	addr := b.encodeFCB(pattern)
	if err := b.Call(ctx, 19, addr, 0, 0); err != nil {
		return 0, err
	}
	return b.HAL.GetA(), nil
}

// RenameFile implements the CCP's RENAME built-in via BDOS function 23:
// the destination name occupies FCB+16..+31, per the guest ABI.
func (b *BDOS) RenameFile(ctx context.Context, from, to string) (uint8, error) {
	addr := b.encodeFCB(from)

	var dst fcb.FCB
	for i := range dst.Name {
		dst.Name[i] = ' '
	}
	for i := range dst.Type {
		dst.Type[i] = ' '
	}
	fcb.ParseFilename(strings.TrimSpace(to), &dst)
	b.HAL.Memory.PutRange(addr+16, dst.AsBytes()[1:12]...)

	if err := b.Call(ctx, 23, addr, 0, 0); err != nil {
		return 0, err
	}
	return b.HAL.GetA(), nil
}

// MakeDir implements the CCP's MKDIR built-in via BDOS function 22 with
// the FCB's bit-7 "create directory" flag set.
func (b *BDOS) MakeDir(ctx context.Context, name string) (uint8, error) {
	addr := b.encodeFCB(name)
	f := b.fcbAt(addr)
	f.Drive |= 0x80
	b.putFCB(addr, f)
	if err := b.Call(ctx, 22, addr, 0, 0); err != nil {
		return 0, err
	}
	return b.HAL.GetA(), nil
}

// RemoveDir implements the CCP's RMDIR built-in: a directory FCB (marked
// via the "[D]" extension the codec uses) deleted through the same
// BDOS function 19 path a file ERA takes.
func (b *BDOS) RemoveDir(ctx context.Context, name string) (uint8, error) {
	addr := b.encodeFCB(name)
	f := b.fcbAt(addr)
	copy(f.Type[:], fcb.DirectoryExt)
	b.putFCB(addr, f)
	if err := b.Call(ctx, 19, addr, 0, 0); err != nil {
		return 0, err
	}
	return b.HAL.GetA(), nil
}

// CopyFile implements the CCP's COPY built-in via the 0xD4 extension
// function: src/dst are zero-terminated guest strings, B's bit 0 is
// overwrite, bit 1 is progress display.
func (b *BDOS) CopyFile(ctx context.Context, src, dst string, overwrite, progress bool) (uint8, error) {
	srcAddr := uint16(ccpBufAddr)
	dstAddr := uint16(ccpBufAddr + 256)
	b.HAL.Memory.PutRange(srcAddr, append([]byte(src), 0)...)
	b.HAL.Memory.PutRange(dstAddr, append([]byte(dst), 0)...)

	var flags uint16
	if overwrite {
		flags |= 0x01
	}
	if progress {
		flags |= 0x02
	}
	if err := b.Call(ctx, 0xD4, dstAddr, flags<<8, srcAddr); err != nil {
		return 0, err
	}
	return b.HAL.GetA(), nil
}

// ChangeDir implements the CCP's CD built-in via the 0xD5 extension
// function.
func (b *BDOS) ChangeDir(ctx context.Context, path string) (uint8, error) {
	addr := uint16(ccpBufAddr)
	b.HAL.Memory.PutRange(addr, append([]byte(path), 0)...)
	if err := b.Call(ctx, 0xD5, addr, 0, 0); err != nil {
		return 0, err
	}
	return b.HAL.GetA(), nil
}

// CurrentDirName returns the current drive's current directory, for the
// CCP's PATH/prompt display.
func (b *BDOS) CurrentDirName() string {
	return b.Mount.CurrentDir(b.CurrentDrive())
}

// DriveMounted reports whether the given 0-based drive index has a host
// path mounted, for the CCP's drive-change validation and DIR/LS target
// resolution.
func (b *BDOS) DriveMounted(drive int) bool {
	return b.Mount.IsMounted(drive)
}
