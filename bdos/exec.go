package bdos

import (
	"context"
	"os"
	"strings"

	"github.com/cpmhost/mtcpm/fcb"
	"github.com/cpmhost/mtcpm/hal"
	"github.com/cpmhost/mtcpm/scb"
)

// COM-header and RSX-record-table offsets, relative to TPABase, for the
// RSX-container detection execLoadedProgram performs.
const (
	comHeadLen        = 0x01 // word: main program length
	comHeadInit       = 0x03 // pre-init entry point
	comHeadRSXCount   = 0x0F
	comHeadRSXRecords = 0x10
	rsxRecordSize     = 16

	rsxRecordOffset  = 0x00 // word, relative to TPABase
	rsxRecordCodeLen = 0x02 // word
	rsxRecordNonBank = 0x04 // byte: 0 means "load me"
	rsxRecordName    = 0x06 // 8 bytes

	ccpFlags1NullRSX = 0x02
)

// bdosChain implements F_CHAIN (func 47): the command line is already
// in the default DMA (length-prefixed); E=0xFF asks the CCP to keep the
// current drive/user instead of resetting to the values the next
// program's command line would otherwise select. Returning
// errChainPending tells Wire's hook to stop the CPU rather than resume
// the (now terminated) caller.
func bdosChain(ctx context.Context, b *BDOS) error {
	length := b.HAL.Memory.Get(b.SCB.DMA)
	tail := string(b.HAL.Memory.GetRange(b.SCB.DMA+1, int(length)))

	b.chainPending = tail
	b.chainPreserveDU = b.HAL.GetE() == 0xFF
	b.BIOS.Halt()
	return errChainPending
}

// ChainPending returns the command line queued by the most recent Chain
// call (func 47), and whether it asked to preserve drive/user, clearing
// both - the CCP driver loop calls this once per halted program to
// decide what runs next.
func (b *BDOS) ChainPending() (line string, preserveDU bool, ok bool) {
	if b.chainPending == "" {
		return "", false, false
	}
	line, preserveDU = b.chainPending, b.chainPreserveDU
	b.chainPending, b.chainPreserveDU = "", false
	return line, preserveDU, true
}

// readGuestLine reads a byte string from guest memory, stopping at a NUL
// or CR, used by Parse Filename to pull its input out of the TPA.
func (b *BDOS) readGuestLine(addr uint16) string {
	var sb strings.Builder
	for i := 0; i < 255; i++ {
		c := b.HAL.Memory.Get(addr + uint16(i))
		if c == 0x00 || c == 0x0D {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// bdosParseFilename implements PARSE_FNAME (func 152): DE points to a
// {strAddr, FCBaddr} pair in guest memory.
func bdosParseFilename(ctx context.Context, b *BDOS) error {
	ptr := b.HAL.GetDE()
	strAddr := b.HAL.Memory.GetU16(ptr)
	fcbAddr := b.HAL.Memory.GetU16(ptr + 2)

	line := b.readGuestLine(strAddr)

	var f fcb.FCB
	for i := range f.Name {
		f.Name[i] = ' '
	}
	for i := range f.Type {
		f.Type[i] = ' '
	}
	rest, _ := fcb.ParseFilename(line, &f)
	b.putFCB(fcbAddr, f)

	if rest == "" {
		b.HAL.SetHL(0)
	} else {
		consumed := len(line) - len(rest)
		b.HAL.SetHL(strAddr + uint16(consumed))
	}
	setResult(b.HAL, 0x00)
	return nil
}

// searchDrives returns the ordered list of drives execProgram should
// look for a command in: SCB.SearchPath if set (semicolon-separated
// "D:" specs), else the current drive followed by SCB.DriveSearchChain.
func (b *BDOS) searchDrives() []int {
	if b.SCB.SearchPath != "" {
		var drives []int
		for _, spec := range strings.Split(b.SCB.SearchPath, ";") {
			spec = strings.TrimSpace(spec)
			if len(spec) >= 1 && spec[0] >= 'A' && spec[0] <= 'P' {
				drives = append(drives, int(spec[0]-'A'))
			}
		}
		return drives
	}

	drives := []int{int(b.SCB.CurrentDrive)}
	for _, d := range b.SCB.DriveSearchChain {
		if d == 0xFF {
			break
		}
		drives = append(drives, int(d))
	}
	return drives
}

// findProgram locates name (extension optional) on the drives
// execProgram is configured to search, trying .COM/.SUB in the order
// SCB.CCPFlags2's file-search-order bit selects. It returns the host
// path, the drive it was found on, and whether the match was a .SUB
// file (which must be run via SUBMIT.COM per spec).
func (b *BDOS) findProgram(name string) (path string, drive int, isSub bool, err error) {
	base := name
	ext := ""
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		base, ext = name[:dot], name[dot+1:]
	}

	tryExts := []string{"COM", "SUB"}
	if b.SCB.CCPFlags2&(1<<scb.CCPFlags2FileSearchOrderBit) != 0 {
		tryExts = []string{"SUB", "COM"}
	}
	if ext != "" {
		tryExts = []string{ext}
	}

	for _, d := range b.searchDrives() {
		dirPath, derr := b.Mount.HostPath(d)
		if derr != nil {
			continue
		}
		for _, e := range tryExts {
			candidate := base
			if e != "" {
				candidate += "." + e
			}
			full, ferr := findCaseInsensitive(dirPath, candidate)
			if ferr == nil {
				return full, d, strings.EqualFold(e, "SUB"), nil
			}
		}
	}
	return "", 0, false, os.ErrNotExist
}

func findCaseInsensitive(dirPath, name string) (string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), name) {
			return dirPath + string(os.PathSeparator) + e.Name(), nil
		}
	}
	return "", os.ErrNotExist
}

// ExecProgram implements execProgram: locate name on the configured
// search drives, load it into the TPA, and hand off to
// execLoadedProgram. A .SUB match is redirected to SUBMIT.COM with the
// .SUB filename prepended to its command tail, per spec.
func (b *BDOS) ExecProgram(ctx context.Context, name, tail string) error {
	path, drive, isSub, err := b.findProgram(name)
	if err != nil {
		b.writeConsole(name + "?\r\n")
		return nil
	}

	if isSub {
		submitPath, submitDrive, _, serr := b.findProgram("SUBMIT.COM")
		if serr != nil {
			b.writeConsole("No SUBMIT.COM\r\n")
			return nil
		}
		tail = strings.TrimSuffix(strings.ToUpper(name), ".SUB") + " " + tail
		path, drive = submitPath, submitDrive
	}

	data, err := os.ReadFile(path)
	if err != nil {
		b.writeConsole("Error reading " + name + "\r\n")
		return nil
	}

	tpaSize := int(b.SCB.TPATop) - hal.TPABase
	if len(data) > tpaSize {
		b.writeConsole("Program too large\r\n")
		return nil
	}

	b.HAL.Memory.Set(hal.Page0DefaultDMA, uint8(len(tail)))
	if len(tail) > 0 {
		b.HAL.Memory.PutRange(hal.Page0DefaultDMA+1, []byte(tail)...)
	}

	var f1, f2 fcb.FCB
	for i := range f1.Name {
		f1.Name[i], f2.Name[i] = ' ', ' '
	}
	for i := range f1.Type {
		f1.Type[i], f2.Type[i] = ' ', ' '
	}
	fields := strings.Fields(tail)
	if len(fields) > 0 {
		f1 = fcb.FromString(fields[0])
	}
	if len(fields) > 1 {
		f2 = fcb.FromString(fields[1])
	}
	b.putFCB(hal.Page0FCB1, f1)
	b.putFCB(hal.Page0FCB2, f2)

	b.HAL.Memory.LoadBytes(hal.TPABase, data)
	b.HAL.Memory.Set(hal.Page0LoadDrive, uint8(drive+1))

	return b.execLoadedProgram(ctx, len(data))
}

// execLoadedProgram runs whatever is sitting in the TPA: reset the
// session's program-scoped SCB fields, detect and install an RSX
// container, run the program, then tear down (remove flagged RSXes,
// restore Page0's BDOS vector and warm-boot jump via BIOS.Halt). The
// TPA's memory pages are not released; they stay allocated after the
// program returns.
func (b *BDOS) execLoadedProgram(ctx context.Context, size int) error {
	b.SCB.MultiSectorCount = 1
	b.SCB.OutputDelimiter = '$'
	b.SCB.DMA = hal.Page0DefaultDMA
	b.SCB.ConsoleMode = 0
	b.SCB.ErrorMode = scb.ErrorModeDefault
	b.SCB.ErrorDrive = 0
	b.BIOS.ClearHalted()

	onlyRSX := false
	if b.HAL.Memory.Get(hal.TPABase) == 0xC9 && size > 0xFF {
		onlyRSX = b.installContainerRSX(ctx)
	}

	b.HAL.PushStack(hal.Page0WBootJP)
	if err := b.HAL.Exec(ctx, hal.TPABase, 0xFFFF); err != nil {
		return err
	}

	if !onlyRSX {
		b.removeFlaggedRSX()
	}
	b.SCB.CCPFlags1 &^= ccpFlags1NullRSX

	b.BIOS.Halt()
	return nil
}

// installContainerRSX walks a loaded COM's RSX record table, relocating
// and installing each non-banked record into high memory via the RSX
// chain, then slides the main program down from TPABase+0x100 to
// TPABase. It reports whether the container held RSXes only (a bare RET
// as the main program), in which case the caller skips one RSX removal
// pass.
func (b *BDOS) installContainerRSX(ctx context.Context) bool {
	b.HAL.PushStack(0xFFFF)
	b.HAL.Exec(ctx, hal.TPABase+comHeadInit, 0xFFFF)

	count := b.HAL.Memory.Get(hal.TPABase + comHeadRSXCount)
	onlyRSX := b.HAL.Memory.Get(hal.TPABase+256) == 0xC9
	if onlyRSX {
		b.SCB.CCPFlags1 |= ccpFlags1NullRSX
	}

	for i := uint16(0); i < uint16(count); i++ {
		rec := hal.TPABase + comHeadRSXRecords + i*rsxRecordSize
		if b.HAL.Memory.Get(rec+rsxRecordNonBank) != 0x00 {
			continue
		}
		codePos := b.HAL.Memory.GetU16(rec + rsxRecordOffset)
		codeLen := b.HAL.Memory.GetU16(rec + rsxRecordCodeLen)
		var name [8]byte
		copy(name[:], b.HAL.Memory.GetRange(rec+rsxRecordName, 8))
		b.installRSX(hal.TPABase+codePos, codeLen, name)
	}

	progLen := b.HAL.Memory.GetU16(hal.TPABase + comHeadLen)
	b.HAL.Memory.MoveMem(hal.TPABase, hal.TPABase+0x100, int(progLen))
	return onlyRSX
}

// installRSX relocates one RSX code image (imageAddr, imageLen bytes,
// followed by its bit-per-byte relocation map) into a freshly chosen,
// page-aligned address below the current head of the RSX chain, and
// installs it as the new head - updating Page0's BDOS vector and the
// SCB's TPATop. The chain's own prev/next bookkeeping lives in the rsx
// package's arena rather than in guest-resident prefix bytes.
func (b *BDOS) installRSX(imageAddr, imageLen uint16, name [8]byte) {
	headEntry := b.RSX.HeadAddr()
	if headEntry == 0 {
		headEntry = hal.BDOSEntry
	}
	thisAddr := (headEntry - imageLen) & 0xFF00

	relmapAddr := imageAddr + imageLen
	offset := uint8((thisAddr >> 8) - 1)
	for i := uint16(0); i < imageLen; i++ {
		v := b.HAL.Memory.Get(imageAddr + i)
		bit := b.HAL.Memory.Get(relmapAddr + i/8)
		if bit&(1<<(7-uint(i%8))) != 0 {
			v += offset
		}
		b.HAL.Memory.Set(thisAddr+i, v)
	}

	b.RSX.Install(name, thisAddr, imageLen)
	b.HAL.Memory.SetU16(hal.Page0OSBase, thisAddr)
	b.SCB.TPATop = thisAddr
}

// removeFlaggedRSX drops every RSX a Go-side caller (func 60 Call RSX,
// once a real in-process RSX is installed) has marked for removal via
// MarkRemove, reclaiming its TPA space. This emulator keeps no
// guest-resident prefix header, so an RSX image itself has no mapped
// REMOVE byte to poke; removal is driven entirely through the rsx.Chain
// API instead.
func (b *BDOS) removeFlaggedRSX() {
	reclaimed := b.RSX.RemoveFlagged()
	b.SCB.TPATop += reclaimed
	if b.RSX.Empty() {
		b.HAL.Memory.SetU16(hal.Page0OSBase, hal.BDOSEntry)
	} else {
		b.HAL.Memory.SetU16(hal.Page0OSBase, b.RSX.HeadAddr())
	}
}
