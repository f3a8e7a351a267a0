package bdos

import (
	"context"

	"github.com/cpmhost/mtcpm/hal"
	"github.com/cpmhost/mtcpm/mount"
	"github.com/cpmhost/mtcpm/scb"
)

// Control bytes the console functions recognise directly (linedit.go
// handles the rest, for func 10's line editor).
const (
	CR      = 0x0D
	LF      = 0x0A
	Tab     = 0x09
	CtrlC   = 0x03
	CtrlP   = 0x10
	CtrlS   = 0x13
	CtrlQ   = 0x11
)

// bdosExit implements P_TERMCPM (func 0): stop the current program the
// same way BIOS BOOT/WBOOT would, without waiting for the guest to jump
// through the BIOS table itself.
func bdosExit(ctx context.Context, b *BDOS) error {
	b.SCB.ProgramReturnCode = 0x0000
	b.BIOS.Halt()
	setResult(b.HAL, 0x00)
	return nil
}

// bdosConsoleInput implements C_READ (func 1): block for one character,
// echoing it, honouring CTRL-P/S/Q/C exactly as func 10's line editor
// does for a single byte.
func bdosConsoleInput(ctx context.Context, b *BDOS) error {
	for {
		c, err := b.byteIn(ctx)
		if err != nil {
			return err
		}
		switch c {
		case CtrlP:
			b.printerEcho = !b.printerEcho
			continue
		case CtrlS:
			for {
				n, err := b.byteIn(ctx)
				if err != nil {
					return err
				}
				if n == CtrlQ || n != CtrlS {
					break
				}
			}
			continue
		case CtrlC:
			if b.SCB.ConsoleMode&0x01 == 0 {
				b.SCB.ProgramReturnCode = 0xFFFE
				b.BIOS.Halt()
				setResult(b.HAL, CtrlC)
				return nil
			}
		}
		b.byteOut(c)
		setResult(b.HAL, c)
		return nil
	}
}

// bdosConsoleOutput implements C_WRITE (func 2): emit the byte in E,
// expanding TAB to the next 8-column stop and honouring printer echo.
func bdosConsoleOutput(ctx context.Context, b *BDOS) error {
	b.outputExpanded(b.HAL.GetE())
	setResult(b.HAL, 0x00)
	return nil
}

// outputExpanded writes a single console byte, expanding TAB into
// spaces up to the next multiple-of-8 column.
func (b *BDOS) outputExpanded(c byte) {
	if c == Tab {
		n := 8 - (b.consoleColumn % 8)
		for i := uint8(0); i < n; i++ {
			b.byteOut(' ')
		}
		return
	}
	b.byteOut(c)
}

// bdosAuxInput implements A_READ (func 3): one byte from the auxiliary
// logical input device, no modifier-key interception.
func bdosAuxInput(ctx context.Context, b *BDOS) error {
	c, err := b.HAL.DevIn(ctx, b.SCB.DeviceMask[2])
	if err != nil {
		return err
	}
	setResult(b.HAL, c)
	return nil
}

// bdosAuxOutput implements A_WRITE (func 4): E to the auxiliary logical
// output device.
func bdosAuxOutput(ctx context.Context, b *BDOS) error {
	b.HAL.DevOut(b.SCB.DeviceMask[3], b.HAL.GetE())
	setResult(b.HAL, 0x00)
	return nil
}

// bdosListOutput implements L_WRITE (func 5): E to the list device.
func bdosListOutput(ctx context.Context, b *BDOS) error {
	b.HAL.DevOut(b.SCB.DeviceMask[4], b.HAL.GetE())
	setResult(b.HAL, 0x00)
	return nil
}

// bdosNop answers functions that exist in the numbering but have no
// work to do against a host filesystem (flush, free-blocks): always
// success.
func bdosNop(ctx context.Context, b *BDOS) error {
	setResult(b.HAL, 0x00)
	return nil
}

// bdosDirectIO implements C_RAWIO (func 6): E=0xFF non-blocking read,
// 0xFE status, 0xFD blocking read, else raw output with no modifier-key
// interception.
func bdosDirectIO(ctx context.Context, b *BDOS) error {
	e := b.HAL.GetE()
	switch e {
	case 0xFF:
		if b.HAL.DevInAvailable(b.SCB.DeviceMask[0]) {
			c, err := b.byteIn(ctx)
			if err != nil {
				return err
			}
			setResult(b.HAL, c)
		} else {
			setResult(b.HAL, 0x00)
		}
	case 0xFE:
		if b.HAL.DevInAvailable(b.SCB.DeviceMask[0]) {
			setResult(b.HAL, 0xFF)
		} else {
			setResult(b.HAL, 0x00)
		}
	case 0xFD:
		c, err := b.byteIn(ctx)
		if err != nil {
			return err
		}
		setResult(b.HAL, c)
	default:
		b.HAL.DevOut(b.SCB.DeviceMask[1], e)
		setResult(b.HAL, 0x00)
	}
	return nil
}

// bdosWriteString implements C_WRITESTRING (func 9): emit bytes from DE
// until the current output delimiter (SCB_DELIMITER_B, '$' by default).
func bdosWriteString(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	for {
		c := b.HAL.Memory.Get(addr)
		if c == b.SCB.OutputDelimiter {
			break
		}
		b.outputExpanded(c)
		addr++
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosReadString implements C_READSTRING (func 10): the line editor,
// reading the buffer's declared max length from byte 0 of the guest
// buffer and writing length+text back per the CP/M-3 console-buffer
// layout (byte 0 = max, byte 1 = actual, bytes 2.. = text).
func bdosReadString(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	max := b.HAL.Memory.Get(addr)

	disableCtrlC := b.SCB.ConsoleMode&0x01 != 0
	res, err := b.Editor.ReadLine(ctx, b.byteIn, b.byteOut, max, disableCtrlC, b.printerEcho)
	if err != nil {
		return err
	}
	b.printerEcho = res.PrinterEcho

	if res.CtrlC {
		b.SCB.ProgramReturnCode = 0xFFFE
		b.BIOS.Halt()
		setResult(b.HAL, 0x00)
		return nil
	}

	b.HAL.Memory.Set(addr+1, uint8(len(res.Text)))
	for i := 0; i < len(res.Text) && i < int(max); i++ {
		b.HAL.Memory.Set(addr+2+uint16(i), res.Text[i])
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosConsoleStatus implements C_STAT (func 11). In "CTRL-C only" mode
// (SCB console mode bit 1) it always reports not ready, even when the
// pending key is CTRL-C.
func bdosConsoleStatus(ctx context.Context, b *BDOS) error {
	ready := b.HAL.DevInAvailable(b.SCB.DeviceMask[0])
	if ready && b.SCB.ConsoleMode&0x02 != 0 {
		// Peeking without consuming isn't available through the
		// blocking InputDevice interface, so "CTRL-C only" mode
		// reports not-ready: a following func 1/10 call still
		// observes the pending CTRL-C normally.
		ready = false
	}
	if ready {
		setResult(b.HAL, 0xFF)
	} else {
		setResult(b.HAL, 0x00)
	}
	return nil
}

// bdosVersion implements S_BDOSVER (func 12): CP/M-3.1, A=L=0x31, B=H=0.
func bdosVersion(ctx context.Context, b *BDOS) error {
	b.HAL.SetA(0x31)
	b.HAL.SetL(0x31)
	b.HAL.SetH(0x00)
	b.HAL.SetB(0x00)
	return nil
}

// bdosResetDisk implements DRV_ALLRESET (func 13).
func bdosResetDisk(ctx context.Context, b *BDOS) error {
	b.SCB.ResetDisk()
	setResult(b.HAL, 0x00)
	return nil
}

// bdosSelectDisk implements DRV_SET (func 14).
func bdosSelectDisk(ctx context.Context, b *BDOS) error {
	drive := int(b.HAL.GetE())
	if !b.Mount.IsMounted(drive) {
		b.SCB.ErrorDrive = uint8(drive)
		return b.doError(Error{RegisterA: 0x04, RegisterH: 0x04, Message: "Invalid drive"})
	}
	b.SCB.CurrentDrive = uint8(drive)
	setResult(b.HAL, 0x00)
	return nil
}

// bdosLoginVec implements DRV_LOGINVEC (func 24): bitmask of mounted
// drives, bit 0 = A:.
func bdosLoginVec(ctx context.Context, b *BDOS) error {
	var mask uint16
	for d := 0; d < mount.MaxDrives; d++ {
		if b.Mount.IsMounted(d) {
			mask |= 1 << uint(d)
		}
	}
	b.HAL.SetHL(mask)
	return nil
}

// bdosAllocVec implements DRV_ALLOCVEC (func 27): there is no real
// allocation bitmap behind a host directory mount, so HL points at
// nothing (zero), which well-behaved programs treat as "no map".
func bdosAllocVec(ctx context.Context, b *BDOS) error {
	b.HAL.SetHL(0)
	return nil
}

// bdosROVec implements DRV_ROVEC (func 29): no drive is ever
// software-write-protected here, so the vector is empty.
func bdosROVec(ctx context.Context, b *BDOS) error {
	b.HAL.SetHL(0)
	return nil
}

// bdosGetDPB implements DRV_DPB (func 31): the shared, single-instance
// disk parameter block every mounted drive reports.
func bdosGetDPB(ctx context.Context, b *BDOS) error {
	b.HAL.SetHL(hal.DPBAddr)
	return nil
}

// bdosDriveGet implements DRV_GET (func 25).
func bdosDriveGet(ctx context.Context, b *BDOS) error {
	setResult(b.HAL, b.SCB.CurrentDrive)
	return nil
}

// bdosSetDMA implements F_DMAOFF (func 26).
func bdosSetDMA(ctx context.Context, b *BDOS) error {
	b.SCB.DMA = b.HAL.GetDE()
	return nil
}

// bdosUserNumber implements F_USERNUM (func 32): E=0xFF reads, else
// sets.
func bdosUserNumber(ctx context.Context, b *BDOS) error {
	e := b.HAL.GetE()
	if e == 0xFF {
		setResult(b.HAL, b.SCB.CurrentUser)
		return nil
	}
	b.SCB.CurrentUser = e & 0x1F
	setResult(b.HAL, 0x00)
	return nil
}

// bdosSetMultiSector implements DRV_SETMULTI (func 44): accepts 1..128,
// else returns A=0xFF.
func bdosSetMultiSector(ctx context.Context, b *BDOS) error {
	e := b.HAL.GetE()
	if e < 1 || e > 128 {
		setResult(b.HAL, 0xFF)
		return nil
	}
	b.SCB.MultiSectorCount = e
	setResult(b.HAL, 0x00)
	return nil
}

// bdosSetErrorMode implements F_ERRMODE (func 45).
func bdosSetErrorMode(ctx context.Context, b *BDOS) error {
	b.SCB.ErrorMode = b.HAL.GetE()
	setResult(b.HAL, 0x00)
	return nil
}

// bdosFreeSpace implements DRV_FREESPACE (func 46): three bytes,
// little-endian 24-bit free-sector count, clamped to 2^31-1 sectors.
func bdosFreeSpace(ctx context.Context, b *BDOS) error {
	drive := int(b.SCB.CurrentDrive)
	root, err := b.Mount.Root(drive)
	if err != nil {
		b.SCB.ErrorDrive = uint8(drive)
		return b.doError(Error{RegisterA: 0x04, RegisterH: 0x04, Message: "Invalid drive"})
	}

	var free uint64 = 0x7FFFFFFF
	if usage, err := diskFreeSectors(root); err == nil {
		free = usage
	}
	if free > 0x7FFFFFFF {
		free = 0x7FFFFFFF
	}

	addr := b.SCB.DMA
	b.HAL.Memory.Set(addr, uint8(free))
	b.HAL.Memory.Set(addr+1, uint8(free>>8))
	b.HAL.Memory.Set(addr+2, uint8(free>>16))
	setResult(b.HAL, 0x00)
	return nil
}

// bdosSerialNumber implements S_SERIAL (func 107): copy the six-byte
// system serial number to DE. This emulator has no licensing serial, so
// the field reads as zeroes.
func bdosSerialNumber(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	for i := uint16(0); i < 6; i++ {
		b.HAL.Memory.Set(addr+i, 0x00)
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosReturnCode implements S_RETCODE (func 108): DE=0xFFFF reads the
// program return code into HL, anything else sets it.
func bdosReturnCode(ctx context.Context, b *BDOS) error {
	de := b.HAL.GetDE()
	if de == 0xFFFF {
		b.HAL.SetHL(b.SCB.ProgramReturnCode)
		return nil
	}
	b.SCB.ProgramReturnCode = de
	setResult(b.HAL, 0x00)
	return nil
}

// bdosConsoleMode implements S_CONSOLEMODE (func 109): DE=0xFFFF reads
// the console mode into HL, anything else sets it.
func bdosConsoleMode(ctx context.Context, b *BDOS) error {
	de := b.HAL.GetDE()
	if de == 0xFFFF {
		b.HAL.SetHL(uint16(b.SCB.ConsoleMode))
		return nil
	}
	b.SCB.ConsoleMode = uint8(de)
	setResult(b.HAL, 0x00)
	return nil
}

// bdosDelimiter implements S_DELIMITER (func 110): DE=0xFFFF reads the
// output delimiter into A, anything else sets it from E.
func bdosDelimiter(ctx context.Context, b *BDOS) error {
	if b.HAL.GetDE() == 0xFFFF {
		setResult(b.HAL, b.SCB.OutputDelimiter)
		return nil
	}
	b.SCB.OutputDelimiter = b.HAL.GetE()
	setResult(b.HAL, 0x00)
	return nil
}

// blockAt reads the two-word character control block {addr, len} funcs
// 111/112 take at DE.
func (b *BDOS) blockAt(de uint16) (addr uint16, length uint16) {
	return b.HAL.Memory.GetU16(de), b.HAL.Memory.GetU16(de + 2)
}

// bdosPrintBlock implements S_PRINTBLOCK (func 111): send a
// {addr, len} block to the console.
func bdosPrintBlock(ctx context.Context, b *BDOS) error {
	addr, length := b.blockAt(b.HAL.GetDE())
	for i := uint16(0); i < length; i++ {
		b.outputExpanded(b.HAL.Memory.Get(addr + i))
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosListBlock implements S_LISTBLOCK (func 112): send a {addr, len}
// block to the list device.
func bdosListBlock(ctx context.Context, b *BDOS) error {
	addr, length := b.blockAt(b.HAL.GetDE())
	for i := uint16(0); i < length; i++ {
		b.HAL.DevOut(b.SCB.DeviceMask[4], b.HAL.Memory.Get(addr+i))
	}
	setResult(b.HAL, 0x00)
	return nil
}

// bdosGetSetSCB implements S_BDOSSCB (func 49): DE points to {offset,
// op, value...}. op=0 reads, 0xFE writes a word, 0xFF writes a byte.
// Reading the console-column offset triggers the live counter rather
// than a stored field.
func bdosGetSetSCB(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	offset := b.HAL.Memory.Get(addr)
	op := b.HAL.Memory.Get(addr + 1)

	switch op {
	case 0x00:
		if offset == scb.OffsetConsoleColumn {
			b.HAL.SetHL(uint16(b.consoleColumn))
			setResult(b.HAL, 0x00)
			return nil
		}
		if v, ok := b.SCB.GetWord(offset); ok {
			b.HAL.SetHL(v)
			setResult(b.HAL, 0x00)
			return nil
		}
		if v, ok := b.SCB.GetByte(offset); ok {
			b.HAL.SetHL(uint16(v))
			setResult(b.HAL, 0x00)
			return nil
		}
		setResult(b.HAL, 0xFF)
	case 0xFE:
		value := b.HAL.Memory.GetU16(addr + 2)
		if b.SCB.SetWord(offset, value) {
			setResult(b.HAL, 0x00)
		} else {
			setResult(b.HAL, 0xFF)
		}
	case 0xFF:
		value := b.HAL.Memory.Get(addr + 2)
		if b.SCB.SetByte(offset, value) {
			setResult(b.HAL, 0x00)
		} else {
			setResult(b.HAL, 0xFF)
		}
	default:
		setResult(b.HAL, 0xFF)
	}
	return nil
}

// bdosDirectBIOS implements S_BIOS (func 50): DE points to {func, A, C,
// B, E, D, L, H}. Registers are loaded from that block, BIOS.ProcessBIOS
// runs, and the resulting registers are written back into the same
// block (BIOS handlers read/write through the HAL's live registers, so
// nothing further needs copying back to the guest).
func bdosDirectBIOS(ctx context.Context, b *BDOS) error {
	addr := b.HAL.GetDE()
	fn := b.HAL.Memory.Get(addr)
	b.HAL.SetA(b.HAL.Memory.Get(addr + 1))
	b.HAL.SetC(b.HAL.Memory.Get(addr + 2))
	b.HAL.SetB(b.HAL.Memory.Get(addr + 3))
	b.HAL.SetE(b.HAL.Memory.Get(addr + 4))
	b.HAL.SetD(b.HAL.Memory.Get(addr + 5))
	b.HAL.SetL(b.HAL.Memory.Get(addr + 6))
	b.HAL.SetH(b.HAL.Memory.Get(addr + 7))

	if err := b.BIOS.ProcessBIOS(ctx, fn); err != nil {
		return err
	}

	b.HAL.Memory.Set(addr+1, b.HAL.GetA())
	b.HAL.Memory.Set(addr+2, b.HAL.GetC())
	b.HAL.Memory.Set(addr+3, b.HAL.GetB())
	b.HAL.Memory.Set(addr+4, b.HAL.GetE())
	b.HAL.Memory.Set(addr+5, b.HAL.GetD())
	b.HAL.Memory.Set(addr+6, b.HAL.GetL())
	b.HAL.Memory.Set(addr+7, b.HAL.GetH())
	return nil
}

// bdosCallRSX implements F_CALLRSX (func 60): this emulator never
// dispatches an RSX-intercepted call back into a guest RSX handler at
// the BDOS layer (RSXes only intercept by being spliced into Page0's
// vector chain), so it always reports "not handled".
func bdosCallRSX(ctx context.Context, b *BDOS) error {
	setResult(b.HAL, 0xFF)
	return nil
}
