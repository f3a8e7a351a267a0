// Package bios implements the 33-entry CP/M-3 BIOS jump table: device
// status/IO, disk selection and the BIOS time service, with the
// chrtbl-based logical->physical device routing (each logical device
// carries a 16-bit bitmap of physical devices in the SCB).
package bios

import (
	"context"
	"fmt"

	"github.com/cpmhost/mtcpm/hal"
	"github.com/cpmhost/mtcpm/mount"
	"github.com/cpmhost/mtcpm/scb"
)

// Function numbers, in the order the 33-slot jump table exposes them.
const (
	FuncBoot = iota
	FuncWBoot
	FuncConst
	FuncConin
	FuncConout
	FuncList
	FuncPunch
	FuncReader
	FuncHome
	FuncSelDsk
	FuncSetTrk
	FuncSetSec
	FuncSetDMA
	FuncRead
	FuncWrite
	FuncListSt
	FuncSectran
	FuncConOst
	FuncAuxiSt
	FuncAuxOst
	FuncDevTbl
	FuncDevIni
	FuncDrvTbl
	FuncMultio
	FuncFlush
	FuncSetBnk
	FuncSetTim
	FuncSetidma
	FuncGeneric
)

// AuxOut/AuxIn reuse the classic PUNCH/READER slots 6/7 for the
// auxiliary serial device.
const (
	FuncAuxOut = FuncPunch
	FuncAuxIn  = FuncReader
)

// ChrTblEntry describes one physical device's name/flags/baud, the
// layout BIOS function 20 (DEVTBL) hands a guest pointer to.
type ChrTblEntry struct {
	Name  [6]byte
	Flags uint8
	Baud  uint8
}

// Device flag bits for ChrTblEntry.Flags.
const (
	FlagInput    = 0x01
	FlagOutput   = 0x02
	FlagInOut    = FlagInput | FlagOutput
	FlagSerial   = 0x04
	FlagSoftBaud = 0x08
	FlagXonXoff  = 0x10
)

// BIOS holds the state one session's BIOS jump table needs: a handle to
// the session's HAL (registers, memory, device routing), its SCB (the
// logical->physical bitmaps live there) and its drive table (for
// SELDSK).
type BIOS struct {
	HAL   *hal.HAL
	SCB   *scb.SCB
	Mount *mount.Table

	chrtbl [5]ChrTblEntry

	// halted is set by BOOT/WBOOT to tell the CCP driver loop the
	// session wants to stop running the current program.
	halted bool
}

// New returns a BIOS wired to the given HAL/SCB/mount table, with the
// standard 5-slot chrtbl (console, reader, punch, list, batch names).
func New(h *hal.HAL, s *scb.SCB, m *mount.Table) *BIOS {
	b := &BIOS{HAL: h, SCB: s, Mount: m}
	b.chrtbl = [5]ChrTblEntry{
		{Name: [6]byte{'C', 'O', 'N', ' ', ' ', ' '}, Flags: FlagInOut},
		{Name: [6]byte{'R', 'D', 'R', ' ', ' ', ' '}, Flags: FlagInput | FlagSerial},
		{Name: [6]byte{'P', 'U', 'N', ' ', ' ', ' '}, Flags: FlagOutput | FlagSerial},
		{Name: [6]byte{'L', 'S', 'T', ' ', ' ', ' '}, Flags: FlagOutput},
		{Name: [6]byte{'B', 'A', 'T', ' ', ' ', ' '}, Flags: FlagInOut},
	}

	// DEVTBL hands the guest a pointer to the table, so the entries
	// must really exist in guest memory.
	for i, e := range b.chrtbl {
		base := hal.ChrTbl + uint16(i)*8
		h.Memory.PutRange(base, e.Name[:]...)
		h.Memory.Set(base+6, e.Flags)
		h.Memory.Set(base+7, e.Baud)
	}
	return b
}

// Wire registers this BIOS's dispatch as HAL step hooks, one per jump
// table RET stub. Each RET address is itself a single RET instruction,
// so after ProcessBIOS runs the hook reports StepContinue: HAL.Exec
// performs that RET itself (popping the return address) and hands
// control back to the guest code that called the jump table. BOOT/WBOOT are the
// exception: they ask the loop to stop outright.
func (b *BIOS) Wire() {
	for i := 0; i < hal.BIOSFuncCount; i++ {
		fn := uint8(i)
		addr := hal.BIOSRets + uint16(i)
		b.HAL.RegisterHook(addr, func(pc uint16) hal.StepAction {
			b.ProcessBIOS(context.Background(), fn)
			if fn == FuncBoot || fn == FuncWBoot {
				return hal.StepStop
			}
			return hal.StepContinue
		})
	}
}

// Halted reports whether the guest has executed BOOT or WBOOT.
func (b *BIOS) Halted() bool { return b.halted }

// ClearHalted resets the halted flag before starting a new program.
func (b *BIOS) ClearHalted() { b.halted = false }

// Halt performs the same Page0 restoration BOOT/WBOOT do and marks the
// session halted, for BDOS callers (func 0, func 47 Chain) that need to
// stop the current program without going through the guest jump table.
func (b *BIOS) Halt() { b.coldOrWarmBoot() }

// ProcessBIOS dispatches a single BIOS function call, reading/writing
// registers and guest memory through b.HAL exactly as the jump table
// documents.
func (b *BIOS) ProcessBIOS(ctx context.Context, fn uint8) error {
	switch fn {
	case FuncBoot, FuncWBoot:
		return b.coldOrWarmBoot()
	case FuncConst:
		if b.HAL.DevInAvailable(b.SCB.DeviceMask[0]) {
			b.HAL.SetA(0xFF)
		} else {
			b.HAL.SetA(0x00)
		}
	case FuncConin:
		c, err := b.HAL.DevIn(ctx, b.SCB.DeviceMask[0])
		if err != nil {
			return err
		}
		b.HAL.SetA(c)
	case FuncConout:
		b.HAL.DevOut(b.SCB.DeviceMask[1], b.HAL.GetC())
	case FuncList:
		b.HAL.DevOut(b.SCB.DeviceMask[4], b.HAL.GetC())
	case FuncAuxOut:
		b.HAL.DevOut(b.SCB.DeviceMask[3], b.HAL.GetC())
	case FuncAuxIn:
		c, err := b.HAL.DevIn(ctx, b.SCB.DeviceMask[2])
		if err != nil {
			return err
		}
		b.HAL.SetA(c)
	case FuncSelDsk:
		b.selDsk()
	case FuncListSt:
		b.statusBit(b.SCB.DeviceMask[4], true)
	case FuncConOst:
		b.statusBit(b.SCB.DeviceMask[1], true)
	case FuncAuxiSt:
		b.statusBit(b.SCB.DeviceMask[2], false)
	case FuncAuxOst:
		b.statusBit(b.SCB.DeviceMask[3], true)
	case FuncDevTbl:
		b.HAL.SetHL(hal.ChrTbl)
	case FuncDevIni:
		// Accept baud-rate initialisation requests as a no-op: this
		// emulator has no real serial hardware to configure.
	case FuncSetTim:
		b.timeService()
	default:
		return fmt.Errorf("bios: unimplemented function %d", fn)
	}
	return nil
}

func (b *BIOS) statusBit(mask uint16, output bool) {
	var ready bool
	if output {
		ready = b.HAL.DevOutAvailable(mask)
	} else {
		ready = b.HAL.DevInAvailable(mask)
	}
	if ready {
		b.HAL.SetA(0xFF)
	} else {
		b.HAL.SetA(0x00)
	}
}

// coldOrWarmBoot restores Page0's BDOS vector and WBOOT JP (undoing any
// RSX installation) and marks the session halted so the caller's
// execLoadedProgram driver loop stops running the current program.
func (b *BIOS) coldOrWarmBoot() error {
	b.HAL.Memory.SetU16(hal.Page0OSBase, hal.BDOSEntry)
	b.HAL.Memory.Set(hal.BDOSEntry, 0xC9) // RET
	b.HAL.Memory.Set(hal.Page0WBootJP, 0xC3)
	b.HAL.Memory.SetU16(hal.Page0WBootJP+1, hal.BIOSJumpTable+uint16(FuncWBoot)*3)
	b.halted = true
	return nil
}

// selDsk returns the shared DPH address in HL if the drive named in C is
// mounted, else 0 - this emulator fakes a single common DPB/DPH for
// every drive, since per-drive geometry is Non-goal territory (no
// physical floppy emulation).
func (b *BIOS) selDsk() {
	drive := int(b.HAL.GetC())
	if b.Mount.IsMounted(drive) {
		b.HAL.SetHL(hal.DPHAddr)
	} else {
		b.HAL.SetHL(0)
	}
}

// timeService shuttles the host clock and the SCB's date/time fields:
// C=0 snapshots the host clock into the SCB, C=0xFF pushes the SCB's
// date/time back out to the host clock.
func (b *BIOS) timeService() {
	switch b.HAL.GetC() {
	case 0x00:
		b.SCB.Date.DateTime = b.HAL.Clock.Now()
	case 0xFF:
		b.HAL.Clock.Set(b.SCB.Date.DateTime)
	}
}

// ChrTbl returns the 5-slot physical device table, used by tests and by
// the Supervisor when it needs to describe a session's device wiring.
func (b *BIOS) ChrTbl() [5]ChrTblEntry {
	return b.chrtbl
}
