// Package scb implements the CP/M-3 System Control Block: the piece of
// mutable OS state BDOS and BIOS share for a single session (current
// drive/user, DMA address, error mode, date/time, console geometry, the
// logical-to-physical device bitmaps, and so on).
//
// A real CP/M-3 system addresses all of this as a single 256-byte
// region of guest memory at fixed offsets. This package instead exposes
// it as an ordinary Go struct passed explicitly to every handler; BDOS
// function 49 (Get/Set SCB) is the only place that still needs to
// translate between a guest-supplied byte offset and one of these
// fields.
package scb

import (
	"github.com/cpmhost/mtcpm/datetime"
	"github.com/cpmhost/mtcpm/hal"
)

// Error modes for SCB.ErrorMode, per BDOS function 45/ doError.
const (
	ErrorModeDefault          = 0xFD // values <= this: display and abort
	ErrorModeDisplayAndReturn = 0xFE
	ErrorModeReturnOnly       = 0xFF
)

// CCP flags, bit numbers within CCPFlags1/CCPFlags2.
const (
	// CCPFlags2FileSearchOrderBit selects .COM-before-.SUB (0) or
	// .SUB-before-.COM (1) when execProgram has no explicit extension.
	CCPFlags2FileSearchOrderBit = 0
)

// SCB holds the per-session mutable OS state BDOS and BIOS operate on.
type SCB struct {
	CurrentDrive uint8
	CurrentUser  uint8

	DMA uint16

	// OutputDelimiter is the byte BDOS function 9 (Output String) scans
	// for; '$' on a freshly reset system.
	OutputDelimiter uint8

	// ErrorMode selects doError's behaviour: see the ErrorMode* consts.
	ErrorMode uint8

	// ErrorDrive records the drive a file operation failed against,
	// for diagnostics.
	ErrorDrive uint8

	MultiSectorCount uint8

	// ProgramReturnCode is the exit status the most recently run
	// transient program left behind (0xFFFD on abort-by-error, 0xFFFE
	// on CTRL-C, else whatever the program itself set).
	ProgramReturnCode uint16

	// TPATop is the top of the user-reachable TPA: it shrinks as RSXes
	// load, and grows back as they're removed.
	TPATop uint16

	// ConsoleMode controls behaviors like CTRL-C handling during console
	// input; bit 0 set disables CTRL-C program termination, bit 1 set
	// makes Get Console Status report not ready whatever key is pending.
	ConsoleMode uint8

	// DriveSearchChain holds up to 3 drive indices (0xFF terminated)
	// execProgram walks looking for a command.
	DriveSearchChain [3]uint8

	// SearchPath, if non-empty, overrides DriveSearchChain: a
	// semicolon-separated list of "D:" drive specs.
	SearchPath string

	CCPFlags1 uint8
	CCPFlags2 uint8

	Date DateTimeState

	// PageMode enables CCP's paged output for DIR/TYPE-style listings.
	PageMode bool

	ConsoleWidth  uint8
	ConsoleHeight uint8

	// DeviceMask holds the 5 logical->physical bitmaps BIOS routes
	// CONIN/CONOUT/AUXIN/AUXOUT/LIST through.
	DeviceMask [5]uint16

	// Unknown1 mirrors an undocumented CP/M-3 SCB byte, preserved
	// verbatim pending further CP/M-3 internals research; never read
	// or written by any handler in this package.
	Unknown1 uint8
}

// DateTimeState is the wall-clock snapshot BIOS function 26 shuttles
// between the SCB and the host clock.
type DateTimeState struct {
	datetime.DateTime
}

// New returns an SCB in its freshly-reset state (BDOS function 13's
// defaults): drive A, user 0, DMA 0x0080, multisector count 1, '$'
// delimiter, default error mode.
func New() *SCB {
	s := &SCB{
		DMA:              0x0080,
		OutputDelimiter:  '$',
		ErrorMode:        ErrorModeDefault,
		MultiSectorCount: 1,
		ConsoleWidth:     80,
		ConsoleHeight:    24,
		TPATop:           hal.DefaultTPATop,
	}
	s.DriveSearchChain = [3]uint8{0xFF, 0xFF, 0xFF}
	// Input/output console device default to physical device 0
	// (the local console) on both logical console directions.
	s.DeviceMask[0] = 1 << 15
	s.DeviceMask[1] = 1 << 15
	return s
}

// ResetDisk restores the BDOS function 13 (Reset Disk) defaults without
// disturbing fields outside its documented scope.
func (s *SCB) ResetDisk() {
	s.DMA = 0x0080
	s.CurrentDrive = 0
	s.CurrentUser = 0
	s.MultiSectorCount = 1
}

// Get/Set SCB (BDOS function 49) offsets, relative to the start of the
// 256-byte guest SCB region. Only the fields guest programs are
// documented to peek/poke are listed; an unknown offset is rejected by
// FieldByOffset.
const (
	OffsetCurrentDrive     = 0x00
	OffsetCurrentUser      = 0x01
	OffsetDMA              = 0x02 // word
	OffsetOutputDelimiter  = 0x04
	OffsetErrorMode        = 0x05
	OffsetMultiSectorCount = 0x06
	OffsetConsoleMode      = 0x07
	OffsetConsoleColumn    = 0x08
	OffsetDateDays         = 0x0A // word
	OffsetDateHour         = 0x0C
	OffsetDateMinute       = 0x0D
	OffsetDateSecond       = 0x0E
)

// GetByte reads a byte-sized SCB field by its guest offset, for BDOS
// function 49 op=0 (read). ok is false for an offset this emulator
// doesn't expose.
func (s *SCB) GetByte(offset uint8) (value uint8, ok bool) {
	switch offset {
	case OffsetCurrentDrive:
		return s.CurrentDrive, true
	case OffsetCurrentUser:
		return s.CurrentUser, true
	case OffsetOutputDelimiter:
		return s.OutputDelimiter, true
	case OffsetErrorMode:
		return s.ErrorMode, true
	case OffsetMultiSectorCount:
		return s.MultiSectorCount, true
	case OffsetConsoleMode:
		return s.ConsoleMode, true
	case OffsetDateHour:
		return s.Date.HourBCD, true
	case OffsetDateMinute:
		return s.Date.MinutesBCD, true
	case OffsetDateSecond:
		return s.Date.SecondsBCD, true
	}
	return 0, false
}

// SetByte writes a byte-sized SCB field by its guest offset, for BDOS
// function 49 op=0xFF (write byte).
func (s *SCB) SetByte(offset, value uint8) bool {
	switch offset {
	case OffsetCurrentDrive:
		s.CurrentDrive = value
	case OffsetCurrentUser:
		s.CurrentUser = value
	case OffsetOutputDelimiter:
		s.OutputDelimiter = value
	case OffsetErrorMode:
		s.ErrorMode = value
	case OffsetMultiSectorCount:
		s.MultiSectorCount = value
	case OffsetConsoleMode:
		s.ConsoleMode = value
	default:
		return false
	}
	return true
}

// GetWord reads a word-sized SCB field by its guest offset, for BDOS
// function 49 op=0 (read) against a 16-bit field.
func (s *SCB) GetWord(offset uint8) (value uint16, ok bool) {
	switch offset {
	case OffsetDMA:
		return s.DMA, true
	case OffsetDateDays:
		return s.Date.DaysSince1978, true
	}
	return 0, false
}

// SetWord writes a word-sized SCB field by its guest offset, for BDOS
// function 49 op=0xFE (write word).
func (s *SCB) SetWord(offset uint8, value uint16) bool {
	switch offset {
	case OffsetDMA:
		s.DMA = value
	case OffsetDateDays:
		s.Date.DaysSince1978 = value
	default:
		return false
	}
	return true
}
