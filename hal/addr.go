package hal

// Fixed guest-memory addresses, all computed from a single base. This
// emulator has no real ROM, so "page 0" below 0x0100 holds the
// warm-boot jump, the BDOS entry vector, the two default FCBs and the
// default DMA address, exactly where a real CP/M-3 system would keep
// them.

const (
	// Page0WBootJP is the address of the 3-byte JP instruction a guest
	// program executes for a warm boot (RET-to-CCP).
	Page0WBootJP = 0x0000

	// Page0OSBase is the address of the BDOS entry vector: either
	// BDOSEntry itself, or the head of the RSX chain.
	Page0OSBase = 0x0006

	// Page0IOByte is CP/M's traditional IOBYTE, kept for guest programs
	// that peek at it directly instead of using BIOS DEVTBL.
	Page0IOByte = 0x0003

	// Page0CurrentDrive mirrors the active drive/user byte.
	Page0CurrentDrive = 0x0004

	// Page0FCB1 and Page0FCB2 are the default FCBs filled in from the
	// command tail before a transient program starts.
	Page0FCB1 = 0x005C
	Page0FCB2 = 0x006C

	// Page0DefaultDMA is the default DMA/command-tail buffer.
	Page0DefaultDMA = 0x0080

	// Page0LoadDrive records which drive a .COM was loaded from.
	Page0LoadDrive = 0x0004

	// Page0Password1 / Page0Password2 hold the address+length of any
	// password extracted while parsing FCB1/FCB2, for BDOS func 152.
	Page0Password1 = 0x00F0
	Page0Password2 = 0x00F4

	// TPABase is the first address of the Transient Program Area.
	TPABase = 0x0100

	// BDOSEntry is the single RET instruction BDOS calls are dispatched
	// through. The on-step hook recognises PC == BDOSEntry.
	BDOSEntry = 0xFA00

	// BIOSJumpTable is the base of the 33 three-byte JP entries guest
	// code calls into for BIOS services.
	BIOSJumpTable = 0xFA03

	// BIOSFuncCount is the number of BIOS jump-table slots.
	BIOSFuncCount = 33

	// BIOSRets is the base of 33 single-byte RET instructions the BIOS
	// jump table entries all land on; the on-step hook recognises PC in
	// [BIOSRets, BIOSRets+BIOSFuncCount).
	BIOSRets = BIOSJumpTable + BIOSFuncCount*3

	// DPBAddr / DPHAddr are the (shared, single-instance) disk parameter
	// block/header this emulator fakes for every mounted drive.
	DPBAddr = BIOSRets + BIOSFuncCount
	DPHAddr = DPBAddr + 17

	// SCBAddr is the base of the 256-byte System Control Block.
	SCBAddr = DPHAddr + 25

	// BDOSTempBuffer is scratch space BDOS uses for path/name building
	// that must live in guest memory (e.g. while formatting messages the
	// guest can read back).
	BDOSTempBuffer = SCBAddr + 256

	// ChrTbl is the 5-slot, 8-byte-per-slot physical device table BIOS
	// function 20 (DEVTBL) hands back a pointer to.
	ChrTbl = BDOSTempBuffer + 128

	// SystemAddr is a reserved block below the RSX chain, high enough
	// in memory that transient programs never collide with it.
	SystemAddr = 0xFCFA

	// DefaultTPATop is the top of the TPA on a freshly booted system,
	// before any RSX has been loaded. It shrinks as RSXes load.
	DefaultTPATop = SystemAddr - 1
)

// Physical device identifiers used by chrtbl entries and DevOut/DevIn
// routing.
const (
	DevConsole = iota
	DevSerial
	DevPrinter
	DevCRT
	DevBatch
)

// Logical BIOS devices, each of which maps (via a 16-bit bitmap in the
// SCB) onto zero or more of the physical devices above.
const (
	LogicalConsoleIn = iota
	LogicalConsoleOut
	LogicalAuxIn
	LogicalAuxOut
	LogicalList
)
