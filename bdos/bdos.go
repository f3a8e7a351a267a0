// Package bdos implements the CP/M-3 Basic Disk Operating System: the
// ~70-function dispatch table a guest program reaches by loading C with
// a function number and jumping to the BDOS entry point, plus the
// TPA/RSX program lifecycle (ExecProgram/execLoadedProgram) that loads
// and runs the next command.
//
// System calls are serviced against the host filesystem through the
// session's drive table, with SCB-driven error modes, a collision-
// checked open-file cache, and the extent arithmetic the CP/M-3
// Programmer's Guide describes.
package bdos

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cpmhost/mtcpm/bios"
	"github.com/cpmhost/mtcpm/fcb"
	"github.com/cpmhost/mtcpm/filecache"
	"github.com/cpmhost/mtcpm/hal"
	"github.com/cpmhost/mtcpm/linedit"
	"github.com/cpmhost/mtcpm/mount"
	"github.com/cpmhost/mtcpm/rsx"
	"github.com/cpmhost/mtcpm/scb"
	"github.com/cpmhost/mtcpm/search"
)

// blkSize is the size of one CP/M logical record.
const blkSize = 128

// maxRC is the largest record count a single extent's FCB carries.
const maxRC = 128

// Handler is the signature every BDOS function implements.
type Handler func(ctx context.Context, b *BDOS) error

// Entry names and documents one function-number slot in the dispatch
// table.
type Entry struct {
	Desc    string
	Handler Handler
}

// BDOS holds the state one session's BDOS instance needs: its HAL (CPU
// + memory + devices), its SCB, its drive table, its open-file cache,
// its BIOS (func 50 calls through to it directly) and its RSX chain.
type BDOS struct {
	HAL   *hal.HAL
	SCB   *scb.SCB
	Mount *mount.Table
	Cache *filecache.Cache
	BIOS  *bios.BIOS
	RSX   *rsx.Chain
	Log   *slog.Logger

	// Editor is the line-history ring func 10 reads through.
	Editor *linedit.Editor

	// search is the single in-flight SearchFirst/Next iteration; a
	// fresh SearchFirst discards whatever the previous one left
	// behind.
	search *search.State

	// chainPending, when non-empty, holds the command line BDOS 47
	// queued for the CCP to run next instead of returning to the
	// caller.
	chainPending    string
	chainPreserveDU bool

	// printerEcho mirrors CTRL-P toggling across func 1/2/10 calls
	// within a session.
	printerEcho bool

	// consoleColumn tracks the cursor column func 49's console-column
	// query reports, advanced by writeConsole/byteOut and reset on CR.
	consoleColumn uint8

	table map[uint8]Entry
}

// New returns a BDOS wired to the given collaborators.
func New(h *hal.HAL, s *scb.SCB, m *mount.Table, c *filecache.Cache, bi *bios.BIOS, r *rsx.Chain, log *slog.Logger) *BDOS {
	b := &BDOS{
		HAL:    h,
		SCB:    s,
		Mount:  m,
		Cache:  c,
		BIOS:   bi,
		RSX:    r,
		Log:    log,
		Editor: linedit.New(),
	}
	b.table = b.buildTable()
	return b
}

// Wire registers the BDOS entry hook on the HAL: whenever the guest CPU
// reaches BDOS_ENTRY, Dispatch runs, and - since BDOS_ENTRY always holds
// a plain RET opcode - the hook reports StepContinue so HAL.Exec performs
// that RET and resumes the caller, just as it would for a real BDOS
// call. A handler that terminates the program (func 0, a CTRL-C during
// console input, Chain, or a default-mode doError) marks the BIOS
// halted, and the hook stops the CPU instead of resuming the caller.
func (b *BDOS) Wire() {
	b.HAL.RegisterHook(hal.BDOSEntry, func(pc uint16) hal.StepAction {
		err := b.Dispatch(context.Background())
		if err == errChainPending {
			return hal.StepStop
		}
		if err != nil {
			b.Log.Error("bdos: handler error", slog.String("error", err.Error()))
		}
		if b.BIOS.Halted() {
			return hal.StepStop
		}
		return hal.StepContinue
	})
}

// Dispatch reads the function number from C and runs its handler.
func (b *BDOS) Dispatch(ctx context.Context) error {
	fn := b.HAL.GetC()
	entry, ok := b.table[fn]
	if !ok {
		b.Log.Warn("bdos: unimplemented function",
			slog.Int("function", int(fn)))
		setResult(b.HAL, 0x00)
		return nil
	}
	b.Log.Debug("bdos: dispatch",
		slog.String("name", entry.Desc),
		slog.Int("function", int(fn)))
	return entry.Handler(ctx, b)
}

// Call performs a host-initiated BDOS call exactly as execProgram and
// the CCP do: load the registers, push a synthetic return address, and
// run the CPU from PAGE0's BDOS vector so any installed RSX chain is
// honoured. If no RSX has redirected Page0, the handler runs directly
// without a CPU round-trip, since there is nothing for an RSX to
// intercept.
func (b *BDOS) Call(ctx context.Context, fn uint8, de, bc, hl uint16) error {
	b.HAL.SetBC(bc)
	b.HAL.SetC(fn)
	b.HAL.SetDE(de)
	b.HAL.SetHL(hl)

	vector := b.HAL.Memory.GetU16(hal.Page0OSBase)
	if vector == hal.BDOSEntry {
		return b.Dispatch(ctx)
	}

	const returnAddr = 0x0100
	b.HAL.PushStack(returnAddr)
	return b.HAL.Exec(ctx, vector, returnAddr)
}

// setResult loads A, L, H and B the way every BDOS handler's return
// value is conventionally reported (H=B=0, L mirrors A), and keeps the
// zero flag in sync - some guest code branches on Z rather than
// checking A directly.
func setResult(h *hal.HAL, res uint8) {
	h.SetA(res)
	h.SetL(res)
	h.SetH(0x00)
	h.SetB(0x00)
	h.SetZeroFlag(res == 0)
}

// Error is a file/BDOS operation failure expressed as data rather than
// a Go error, so doError can apply the SCB error mode's
// display/abort/return policy uniformly.
type Error struct {
	RegisterA uint8
	RegisterH uint8
	Message   string
}

func (e Error) Error() string { return e.Message }

// errChainPending is a sentinel the func-47 handler returns so Dispatch
// (and the registered hook) know to stop the CPU rather than resume the
// caller - the CCP is expected to pick the queued command line up next.
var errChainPending = fmt.Errorf("bdos: chain pending")

// doError applies SCB_ERRORMODE_B to a failed operation: ≤0xFD displays
// a message and terminates the running program (return code 0xFFFD,
// CPU stopped), 0xFE displays and returns control, 0xFF returns without
// ever touching the console.
func (b *BDOS) doError(e Error) error {
	switch {
	case b.SCB.ErrorMode == scb.ErrorModeReturnOnly:
	case b.SCB.ErrorMode == scb.ErrorModeDisplayAndReturn:
		b.writeConsole(e.Message + "\r\n")
	default:
		b.writeConsole(e.Message + "\r\n")
		b.SCB.ProgramReturnCode = 0xFFFD
		b.BIOS.Halt()
	}
	setResult(b.HAL, e.RegisterA)
	b.HAL.SetH(e.RegisterH)
	return nil
}

// writeConsole emits a host string straight to the console output
// device(s), bypassing the '$'-delimited guest DMA convention - used
// for doError messages, which are not guest data.
func (b *BDOS) writeConsole(s string) {
	for i := 0; i < len(s); i++ {
		b.byteOut(s[i])
	}
}

// byteIn/byteOut adapt the HAL's device routing to linedit's
// ByteSource/ByteSink function types, and keep the console-column
// counter BDOS func 49 reports in sync.
func (b *BDOS) byteIn(ctx context.Context) (byte, error) {
	return b.HAL.DevIn(ctx, b.SCB.DeviceMask[0])
}

func (b *BDOS) byteOut(c byte) {
	b.HAL.DevOut(b.SCB.DeviceMask[1], c)
	if b.printerEcho {
		b.HAL.DevOut(b.SCB.DeviceMask[4], c)
	}
	if c == CR || c == LF {
		b.consoleColumn = 0
	} else {
		b.consoleColumn++
	}
}

// buildTable constructs the function-number -> handler map. Function
// numbers with no handler are deliberately left unregistered:
// Dispatch's default case answers them with A=0 rather than aborting,
// since real CP/M-3 guest code sometimes probes undocumented function
// numbers expecting a benign no-op.
func (b *BDOS) buildTable() map[uint8]Entry {
	t := map[uint8]Entry{}
	t[0] = Entry{"P_TERMCPM", bdosExit}
	t[1] = Entry{"C_READ", bdosConsoleInput}
	t[2] = Entry{"C_WRITE", bdosConsoleOutput}
	t[3] = Entry{"A_READ", bdosAuxInput}
	t[4] = Entry{"A_WRITE", bdosAuxOutput}
	t[5] = Entry{"L_WRITE", bdosListOutput}
	t[6] = Entry{"C_RAWIO", bdosDirectIO}
	t[9] = Entry{"C_WRITESTRING", bdosWriteString}
	t[10] = Entry{"C_READSTRING", bdosReadString}
	t[11] = Entry{"C_STAT", bdosConsoleStatus}
	t[12] = Entry{"S_BDOSVER", bdosVersion}
	t[13] = Entry{"DRV_ALLRESET", bdosResetDisk}
	t[14] = Entry{"DRV_SET", bdosSelectDisk}
	t[15] = Entry{"F_OPEN", bdosFileOpen}
	t[16] = Entry{"F_CLOSE", bdosFileClose}
	t[17] = Entry{"F_SFIRST", bdosFindFirst}
	t[18] = Entry{"F_SNEXT", bdosFindNext}
	t[19] = Entry{"F_DELETE", bdosDeleteFile}
	t[20] = Entry{"F_READ", bdosReadSeq}
	t[21] = Entry{"F_WRITE", bdosWriteSeq}
	t[22] = Entry{"F_MAKE", bdosMakeFile}
	t[23] = Entry{"F_RENAME", bdosRenameFile}
	t[24] = Entry{"DRV_LOGINVEC", bdosLoginVec}
	t[25] = Entry{"DRV_GET", bdosDriveGet}
	t[26] = Entry{"F_DMAOFF", bdosSetDMA}
	t[27] = Entry{"DRV_ALLOCVEC", bdosAllocVec}
	t[28] = Entry{"DRV_SETRO", bdosNop}
	t[29] = Entry{"DRV_ROVEC", bdosROVec}
	t[30] = Entry{"F_ATTRIB", bdosNop}
	t[31] = Entry{"DRV_DPB", bdosGetDPB}
	t[32] = Entry{"F_USERNUM", bdosUserNumber}
	t[33] = Entry{"F_READRAND", bdosReadRand}
	t[34] = Entry{"F_WRITERAND", bdosWriteRand}
	t[35] = Entry{"F_SIZE", bdosFileSize}
	t[36] = Entry{"F_RANDREC", bdosSetRandomRecord}
	t[37] = Entry{"DRV_RESET", bdosNop}
	t[40] = Entry{"F_WRITEZF", bdosWriteRand}
	t[44] = Entry{"DRV_SETMULTI", bdosSetMultiSector}
	t[45] = Entry{"F_ERRMODE", bdosSetErrorMode}
	t[46] = Entry{"DRV_FREESPACE", bdosFreeSpace}
	t[47] = Entry{"F_CHAIN", bdosChain}
	t[48] = Entry{"DRV_FLUSH", bdosNop}
	t[49] = Entry{"S_BDOSSCB", bdosGetSetSCB}
	t[50] = Entry{"S_BIOS", bdosDirectBIOS}
	t[59] = Entry{"F_LOADOVERLAY", bdosLoadOverlay}
	t[60] = Entry{"F_CALLRSX", bdosCallRSX}
	t[98] = Entry{"F_FREEBLOCKS", bdosNop}
	t[99] = Entry{"F_TRUNCATE", bdosTruncate}
	t[100] = Entry{"DIR_GETLABEL", bdosGetLabel}
	t[101] = Entry{"DIR_SETLABEL", bdosSetLabel}
	t[102] = Entry{"DIR_LABELPASS", bdosLabelPassword}
	t[104] = Entry{"T_SET", bdosSetDateTime}
	t[105] = Entry{"T_GET", bdosGetDateTime}
	t[107] = Entry{"S_SERIAL", bdosSerialNumber}
	t[108] = Entry{"S_RETCODE", bdosReturnCode}
	t[109] = Entry{"S_CONSOLEMODE", bdosConsoleMode}
	t[110] = Entry{"S_DELIMITER", bdosDelimiter}
	t[111] = Entry{"S_PRINTBLOCK", bdosPrintBlock}
	t[112] = Entry{"S_LISTBLOCK", bdosListBlock}
	t[152] = Entry{"PARSE_FNAME", bdosParseFilename}
	t[0xD4] = Entry{"X_COPYFILE", bdosCopyFile}
	t[0xD5] = Entry{"X_CHDIR", bdosChangeDir}
	return t
}

// resolveDrive returns the 0-based drive index an FCB's drive byte
// names, defaulting to the SCB's current drive.
func (b *BDOS) resolveDrive(f *fcb.FCB) int {
	return int(f.GetDrive(b.SCB.CurrentDrive))
}

// fcbAt reads and decodes the 36-byte FCB at the given guest address.
func (b *BDOS) fcbAt(addr uint16) fcb.FCB {
	return fcb.FromBytes(b.HAL.Memory.GetRange(addr, fcb.SIZE))
}

// putFCB writes an FCB's encoded form back to guest memory.
func (b *BDOS) putFCB(addr uint16, f fcb.FCB) {
	b.HAL.Memory.PutRange(addr, f.AsBytes()...)
}

// hostFileName resolves an FCB's canonical "NAME.EXT" against the host
// directory, case-correcting against whatever is actually on disk (CP/M
// filenames are upper-case; host filesystems usually are not).
func (b *BDOS) hostFileName(dirPath string, f *fcb.FCB) string {
	name := f.GetFileName()
	entries, err := os.ReadDir(dirPath)
	if err == nil {
		for _, e := range entries {
			if strings.EqualFold(e.Name(), name) {
				return e.Name()
			}
		}
	}
	return name
}

// hostPath resolves an FCB to its full host path, using the FCB's drive
// and the session's current directory on that drive.
func (b *BDOS) hostPath(f *fcb.FCB) (string, error) {
	drive := b.resolveDrive(f)
	dirPath, err := b.Mount.HostPath(drive)
	if err != nil {
		return "", err
	}
	return filepath.Join(dirPath, b.hostFileName(dirPath, f)), nil
}
