// Package supervisor owns the up-to-twelve concurrent CP/M-3 sessions a
// host process runs: one worker goroutine per active session, each
// building its own HAL/BIOS/BDOS/CCP stack, plus which session is
// focused. Keystrokes reach the focused session through Feed; the shared
// termbox screen itself is owned by the caller (cmd/mtcpmd's multiplexer).
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cpmhost/mtcpm/bdos"
	"github.com/cpmhost/mtcpm/bios"
	"github.com/cpmhost/mtcpm/ccp"
	"github.com/cpmhost/mtcpm/consolein"
	"github.com/cpmhost/mtcpm/consoleout"
	"github.com/cpmhost/mtcpm/datetime"
	"github.com/cpmhost/mtcpm/filecache"
	"github.com/cpmhost/mtcpm/hal"
	"github.com/cpmhost/mtcpm/mount"
	"github.com/cpmhost/mtcpm/rsx"
	"github.com/cpmhost/mtcpm/scb"
)

// MaxSessions is the number of session slots the Supervisor manages.
const MaxSessions = 12

// openFileCacheSize is how many open host file handles each session
// keeps cached between BDOS calls.
const openFileCacheSize = 5

// initialSearchPath is the drive search path a fresh session starts
// with, needed to find SUBMIT.COM at startup.
const initialSearchPath = "A:BIN"

// SessionMinMem is the free-memory floor ActivateSession checks before
// spawning a worker. On a host process this guards against runaway
// session counts rather than real heap exhaustion; the Supervisor
// treats it as a count-based proxy (see systemFree).
const SessionMinMem = 20000

// bytesPerSession is the notional memory cost of one session, used by
// systemFree below.
const bytesPerSession = 65536

// Session is one active (or torn-down) slot: its worker goroutine
// handle and cancellation, plus the pieces that want to survive a
// refocus (console drivers, for scrollback/hotkey feed).
type Session struct {
	ID int

	cancel context.CancelFunc
	done   chan struct{}

	HAL  *hal.HAL
	BIOS *bios.BIOS
	BDOS *bdos.BDOS
	CCP  *ccp.CCP

	in  *consolein.ConsoleIn
	out *consoleout.ConsoleOut

	mu     sync.Mutex
	active bool
}

// Active reports whether this slot currently has a running worker.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Out returns the session's console output driver, for callers (the
// termbox-based multiplexer in cmd/mtcpmd) that need to redirect which
// session's bytes are mirrored to the shared screen.
func (s *Session) Out() *consoleout.ConsoleOut { return s.out }

// Supervisor holds the session table, the drive roots every new
// session's mount table is seeded from, and the shared clock.
//
// The session table is only ever written by the goroutine that calls
// ActivateSession/AbortSession (the UI/event loop); worker goroutines
// only read their own Session entry, and driveRoots is read-only after
// construction.
type Supervisor struct {
	mu       sync.Mutex
	sessions [MaxSessions]*Session

	driveRoots [mount.MaxDrives]string
	clock      datetime.Clock
	log        *slog.Logger

	focused int
}

// New returns a Supervisor with no active sessions.
func New(clock datetime.Clock, log *slog.Logger) *Supervisor {
	return &Supervisor{clock: clock, log: log, focused: -1}
}

// SetDrivePath assigns the host directory every new session's drive
// table maps the given 0-based drive index to.
func (sup *Supervisor) SetDrivePath(drive int, hostPath string) {
	if drive < 0 || drive >= mount.MaxDrives {
		return
	}
	sup.mu.Lock()
	sup.driveRoots[drive] = hostPath
	sup.mu.Unlock()
}

// Session returns the session slot at id, or nil if it has never been
// activated. Callers only read it.
func (sup *Supervisor) Session(id int) *Session {
	if id < 0 || id >= MaxSessions {
		return nil
	}
	sup.mu.Lock()
	defer sup.mu.Unlock()
	return sup.sessions[id]
}

// GetOpenSessions returns how many session slots currently have a
// running worker.
func (sup *Supervisor) GetOpenSessions() int {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	n := 0
	for _, s := range sup.sessions {
		if s != nil && s.Active() {
			n++
		}
	}
	return n
}

// systemFree estimates spare capacity for new sessions. On a host
// process there is no meaningful free-heap number to read, so this
// reports the session-count budget SessionMinMem/bytesPerSession
// implies, which keeps the OutOfMemory guard meaningful without
// pretending to read real RSS.
func (sup *Supervisor) systemFree() int {
	return (MaxSessions - sup.GetOpenSessions()) * bytesPerSession
}

// ActivateSession creates (or refocuses) the session at id: if its slot
// is empty, a worker goroutine is spawned that builds the session's
// HAL/BIOS/BDOS/CCP stack and runs its CCP until it exits; if the slot
// is already active, this only changes which session receives keyboard
// input. inputDriver/outputDriver name the per-session console drivers
// ("session" when the caller's termbox multiplexer owns the
// keyboard/screen and feeds keystrokes through Feed, "stty"/"term"/"file" to bypass it for a single-
// session, non-multiplexed run).
func (sup *Supervisor) ActivateSession(ctx context.Context, id int, inputDriver, outputDriver string) error {
	if id < 0 || id >= MaxSessions {
		return fmt.Errorf("supervisor: invalid session id %d", id)
	}

	sup.mu.Lock()
	existing := sup.sessions[id]
	sup.focused = id
	sup.mu.Unlock()

	if existing != nil && existing.Active() {
		return nil
	}

	if sup.systemFree() < SessionMinMem {
		return fmt.Errorf("supervisor: out of memory, session %d not started", id)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	session := &Session{ID: id, cancel: cancel, done: make(chan struct{}), active: true}

	in, err := consolein.New(inputDriver)
	if err != nil {
		cancel()
		return err
	}
	out, err := consoleout.New(outputDriver)
	if err != nil {
		cancel()
		return err
	}
	session.in = in
	session.out = out

	if err := in.Setup(); err != nil {
		cancel()
		return err
	}

	sup.mu.Lock()
	sup.sessions[id] = session
	sup.mu.Unlock()

	go sup.runSession(sessionCtx, session)
	return nil
}

// runSession is the worker goroutine: build the session's stack, run
// CCP to completion, report a reason-specific farewell, and reap the
// slot.
func (sup *Supervisor) runSession(ctx context.Context, session *Session) {
	defer close(session.done)
	defer func() {
		session.mu.Lock()
		session.active = false
		session.mu.Unlock()
		_ = session.in.TearDown()
	}()

	h := hal.New(sup.clock)
	session.HAL = h
	h.SetInput(hal.DevConsole, session.in)
	h.SetOutput(hal.DevConsole, session.out)

	s := scb.New()

	table := mount.New()
	sup.mu.Lock()
	roots := sup.driveRoots
	sup.mu.Unlock()
	for d, root := range roots {
		if root != "" {
			table.Mount(d, root)
		}
	}

	cache := filecache.New(openFileCacheSize)
	rsxChain := rsx.New()

	b := bios.New(h, s, table)
	b.Wire()

	d := bdos.New(h, s, table, cache, b, rsxChain, sup.log)
	d.Wire()
	session.BIOS = b
	session.BDOS = d

	s.SearchPath = initialSearchPath

	c := ccp.New(d)
	session.CCP = c

	for {
		err := c.Run(ctx)
		if err == ccp.ErrReboot {
			h.ClearAbort()
			h.Reset()
			b.ClearHalted()
			continue
		}
		break
	}

	cache.CloseAll()

	reason := h.AbortReason()
	session.out.WriteString(farewell(reason))
}

// farewell returns the reason-specific message printed before a
// session's terminal is torn down.
func farewell(reason hal.AbortReason) string {
	switch reason {
	case hal.OutOfMemory:
		return "\r\n\nOut of memory, session aborted.\r\n"
	case hal.GeneralFailure:
		return "\r\n\nGeneral failure, session aborted.\r\n"
	case hal.AuxTerm:
		return "\r\n\nOpening UART terminal...\r\n"
	case hal.SessionClosed:
		return "\r\n\nSession closed.\r\n"
	default:
		return "\r\n\nSession ended.\r\n"
	}
}

// AbortSession sets the session's AbortReason and injects a CTRL-C into
// its input driver to unblock any pending read.
func (sup *Supervisor) AbortSession(id int, reason hal.AbortReason) {
	sup.mu.Lock()
	session := sup.sessions[id]
	sup.mu.Unlock()

	if session == nil || !session.Active() {
		return
	}
	session.HAL.Abort(reason)
	if fed, ok := session.in.GetDriver().(*consolein.SessionInput); ok {
		fed.Feed(0x03)
	}
}

// Feed routes one keystroke to the focused session's input driver, for
// callers driving their own keyboard poll loop (e.g. the termbox-based
// multiplexer in ui.go) instead of handing a self-polling driver
// ("stty"/"term") directly to ActivateSession.
func (sup *Supervisor) Feed(b byte) {
	sup.mu.Lock()
	id := sup.focused
	var session *Session
	if id >= 0 {
		session = sup.sessions[id]
	}
	sup.mu.Unlock()

	if session == nil || !session.Active() {
		return
	}
	if fed, ok := session.in.GetDriver().(*consolein.SessionInput); ok {
		fed.Feed(b)
	}
}

// WaitTermination blocks until every session slot has reaped.
func (sup *Supervisor) WaitTermination() {
	for {
		sup.mu.Lock()
		var waiting []*Session
		for _, s := range sup.sessions {
			if s != nil && s.Active() {
				waiting = append(waiting, s)
			}
		}
		sup.mu.Unlock()
		if len(waiting) == 0 {
			return
		}
		<-waiting[0].done
	}
}
