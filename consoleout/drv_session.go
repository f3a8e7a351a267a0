package consoleout

import (
	"io"
	"sync"
)

// scrollbackLimit bounds how much of a session's output the Supervisor
// keeps around to repaint a viewport after a hotkey switch brings it
// back into focus.
const scrollbackLimit = 64 * 1024

// SessionOutputDriver is a recording output-driver fed to one session's
// BIOS/BDOS console writes. While the session is not focused its output
// only accumulates in scrollback; the Supervisor points mirror at the
// shared termbox-backed writer for whichever session currently is.
type SessionOutputDriver struct {
	mu         sync.Mutex
	scrollback []byte
	mirror     io.Writer
}

// GetName returns the name of this driver.
func (so *SessionOutputDriver) GetName() string {
	return "session"
}

// SetWriter is part of the ConsoleOutput interface; SetMirror is the
// Supervisor-facing equivalent that actually matters for this driver; a
// plain SetWriter is kept as a synonym so the factory's common contract
// still holds.
func (so *SessionOutputDriver) SetWriter(w io.Writer) {
	so.SetMirror(w)
}

// SetMirror directs live output to w (the Supervisor's active viewport)
// or, given nil, stops mirroring - leaving output/scrollback recording.
func (so *SessionOutputDriver) SetMirror(w io.Writer) {
	so.mu.Lock()
	so.mirror = w
	so.mu.Unlock()
}

// PutCharacter appends c to the scrollback, trimming from the front once
// scrollbackLimit is exceeded, and mirrors it to the focused viewport if
// this session currently owns one.
func (so *SessionOutputDriver) PutCharacter(c uint8) {
	so.mu.Lock()
	so.scrollback = append(so.scrollback, c)
	if over := len(so.scrollback) - scrollbackLimit; over > 0 {
		so.scrollback = so.scrollback[over:]
	}
	mirror := so.mirror
	so.mu.Unlock()

	if mirror != nil {
		_, _ = mirror.Write([]byte{c})
	}
}

// GetOutput returns the recorded scrollback, implementing ConsoleRecorder
// for the Supervisor's repaint-on-refocus path.
func (so *SessionOutputDriver) GetOutput() string {
	so.mu.Lock()
	defer so.mu.Unlock()
	return string(so.scrollback)
}

// Reset clears the recorded scrollback.
func (so *SessionOutputDriver) Reset() {
	so.mu.Lock()
	so.scrollback = nil
	so.mu.Unlock()
}

// init registers our driver, by name.
func init() {
	Register("session", func() ConsoleOutput {
		return new(SessionOutputDriver)
	})
}
