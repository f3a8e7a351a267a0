// drv_session creates a console input-driver whose bytes come not from
// a file or a local terminal, but from the Supervisor's single shared
// keyboard poll loop: only the focused session's SessionInput receives
// keystrokes, via Feed, while the others sit idle.
package consolein

import (
	"sync"
)

// SessionInput is an input-driver fed externally by the Supervisor's
// termbox poll loop, one byte at a time, rather than owning its own
// terminal or file handle.
type SessionInput struct {
	mu  sync.Mutex
	buf []byte
}

// Setup is a NOP: the Supervisor owns the one shared terminal.
func (si *SessionInput) Setup() error { return nil }

// TearDown is a NOP.
func (si *SessionInput) TearDown() error { return nil }

// Feed appends a byte the Supervisor's poll loop has routed to this
// session, for PendingInput/BlockForCharacterNoEcho to deliver.
func (si *SessionInput) Feed(b byte) {
	si.mu.Lock()
	si.buf = append(si.buf, b)
	si.mu.Unlock()
}

// PendingInput reports whether a fed byte is waiting to be consumed.
func (si *SessionInput) PendingInput() bool {
	si.mu.Lock()
	defer si.mu.Unlock()
	return len(si.buf) > 0
}

// BlockForCharacterNoEcho returns the next fed byte without waiting:
// when nothing has been fed it returns 0 at once. Callers route through
// ConsoleIn.Block for a context-aware wait.
func (si *SessionInput) BlockForCharacterNoEcho() (byte, error) {
	si.mu.Lock()
	defer si.mu.Unlock()
	if len(si.buf) == 0 {
		return 0, nil
	}
	b := si.buf[0]
	si.buf = si.buf[1:]
	return b, nil
}

// GetName is part of the module API, and returns the name of this driver.
func (si *SessionInput) GetName() string {
	return "session"
}

// init registers our driver, by name.
func init() {
	Register("session", func() ConsoleInput {
		return new(SessionInput)
	})
}
