// ui.go implements the termbox-based session multiplexer: the one
// shared screen and keyboard poll loop the Supervisor's "session"
// console drivers are built to be fed from. Function keys F1..F12
// switch the focused session (spawning it on first use); every other
// key is routed to the focused session's SessionInput.
package main

import (
	"context"
	"fmt"

	"github.com/nsf/termbox-go"

	"github.com/cpmhost/mtcpm/consoleout"
	"github.com/cpmhost/mtcpm/supervisor"
)

// multiplexer owns the shared termbox screen and tracks which session
// is currently focused.
type multiplexer struct {
	sup     *supervisor.Supervisor
	w       *screenWriter
	focused int
}

func newMultiplexer(sup *supervisor.Supervisor) *multiplexer {
	return &multiplexer{sup: sup, focused: -1, w: newScreenWriter()}
}

// run initializes termbox, activates session 0, and polls keyboard
// events until ctx is done or PollEvent errors.
func (m *multiplexer) run(ctx context.Context) error {
	if err := termbox.Init(); err != nil {
		return err
	}
	defer termbox.Close()
	termbox.HideCursor()

	if err := m.switchTo(ctx, 0); err != nil {
		return err
	}

	events := make(chan termbox.Event)
	go func() {
		for {
			events <- termbox.PollEvent()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev.Type != termbox.EventKey {
				continue
			}
			if id, ok := functionKeySession(ev.Key); ok {
				if err := m.switchTo(ctx, id); err != nil {
					return err
				}
				continue
			}
			m.feedKey(ev)
		}
	}
}

// functionKeySession maps F1..F12 onto session ids 0..11.
func functionKeySession(k termbox.Key) (int, bool) {
	switch k {
	case termbox.KeyF1:
		return 0, true
	case termbox.KeyF2:
		return 1, true
	case termbox.KeyF3:
		return 2, true
	case termbox.KeyF4:
		return 3, true
	case termbox.KeyF5:
		return 4, true
	case termbox.KeyF6:
		return 5, true
	case termbox.KeyF7:
		return 6, true
	case termbox.KeyF8:
		return 7, true
	case termbox.KeyF9:
		return 8, true
	case termbox.KeyF10:
		return 9, true
	case termbox.KeyF11:
		return 10, true
	case termbox.KeyF12:
		return 11, true
	}
	return 0, false
}

// feedKey translates one termbox key event into the byte(s) the
// focused session's line editor expects (linedit recognises arrow-key
// history navigation as the ESC '[' 'A'/'B' escape sequence) and hands
// them to the Supervisor.
func (m *multiplexer) feedKey(ev termbox.Event) {
	if ev.Ch != 0 {
		m.sup.Feed(byte(ev.Ch))
		return
	}
	switch ev.Key {
	case termbox.KeyEnter:
		m.sup.Feed(0x0D)
	case termbox.KeySpace:
		m.sup.Feed(' ')
	case termbox.KeyTab:
		m.sup.Feed('\t')
	case termbox.KeyBackspace, termbox.KeyBackspace2:
		m.sup.Feed(0x08)
	case termbox.KeyEsc:
		m.sup.Feed(0x1B)
	case termbox.KeyCtrlC:
		m.sup.Feed(0x03)
	case termbox.KeyCtrlP:
		m.sup.Feed(0x10)
	case termbox.KeyCtrlS:
		m.sup.Feed(0x13)
	case termbox.KeyCtrlQ:
		m.sup.Feed(0x11)
	case termbox.KeyArrowUp:
		m.sup.Feed(0x1B)
		m.sup.Feed('[')
		m.sup.Feed('A')
	case termbox.KeyArrowDown:
		m.sup.Feed(0x1B)
		m.sup.Feed('[')
		m.sup.Feed('B')
	}
}

// switchTo unmirrors the previously focused session's output, activates
// (or refocuses) session id, repaints the screen from its recorded
// scrollback, and mirrors further output there.
func (m *multiplexer) switchTo(ctx context.Context, id int) error {
	if prev := m.sup.Session(m.focused); prev != nil {
		if rec, ok := prev.Out().GetDriver().(*consoleout.SessionOutputDriver); ok {
			rec.SetMirror(nil)
		}
	}
	m.focused = id

	if err := m.sup.ActivateSession(ctx, id, "session", "session"); err != nil {
		return err
	}

	s := m.sup.Session(id)
	if s == nil {
		return fmt.Errorf("mtcpmd: session %d did not start", id)
	}
	rec, ok := s.Out().GetDriver().(*consoleout.SessionOutputDriver)
	if !ok {
		return fmt.Errorf("mtcpmd: session %d has no recording output driver", id)
	}
	m.w.reset()
	_, _ = m.w.Write([]byte(rec.GetOutput()))
	rec.SetMirror(m.w)
	return nil
}

// screenWriter is the io.Writer consoleout.SessionOutputDriver mirrors
// the focused session's bytes to: a dumb, ADM-3A-level terminal over
// the termbox cell grid (CR/LF/backspace only, no escape parsing, since
// BDOS/CCP never emit ANSI sequences of their own).
type screenWriter struct {
	col, row int
}

func newScreenWriter() *screenWriter { return &screenWriter{} }

func (w *screenWriter) Write(p []byte) (int, error) {
	width, height := termbox.Size()
	if width == 0 || height == 0 {
		return len(p), nil
	}
	for _, c := range p {
		switch c {
		case '\r':
			w.col = 0
		case '\n':
			w.newline(width, height)
		case 0x08:
			if w.col > 0 {
				w.col--
				termbox.SetCell(w.col, w.row, ' ', termbox.ColorDefault, termbox.ColorDefault)
			}
		default:
			termbox.SetCell(w.col, w.row, rune(c), termbox.ColorDefault, termbox.ColorDefault)
			w.col++
			if w.col >= width {
				w.newline(width, height)
			}
		}
	}
	termbox.Flush()
	return len(p), nil
}

func (w *screenWriter) newline(width, height int) {
	w.col = 0
	w.row++
	if w.row >= height {
		scrollUp(width, height)
		w.row = height - 1
	}
}

// reset clears the grid and cursor, used before repainting a session's
// scrollback on refocus.
func (w *screenWriter) reset() {
	w.col, w.row = 0, 0
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
}

// scrollUp shifts every row up by one, dropping the top line and
// blanking the bottom one.
func scrollUp(width, height int) {
	buf := termbox.CellBuffer()
	for y := 1; y < height; y++ {
		for x := 0; x < width; x++ {
			c := buf[y*width+x]
			termbox.SetCell(x, y-1, c.Ch, c.Fg, c.Bg)
		}
	}
	for x := 0; x < width; x++ {
		termbox.SetCell(x, height-1, ' ', termbox.ColorDefault, termbox.ColorDefault)
	}
}
