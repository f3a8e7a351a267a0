// drv_term reads keyboard input through the termbox library: a
// background goroutine drains termbox's event queue into a byte buffer
// the ConsoleIn contract peels characters off on demand.
//
// This driver owns the whole terminal, so it is only suitable for a
// single-session run; the multi-session multiplexer feeds "session"
// drivers from its own termbox poll loop instead.

package consolein

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nsf/termbox-go"
	"golang.org/x/term"
)

// TermboxInput is an input-driver using termbox for keyboard handling.
type TermboxInput struct {

	// oldState is the terminal state before switching to RAW mode,
	// restored on TearDown.
	oldState *term.State

	// cancel stops the background polling goroutine.
	cancel context.CancelFunc

	// mu guards keyBuffer, which the polling goroutine appends to and
	// the consumer methods drain.
	mu        sync.Mutex
	keyBuffer []byte
}

// Setup switches STDIN to raw mode, initializes termbox, and starts the
// background keyboard poll.
func (ti *TermboxInput) Setup() error {

	var err error

	// Raw mode must come first; termbox.Init re-reads the terminal
	// state.
	ti.oldState, err = term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}

	if err = termbox.Init(); err != nil {
		return err
	}

	// termbox hides the cursor by default; CP/M programs expect one.
	fmt.Printf("\x1b[?25h")

	ctx, cancel := context.WithCancel(context.Background())
	ti.cancel = cancel

	go ti.pollKeyboard(ctx)

	return nil
}

// pollKeyboard collects keyboard events into the byte buffer until its
// context is cancelled. Special keys are translated into the bytes a
// CP/M line editor expects.
func (ti *TermboxInput) pollKeyboard(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := termbox.PollEvent()
		if ev.Type != termbox.EventKey {
			continue
		}

		ti.mu.Lock()
		if ev.Ch != 0 {
			ti.keyBuffer = append(ti.keyBuffer, byte(ev.Ch))
		} else {
			switch ev.Key {
			case termbox.KeyEnter:
				ti.keyBuffer = append(ti.keyBuffer, 0x0D)
			case termbox.KeySpace:
				ti.keyBuffer = append(ti.keyBuffer, ' ')
			case termbox.KeyBackspace, termbox.KeyBackspace2:
				ti.keyBuffer = append(ti.keyBuffer, 0x08)
			case termbox.KeyArrowUp:
				ti.keyBuffer = append(ti.keyBuffer, 0x1B, '[', 'A')
			case termbox.KeyArrowDown:
				ti.keyBuffer = append(ti.keyBuffer, 0x1B, '[', 'B')
			default:
				ti.keyBuffer = append(ti.keyBuffer, byte(ev.Key))
			}
		}
		ti.mu.Unlock()
	}
}

// TearDown stops the polling goroutine, closes termbox, and restores
// the terminal state.
func (ti *TermboxInput) TearDown() error {
	if ti.cancel != nil {
		ti.cancel()
	}

	termbox.Close()

	if ti.oldState != nil {
		return term.Restore(int(os.Stdin.Fd()), ti.oldState)
	}

	return nil
}

// PendingInput reports whether a key is waiting in the buffer.
func (ti *TermboxInput) PendingInput() bool {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return len(ti.keyBuffer) > 0
}

// BlockForCharacterNoEcho returns the next buffered key, blocking until
// the poll goroutine has delivered one.
func (ti *TermboxInput) BlockForCharacterNoEcho() (byte, error) {
	for {
		ti.mu.Lock()
		if len(ti.keyBuffer) > 0 {
			c := ti.keyBuffer[0]
			ti.keyBuffer = ti.keyBuffer[1:]
			ti.mu.Unlock()
			return c, nil
		}
		ti.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

// GetName is part of the module API, and returns the name of this driver.
func (ti *TermboxInput) GetName() string {
	return "term"
}

// init registers our driver, by name.
func init() {
	Register("term", func() ConsoleInput {
		return new(TermboxInput)
	})
}
