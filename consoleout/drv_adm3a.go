// drv_adm3a translates the Lear Siegler ADM-3A escape conventions most
// CP/M software was written against into the ANSI sequences a modern
// terminal understands, so a session's output renders correctly when it
// is sent straight to a host terminal rather than the multiplexer's
// cell grid.

package consoleout

import (
	"fmt"
	"io"
	"os"
)

// Translation states: most bytes pass straight through, but an escape
// (or a cursor-motion prefix) puts the driver into a multi-byte
// sequence whose remaining bytes are consumed silently.
const (
	stGround    = iota // ordinary output
	stEscape           // saw ESC
	stCursorRow        // expecting the row byte of a cursor address
	stCursorCol        // expecting the column byte of a cursor address
	stAttrOn           // saw ESC B
	stAttrOff          // saw ESC C
	stEat2             // two bytes of a line/point sequence remain
	stEat1             // one byte remains
)

// Adm3AOutputDriver converts ADM-3A output to ANSI.
type Adm3AOutputDriver struct {

	// status is the translation state machine's current state.
	status int

	// row/col accumulate a two-byte cursor address.
	row uint8
	col uint8

	// writer is where we send our output.
	writer io.Writer
}

// GetName returns the name of this driver.
//
// This is part of the OutputDriver interface.
func (a3a *Adm3AOutputDriver) GetName() string {
	return "adm-3a"
}

// PutCharacter translates one byte of ADM-3A output.
//
// This is part of the OutputDriver interface.
func (a3a *Adm3AOutputDriver) PutCharacter(c uint8) {

	switch a3a.status {
	case stGround:
		switch c {
		case 0x07: // BEL: flash screen
			fmt.Fprintf(a3a.writer, "\033[?5h\033[?5l")
		case 0x7F: // DEL: echo BS, space, BS
			fmt.Fprintf(a3a.writer, "\b \b")
		case 0x1A, 0x0C: // clear screen (ADM-3A / VT52 forms)
			fmt.Fprintf(a3a.writer, "\033[H\033[2J")
		case 0x1E: // cursor home
			fmt.Fprintf(a3a.writer, "\033[H")
		case 0x1B:
			a3a.status = stEscape
		case 0x0B: // direct cursor motion prefix
			a3a.status = stCursorRow
		case 0x18, 0x05: // clear to end of line
			fmt.Fprintf(a3a.writer, "\033[K")
		case 0x12, 0x13:
			// nop
		default:
			fmt.Fprintf(a3a.writer, "%c", c)
		}
	case stEscape:
		switch c {
		case 0x1B:
			fmt.Fprintf(a3a.writer, "%c", c)
		case '=', 'Y':
			a3a.status = stCursorRow
		case 'E': // insert line
			fmt.Fprintf(a3a.writer, "\033[L")
		case 'R': // delete line
			fmt.Fprintf(a3a.writer, "\033[M")
		case 'B':
			a3a.status = stAttrOn
		case 'C':
			a3a.status = stAttrOff
		case 'L', 'D': // set line / delete line, two operand bytes
			a3a.status = stEat2
		case '*', ' ': // set pixel / clear pixel, two operand bytes
			a3a.status = stEat2
		default: // pass an unrecognised escape through untouched
			a3a.status = stGround
			fmt.Fprintf(a3a.writer, "%c%c", 0x1B, c)
		}
	case stCursorRow:
		a3a.row = c - ' ' + 1
		a3a.status = stCursorCol
	case stCursorCol:
		a3a.col = c - ' ' + 1
		a3a.status = stGround
		fmt.Fprintf(a3a.writer, "\033[%d;%dH", a3a.row, a3a.col)
	case stAttrOn:
		a3a.status = stGround
		switch c {
		case '0': // start reverse video
			fmt.Fprintf(a3a.writer, "\033[7m")
		case '1': // start half intensity
			fmt.Fprintf(a3a.writer, "\033[1m")
		case '2': // start blinking
			fmt.Fprintf(a3a.writer, "\033[5m")
		case '3': // start underlining
			fmt.Fprintf(a3a.writer, "\033[4m")
		case '4': // cursor on
			fmt.Fprintf(a3a.writer, "\033[?25h")
		case '5', '7': // video mode on / preserve status line
			// nop
		case '6': // remember cursor position
			fmt.Fprintf(a3a.writer, "\033[s")
		default:
			fmt.Fprintf(a3a.writer, "%cB%c", 0x1B, c)
		}
	case stAttrOff:
		a3a.status = stGround
		switch c {
		case '0': // stop reverse video
			fmt.Fprintf(a3a.writer, "\033[27m")
		case '1': // stop half intensity
			fmt.Fprintf(a3a.writer, "\033[m")
		case '2': // stop blinking
			fmt.Fprintf(a3a.writer, "\033[25m")
		case '3': // stop underlining
			fmt.Fprintf(a3a.writer, "\033[24m")
		case '4': // cursor off
			fmt.Fprintf(a3a.writer, "\033[?25l")
		case '5', '7': // video mode off / don't preserve status line
			// nop
		case '6': // restore cursor position
			fmt.Fprintf(a3a.writer, "\033[u")
		default:
			fmt.Fprintf(a3a.writer, "%cC%c", 0x1B, c)
		}
	case stEat2:
		a3a.status = stEat1
	case stEat1:
		a3a.status = stGround
	}
}

// SetWriter will update the writer.
func (a3a *Adm3AOutputDriver) SetWriter(w io.Writer) {
	a3a.writer = w
}

// init registers our driver, by name.
func init() {
	Register("adm-3a", func() ConsoleOutput {
		return &Adm3AOutputDriver{
			writer: os.Stdout,
		}
	})
}
