// Package linedit implements the CP/M-3 console line editor shared by
// BDOS function 10 (Read Console Buffer) and the CCP's own command
// prompt: a line buffer with backspace, a 4-entry input history ring,
// CTRL-P print-echo toggling, CTRL-S/CTRL-Q pause, and CTRL-C
// termination.
package linedit

import "context"

// Control bytes the editor recognises.
const (
	CtrlC = 0x03
	CtrlP = 0x10
	CtrlQ = 0x11
	CtrlS = 0x13
	LF    = 0x0A
	CR    = 0x0D
	Bksp  = 0x08
	Del   = 0x7F
)

// historyDepth is the number of previous lines remembered.
const historyDepth = 4

// ByteSource yields the next input byte, blocking until one is
// available or the context is cancelled.
type ByteSource func(ctx context.Context) (byte, error)

// ByteSink emits a single output byte (echoing keystrokes back to the
// terminal).
type ByteSink func(b byte)

// Result describes how a ReadLine call ended.
type Result struct {
	// Text is the edited line, without a trailing CR/LF.
	Text string

	// CtrlC reports whether the line was terminated by an
	// un-suppressed CTRL-C rather than CR.
	CtrlC bool

	// PrinterEcho is the printer-echo toggle's value when the line
	// finished editing (CTRL-P flips it each time it's pressed).
	PrinterEcho bool
}

// Editor holds the input history ring a session's console carries
// across successive ReadLine calls.
type Editor struct {
	history [historyDepth]string
	count   int
	cursor  int
}

// New returns an empty history ring.
func New() *Editor {
	return &Editor{}
}

// ReadLine runs the line editor: it reads bytes from in, echoing each
// printable one (and handling editing keys) via out, until CR or an
// unsuppressed CTRL-C, and returns the finished line. max bounds the
// number of characters accepted, mirroring the guest buffer's declared
// maximum length byte. disableCtrlC mirrors SCB console-mode bit 0: when
// set, a CTRL-C in the stream is replaced with CR instead of aborting
// the line, so CTRL-C never appears in the returned text.
func (e *Editor) ReadLine(ctx context.Context, in ByteSource, out ByteSink, max uint8, disableCtrlC bool, printerEcho bool) (Result, error) {
	buf := []rune{}
	e.cursor = e.count

	for {
		c, err := in(ctx)
		if err != nil {
			return Result{}, err
		}

		if c == CtrlC && !disableCtrlC {
			return Result{CtrlC: true, PrinterEcho: printerEcho}, nil
		}
		if c == CtrlC && disableCtrlC {
			c = CR
		}
		if c == LF {
			c = CR
		}
		if c == CtrlP {
			printerEcho = !printerEcho
			continue
		}
		if c == CtrlS {
			// Pause: block for the resume. Any byte other than
			// CTRL-S resumes, not just CTRL-Q.
			for {
				n, err := in(ctx)
				if err != nil {
					return Result{}, err
				}
				if n == CtrlQ || n != CtrlS {
					break
				}
			}
			continue
		}
		if c == CR {
			out(CR)
			line := string(buf)
			e.push(line)
			return Result{Text: line, PrinterEcho: printerEcho}, nil
		}
		if (c == Bksp || c == Del) && len(buf) > 0 {
			buf = buf[:len(buf)-1]
			out(Bksp)
			out(' ')
			out(Bksp)
			continue
		}

		// Arrow-key escape sequences: ESC '[' 'A' (up) / 'B' (down).
		if c == 0x1B {
			b1, err := in(ctx)
			if err != nil {
				return Result{}, err
			}
			if b1 != '[' {
				continue
			}
			b2, err := in(ctx)
			if err != nil {
				return Result{}, err
			}
			switch b2 {
			case 'A':
				buf = e.eraseAndReplace(buf, out, e.recallOlder())
			case 'B':
				buf = e.eraseAndReplace(buf, out, e.recallNewer())
			}
			continue
		}

		if len(buf) >= int(max) {
			continue
		}
		buf = append(buf, rune(c))
		out(byte(c))
	}
}

// eraseAndReplace backspaces over the current buffer on the terminal and
// replaces it with replacement, echoing the new content.
func (e *Editor) eraseAndReplace(buf []rune, out ByteSink, replacement string) []rune {
	for range buf {
		out(Bksp)
		out(' ')
		out(Bksp)
	}
	for _, c := range replacement {
		out(byte(c))
	}
	return []rune(replacement)
}

// push appends a finished line to the history ring, skipping an exact
// duplicate of the most recently stored entry.
func (e *Editor) push(line string) {
	if line == "" {
		return
	}
	if e.count > 0 && e.history[(e.count-1)%historyDepth] == line {
		e.cursor = e.count
		return
	}
	e.history[e.count%historyDepth] = line
	e.count++
	e.cursor = e.count
}

// recallOlder moves the history cursor back one entry and returns it, or
// "" if there is nothing older to recall.
func (e *Editor) recallOlder() string {
	if e.cursor == 0 || e.count-e.cursor >= historyDepth {
		return e.historyAt(e.cursor)
	}
	e.cursor--
	return e.historyAt(e.cursor)
}

// recallNewer moves the history cursor forward one entry and returns it.
func (e *Editor) recallNewer() string {
	if e.cursor >= e.count {
		return ""
	}
	e.cursor++
	return e.historyAt(e.cursor)
}

func (e *Editor) historyAt(cursor int) string {
	if cursor < 0 || cursor >= e.count {
		return ""
	}
	return e.history[cursor%historyDepth]
}
