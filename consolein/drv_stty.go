//go:build unix

// drv_stty is a console input-driver that shells out to the `stty`
// binary to toggle terminal echo, and reads STDIN a byte at a time in
// raw mode. It is slower than the termbox driver but needs nothing
// beyond a Unix-like host, which makes it the fallback for environments
// where termbox cannot own the screen.

package consolein

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/term"
)

// EchoStatus records the terminal echo state this driver last set.
type EchoStatus int

var (
	// Unknown means we don't know the status of echo/noecho.
	Unknown EchoStatus = 0

	// Echo means that input will echo characters.
	Echo EchoStatus = 1

	// NoEcho means that input will not echo characters.
	NoEcho EchoStatus = 2
)

// STTYInput is an input-driver that executes the 'stty' binary to
// toggle between echoing character input and disabling the echo.
//
// Executing a binary per state change is slow, so the driver tracks the
// echo state it last set and only re-runs stty on a real transition.
type STTYInput struct {

	// state holds the last echo state we set.
	state EchoStatus

	// stuffed holds fake input forced into the buffer by tests.
	stuffed string
}

// Setup is a NOP.
func (si *STTYInput) Setup() error {
	return nil
}

// TearDown re-enables echo if we left it off.
func (si *STTYInput) TearDown() error {
	if si.state != Echo {
		si.enableEcho()
	}
	return nil
}

// PendingInput reports whether STDIN has a byte ready.
//
// The terminal must be in RAW mode for the select to see unbuffered
// keystrokes; it is restored before returning so cooked-mode readers
// aren't disturbed.
func (si *STTYInput) PendingInput() bool {

	if len(si.stuffed) > 0 {
		return true
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return false
	}

	res := canSelect()

	err = term.Restore(int(os.Stdin.Fd()), oldState)
	if err != nil {
		return false
	}

	return res
}

// StuffInput inserts fake values into our input-buffer.
func (si *STTYInput) StuffInput(input string) {
	si.stuffed = input
}

// BlockForCharacterNoEcho returns the next character from the console,
// blocking until one is available, without echoing it.
func (si *STTYInput) BlockForCharacterNoEcho() (byte, error) {

	if len(si.stuffed) > 0 {
		c := si.stuffed[0]
		si.stuffed = si.stuffed[1:]
		return c, nil
	}

	if si.state != NoEcho {
		si.disableEcho()
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return 0x00, fmt.Errorf("error making raw terminal %s", err)
	}

	b := make([]byte, 1)
	_, err = os.Stdin.Read(b)
	if err != nil {
		return 0x00, fmt.Errorf("error reading a byte from stdin %s", err)
	}

	err = term.Restore(int(os.Stdin.Fd()), oldState)
	if err != nil {
		return 0x00, fmt.Errorf("error restoring terminal state %s", err)
	}

	return b[0], nil
}

// disableEcho is the single place where we disable echoing.
func (si *STTYInput) disableEcho() {
	_ = exec.Command("stty", "-F", "/dev/tty", "-echo").Run()
	si.state = NoEcho
}

// enableEcho is the single place where we enable echoing.
func (si *STTYInput) enableEcho() {
	_ = exec.Command("stty", "-F", "/dev/tty", "echo").Run()
	si.state = Echo
}

// GetName is part of the module API, and returns the name of this driver.
func (si *STTYInput) GetName() string {
	return "stty"
}

// init registers our driver, by name.
func init() {
	Register("stty", func() ConsoleInput {
		return new(STTYInput)
	})
}
