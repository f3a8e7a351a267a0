// drv_error is a console input-driver whose reads always fail: tests
// use it to drive a session's error paths, and the Supervisor can swap
// it in while tearing a session down so late readers fail fast instead
// of blocking forever.

package consolein

import "errors"

// ErrorInputName contains the name of this driver.
var ErrorInputName = "error"

// ErrReadRefused is what every BlockForCharacterNoEcho call returns.
var ErrReadRefused = errors.New("consolein: input driver refuses reads")

// ErrorInput is an input-driver that claims input is always pending and
// then fails every read.
type ErrorInput struct {
}

// Setup is a NOP.
func (ei *ErrorInput) Setup() error {
	return nil
}

// TearDown is a NOP.
func (ei *ErrorInput) TearDown() error {
	return nil
}

// PendingInput always pretends input is pending, so callers reach the
// failing read promptly rather than spinning on a poll.
func (ei *ErrorInput) PendingInput() bool {
	return true
}

// GetName returns the name of this driver, "error".
func (ei *ErrorInput) GetName() string {
	return ErrorInputName
}

// BlockForCharacterNoEcho always fails.
func (ei *ErrorInput) BlockForCharacterNoEcho() (byte, error) {
	return 0x00, ErrReadRefused
}

// init registers our driver, by name.
func init() {
	Register(ErrorInputName, func() ConsoleInput {
		return new(ErrorInput)
	})
}
