// drv_null discards everything written to it, for sessions that should
// run silently (capacity probing, timed regression runs).

package consoleout

import "io"

// NullOutputDriver discards all output.
type NullOutputDriver struct {
}

// GetName returns the name of this driver.
//
// This is part of the OutputDriver interface.
func (no *NullOutputDriver) GetName() string {
	return "null"
}

// PutCharacter discards the character.
//
// This is part of the OutputDriver interface.
func (no *NullOutputDriver) PutCharacter(c uint8) {
}

// SetWriter is a NOP: this driver never writes anywhere.
func (no *NullOutputDriver) SetWriter(w io.Writer) {
}

// init registers our driver, by name.
func init() {
	Register("null", func() ConsoleOutput {
		return new(NullOutputDriver)
	})
}
