// drv_logger records everything written to it instead of displaying
// anything: tests wire a session to this driver and assert on the
// recorded output afterwards.

package consoleout

import (
	"io"
	"strings"
)

// OutputLoggingDriver records output rather than displaying it.
type OutputLoggingDriver struct {

	// history accumulates everything written so far.
	history strings.Builder
}

// GetName returns the name of this driver.
//
// This is part of the OutputDriver interface.
func (ol *OutputLoggingDriver) GetName() string {
	return "logger"
}

// PutCharacter records the character; nothing is displayed.
//
// This is part of the OutputDriver interface.
func (ol *OutputLoggingDriver) PutCharacter(c uint8) {
	ol.history.WriteByte(c)
}

// SetWriter is a NOP: this driver never writes anywhere.
func (ol *OutputLoggingDriver) SetWriter(w io.Writer) {
}

// GetOutput returns everything recorded so far.
//
// This is part of the ConsoleRecorder interface.
func (ol *OutputLoggingDriver) GetOutput() string {
	return ol.history.String()
}

// Reset discards the recorded output.
//
// This is part of the ConsoleRecorder interface.
func (ol *OutputLoggingDriver) Reset() {
	ol.history.Reset()
}

// init registers our driver, by name.
func init() {
	Register("logger", func() ConsoleOutput {
		return new(OutputLoggingDriver)
	})
}
