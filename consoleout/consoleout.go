// Package consoleout is an abstraction over console output.
//
// Each session selects a named driver (ansi/adm-3a/session, plus the
// internal null/logger pair) through the same Register/Constructor
// factory idiom consolein uses, so a session's terminal bytes can go to
// a real host terminal, the multiplexer's shared screen, or a test
// recorder without the BIOS/BDOS layers knowing the difference.
package consoleout

import (
	"fmt"
	"io"
	"strings"
)

// ConsoleOutput is the interface that must be implemented by anything
// that wishes to be used as a console output driver. An object
// satisfying it may register itself, by name, via Register.
type ConsoleOutput interface {

	// PutCharacter will output the specified character to the defined writer.
	//
	// The writer will default to STDOUT, but can be changed, via SetWriter.
	PutCharacter(c uint8)

	// GetName will return the name of the driver.
	GetName() string

	// SetWriter will update the writer.
	SetWriter(io.Writer)
}

// ConsoleRecorder is an interface that allows returning the contents that
// have been previously sent to the console.
//
// This is used solely for integration tests.
type ConsoleRecorder interface {

	// GetOutput returns the contents which have been displayed.
	GetOutput() string

	// Reset removes any stored state.
	Reset()
}

// This is a map of known-drivers
var handlers = struct {
	m map[string]Constructor
}{m: make(map[string]Constructor)}

// Constructor is the signature of a constructor-function
// which is used to instantiate an instance of a driver.
type Constructor func() ConsoleOutput

// Register makes a console driver available, by name.
//
// When one needs to be created the constructor can be called
// to create an instance of it.
func Register(name string, obj Constructor) {
	// Downcase for consistency.
	name = strings.ToLower(name)

	handlers.m[name] = obj
}

// ConsoleOut holds our state, which is basically just a
// pointer to the object handling our output.
type ConsoleOut struct {

	// driver is the thing that actually writes our output.
	driver ConsoleOutput

	// options holds the "name:options" suffix passed to New, used to
	// rewrite CR/LF handling (e.g. "ansi:LF=BOTH").
	options string
}

// New is our constructor, it creates an output device which uses
// the specified driver. A ":options" suffix on the name is split off
// and applied by PutCharacter.
func New(name string) (*ConsoleOut, error) {

	options := ""
	val := strings.Split(name, ":")
	if len(val) == 2 {
		name = val[0]
		options = val[1]
	}

	// Downcase for consistency.
	name = strings.ToLower(name)

	// Do we have a constructor with the given name?
	ctor, ok := handlers.m[name]
	if !ok {
		return nil, fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	// OK we do, return ourselves with that driver.
	return &ConsoleOut{
		driver:  ctor(),
		options: options,
	}, nil
}

// GetDriver allows getting our driver at runtime.
func (co *ConsoleOut) GetDriver() ConsoleOutput {
	return co.driver
}

// WriteString writes the given string, character by character, via our
// selected output driver.
func (co *ConsoleOut) WriteString(str string) {
	for _, c := range str {
		co.PutCharacter(uint8(c))
	}
}

// ChangeDriver allows changing our driver at runtime.
func (co *ConsoleOut) ChangeDriver(name string) error {

	// Do we have a constructor with the given name?
	ctor, ok := handlers.m[name]
	if !ok {
		return fmt.Errorf("failed to lookup driver by name '%s'", name)
	}

	// change the driver by creating a new object
	co.driver = ctor()
	return nil
}

// GetName returns the name of our selected driver.
func (co *ConsoleOut) GetName() string {
	return co.driver.GetName()
}

// GetDrivers returns all available driver-names.
//
// We hide the internal "null", and "logger" drivers.
func (co *ConsoleOut) GetDrivers() []string {
	valid := []string{}

	for x := range handlers.m {
		if x != "null" && x != "logger" {
			valid = append(valid, x)
		}
	}
	return valid
}

// PutCharacter outputs a character via the selected driver, applying
// any CR/LF rewrite option first.
func (co *ConsoleOut) PutCharacter(c byte) {

	if co.options == "" || (c != '\r' && c != '\n') {
		co.driver.PutCharacter(c)
		return
	}

	key := "CR="
	if c == '\n' {
		key = "LF="
	}

	switch {
	case strings.Contains(co.options, key+"NONE"):
	case strings.Contains(co.options, key+"BOTH"):
		co.driver.PutCharacter('\r')
		co.driver.PutCharacter('\n')
	case strings.Contains(co.options, key+"CR"):
		co.driver.PutCharacter('\r')
	case strings.Contains(co.options, key+"LF"):
		co.driver.PutCharacter('\n')
	default:
		co.driver.PutCharacter(c)
	}
}

// Ready implements hal.OutputDevice: every console driver is always
// able to accept a character immediately, there is no FIFO to overflow.
func (co *ConsoleOut) Ready() bool { return true }

// Put implements hal.OutputDevice over PutCharacter.
func (co *ConsoleOut) Put(b byte) { co.PutCharacter(b) }
