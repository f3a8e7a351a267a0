// Package consolein is an abstraction over console input.
//
// Each session picks a named driver (stty/term/file/session/error)
// through the same Register/Constructor factory idiom consoleout uses,
// so a Supervisor session can be wired to a real terminal, a scripted
// input file (for regression tests), the multiplexer's shared keyboard
// feed, or a driver that always errors (used while tearing a session
// down). ConsoleIn itself carries no line-
// editing logic - that lives in package linedit, shared with the CCP's
// own prompt loop - it only reads raw bytes from whichever driver is
// selected.
package consolein

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ConsoleInput is the interface every input driver implements; an
// object satisfying it may register itself, by name, via Register.
type ConsoleInput interface {
	// Setup prepares the driver (raw terminal mode, opening a file,
	// spawning a polling goroutine, ...).
	Setup() error

	// TearDown releases whatever Setup acquired.
	TearDown() error

	// PendingInput reports whether a byte is available without
	// blocking.
	PendingInput() bool

	// BlockForCharacterNoEcho returns the next character, blocking
	// until one is available. Echoing (if any) is the caller's
	// responsibility - BDOS func 1/10 echo explicitly so CTRL-P/S/Q/C
	// can be intercepted first.
	BlockForCharacterNoEcho() (byte, error)

	// GetName returns the name the driver registered under.
	GetName() string
}

// handlers is the map of known drivers, keyed by name.
var handlers = struct {
	m map[string]Constructor
}{m: make(map[string]Constructor)}

// Constructor is the signature of a constructor-function used to
// instantiate an instance of a driver.
type Constructor func() ConsoleInput

// Register makes a console input driver available, by name.
func Register(name string, obj Constructor) {
	name = strings.ToLower(name)
	handlers.m[name] = obj
}

// ConsoleIn wraps a selected ConsoleInput driver and implements
// hal.InputDevice (Pending/Block) over it, so a session's HAL can route
// bytes from it without knowing which concrete driver is behind it.
type ConsoleIn struct {
	driver ConsoleInput
}

// New returns a ConsoleIn backed by the named driver.
func New(name string) (*ConsoleIn, error) {
	name = strings.ToLower(name)
	ctor, ok := handlers.m[name]
	if !ok {
		return nil, fmt.Errorf("consolein: failed to lookup driver by name %q", name)
	}
	return &ConsoleIn{driver: ctor()}, nil
}

// GetDriver returns the underlying driver, for callers that need
// driver-specific behaviour (e.g. the supervisor feeding a "session"
// driver's buffer).
func (c *ConsoleIn) GetDriver() ConsoleInput { return c.driver }

// GetName returns the selected driver's name.
func (c *ConsoleIn) GetName() string { return c.driver.GetName() }

// GetDrivers returns all registered driver names, hiding the internal
// "error" driver used only for teardown-testing.
func GetDrivers() []string {
	valid := []string{}
	for name := range handlers.m {
		if name != ErrorInputName {
			valid = append(valid, name)
		}
	}
	return valid
}

// Setup/TearDown delegate to the selected driver.
func (c *ConsoleIn) Setup() error    { return c.driver.Setup() }
func (c *ConsoleIn) TearDown() error { return c.driver.TearDown() }

// PendingInput and BlockForCharacterNoEcho delegate straight to the
// selected driver, for callers that want the raw ConsoleInput contract.
func (c *ConsoleIn) PendingInput() bool { return c.driver.PendingInput() }
func (c *ConsoleIn) BlockForCharacterNoEcho() (byte, error) {
	return c.driver.BlockForCharacterNoEcho()
}

// Pending implements hal.InputDevice.
func (c *ConsoleIn) Pending() bool { return c.driver.PendingInput() }

// Block implements hal.InputDevice: between context-cancellation checks
// it polls the driver's PendingInput, sleeping 1ms while nothing is
// waiting, and reads through BlockForCharacterNoEcho once a byte is
// pending, since none of the drivers accept a context of their own.
func (c *ConsoleIn) Block(ctx context.Context) (byte, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		if c.driver.PendingInput() {
			return c.driver.BlockForCharacterNoEcho()
		}
		time.Sleep(time.Millisecond)
	}
}
