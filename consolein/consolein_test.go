package consolein

import (
	"context"
	"testing"
	"time"
)

// TestOverview calls most of the direct-delegation methods, as an
// overview, against the stty driver.
func TestOverview(t *testing.T) {

	x := STTYInput{}

	ch := ConsoleIn{}
	ch.driver = &x

	if err := ch.Setup(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer ch.TearDown()

	if ch.GetName() != "stty" {
		t.Fatalf("wrong driver name %s", ch.GetName())
	}
}

// TestBlock ensures Block returns a byte fed by a stuffed driver, and
// that it honours context cancellation when nothing is pending.
func TestBlock(t *testing.T) {

	x := STTYInput{}
	x.StuffInput("X")

	ch := ConsoleIn{}
	ch.driver = &x

	if !ch.Pending() {
		t.Fatalf("expected pending input")
	}

	c, err := ch.Block(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c != 'X' {
		t.Fatalf("wrong character %c", c)
	}
}

// TestBlockCancel ensures Block returns promptly once its context is
// cancelled, rather than blocking forever on a driver with nothing
// pending.
func TestBlockCancel(t *testing.T) {

	ch := ConsoleIn{driver: &errorInput{}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ch.Block(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline-exceeded, got %v", err)
	}
}

// errorInput never reports pending input, used only to exercise
// Block's cancellation path without depending on the real "error"
// driver's BlockForCharacterNoEcho behaviour.
type errorInput struct{}

func (*errorInput) Setup() error                           { return nil }
func (*errorInput) TearDown() error                        { return nil }
func (*errorInput) PendingInput() bool                     { return false }
func (*errorInput) BlockForCharacterNoEcho() (byte, error) { return 0, nil }
func (*errorInput) GetName() string                        { return "errorInput" }

// TestDriverRegistration performs some sanity-checks on our
// driver-registration.
func TestDriverRegistration(t *testing.T) {

	if len(handlers.m) != 5 {
		t.Fatalf("wrong number of handlers: %d", len(handlers.m))
	}

	for _, name := range []string{"term", "stty", "file", "session", ErrorInputName} {
		if _, ok := handlers.m[name]; !ok {
			t.Fatalf("failed to find expected handler, %s", name)
		}
		if _, err := New(name); err != nil {
			t.Fatalf("failed to instantiate handler, %s: %s", name, err)
		}
	}

	if _, ok := handlers.m["bogus"]; ok {
		t.Fatalf("found unexpected handler!")
	}
	if _, err := New("bogus"); err == nil {
		t.Fatalf("expected an error looking up a bogus handler")
	}

	obj, err := New("stty")
	if err != nil {
		t.Fatalf("error looking up driver")
	}
	drv := obj.GetDriver()
	if drv.GetName() != "stty" {
		t.Fatalf("naming mismatch on driver!")
	}
	if obj.GetName() != "stty" {
		t.Fatalf("naming mismatch on driver!")
	}

	// GetDrivers hides the "error" driver.
	for _, name := range GetDrivers() {
		if name == ErrorInputName {
			t.Fatalf("GetDrivers should hide the error driver")
		}
	}
}
