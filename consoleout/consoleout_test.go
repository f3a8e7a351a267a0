package consoleout

import (
	"bytes"
	"testing"
)

// TestName ensures we can look a driver up by name.
func TestName(t *testing.T) {

	valid := []string{"ansi", "adm-3a", "session"}

	for _, nm := range valid {

		d, e := New(nm)
		if e != nil {
			t.Fatalf("failed to lookup driver by name %s:%s", nm, e)
		}
		if d.GetName() != nm {
			t.Fatalf("%s != %s", d.GetName(), nm)
		}
		if d.GetDriver().GetName() != nm {
			t.Fatalf("%s != %s", d.GetDriver().GetName(), nm)
		}
	}

	if _, err := New("no-such-driver"); err == nil {
		t.Fatalf("we got a driver that shouldn't exist")
	}
}

// TestChangeDriver ensures we can swap drivers at runtime.
func TestChangeDriver(t *testing.T) {

	ansi, err := New("ansi")
	if err != nil {
		t.Fatalf("failed to load starting driver %s", err)
	}

	err = ansi.ChangeDriver("adm-3a")
	if err != nil {
		t.Fatalf("failed to change to new driver %s", err)
	}
	if ansi.GetName() != "adm-3a" {
		t.Fatalf("driver change didn't take")
	}

	err = ansi.ChangeDriver("no-such-driver")
	if err == nil {
		t.Fatalf("expected failure to change to a bogus driver")
	}
	if ansi.GetName() != "adm-3a" {
		t.Fatalf("driver changed unexpectedly")
	}
}

// TestOutput ensures the pass-through drivers emit plain text intact.
func TestOutput(t *testing.T) {

	valid := []string{"ansi", "adm-3a"}

	for _, nm := range valid {

		d, e := New(nm)
		if e != nil {
			t.Fatalf("failed to lookup driver by name %s:%s", nm, e)
		}

		tmp := new(bytes.Buffer)
		d.driver.SetWriter(tmp)

		d.WriteString("A>DIR")

		if tmp.String() != "A>DIR" {
			t.Fatalf("output driver %s produced '%s'", d.GetName(), tmp.String())
		}
	}
}

// TestNull ensures the null driver discards everything.
func TestNull(t *testing.T) {

	null, err := New("null")
	if err != nil {
		t.Fatalf("failed to load driver %s", err)
	}
	if null.GetName() != "null" {
		t.Fatalf("null driver has the wrong name")
	}

	tmp := new(bytes.Buffer)
	null.driver.SetWriter(tmp)

	null.PutCharacter('s')

	if tmp.String() != "" {
		t.Fatalf("got output, expected none: '%s'", tmp.String())
	}
}

// TestLogger ensures the logging driver records without displaying.
func TestLogger(t *testing.T) {

	drv, err := New("logger")
	if err != nil {
		t.Fatalf("failed to load driver %s", err)
	}

	tmp := new(bytes.Buffer)
	drv.driver.SetWriter(tmp)

	drv.WriteString("hello")

	if tmp.String() != "" {
		t.Fatalf("got output, expected none: '%s'", tmp.String())
	}

	o, ok := drv.GetDriver().(*OutputLoggingDriver)
	if !ok {
		t.Fatalf("failed to cast driver")
	}

	if o.GetOutput() != "hello" {
		t.Fatalf("wrong history %q", o.GetOutput())
	}

	drv.PutCharacter('!')
	if o.GetOutput() != "hello!" {
		t.Fatalf("history stopped updating: %q", o.GetOutput())
	}

	o.Reset()
	if o.GetOutput() != "" {
		t.Fatalf("resetting the history didn't succeed")
	}
}

// TestSessionRecorder ensures the session driver records scrollback and
// mirrors live output only once a mirror is attached.
func TestSessionRecorder(t *testing.T) {

	drv, err := New("session")
	if err != nil {
		t.Fatalf("failed to load driver %s", err)
	}

	so, ok := drv.GetDriver().(*SessionOutputDriver)
	if !ok {
		t.Fatalf("failed to cast driver")
	}

	drv.WriteString("early")
	if so.GetOutput() != "early" {
		t.Fatalf("scrollback = %q, want %q", so.GetOutput(), "early")
	}

	mirror := new(bytes.Buffer)
	so.SetMirror(mirror)
	drv.WriteString(" late")

	if mirror.String() != " late" {
		t.Fatalf("mirror = %q, want %q", mirror.String(), " late")
	}
	if so.GetOutput() != "early late" {
		t.Fatalf("scrollback = %q, want %q", so.GetOutput(), "early late")
	}

	so.SetMirror(nil)
	drv.PutCharacter('!')
	if mirror.String() != " late" {
		t.Fatalf("mirror updated after being detached")
	}
}

// TestList ensures the published driver list hides the internal
// null/logger drivers.
func TestList(t *testing.T) {
	x, _ := New("null")

	valid := x.GetDrivers()

	if len(valid) != 3 {
		t.Fatalf("unexpected number of console drivers: %v", valid)
	}
}

// TestADM drives every byte through every translator state, as a
// does-not-crash check on the state machine.
func TestADM(t *testing.T) {

	x := Adm3AOutputDriver{}

	tmp := new(bytes.Buffer)
	x.SetWriter(tmp)

	for s := stGround; s <= stEat1; s++ {
		for i := 0; i <= 255; i++ {
			x.status = s
			x.PutCharacter(byte(i))
		}
	}
}
