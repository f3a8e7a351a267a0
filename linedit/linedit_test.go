package linedit

import (
	"context"
	"testing"
)

func feeder(bytes []byte) ByteSource {
	i := 0
	return func(ctx context.Context) (byte, error) {
		b := bytes[i]
		i++
		return b, nil
	}
}

func TestReadLineBasic(t *testing.T) {
	e := New()
	var echoed []byte
	out := func(b byte) { echoed = append(echoed, b) }

	in := feeder([]byte("DIR\r"))
	res, err := e.ReadLine(context.Background(), in, out, 127, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.Text != "DIR" {
		t.Fatalf("expected %q, got %q", "DIR", res.Text)
	}
	if res.CtrlC {
		t.Fatalf("did not expect CtrlC")
	}
}

func TestReadLineCtrlC(t *testing.T) {
	e := New()
	out := func(b byte) {}
	in := feeder([]byte{'A', 'B', CtrlC})

	res, err := e.ReadLine(context.Background(), in, out, 127, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !res.CtrlC {
		t.Fatalf("expected CtrlC result")
	}
}

func TestReadLineCtrlCDisabledBecomesCR(t *testing.T) {
	e := New()
	out := func(b byte) {}
	in := feeder([]byte{'A', 'B', CtrlC})

	res, err := e.ReadLine(context.Background(), in, out, 127, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.CtrlC {
		t.Fatalf("CTRL-C should be suppressed, not reported")
	}
	if res.Text != "AB" {
		t.Fatalf("expected %q, got %q", "AB", res.Text)
	}
}

func TestReadLineBackspace(t *testing.T) {
	e := New()
	out := func(b byte) {}
	in := feeder([]byte{'A', 'B', 'C', Bksp, '\r'})

	res, err := e.ReadLine(context.Background(), in, out, 127, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.Text != "AB" {
		t.Fatalf("expected %q after backspace, got %q", "AB", res.Text)
	}
}

func TestReadLinePrinterEchoToggle(t *testing.T) {
	e := New()
	out := func(b byte) {}
	in := feeder([]byte{CtrlP, '\r'})

	res, err := e.ReadLine(context.Background(), in, out, 127, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !res.PrinterEcho {
		t.Fatalf("expected printer echo toggled on")
	}
}

func TestHistoryRecall(t *testing.T) {
	e := New()
	out := func(b byte) {}

	_, err := e.ReadLine(context.Background(), feeder([]byte("FIRST\r")), out, 127, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	res, err := e.ReadLine(context.Background(), feeder([]byte{0x1B, '[', 'A', '\r'}), out, 127, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.Text != "FIRST" {
		t.Fatalf("expected history recall of %q, got %q", "FIRST", res.Text)
	}
}
