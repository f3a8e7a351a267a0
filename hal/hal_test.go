package hal

import (
	"context"
	"testing"

	"github.com/cpmhost/mtcpm/datetime"
)

func TestAbortIdempotent(t *testing.T) {
	h := New(datetime.SystemClock{})

	if h.Aborting() {
		t.Fatalf("fresh HAL should not be aborting")
	}

	h.Abort(OutOfMemory)
	h.Abort(SessionClosed)

	if h.AbortReason() != OutOfMemory {
		t.Fatalf("first abort reason should stick, got %v", h.AbortReason())
	}
	if !h.Aborting() {
		t.Fatalf("expected Aborting() true after Abort()")
	}

	h.ClearAbort()
	if h.Aborting() {
		t.Fatalf("ClearAbort should reset the flag")
	}
}

func TestPushStackAndExecExitImmediately(t *testing.T) {
	h := New(datetime.SystemClock{})

	// A RET at the entry point; execution should stop the instant PC
	// reaches the address we push as a synthetic return.
	h.Memory.Set(0x1000, 0xC9) // RET
	h.PushStack(0x1234)

	err := h.Exec(context.Background(), 0x1000, 0x1234)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

type fakeOut struct {
	got   []byte
	ready bool
}

func (f *fakeOut) Ready() bool { return f.ready }
func (f *fakeOut) Put(b byte)  { f.got = append(f.got, b) }

func TestDevOutAll(t *testing.T) {
	h := New(datetime.SystemClock{})
	a := &fakeOut{ready: true}
	b := &fakeOut{ready: true}
	h.SetOutput(DevConsole, a)
	h.SetOutput(DevCRT, b)

	mask := uint16(1<<(15-DevConsole) | 1<<(15-DevCRT))
	h.DevOut(mask, 'X')

	if len(a.got) != 1 || a.got[0] != 'X' {
		t.Fatalf("expected console to receive byte, got %v", a.got)
	}
	if len(b.got) != 1 || b.got[0] != 'X' {
		t.Fatalf("expected crt to receive byte, got %v", b.got)
	}
}

func TestDevOutAvailableRequiresAll(t *testing.T) {
	h := New(datetime.SystemClock{})
	h.SetOutput(DevConsole, &fakeOut{ready: true})
	h.SetOutput(DevCRT, &fakeOut{ready: false})

	mask := uint16(1<<(15-DevConsole) | 1<<(15-DevCRT))
	if h.DevOutAvailable(mask) {
		t.Fatalf("expected DevOutAvailable false when one mapped device isn't ready")
	}
}
