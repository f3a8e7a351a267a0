package bios

import (
	"context"
	"testing"

	"github.com/cpmhost/mtcpm/datetime"
	"github.com/cpmhost/mtcpm/hal"
	"github.com/cpmhost/mtcpm/mount"
	"github.com/cpmhost/mtcpm/scb"
)

func newTestBIOS(t *testing.T) *BIOS {
	t.Helper()
	h := hal.New(datetime.SystemClock{})
	s := scb.New()
	m := mount.New()
	m.Mount(0, t.TempDir())
	return New(h, s, m)
}

func TestSelDskMountedAndUnmounted(t *testing.T) {
	b := newTestBIOS(t)

	b.HAL.SetC(0) // A:
	if err := b.ProcessBIOS(context.Background(), FuncSelDsk); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if b.HAL.GetHL() != hal.DPHAddr {
		t.Fatalf("expected DPH address for mounted drive, got 0x%04X", b.HAL.GetHL())
	}

	b.HAL.SetC(5) // F: unmounted
	if err := b.ProcessBIOS(context.Background(), FuncSelDsk); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if b.HAL.GetHL() != 0 {
		t.Fatalf("expected 0 for unmounted drive, got 0x%04X", b.HAL.GetHL())
	}
}

func TestConsoleOutputRoutesToMappedDevice(t *testing.T) {
	b := newTestBIOS(t)

	var got []byte
	out := putFunc(func(c byte) { got = append(got, c) })
	b.HAL.SetOutput(hal.DevConsole, out)
	b.SCB.DeviceMask[1] = 1 << 15 // logical CONOUT -> physical 0 only

	b.HAL.SetC('Z')
	if err := b.ProcessBIOS(context.Background(), FuncConout); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(got) != 1 || got[0] != 'Z' {
		t.Fatalf("expected console to receive 'Z', got %v", got)
	}
}

func TestDevTblReturnsChrTblAddress(t *testing.T) {
	b := newTestBIOS(t)
	if err := b.ProcessBIOS(context.Background(), FuncDevTbl); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if b.HAL.GetHL() != hal.ChrTbl {
		t.Fatalf("expected HL == ChrTbl address, got 0x%04X", b.HAL.GetHL())
	}
}

type putFunc func(byte)

func (p putFunc) Ready() bool { return true }
func (p putFunc) Put(b byte)  { p(b) }
