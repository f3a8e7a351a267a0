package scb

import "testing"

func TestNewDefaults(t *testing.T) {
	s := New()

	if s.CurrentDrive != 0 || s.CurrentUser != 0 {
		t.Fatalf("expected drive A, user 0, got drive=%d user=%d", s.CurrentDrive, s.CurrentUser)
	}
	if s.DMA != 0x0080 {
		t.Fatalf("expected default DMA 0x0080, got 0x%04X", s.DMA)
	}
	if s.MultiSectorCount != 1 {
		t.Fatalf("expected multisector count 1, got %d", s.MultiSectorCount)
	}
	if s.OutputDelimiter != '$' {
		t.Fatalf("expected '$' delimiter, got %q", s.OutputDelimiter)
	}
	if s.ErrorMode != ErrorModeDefault {
		t.Fatalf("expected default error mode, got 0x%02X", s.ErrorMode)
	}
}

func TestResetDisk(t *testing.T) {
	s := New()
	s.CurrentDrive = 3
	s.CurrentUser = 5
	s.DMA = 0x2000
	s.MultiSectorCount = 10

	s.ResetDisk()

	if s.CurrentDrive != 0 || s.CurrentUser != 0 || s.DMA != 0x0080 || s.MultiSectorCount != 1 {
		t.Fatalf("ResetDisk did not restore documented defaults: %+v", s)
	}
}

func TestGetSetByteRoundTrip(t *testing.T) {
	s := New()

	if !s.SetByte(OffsetCurrentDrive, 2) {
		t.Fatalf("SetByte on a known offset should succeed")
	}
	v, ok := s.GetByte(OffsetCurrentDrive)
	if !ok || v != 2 {
		t.Fatalf("expected round-tripped value 2, got %d ok=%v", v, ok)
	}

	if _, ok := s.GetByte(0xFF); ok {
		t.Fatalf("expected unknown offset to report ok=false")
	}
}

func TestGetSetWordRoundTrip(t *testing.T) {
	s := New()

	if !s.SetWord(OffsetDMA, 0x1234) {
		t.Fatalf("SetWord on DMA offset should succeed")
	}
	v, ok := s.GetWord(OffsetDMA)
	if !ok || v != 0x1234 {
		t.Fatalf("expected round-tripped DMA 0x1234, got 0x%04X ok=%v", v, ok)
	}
}
