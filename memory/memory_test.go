package memory

import "testing"

// TestMemoryTrivial just does basic get/set tests
func TestMemoryTrivial(t *testing.T) {

	mem := new(Memory)

	// Set
	mem.Set(0x00, 0x01)
	mem.Set(0x01, 0x02)

	// Get
	if mem.Get(0x00) != 0x01 {
		t.Fatalf("failed to get expected result")
	}
	if mem.Get(0x01) != 0x02 {
		t.Fatalf("failed to get expected result")
	}
	// GetU16
	if mem.GetU16(0x00) != 0x0201 {
		t.Fatalf("failed to get expected result")
	}

	// Fill with 0xCD
	mem.FillRange(0x00, 0xffff, 0xcd)

	if mem.Get(0xFFFE) != 0xcd {
		t.Fatalf("failed to get expected result")
	}
	// GetU16
	if mem.GetU16(0x0100) != 0xcdcd {
		t.Fatalf("failed to get expected result")
	}

	// Get a random range
	out := mem.GetRange(0x300, 0x00ff)
	for _, d := range out {
		if d != 0xcd {
			t.Fatalf("wrong result in GetRange")
		}
	}

	// Put a (small) range
	out = []uint8{0x01, 0x02, 0x03}
	mem.SetRange(0x0000, out[:]...)

	if mem.Get(0x00) != 0x01 {
		t.Fatalf("failed to get expected result")
	}
	if mem.Get(0x01) != 0x02 {
		t.Fatalf("failed to get expected result")
	}
	// GetU16
	if mem.GetU16(0x00) != 0x0201 {
		t.Fatalf("failed to get expected result")
	}
	if mem.GetU16(0x02) != 0xcd03 {
		t.Fatalf("failed to get expected result")
	}
}

// TestLazyPages confirms untouched pages read back as zero, without
// forcing allocation of the whole 64KiB up front.
func TestLazyPages(t *testing.T) {
	mem := new(Memory)

	if mem.Get(0x4000) != 0x00 {
		t.Fatalf("untouched memory should read as zero")
	}
	if mem.pages[0x4000/pageSize] != nil {
		t.Fatalf("reading should not allocate a page")
	}

	mem.Set(0x4000, 0x42)
	if mem.pages[0x4000/pageSize] == nil {
		t.Fatalf("writing should allocate the backing page")
	}
	if mem.Get(0x4000) != 0x42 {
		t.Fatalf("failed to read back written byte")
	}
}

// TestReleaseMem confirms only wholly-covered pages are released.
func TestReleaseMem(t *testing.T) {
	mem := new(Memory)

	mem.Set(0x0000, 0xAA) // page 0
	mem.Set(0x0400, 0xBB) // page 1
	mem.Set(0x0800, 0xCC) // page 2

	// Release only page 1, which is fully inside [0x0400, 0x0800).
	mem.ReleaseMem(0x0400, pageSize)

	if mem.pages[1] != nil {
		t.Fatalf("page 1 should have been released")
	}
	if mem.pages[0] == nil || mem.pages[2] == nil {
		t.Fatalf("pages 0 and 2 should be untouched")
	}
	if mem.Get(0x0400) != 0x00 {
		t.Fatalf("released page should read back as zero")
	}
}

// TestMoveMemOverlap exercises the overlap-safe copy in both directions.
func TestMoveMemOverlap(t *testing.T) {
	mem := new(Memory)

	mem.PutRange(0x0000, 1, 2, 3, 4, 5)

	// Shift right, source/destination overlap.
	mem.MoveMem(0x0002, 0x0000, 4)
	got := mem.GetRange(0x0000, 6)
	want := []uint8{1, 2, 1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MoveMem right-shift mismatch at %d: got %v want %v", i, got, want)
		}
	}

	mem2 := new(Memory)
	mem2.PutRange(0x0000, 1, 2, 3, 4, 5)
	// Shift left, source/destination overlap.
	mem2.MoveMem(0x0000, 0x0002, 3)
	got2 := mem2.GetRange(0x0000, 5)
	want2 := []uint8{3, 4, 5, 4, 5}
	for i := range want2 {
		if got2[i] != want2[i] {
			t.Fatalf("MoveMem left-shift mismatch at %d: got %v want %v", i, got2, want2)
		}
	}
}

// TestCopyStrAndFindChar exercises the NUL-terminated string helpers.
func TestCopyStrAndFindChar(t *testing.T) {
	mem := new(Memory)
	mem.PutRange(0x0100, 'H', 'I', 0x00)

	if n := mem.StrLen(0x0100); n != 2 {
		t.Fatalf("StrLen: got %d want 2", n)
	}

	n := mem.CopyStr(0x0200, 0x0100)
	if n != 2 {
		t.Fatalf("CopyStr length: got %d want 2", n)
	}
	if mem.Get(0x0202) != 0x00 {
		t.Fatalf("CopyStr should have copied the terminator")
	}

	addr, found := mem.FindChar(0x0100, 3, 'I')
	if !found || addr != 0x0101 {
		t.Fatalf("FindChar: got (%v,%v) want (0x0101,true)", addr, found)
	}
}
