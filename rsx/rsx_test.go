package rsx

import "testing"

func TestInstallAndHeadAddr(t *testing.T) {
	c := New()
	if !c.Empty() {
		t.Fatalf("new chain should be empty")
	}

	idx := c.Install([8]byte{'F', 'O', 'O'}, 0xE000, 0x0200)
	if c.Empty() {
		t.Fatalf("chain should not be empty after Install")
	}
	if c.HeadAddr() != 0xE000 {
		t.Fatalf("expected head addr 0xE000, got 0x%04X", c.HeadAddr())
	}

	c.MarkRemove(idx)
	reclaimed := c.RemoveFlagged()
	if reclaimed != 0x0200 {
		t.Fatalf("expected to reclaim 0x0200 bytes, got 0x%04X", reclaimed)
	}
	if !c.Empty() {
		t.Fatalf("chain should be empty after removing its only RSX")
	}
}

func TestMultipleInstallOrder(t *testing.T) {
	c := New()
	c.Install([8]byte{'A'}, 0xE000, 0x100)
	c.Install([8]byte{'B'}, 0xD000, 0x100)

	if c.HeadAddr() != 0xD000 {
		t.Fatalf("most recently installed RSX should be first, got 0x%04X", c.HeadAddr())
	}
}
