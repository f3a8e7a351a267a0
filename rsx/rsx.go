// Package rsx implements the Resident System Extension chain: a
// doubly-linked list of relocatable overlays installed between Page0's
// BDOS vector and the real BDOS entry point. The list is kept as an
// arena of fixed-size records referenced by index rather than raw
// back-pointers, with a sentinel index standing in for "the real BDOS"
// so the chain always terminates at a known value.
package rsx

// sentinelIndex is reserved for the chain's tail sentinel, which stands
// in for "the real BDOS" rather than another RSX.
const sentinelIndex = -1

// Record describes one installed RSX: its name, the guest address its
// code image was relocated to, the size of that image (so TPA space can
// be reclaimed precisely when it's removed), and its neighbours in the
// chain.
type Record struct {
	Name   [8]byte
	Addr   uint16
	Size   uint16
	Remove bool
	next   int
	prev   int
}

// Chain is the arena of installed RSXes, ordered from the guest's Page0
// vector down through memory. Index sentinelIndex always means "no
// RSX here - the real BDOS".
type Chain struct {
	records []Record
	head    int
}

// New returns an empty chain: Page0's vector would point straight at
// BDOS.
func New() *Chain {
	return &Chain{head: sentinelIndex}
}

// HeadAddr returns the guest address execution should jump to for a
// BDOS call: the first RSX's entry point, or 0 if the chain is empty
// (meaning "call BDOS directly").
func (c *Chain) HeadAddr() uint16 {
	if c.head == sentinelIndex {
		return 0
	}
	return c.records[c.head].Addr
}

// Empty reports whether no RSX is currently installed.
func (c *Chain) Empty() bool {
	return c.head == sentinelIndex
}

// Install pushes a new RSX onto the front of the chain (closest to
// Page0), as execLoadedProgram does while walking a container COM's RSX
// record table. It returns the new record's index, which Remove needs.
func (c *Chain) Install(name [8]byte, addr, size uint16) int {
	idx := len(c.records)
	c.records = append(c.records, Record{
		Name: name,
		Addr: addr,
		Size: size,
		next: c.head,
		prev: sentinelIndex,
	})
	if c.head != sentinelIndex {
		c.records[c.head].prev = idx
	}
	c.head = idx
	return idx
}

// MarkRemove flags the RSX at idx for removal; RemoveFlagged actually
// unlinks it. Matches the guest-visible protocol: an RSX sets its own
// REMOVE byte to 0xFF, and execLoadedProgram sweeps the chain for those
// after the program returns.
func (c *Chain) MarkRemove(idx int) {
	if idx >= 0 && idx < len(c.records) {
		c.records[idx].Remove = true
	}
}

// RemoveFlagged unlinks every RSX marked for removal, returning the
// total size reclaimed (added back to the TPA).
func (c *Chain) RemoveFlagged() (reclaimed uint16) {
	for i := range c.records {
		r := &c.records[i]
		if !r.Remove || r.Addr == 0 {
			continue
		}
		c.unlink(i)
		reclaimed += r.Size
		r.Addr = 0
	}
	return reclaimed
}

func (c *Chain) unlink(idx int) {
	r := c.records[idx]
	if r.prev != sentinelIndex {
		c.records[r.prev].next = r.next
	} else {
		c.head = r.next
	}
	if r.next != sentinelIndex {
		c.records[r.next].prev = r.prev
	}
}

// TopAddr returns the base address of the first installed RSX (the new
// top of the user TPA), or tpaTop if none are installed.
func (c *Chain) TopAddr(tpaTop uint16) uint16 {
	if c.head == sentinelIndex {
		return tpaTop
	}
	return c.records[c.head].Addr
}

// Records exposes the chain contents for diagnostics/tests.
func (c *Chain) Records() []Record {
	return c.records
}
