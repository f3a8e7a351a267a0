// Package memory provides the 64KiB guest address space used to emulate
// a single CP/M session.
//
// Unlike a flat array the space is backed by 64 pages of 1KiB, allocated
// lazily on first access. A session that never touches the top of its
// address space never pays for it - which matters when up to twelve of
// these run concurrently on a RAM-constrained target.
package memory

import (
	"os"
)

// pageSize is the granularity at which guest RAM is allocated.
const pageSize = 1024

// pageCount is the number of pages covering the full 64KiB guest space.
const pageCount = 65536 / pageSize

// Memory provides the 64KiB of guest RAM a CP/M session executes within.
type Memory struct {
	pages [pageCount]*[pageSize]uint8
}

// page returns the page backing the given address, allocating it on
// first use.
func (m *Memory) page(addr uint16) *[pageSize]uint8 {
	idx := addr / pageSize
	if m.pages[idx] == nil {
		m.pages[idx] = new([pageSize]uint8)
	}
	return m.pages[idx]
}

// Set sets a byte at addr of memory.
func (m *Memory) Set(addr uint16, value uint8) {
	p := m.page(addr)
	p[addr%pageSize] = value
}

// Get returns a byte at addr of memory.
func (m *Memory) Get(addr uint16) uint8 {
	idx := addr / pageSize
	if m.pages[idx] == nil {
		return 0x00
	}
	return m.pages[idx][addr%pageSize]
}

// GetU16 returns a word from the given address of memory, little-endian.
func (m *Memory) GetU16(addr uint16) uint16 {
	l := m.Get(addr)
	h := m.Get(addr + 1)
	return (uint16(h) << 8) | uint16(l)
}

// SetU16 writes a word at the given address of memory, little-endian.
func (m *Memory) SetU16(addr uint16, value uint16) {
	m.Set(addr, uint8(value&0xFF))
	m.Set(addr+1, uint8(value>>8))
}

// PutRange copies bytes from the given data to the specified starting
// address in RAM.
func (m *Memory) PutRange(addr uint16, data ...uint8) {
	for i, d := range data {
		m.Set(addr+uint16(i), d)
	}
}

// SetRange is an alias of PutRange, kept for symmetry with GetRange.
func (m *Memory) SetRange(addr uint16, data ...uint8) {
	m.PutRange(addr, data...)
}

// FillMem fills an area of memory with the given byte.
func (m *Memory) FillMem(addr uint16, size int, char uint8) {
	for size > 0 {
		m.Set(addr, char)
		addr++
		size--
	}
}

// FillRange is an alias of FillMem, kept for symmetry with GetRange.
func (m *Memory) FillRange(addr uint16, size int, char uint8) {
	m.FillMem(addr, size, char)
}

// GetRange returns the contents of a given range.
func (m *Memory) GetRange(addr uint16, size int) []uint8 {
	ret := make([]uint8, 0, size)
	for size > 0 {
		ret = append(ret, m.Get(addr))
		addr++
		size--
	}
	return ret
}

// CopyMem copies size bytes from src to dst, both addresses in guest
// memory, safely handling overlap (like MoveMem).
func (m *Memory) CopyMem(dst, src uint16, size int) {
	m.MoveMem(dst, src, size)
}

// MoveMem copies size bytes from src to dst, safely handling the case
// where the two ranges overlap (mirrors memmove rather than memcpy).
func (m *Memory) MoveMem(dst, src uint16, size int) {
	if size <= 0 || dst == src {
		return
	}
	if dst < src {
		for i := 0; i < size; i++ {
			m.Set(dst+uint16(i), m.Get(src+uint16(i)))
		}
		return
	}
	for i := size - 1; i >= 0; i-- {
		m.Set(dst+uint16(i), m.Get(src+uint16(i)))
	}
}

// CopyFromHost copies a host-memory byte slice into guest memory starting
// at addr.
func (m *Memory) CopyFromHost(addr uint16, data []byte) {
	m.PutRange(addr, data...)
}

// CopyToHost copies size bytes of guest memory, starting at addr, out to
// a freshly allocated host byte slice.
func (m *Memory) CopyToHost(addr uint16, size int) []byte {
	return m.GetRange(addr, size)
}

// CompareMem compares size bytes starting at a and b, returning true if
// they are identical.
func (m *Memory) CompareMem(a, b uint16, size int) bool {
	for i := 0; i < size; i++ {
		if m.Get(a+uint16(i)) != m.Get(b+uint16(i)) {
			return false
		}
	}
	return true
}

// FindChar scans forward from addr, within max bytes, for the given
// character, returning its address and true on success.
func (m *Memory) FindChar(addr uint16, max int, c uint8) (uint16, bool) {
	for i := 0; i < max; i++ {
		if m.Get(addr+uint16(i)) == c {
			return addr + uint16(i), true
		}
	}
	return 0, false
}

// StrLen returns the length of the NUL-terminated string starting at
// addr, not including the terminator.
func (m *Memory) StrLen(addr uint16) int {
	n := 0
	for m.Get(addr+uint16(n)) != 0x00 {
		n++
	}
	return n
}

// CopyStr copies a NUL-terminated string from src to dst, including the
// terminator, and returns its length (excluding the terminator).
func (m *Memory) CopyStr(dst, src uint16) int {
	n := m.StrLen(src)
	m.MoveMem(dst, src, n+1)
	return n
}

// ReleaseMem frees every whole 1KiB page that lies fully inside
// [addr, addr+size). Pages only partially covered by the range are left
// alone, since other live data may still share them.
func (m *Memory) ReleaseMem(addr uint16, size int) {
	if size <= 0 {
		return
	}
	end := int(addr) + size
	firstPage := (int(addr) + pageSize - 1) / pageSize
	lastPage := end / pageSize
	for p := firstPage; p < lastPage && p < pageCount; p++ {
		m.pages[p] = nil
	}
}

// Reset clears every allocated page back to empty, ready for a new
// program load.
func (m *Memory) Reset() {
	for i := range m.pages {
		m.pages[i] = nil
	}
}

// LoadFile loads a CP/M binary from the given host path at TPA_ADDR
// (0x0100), after resetting memory to an empty state.
func (m *Memory) LoadFile(name string) error {
	m.Reset()

	prog, err := os.ReadFile(name)
	if err != nil {
		return err
	}

	m.PutRange(0x0100, prog...)
	return nil
}

// LoadBytes loads a CP/M binary already in memory at the given address,
// without resetting the rest of RAM. Used for RSX overlays and COM files
// loaded by BDOS function 59.
func (m *Memory) LoadBytes(addr uint16, prog []byte) {
	m.PutRange(addr, prog...)
}
