// Package filecache implements the open-file cache that maps an FCB's
// identity to a live host file handle, so that successive BDOS calls
// against the same FCB address reuse the same *os.File without having
// to keep the FCB's memory contents around.
//
// Lookups are keyed by the FCB's djb2 hash (see the fcb package), but
// each slot also stores the canonical 11-byte name it was opened with
// and verifies it on lookup - a hash collision between two different
// names falls through to a cache miss rather than handing back the
// wrong file.
package filecache

import (
	"math/rand"
	"os"
)

// DefaultCapacity is the number of simultaneously open files a cache
// holds before it must evict one to make room for a new one.
const DefaultCapacity = 5

type slot struct {
	file  *os.File
	hash  uint32
	name  [11]byte
	inUse bool
}

// Cache is a fixed-capacity, collision-checked open-file cache.
type Cache struct {
	slots []slot
}

// New returns a Cache with the given capacity. A capacity of zero uses
// DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{slots: make([]slot, capacity)}
}

// Get returns the cached file for the given hash and canonical 11-byte
// name, or nil if no matching, still-open entry exists.
func (c *Cache) Get(hash uint32, name [11]byte) *os.File {
	for i := range c.slots {
		s := &c.slots[i]
		if s.inUse && s.hash == hash && s.name == name {
			return s.file
		}
	}
	return nil
}

// Add inserts an open file into the cache under the given hash and
// name, evicting a random occupied slot (closing its file) if the cache
// is full.
func (c *Cache) Add(hash uint32, name [11]byte, file *os.File) {
	if file == nil {
		return
	}

	idx := -1
	for i := range c.slots {
		if !c.slots[i].inUse {
			idx = i
			break
		}
	}
	if idx == -1 {
		idx = rand.Intn(len(c.slots))
		if c.slots[idx].file != nil {
			c.slots[idx].file.Close()
		}
	}

	c.slots[idx] = slot{file: file, hash: hash, name: name, inUse: true}
}

// Remove drops the cache entry backed by the given file, without
// closing it - the caller is responsible for the close once it has
// decided the file is really going away.
func (c *Cache) Remove(file *os.File) {
	for i := range c.slots {
		if c.slots[i].inUse && c.slots[i].file == file {
			c.slots[i] = slot{}
			return
		}
	}
}

// Count returns the number of files currently held open by the cache.
func (c *Cache) Count() int {
	n := 0
	for i := range c.slots {
		if c.slots[i].inUse {
			n++
		}
	}
	return n
}

// CloseAll closes every open file held by the cache and empties it,
// used when a session terminates.
func (c *Cache) CloseAll() {
	for i := range c.slots {
		if c.slots[i].inUse {
			c.slots[i].file.Close()
			c.slots[i] = slot{}
		}
	}
}
