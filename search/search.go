// Package search implements BDOS functions 17/18 (Search First/Next): an
// iterator that walks a host directory, matching entries against a
// wildcarded FCB pattern, and synthesises the 32-byte directory records
// (and, for CP/M-3 callers, the SFCB datestamp record) a guest program
// expects to find written into its DMA buffer.
//
// When the caller asks for every extent, a file bigger than one 16KiB
// extent is revisited once per extent before the engine advances to the next directory entry, so guests
// that sum RC across extents see the true file size.
package search

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cpmhost/mtcpm/dirlabel"
	"github.com/cpmhost/mtcpm/fcb"
)

// extentSize is the number of bytes a single CP/M extent addresses.
const extentSize = 16384

// recordSize is the size of a CP/M logical record.
const recordSize = 128

// NoMoreFiles is the A register value SearchFirst/Next return once the
// iteration is exhausted.
const NoMoreFiles = 0xFF

// match is one host directory entry that matched the search pattern.
type match struct {
	name  [11]byte
	size  int64
	isDir bool
}

// State holds a single in-progress SearchFirst/SearchNext iteration.
// Exactly one of these is live at a time; a fresh SearchFirst call
// discards whatever the previous one left behind.
type State struct {
	matches []match
	fileIdx int

	extentIdx int
	s2        uint8

	getAllFiles   bool
	getAllExtents bool

	label     dirlabel.Label
	haveLabel bool

	// sfcbPending is true once a directory record has been emitted and
	// the matching SFCB datestamp record is still owed for this call.
	sfcbPending bool
}

// matchesPattern reports whether an 11-byte canonical name matches an
// 11-byte FCB search pattern, where '?' matches any single character.
func matchesPattern(name, pattern [11]byte) bool {
	for i := range name {
		if pattern[i] != '?' && pattern[i] != name[i] {
			return false
		}
	}
	return true
}

// canonicalName packs a host filename into the same [11]byte layout an
// FCB uses, for pattern comparison.
func canonicalName(hostName string, isDir bool) [11]byte {
	var packed [11]byte
	for i := range packed {
		packed[i] = ' '
	}
	name := strings.ToUpper(hostName)
	base := name
	ext := ""
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		base = name[:dot]
		ext = name[dot+1:]
	}
	for i := 0; i < 8 && i < len(base); i++ {
		packed[i] = base[i]
	}
	if isDir {
		copy(packed[8:], fcb.DirectoryExt)
	} else {
		for i := 0; i < 3 && i < len(ext); i++ {
			packed[8+i] = ext[i]
		}
	}
	return packed
}

// First runs SearchFirst: it reads dirPath, filters entries against the
// 11-byte pattern taken from the search FCB, and primes the iterator.
// getAllFiles selects CP/M-3's "search all user areas" wildcard mode
// (here: also match directories, carrying the SFCB), getAllExtents asks
// every extent of a multi-extent file to be synthesised rather than just
// its first.
func First(dirPath string, pattern [11]byte, getAllFiles, getAllExtents bool, mountRoot string) (*State, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	s := &State{getAllFiles: getAllFiles, getAllExtents: getAllExtents}

	for _, e := range entries {
		if e.Name() == dirlabel.FileName {
			continue
		}
		isDir := e.IsDir()
		if isDir && !getAllFiles {
			continue
		}
		name := canonicalName(e.Name(), isDir)
		if !matchesPattern(name, pattern) {
			continue
		}
		var size int64
		if !isDir {
			if info, err := e.Info(); err == nil {
				size = info.Size()
			}
		}
		s.matches = append(s.matches, match{name: name, size: size, isDir: isDir})
	}

	sort.Slice(s.matches, func(i, j int) bool {
		return string(s.matches[i].name[:]) < string(s.matches[j].name[:])
	})

	if getAllFiles {
		label, err := dirlabel.Read(mountRoot)
		if err == nil {
			s.haveLabel = label.Exists()
			s.label = label
		}
	}

	return s, nil
}

// Record is one synthesised 32-byte directory entry (or SFCB) this
// engine hands back per Next call.
type Record struct {
	// Bytes is the 32-byte record to copy into the guest DMA.
	Bytes [32]byte

	// IsSFCB is true when Bytes holds a datestamp record rather than a
	// directory entry.
	IsSFCB bool
}

// Next advances the iteration by one step, returning ok=false once every
// match (and every extent, and any pending SFCB) has been produced.
func (s *State) Next() (Record, bool) {
	if s.sfcbPending {
		s.sfcbPending = false
		return s.buildSFCB(), true
	}

	if s.fileIdx >= len(s.matches) {
		return Record{}, false
	}

	m := s.matches[s.fileIdx]

	rec := s.buildDirEntry(m)

	remaining := m.size - int64(s.extentIdx+1)*extentSize
	if s.getAllExtents && remaining > 0 {
		s.extentIdx++
		if s.extentIdx == 32 {
			s.extentIdx = 0
			s.s2++
		}
	} else {
		s.fileIdx++
		s.extentIdx = 0
		s.s2 = 0
	}

	if s.haveLabel {
		s.sfcbPending = true
	}

	return rec, true
}

// buildDirEntry synthesises the 32-byte FCB-shaped directory record for
// the current file and extent: drive byte 0, name/type, EX/S2 set to
// the current extent, RC the number of 128-byte records this extent
// covers, and placeholder block-pointer bytes in AL (this emulator
// keeps no real allocation map - it serves whole files directly from
// the host filesystem).
func (s *State) buildDirEntry(m match) Record {
	var rec Record

	rec.Bytes[0] = 0
	copy(rec.Bytes[1:12], m.name[:])
	rec.Bytes[12] = uint8(s.extentIdx) & 0x1F
	rec.Bytes[14] = s.s2

	extentBytes := m.size - int64(s.extentIdx)*extentSize
	if extentBytes > extentSize {
		extentBytes = extentSize
	}
	if extentBytes < 0 {
		extentBytes = 0
	}
	records := (extentBytes + recordSize - 1) / recordSize
	if records > 128 {
		records = 128
	}
	rec.Bytes[15] = uint8(records)

	for i := 16; i < 32; i++ {
		rec.Bytes[i] = uint8(i - 15)
	}

	return rec
}

// buildSFCB synthesises the 4th-slot CP/M-3 datestamp record: a flag
// byte of 0x21, the create-or-access DateTime at offset 1 and the
// update DateTime at offset 5, 4 bytes each; the rest of the record
// stays zero.
func (s *State) buildSFCB() Record {
	var rec Record
	rec.IsSFCB = true
	rec.Bytes[0] = 0x21
	created := s.label.Created.Bytes()
	updated := s.label.Updated.Bytes()
	copy(rec.Bytes[1:5], created[:])
	copy(rec.Bytes[5:9], updated[:])
	return rec
}

// MatchHostPath reconstructs the host path for the most recently visited
// file, relative to dirPath - used by callers (Delete, Rename) that need
// to act on the file a search step named.
func MatchHostPath(dirPath, hostName string) string {
	return filepath.Join(dirPath, hostName)
}

// MatchingHostNames lists every entry in dirPath whose canonical 11-byte
// name matches pattern ('?' wildcards), returning the real on-disk
// names (case preserved) - used by BDOS functions that act directly on
// the host filesystem (Delete, Copy) rather than iterating extents.
func MatchingHostNames(dirPath string, pattern [11]byte, includeDirs bool) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Name() == dirlabel.FileName {
			continue
		}
		isDir := e.IsDir()
		if isDir && !includeDirs {
			continue
		}
		if matchesPattern(canonicalName(e.Name(), isDir), pattern) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
