// Package fcb contains helpers for reading, writing, and working with the
// CP/M File Control Block structure: parsing host-supplied filenames into
// it, encoding/decoding its fields, and computing the hash used to look
// open files up in the file cache.
package fcb

import (
	"strings"
)

// SIZE is the length, in bytes, of an on-disk/in-memory FCB.
const SIZE = 36

// DirectoryExt is the 3-byte extension value that marks an FCB entry as
// representing a directory rather than a plain file.
const DirectoryExt = "[D]"

// FCB is the 36-byte CP/M File Control Block.
type FCB struct {
	// Drive holds the drive byte: 0 = default, 1..16 = A..P. Bit 7 set
	// means "create directory" for BDOS function 22.
	Drive uint8

	// Name holds the 8-character (space padded) filename.
	Name [8]uint8

	// Type holds the 3-character (space padded) extension. DirectoryExt
	// marks the entry as a directory.
	Type [3]uint8

	Ex uint8
	S1 uint8
	S2 uint8
	RC uint8
	Al [16]uint8
	Cr uint8 // current record
	R0 uint8 // random record, low byte
	R1 uint8 // random record, middle byte
	R2 uint8 // random record, high byte
}

// GetName returns the name component of an FCB entry, trimmed of padding.
func (f *FCB) GetName() string {
	return strings.TrimRight(string(f.Name[:]), " \x00")
}

// GetType returns the type/extension component of an FCB entry, trimmed
// of padding.
func (f *FCB) GetType() string {
	return strings.TrimRight(string(f.Type[:]), " \x00")
}

// IsDirectory reports whether this FCB's extension marks it as a
// directory entry rather than a plain file.
func (f *FCB) IsDirectory() bool {
	return string(f.Type[:]) == DirectoryExt
}

// GetFileName returns the canonical "NAME.EXT" (or bare "NAME") form of
// the FCB's filename, upper-cased, with no trailing separators. This is
// the form used to address a host file and to key the file cache.
func (f *FCB) GetFileName() string {
	name := f.GetName()
	typ := f.GetType()
	if typ == "" {
		return name
	}
	return name + "." + typ
}

// GetDrive returns the 0-based drive index (0=A..15=P) this FCB refers
// to, given the currently selected drive to use when Drive is the
// "default drive" sentinel of zero.
func (f *FCB) GetDrive(currentDrive uint8) uint8 {
	if f.Drive == 0 {
		return currentDrive
	}
	return (f.Drive - 1) & 0x0F
}

// SetAbsolute sets EX/S2/CR so that the FCB's random-record position
// matches the given absolute byte offset, rounded down to the containing
// 128-byte record - mirroring BDOS function 36 (Set Random Record) run
// in reverse.
func (f *FCB) SetAbsolute(offsetBytes int64) {
	record := offsetBytes / 128
	f.Ex = uint8(record/128) & 0x1F
	f.S2 = uint8((record / 128) >> 5)
	f.Cr = uint8(record % 128)
}

// GetAbsolute returns the byte offset represented by EX/S2/CR, the
// inverse of SetAbsolute.
func (f *FCB) GetAbsolute() int64 {
	record := int64(f.Ex)*128 + int64(f.S2)*128*32 + int64(f.Cr)
	return record * 128
}

// GetRandomRecord returns the 24-bit random-record number stored in
// R0/R1/R2.
func (f *FCB) GetRandomRecord() uint32 {
	return uint32(f.R0) | uint32(f.R1)<<8 | uint32(f.R2)<<16
}

// SetRandomRecord stores a 24-bit random-record number into R0/R1/R2.
func (f *FCB) SetRandomRecord(record uint32) {
	f.R0 = uint8(record)
	f.R1 = uint8(record >> 8)
	f.R2 = uint8(record >> 16)
}

// Hash returns the 32-bit djb2 hash over the drive byte and the 11
// low-7-bit name bytes, used as the file-cache lookup key. It depends
// only on the drive and name/type fields, not on extent/record state -
// so re-parsing the same filespec always yields the same hash.
func (f *FCB) Hash() uint32 {
	hash := uint32(5381)<<5 + 5381 + uint32(f.Drive)
	for _, c := range f.Name {
		hash = (hash << 5) + hash + uint32(c&0x7f)
	}
	for _, c := range f.Type {
		hash = (hash << 5) + hash + uint32(c&0x7f)
	}
	return hash
}

// AsBytes returns the entry of the FCB in a format suitable for copying
// to RAM.
func (f *FCB) AsBytes() []uint8 {
	r := make([]uint8, 0, SIZE)

	r = append(r, f.Drive)
	r = append(r, f.Name[:]...)
	r = append(r, f.Type[:]...)
	r = append(r, f.Ex, f.S1, f.S2, f.RC)
	r = append(r, f.Al[:]...)
	r = append(r, f.Cr, f.R0, f.R1, f.R2)

	return r
}

// FromBytes returns an FCB entry from the given 36 bytes.
func FromBytes(b []uint8) FCB {
	tmp := FCB{}

	tmp.Drive = b[0]
	copy(tmp.Name[:], b[1:9])
	copy(tmp.Type[:], b[9:12])
	tmp.Ex = b[12]
	tmp.S1 = b[13]
	tmp.S2 = b[14]
	tmp.RC = b[15]
	copy(tmp.Al[:], b[16:32])
	tmp.Cr = b[32]
	tmp.R0 = b[33]
	tmp.R1 = b[34]
	tmp.R2 = b[35]

	return tmp
}

// isFileDelimiter reports whether c terminates a bare filename token
// while scanning a command line or path - the set CP/M-3 uses when
// parsing "d:name.typ;password" style specifications.
func isFileDelimiter(c byte) bool {
	switch c {
	case 0x00, ' ', '\r', '\t', ':', '.', ';', '=', ',', '[', ']', '<', '>', '|':
		return true
	}
	return false
}

// ExpandFilename converts a bare "name" or "name.typ" token (optionally
// containing '*'/'?' wildcards) into the packed 11-byte 8.3
// representation, upper-cased, wildcard-expanded, and returns the
// unconsumed remainder of the input. When isDir is true the extension is
// forced to DirectoryExt.
func ExpandFilename(name string, isDir bool) (packed [11]byte, rest string) {
	for i := range packed {
		packed[i] = ' '
	}

	switch name {
	case "..":
		packed[0], packed[1] = '.', '.'
		rest = name[2:]
		if isDir {
			copy(packed[8:], DirectoryExt)
		}
		return
	case ".":
		packed[0] = '.'
		rest = name[1:]
		if isDir {
			copy(packed[8:], DirectoryExt)
		}
		return
	}

	pos := 0

	// Name phase: up to 8 characters, stopping at '.' or a delimiter.
	i := 0
	for pos < len(name) {
		c := name[pos]
		if c == '.' {
			pos++
			break
		}
		if c < 32 || isFileDelimiter(c) {
			rest = name[pos:]
			if isDir {
				copy(packed[8:], DirectoryExt)
			}
			return
		}
		if c == '*' {
			for ; i < 8; i++ {
				packed[i] = '?'
			}
		} else if i < 8 {
			packed[i] = upper(c)
			i++
		}
		pos++
	}

	// Extension phase: up to 3 characters, stopping at a delimiter.
	i = 8
	for pos < len(name) {
		c := name[pos]
		if c < 32 || isFileDelimiter(c) {
			break
		}
		if c == '*' {
			for ; i < 11; i++ {
				packed[i] = '?'
			}
		} else if i < 11 {
			packed[i] = upper(c)
			i++
		}
		pos++
	}
	rest = name[pos:]

	if isDir {
		copy(packed[8:], DirectoryExt)
	}
	return
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// FromString returns an FCB entry from a simple "d:name.typ" command-line
// argument - used for populating the default FCBs from argv, and by
// tests. It does not handle passwords; use ParseFilename for the full
// guest-ABI parser.
func FromString(str string) FCB {
	tmp := FCB{}
	for i := range tmp.Name {
		tmp.Name[i] = ' '
	}
	for i := range tmp.Type {
		tmp.Type[i] = ' '
	}

	str = strings.ToUpper(strings.TrimSpace(str))

	if len(str) > 2 && str[1] == ':' {
		tmp.Drive = str[0] - 'A' + 1
		str = str[2:]
	}

	packed, _ := ExpandFilename(str, false)
	copy(tmp.Name[:], packed[:8])
	copy(tmp.Type[:], packed[8:11])

	return tmp
}

// ParseFilename implements the guest-ABI filename parser: general form
// "{d:}filename{.typ}{;password}". It fills dst (which must already be
// blanked/zeroed as CP/M-3 requires) and returns the remaining unparsed
// string plus any extracted password.
func ParseFilename(input string, dst *FCB) (rest string, password string) {
	// Skip leading spaces.
	i := 0
	for i < len(input) && input[i] == ' ' {
		i++
	}
	input = input[i:]

	// Drive prefix?
	if len(input) >= 2 && isDriveLetter(input[0]) && input[1] == ':' {
		dst.Drive = upper(input[0]) - 'A' + 1
		input = input[2:]
	} else {
		dst.Drive = 0
	}

	// Filename token: up to the first whitespace.
	end := 0
	for end < len(input) && input[end] != ' ' && input[end] != 0 {
		end++
	}
	token := input[:end]
	rest = input[end:]

	packed, sepInToken := ExpandFilename(token, false)
	copy(dst.Name[:], packed[:8])
	copy(dst.Type[:], packed[8:11])

	consumed := len(token) - len(sepInToken)
	sepIdx := consumed
	remainder := input[sepIdx:]

	if len(remainder) > 0 && remainder[0] == ';' && len(remainder) > 1 && isAlnum(remainder[1]) {
		remainder = remainder[1:]
		n := 0
		for n < 8 && n < len(remainder) && !isFileDelimiter(remainder[n]) {
			n++
		}
		password = strings.ToUpper(remainder[:n])
		remainder = remainder[n:]
	}

	return remainder, password
}

func isDriveLetter(c byte) bool {
	return (c >= 'A' && c <= 'P') || (c >= 'a' && c <= 'p')
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
