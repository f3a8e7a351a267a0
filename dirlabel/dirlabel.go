// Package dirlabel implements the CP/M-3 directory label: a small,
// hidden, per-drive record carrying datestamp policy flags (whether
// create/access/update times and passwords are tracked for that drive)
// plus the label's own create/update timestamps.
//
// The label is stored as a 32-byte FCB-shaped record in a hidden file
// at the root of each drive's mount point, so a mounted directory can
// be moved between hosts without losing its datestamp policy; the rest
// of the emulator sees it as a small Go struct.
package dirlabel

import (
	"os"
	"path/filepath"

	"github.com/cpmhost/mtcpm/datetime"
)

// FileName is the hidden file, at the root of a drive's mount point,
// that carries the directory label record.
const FileName = ".dirlabel"

// Flag bits stored in the label's EX byte, describing which datestamp
// fields are tracked for files on this drive.
const (
	FlagExists   = 0b00000001
	FlagCreate   = 0b00010000
	FlagUpdate   = 0b00100000
	FlagAccess   = 0b01000000
	FlagPassword = 0b10000000
)

// recordSize matches the FCB-shaped 32-byte on-disk record (the
// directory label omits the 4 trailing random-record bytes of a full
// 36-byte FCB).
const recordSize = 32

// Label is the decoded directory label record for one drive.
type Label struct {
	Flags   uint8
	Created datetime.DateTime
	Updated datetime.DateTime
}

// Exists reports whether the label records that it has been written at
// all (as opposed to being the all-zero default returned when no
// `.dirlabel` file is present).
func (l *Label) Exists() bool {
	return l.Flags&FlagExists != 0
}

// path returns the host path of the hidden label file under the given
// drive mount root.
func path(mountRoot string) string {
	return filepath.Join(mountRoot, FileName)
}

// Read loads the directory label for the drive mounted at mountRoot. A
// missing file is not an error: it returns a zero-value Label.
func Read(mountRoot string) (Label, error) {
	data, err := os.ReadFile(path(mountRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return Label{}, nil
		}
		return Label{}, err
	}
	return decode(data), nil
}

// Write persists a directory label under mountRoot, preserving the
// existing creation date (if any) and setting the update date to now.
func Write(mountRoot string, flags uint8, now datetime.DateTime) error {
	existing, err := Read(mountRoot)
	if err != nil {
		return err
	}

	label := Label{
		Flags:   flags | FlagExists,
		Created: existing.Created,
		Updated: now,
	}
	if !existing.Exists() {
		label.Created = now
	}

	return os.WriteFile(path(mountRoot), encode(label), 0644)
}

// decode parses a 32-byte on-disk record. Only the bytes this package
// cares about (the flags byte at FCB offset 12 / EX, and the two
// 4-byte timestamp fields at offsets 24 and 28) are interpreted; the
// rest of the record is padding.
func decode(data []byte) Label {
	var l Label
	if len(data) < recordSize {
		return l
	}
	l.Flags = data[12]
	var created, updated [4]byte
	copy(created[:], data[24:28])
	copy(updated[:], data[28:32])
	l.Created = datetime.FromBytes(created)
	l.Updated = datetime.FromBytes(updated)
	return l
}

// encode renders a Label back into its 32-byte on-disk form.
func encode(l Label) []byte {
	buf := make([]byte, recordSize)
	buf[12] = l.Flags
	created := l.Created.Bytes()
	updated := l.Updated.Bytes()
	copy(buf[24:28], created[:])
	copy(buf[28:32], updated[:])
	return buf
}
