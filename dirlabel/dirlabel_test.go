package dirlabel

import (
	"testing"

	"github.com/cpmhost/mtcpm/datetime"
)

// TestReadMissingIsZeroValue confirms a drive with no label file reads
// back as a zero-value, non-existent label rather than an error.
func TestReadMissingIsZeroValue(t *testing.T) {
	dir := t.TempDir()

	l, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if l.Exists() {
		t.Fatalf("expected Exists() false for a missing label")
	}
}

// TestWriteReadRoundTrip confirms a written label reads back with the
// same flags and creation/update timestamps.
func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	var now datetime.DateTime
	now.Set(2024, 6, 1, 10, 0, 0)

	if err := Write(dir, FlagCreate|FlagUpdate, now); err != nil {
		t.Fatalf("Write: %v", err)
	}

	l, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !l.Exists() {
		t.Fatalf("expected Exists() true after Write")
	}
	if l.Flags&FlagCreate == 0 || l.Flags&FlagUpdate == 0 {
		t.Fatalf("flags mismatch: %08b", l.Flags)
	}
	if l.Created.DaysSince1978 != now.DaysSince1978 {
		t.Fatalf("created date mismatch")
	}
}

// TestWritePreservesCreationDate confirms a second Write keeps the
// original creation date while updating the update date.
func TestWritePreservesCreationDate(t *testing.T) {
	dir := t.TempDir()

	var first datetime.DateTime
	first.Set(2020, 1, 1, 0, 0, 0)
	if err := Write(dir, FlagCreate, first); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var second datetime.DateTime
	second.Set(2021, 2, 2, 0, 0, 0)
	if err := Write(dir, FlagCreate, second); err != nil {
		t.Fatalf("Write: %v", err)
	}

	l, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if l.Created.DaysSince1978 != first.DaysSince1978 {
		t.Fatalf("creation date should be preserved across writes")
	}
	if l.Updated.DaysSince1978 != second.DaysSince1978 {
		t.Fatalf("update date should reflect the latest write")
	}
}
