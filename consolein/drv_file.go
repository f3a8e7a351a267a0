// drv_file replays scripted console input from a file, for regression
// runs and automation: a session wired to this driver types the file's
// contents at the CCP, byte by byte, then reports EOF.

package consolein

import (
	"io"
	"os"
	"time"
)

// FileInputName is the name this driver registers under.
const FileInputName = "file"

// pauseMarker is consumed from the script rather than delivered: it
// makes the driver report "no input pending" for pauseDuration, which
// lets scripts ride out programs that poll for (and would swallow)
// pending console input.
const pauseMarker = '#'

// pauseDuration is how long a single pauseMarker stalls the script.
const pauseDuration = time.Second

// FileInput is an input-driver that replays the contents of a script
// file as console input.
//
// The script is named by the MTCPM_INPUT environment variable, or
// "input.txt" when unset. LF bytes are delivered as CR, so scripts can
// be written with ordinary host line endings and still terminate a
// CP/M line edit.
type FileInput struct {

	// offset is how far through the script we've replayed.
	offset int

	// content is the script.
	content []byte

	// delayUntil, when in the future, makes the driver pretend no
	// input is pending (a pauseMarker was consumed).
	delayUntil time.Time
}

// Setup reads the script file into memory.
func (fi *FileInput) Setup() error {

	fileName := os.Getenv("MTCPM_INPUT")
	if fileName == "" {
		fileName = "input.txt"
	}

	dat, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}

	fi.offset = 0
	fi.content = dat
	fi.delayUntil = time.Now()
	return nil
}

// TearDown is a NOP.
func (fi *FileInput) TearDown() error {
	return nil
}

// PendingInput reports whether script bytes remain, pretending none do
// while a pause is in effect.
func (fi *FileInput) PendingInput() bool {

	if !time.Now().After(fi.delayUntil) {
		return false
	}

	// A pause marker sitting at the cursor starts (or extends) the
	// stall.
	if fi.offset < len(fi.content) && fi.content[fi.offset] == pauseMarker {
		fi.offset++
		fi.delayUntil = time.Now().Add(pauseDuration)
		return false
	}

	return fi.offset < len(fi.content)
}

// BlockForCharacterNoEcho returns the next script byte, or io.EOF once
// the script is exhausted.
func (fi *FileInput) BlockForCharacterNoEcho() (byte, error) {

	for fi.offset < len(fi.content) {
		x := fi.content[fi.offset]
		fi.offset++

		if x == pauseMarker {
			time.Sleep(pauseDuration)
			continue
		}
		if x == '\n' {
			x = '\r'
		}
		return x, nil
	}

	return 0x00, io.EOF
}

// GetName is part of the module API, and returns the name of this driver.
func (fi *FileInput) GetName() string {
	return FileInputName
}

// init registers our driver, by name.
func init() {
	Register(FileInputName, func() ConsoleInput {
		return new(FileInput)
	})
}
