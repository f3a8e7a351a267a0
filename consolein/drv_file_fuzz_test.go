package consolein

import (
	"bytes"
	"io"
	"testing"
)

// FuzzFileReplay drives the script-replay loop with arbitrary content,
// confirming every script drains to a clean io.EOF regardless of pause
// markers, newlines, or binary noise.
func FuzzFileReplay(f *testing.F) {

	f.Add([]byte(nil))
	f.Add([]byte(""))
	f.Add([]byte("DIR\n"))
	f.Add([]byte("A\nB\r\nC"))
	f.Add([]byte("#"))
	f.Add([]byte("##X##"))
	f.Add([]byte{0x00, 0xFF, 0x1A, 0x0D})

	f.Fuzz(func(t *testing.T, input []byte) {

		fi := new(FileInput)

		// A pause marker makes the real driver sleep; replace them so
		// the fuzzer doesn't stall for a second per '#'. The marker
		// path has its own unit test.
		fi.content = bytes.ReplaceAll(input, []byte{'#'}, []byte{'.'})

		for i := 0; i <= len(fi.content); i++ {
			c, err := fi.BlockForCharacterNoEcho()
			if err == io.EOF {
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %v: %v", input, err)
			}
			if c == '\n' {
				t.Fatalf("LF leaked through CR normalisation for %v", input)
			}
		}

		if _, err := fi.BlockForCharacterNoEcho(); err != io.EOF {
			t.Fatalf("script %v never drained to EOF", input)
		}
	})
}
