package consolein

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// script writes a temporary input script and points the driver's
// environment variable at it.
func script(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write script: %s", err)
	}
	t.Setenv("MTCPM_INPUT", path)
}

func TestFileSetupMissingFile(t *testing.T) {
	t.Setenv("MTCPM_INPUT", filepath.Join(t.TempDir(), "no-such-file"))

	fi := FileInput{}
	if err := fi.Setup(); err == nil {
		t.Fatalf("expected an error for a missing script file")
	}
}

func TestFileReplay(t *testing.T) {
	script(t, "DIR")

	fi := FileInput{}
	if err := fi.Setup(); err != nil {
		t.Fatalf("setup failed: %s", err)
	}
	defer fi.TearDown()

	if !fi.PendingInput() {
		t.Fatalf("expected pending input before replay")
	}

	got := ""
	for i := 0; i < 3; i++ {
		c, err := fi.BlockForCharacterNoEcho()
		if err != nil {
			t.Fatalf("unexpected error mid-script: %s", err)
		}
		got += string(c)
	}
	if got != "DIR" {
		t.Fatalf("replayed %q, want %q", got, "DIR")
	}

	if fi.PendingInput() {
		t.Fatalf("expected no pending input after replay")
	}
	if _, err := fi.BlockForCharacterNoEcho(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of script, got %v", err)
	}
}

func TestFileNewlineBecomesCR(t *testing.T) {
	script(t, "A\nB")

	fi := FileInput{}
	if err := fi.Setup(); err != nil {
		t.Fatalf("setup failed: %s", err)
	}

	want := []byte{'A', 0x0D, 'B'}
	for i, w := range want {
		c, err := fi.BlockForCharacterNoEcho()
		if err != nil {
			t.Fatalf("byte %d: unexpected error %s", i, err)
		}
		if c != w {
			t.Fatalf("byte %d = %#x, want %#x", i, c, w)
		}
	}
}

func TestFilePauseMarkerStallsPending(t *testing.T) {
	script(t, "#X")

	fi := FileInput{}
	if err := fi.Setup(); err != nil {
		t.Fatalf("setup failed: %s", err)
	}

	// The first poll consumes the marker and starts the stall.
	if fi.PendingInput() {
		t.Fatalf("expected no pending input while paused")
	}
	if !time.Now().Before(fi.delayUntil) {
		t.Fatalf("expected the pause deadline to be in the future")
	}

	// The stall is only visible through PendingInput; the byte after
	// the marker is still delivered.
	c, err := fi.BlockForCharacterNoEcho()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c != 'X' {
		t.Fatalf("got %q, want 'X'", c)
	}
}
