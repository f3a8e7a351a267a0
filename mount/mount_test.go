package mount

import (
	"os"
	"path/filepath"
	"testing"
)

func setup(t *testing.T) *Table {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"TESTDIR", "TESTDIR/SUB", "OTHER"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}

	tbl := New()
	tbl.Mount(0, root)
	return tbl
}

// TestResolveDefaultDrive confirms an empty spec resolves to the
// current directory of the default drive.
func TestResolveDefaultDrive(t *testing.T) {
	tbl := setup(t)
	root, _ := tbl.Root(0)

	host, drive, err := tbl.Resolve(0, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if drive != 0 {
		t.Fatalf("drive = %d, want 0", drive)
	}
	if host != root {
		t.Fatalf("host = %q, want %q", host, root)
	}
}

// TestChangeDirAndResolve confirms ChangeDir updates the current
// directory and subsequent Resolve calls reflect it.
func TestChangeDirAndResolve(t *testing.T) {
	tbl := setup(t)
	root, _ := tbl.Root(0)

	if err := tbl.ChangeDir(0, "TESTDIR"); err != nil {
		t.Fatalf("ChangeDir: %v", err)
	}
	if got := tbl.CurrentDir(0); got != "TESTDIR" {
		t.Fatalf("CurrentDir = %q, want TESTDIR", got)
	}

	host, _, err := tbl.Resolve(0, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(root, "TESTDIR")
	if host != want {
		t.Fatalf("host = %q, want %q", host, want)
	}
}

// TestChangeDirMissingFails confirms changing into a nonexistent
// directory is rejected and leaves the current directory untouched.
func TestChangeDirMissingFails(t *testing.T) {
	tbl := setup(t)

	if err := tbl.ChangeDir(0, "NOPE"); err == nil {
		t.Fatalf("expected error changing into a missing directory")
	}
	if got := tbl.CurrentDir(0); got != "" {
		t.Fatalf("CurrentDir = %q, want empty after failed ChangeDir", got)
	}
}

// TestDotDotDoesNotEscapeRoot exercises invariant-style path
// resolution: ".." collapses against real components and never climbs
// above the mount root.
func TestDotDotDoesNotEscapeRoot(t *testing.T) {
	tbl := setup(t)
	root, _ := tbl.Root(0)

	if err := tbl.ChangeDir(0, "TESTDIR/SUB"); err != nil {
		t.Fatalf("ChangeDir: %v", err)
	}

	host, _, err := tbl.Resolve(0, "../../../../..")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if host != root {
		t.Fatalf("host = %q, want root %q (dot-dot should not escape)", host, root)
	}
}

// TestCollapseDotDotSamples checks the documented dot-dot collapsing
// examples.
func TestCollapseDotDotSamples(t *testing.T) {
	cases := map[string]string{
		"AAA/../BBB":             "BBB",
		"AAA/..":                 "",
		"AAA/BBB/..":             "AAA",
		"AAA/BBB/../CCC":         "AAA/CCC",
		"AAA/BBB/../..":          "",
		"AAA/BBB/../CCC/../DDD":  "AAA/DDD",
		"AAA/BBB/CCC/../..":      "AAA",
		"AAA/BBB/CCC/../../DDD":  "AAA/DDD",
	}
	for in, want := range cases {
		if got := collapseDotDot(in); got != want {
			t.Fatalf("collapseDotDot(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestResolveDriveSwitch confirms a "D:" prefix in spec selects a
// different drive than the caller's default.
func TestResolveDriveSwitch(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "X"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	tbl := New()
	tbl.Mount(0, t.TempDir())
	tbl.Mount(1, root)

	host, drive, err := tbl.Resolve(0, "B:X")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if drive != 1 {
		t.Fatalf("drive = %d, want 1", drive)
	}
	want := filepath.Join(root, "X")
	if host != want {
		t.Fatalf("host = %q, want %q", host, want)
	}
}

// TestResolveUnmountedDrive confirms referencing an unmounted drive
// fails.
func TestResolveUnmountedDrive(t *testing.T) {
	tbl := New()
	tbl.Mount(0, t.TempDir())

	if _, _, err := tbl.Resolve(0, "P:FOO"); err != ErrInvalidDrive {
		t.Fatalf("err = %v, want ErrInvalidDrive", err)
	}
}
