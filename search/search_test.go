package search

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, dir, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644); err != nil {
		t.Fatalf("write %s: %s", name, err)
	}
}

var wildcard = func() [11]byte {
	var p [11]byte
	for i := range p {
		p[i] = '?'
	}
	return p
}()

func TestSearchLabelLessDirectory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "ONE.COM", 200)
	write(t, dir, "TWO.COM", 200)
	write(t, dir, "DATA.BIN", 200)

	st, err := First(dir, wildcard, false, true, dir)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	count := 0
	for {
		_, ok := st.Next()
		if !ok {
			break
		}
		count++
		if count > 20 {
			t.Fatalf("search engine did not terminate")
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 matches (one extent each), got %d", count)
	}
}

func TestSearchMultiExtentFile(t *testing.T) {
	dir := t.TempDir()
	// 20000 bytes spans two 16KiB extents.
	write(t, dir, "BIG.DAT", 20000)

	st, err := First(dir, wildcard, false, true, dir)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	rec1, ok := st.Next()
	if !ok {
		t.Fatalf("expected first extent")
	}
	if rec1.Bytes[12] != 0 {
		t.Fatalf("expected EX=0 for first extent, got %d", rec1.Bytes[12])
	}

	rec2, ok := st.Next()
	if !ok {
		t.Fatalf("expected second extent")
	}
	if rec2.Bytes[12] != 1 {
		t.Fatalf("expected EX=1 for second extent, got %d", rec2.Bytes[12])
	}

	_, ok = st.Next()
	if ok {
		t.Fatalf("expected iteration to end after both extents")
	}
}

func TestWildcardWithQuestionMarks(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "AAA.TXT", 10)
	write(t, dir, "AAB.TXT", 10)
	write(t, dir, "BBB.TXT", 10)

	var pattern [11]byte
	copy(pattern[:], "A??     TXT")

	st, err := First(dir, pattern, false, false, dir)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	names := map[string]bool{}
	for {
		rec, ok := st.Next()
		if !ok {
			break
		}
		names[string(rec.Bytes[1:12])] = true
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(names), names)
	}
}
