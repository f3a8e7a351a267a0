package static

import (
	"strings"
	"testing"
)

// TestEmbeddedUtilities confirms the A: utility set is present and
// holds nothing but .COM binaries.
func TestEmbeddedUtilities(t *testing.T) {

	files, err := GetContent().ReadDir("A")
	if err != nil {
		t.Fatalf("error reading embedded A: directory: %s", err)
	}
	if len(files) == 0 {
		t.Fatalf("expected at least one embedded utility")
	}

	for _, entry := range files {
		name := entry.Name()
		if !strings.HasSuffix(name, ".COM") {
			t.Fatalf("file '%s' is not a .COM file", name)
		}
	}
}

// TestEmptyContent confirms the -embed=false filesystem really is
// empty.
func TestEmptyContent(t *testing.T) {
	files, err := GetEmptyContent().ReadDir("A")
	if err == nil && len(files) != 0 {
		t.Fatalf("expected the empty filesystem to hold nothing")
	}
}
