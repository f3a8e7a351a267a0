package fcb

import "testing"

// TestFromStringRoundTrip exercises invariant #1: decoding an FCB built
// from a plain 8.3 name without wildcards yields back the same
// upper-cased name.
func TestFromStringRoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		name string
		typ  string
	}{
		{"hello.com", "HELLO", "COM"},
		{"A:TEST.TXT", "TEST", "TXT"},
		{"readme", "README", ""},
		{"c:x.y", "X", "Y"},
	}

	for _, c := range cases {
		f := FromString(c.in)
		if got := f.GetName(); got != c.name {
			t.Fatalf("FromString(%q).GetName() = %q, want %q", c.in, got, c.name)
		}
		if got := f.GetType(); got != c.typ {
			t.Fatalf("FromString(%q).GetType() = %q, want %q", c.in, got, c.typ)
		}
	}
}

// TestFromStringDrive confirms the drive-letter prefix is parsed into
// the 1-based Drive byte (0 = default drive, 1 = A, 2 = B, ...).
func TestFromStringDrive(t *testing.T) {
	f := FromString("B:FOO.BAR")
	if f.Drive != 2 {
		t.Fatalf("Drive = %d, want 2", f.Drive)
	}

	f2 := FromString("FOO.BAR")
	if f2.Drive != 0 {
		t.Fatalf("Drive = %d, want 0 (default)", f2.Drive)
	}
}

// TestFromStringTruncates confirms names/types longer than 8/3
// characters are truncated to fit the packed fields.
func TestFromStringTruncates(t *testing.T) {
	f := FromString("c:this-is-a-long-name")
	if f.GetName() != "THIS-IS-" {
		t.Fatalf("name = %q, want THIS-IS-", f.GetName())
	}

	f2 := FromString("c:this-is-a-.long-name")
	if f2.GetName() != "THIS-IS-" {
		t.Fatalf("name = %q, want THIS-IS-", f2.GetName())
	}
	if f2.GetType() != "LON" {
		t.Fatalf("type = %q, want LON", f2.GetType())
	}
}

// TestExpandFilenameWildcard exercises the '*' per-column expansion: '*'
// in the name fills the rest of the name with '?', and independently for
// the extension.
func TestExpandFilenameWildcard(t *testing.T) {
	packed, _ := ExpandFilename("*.COM", false)
	want := "????????COM"
	if string(packed[:]) != want {
		t.Fatalf("ExpandFilename(*.COM) = %q, want %q", packed, want)
	}

	packed2, _ := ExpandFilename("FOO.*", false)
	want2 := "FOO     ???"
	if string(packed2[:]) != want2 {
		t.Fatalf("ExpandFilename(FOO.*) = %q, want %q", packed2, want2)
	}

	packed3, _ := ExpandFilename("*.*", false)
	want3 := "????????" + "???"
	if string(packed3[:]) != want3 {
		t.Fatalf("ExpandFilename(*.*) = %q, want %q", packed3, want3)
	}
}

// TestFromStringWildcard mirrors the wildcard cases through FromString.
func TestFromStringWildcard(t *testing.T) {
	f := FromString("c:steve*")
	if f.GetName() != "STEVE???" {
		t.Fatalf("name = %q, want STEVE???", f.GetName())
	}

	f2 := FromString("c:test.C*")
	if f2.GetName() != "TEST" {
		t.Fatalf("name = %q, want TEST", f2.GetName())
	}
	if f2.GetType() != "C??" {
		t.Fatalf("type = %q, want C??", f2.GetType())
	}
}

// TestExpandFilenameDirectory confirms the directory marker replaces the
// extension regardless of what followed the name.
func TestExpandFilenameDirectory(t *testing.T) {
	packed, _ := ExpandFilename("SUBDIR", true)
	if got := string(packed[8:]); got != DirectoryExt {
		t.Fatalf("directory extension = %q, want %q", got, DirectoryExt)
	}
	if got := string(packed[:6]); got != "SUBDIR" {
		t.Fatalf("directory name = %q, want SUBDIR", got)
	}
}

// TestExpandFilenameDots confirms "." and ".." are passed through
// specially rather than wildcard-expanded.
func TestExpandFilenameDots(t *testing.T) {
	packed, rest := ExpandFilename(".", false)
	if packed[0] != '.' || rest != "" {
		t.Fatalf("ExpandFilename(.) = %q rest=%q", packed, rest)
	}

	packed2, _ := ExpandFilename("..", false)
	if packed2[0] != '.' || packed2[1] != '.' {
		t.Fatalf("ExpandFilename(..) = %q, want leading '..'", packed2)
	}
}

// TestHashStability exercises invariant #2: parsing the same filespec
// twice yields the same hash, and it depends only on drive + name/type.
func TestHashStability(t *testing.T) {
	a := FromString("A:HELLO.COM")
	b := FromString("A:HELLO.COM")
	if a.Hash() != b.Hash() {
		t.Fatalf("hash not stable across re-parses: %d != %d", a.Hash(), b.Hash())
	}

	c := FromString("A:HELLO.TXT")
	if a.Hash() == c.Hash() {
		t.Fatalf("different types hashed identically")
	}

	d := FromString("B:HELLO.COM")
	if a.Hash() == d.Hash() {
		t.Fatalf("different drives hashed identically")
	}
}

// TestAsBytesFromBytesRoundTrip confirms the 36-byte wire encoding
// round-trips.
func TestAsBytesFromBytesRoundTrip(t *testing.T) {
	f := FromString("A:HELLO.COM")
	f.Ex = 3
	f.RC = 12
	f.Al[0] = 0xAA

	b := f.AsBytes()
	if len(b) != SIZE {
		t.Fatalf("AsBytes length = %d, want %d", len(b), SIZE)
	}

	back := FromBytes(b)
	if back.GetName() != f.GetName() || back.GetType() != f.GetType() {
		t.Fatalf("round trip name/type mismatch: %q.%q != %q.%q", back.GetName(), back.GetType(), f.GetName(), f.GetType())
	}
	if back.Ex != 3 || back.RC != 12 || back.Al[0] != 0xAA {
		t.Fatalf("round trip field mismatch: %+v", back)
	}
}

// TestParseFilenamePassword exercises the ";password" extraction grammar.
func TestParseFilenamePassword(t *testing.T) {
	var dst FCB
	rest, pass := ParseFilename("SECRET.DAT;HUNTER2", &dst)
	if pass != "HUNTER2" {
		t.Fatalf("password = %q, want HUNTER2", pass)
	}
	if dst.GetName() != "SECRET" || dst.GetType() != "DAT" {
		t.Fatalf("name/type = %q.%q", dst.GetName(), dst.GetType())
	}
	if rest != "" {
		t.Fatalf("rest = %q, want empty", rest)
	}
}

// TestParseFilenameNoPassword confirms a bare ';' with no following
// alnum is not mistaken for a password separator.
func TestParseFilenameNoPassword(t *testing.T) {
	var dst FCB
	_, pass := ParseFilename("FOO.BAR", &dst)
	if pass != "" {
		t.Fatalf("password = %q, want empty", pass)
	}
}

// TestRandomRecordRoundTrip exercises the 24-bit R0/R1/R2 packing used
// by the random-record BDOS calls.
func TestRandomRecordRoundTrip(t *testing.T) {
	var f FCB
	f.SetRandomRecord(0x123456)
	if got := f.GetRandomRecord(); got != 0x123456 {
		t.Fatalf("GetRandomRecord() = %#x, want 0x123456", got)
	}
}

// TestIsDirectory confirms the "[D]" extension convention is recognised.
func TestIsDirectory(t *testing.T) {
	f := FromString("SUBDIR")
	copy(f.Type[:], DirectoryExt)
	if !f.IsDirectory() {
		t.Fatalf("expected IsDirectory() true")
	}

	f2 := FromString("HELLO.COM")
	if f2.IsDirectory() {
		t.Fatalf("expected IsDirectory() false")
	}
}
