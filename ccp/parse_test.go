package ccp

import (
	"reflect"
	"testing"
)

func TestSplitCommandsDoubledBang(t *testing.T) {
	got := splitCommands("DIR!!2 !TYPE FOO.TXT")
	want := []string{"DIR!2 ", "TYPE FOO.TXT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCommands: got %q, want %q", got, want)
	}
}

func TestSplitCommandsNoSeparator(t *testing.T) {
	got := splitCommands("DIR A:*.COM")
	want := []string{"DIR A:*.COM"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCommands: got %q, want %q", got, want)
	}
}

func TestParseCommandBasic(t *testing.T) {
	cmd, ok := parseCommand("dir a:*.com")
	if !ok {
		t.Fatalf("expected ok")
	}
	if cmd.Verb != "DIR" || cmd.Args != "a:*.com" || cmd.Conditional {
		t.Fatalf("unexpected parse: %+v", cmd)
	}
}

func TestParseCommandComment(t *testing.T) {
	_, ok := parseCommand("; this is a comment")
	if ok {
		t.Fatalf("comment line should not produce a command")
	}
}

func TestParseCommandBlank(t *testing.T) {
	_, ok := parseCommand("   ")
	if ok {
		t.Fatalf("blank segment should not produce a command")
	}
}

func TestParseCommandConditional(t *testing.T) {
	cmd, ok := parseCommand(":ERA FOO.BAK")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !cmd.Conditional || cmd.Verb != "ERA" || cmd.Args != "FOO.BAK" {
		t.Fatalf("unexpected parse: %+v", cmd)
	}
}

func TestParseCommandConditionalBlank(t *testing.T) {
	_, ok := parseCommand(":   ")
	if ok {
		t.Fatalf("conditional with nothing after it should not produce a command")
	}
}

func TestParseUser(t *testing.T) {
	cases := []struct {
		in    string
		want  int
		valid bool
	}{
		{"0", 0, true},
		{"15", 15, true},
		{"16", 0, false},
		{"-1", 0, false},
		{"x", 0, false},
	}
	for _, c := range cases {
		got, ok := parseUser(c.in)
		if ok != c.valid || (ok && got != c.want) {
			t.Fatalf("parseUser(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.valid)
		}
	}
}
