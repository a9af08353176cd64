package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	var (
		out, target string
		asm, wall   bool
		linker      []string
	)
	fs := NewFlagSet("gmini")
	fs.String(&out, "output", "o", "", "", "file")
	fs.String(&target, "target", "t", "i386", "", "target")
	fs.Bool(&asm, "asm", "S", false, "")
	fs.Bool(&wall, "Wall", "", false, "")
	fs.List(&linker, "linker-arg", "L", []string{}, "", "arg")

	args := []string{"-S", "-o", "-", "--target=amd64", "-Wall", "-L-lc", "-L", "-static", "a.mini", "--", "-b.mini"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	if !asm || !wall || out != "-" || target != "amd64" {
		t.Errorf("got asm=%v wall=%v out=%q target=%q", asm, wall, out, target)
	}
	if diff := cmp.Diff([]string{"-lc", "-static"}, linker); diff != "" {
		t.Errorf("linker args mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.mini", "-b.mini"}, fs.Args()); diff != "" {
		t.Errorf("positional args mismatch (-want +got):\n%s", diff)
	}

	if err := fs.Parse([]string{"--bogus"}); err == nil {
		t.Errorf("unknown flag accepted")
	}
	if err := fs.Parse([]string{"-o"}); err == nil {
		t.Errorf("missing value accepted")
	}
}

func TestHelpListsGroups(t *testing.T) {
	app := NewApp("gmini")
	app.Synopsis = "[options] <input.mini> ..."
	var on, off bool
	app.FlagSet.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warning Flags:",
		[]FlagGroupEntry{{Name: "shadow", Prefix: "W", Usage: "Warn on shadowing.", Enabled: &on, Disabled: &off}})

	var buf bytes.Buffer
	app.WriteHelp(&buf, 80)
	for _, want := range []string{"gmini", "Warning Flags", "shadow"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help is missing %q:\n%s", want, buf.String())
		}
	}
}
