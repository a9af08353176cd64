package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gmini/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.WordSize != 4 || cfg.Target.Name != "i386" {
		t.Errorf("default target = %s/%d, want i386/4", cfg.Target.Name, cfg.WordSize)
	}
	for ft := Feature(0); ft < FeatCount; ft++ {
		if !cfg.IsFeatureEnabled(ft) {
			t.Errorf("feature %s should be on by default", cfg.Features[ft].Name)
		}
	}
	if cfg.IsWarningEnabled(WarnShadow) {
		t.Errorf("shadow should be off by default")
	}
}

func TestSetTarget(t *testing.T) {
	tests := []struct {
		goos, target string
		wantWord     int
		wantPrefix   string
		wantErr      bool
	}{
		{"linux", "", 4, "", false},
		{"linux", "amd64", 8, "", false},
		{"darwin", "i386", 4, "_", false},
		{"linux", "sparc", 0, "", true},
	}
	for _, tt := range tests {
		cfg := NewConfig()
		err := cfg.SetTarget(tt.goos, "amd64", tt.target)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SetTarget(%q) should fail", tt.target)
			}
			continue
		}
		if err != nil {
			t.Errorf("SetTarget(%q): %v", tt.target, err)
			continue
		}
		if cfg.WordSize != tt.wantWord || cfg.SymbolPrefix != tt.wantPrefix {
			t.Errorf("SetTarget(%s, %q) = word %d prefix %q", tt.goos, tt.target, cfg.WordSize, cfg.SymbolPrefix)
		}
		if len(cfg.Target.Regs) != 6 {
			t.Errorf("target %s has %d registers", cfg.Target.Name, len(cfg.Target.Regs))
		}
	}
}

func TestDirectiveFlags(t *testing.T) {
	cfg := NewConfig()
	cfg.ProcessDirectiveFlags("-Wno-empty-body -Wall -Fno-continue -Wbogus")
	if !cfg.IsWarningEnabled(WarnShadow) {
		t.Errorf("-Wall should enable shadow")
	}
	if cfg.IsWarningEnabled(WarnEmptyBody) {
		t.Errorf("-Wno-empty-body must win over -Wall regardless of order")
	}
	if cfg.Warnings[WarnPedantic].Enabled {
		t.Errorf("-Wall must not enable pedantic")
	}
	if cfg.IsFeatureEnabled(FeatContinue) {
		t.Errorf("-Fno-continue was ignored")
	}

	cfg = NewConfig()
	cfg.SetWarning(WarnPedantic, true)
	if !cfg.IsWarningEnabled(WarnShadow) {
		t.Errorf("pedantic should imply every warning")
	}
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	cfg.SetWarning(WarnShadow, true) // as if -Wall ran first

	fs := cli.NewFlagSet("test")
	warnings, features := cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Wno-extra", "-Fno-by-ref", "-Wempty-body", "prog.mini"}); err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlagGroups(warnings, features)

	got := map[string]bool{
		"shadow":     cfg.IsWarningEnabled(WarnShadow),
		"extra":      cfg.IsWarningEnabled(WarnExtra),
		"empty-body": cfg.IsWarningEnabled(WarnEmptyBody),
		"by-ref":     cfg.IsFeatureEnabled(FeatByRef),
		"for-loops":  cfg.IsFeatureEnabled(FeatForLoops),
	}
	want := map[string]bool{
		"shadow":     true,
		"extra":      false,
		"empty-body": true,
		"by-ref":     false,
		"for-loops":  true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flag state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"prog.mini"}, fs.Args()); diff != "" {
		t.Errorf("positional args mismatch (-want +got):\n%s", diff)
	}
}
