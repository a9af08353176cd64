package asm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/env"
	"github.com/xplshn/gmini/pkg/types"
)

func newAssembly(t *testing.T, target, goos string) *Assembly {
	t.Helper()
	cfg := config.NewConfig()
	if err := cfg.SetTarget(goos, "amd64", target); err != nil {
		t.Fatal(err)
	}
	return New(cfg)
}

func lines(a *Assembly) []string {
	return strings.Split(strings.TrimSuffix(a.String(), "\n"), "\n")
}

func TestOperands(t *testing.T) {
	a := newAssembly(t, "i386", "linux")
	if got := a.Reg(0); got != "%eax" {
		t.Errorf("Reg(0) = %s", got)
	}
	if a.Reg(7) != a.Reg(1) {
		t.Errorf("Reg(7) = %s, want wrap to %s", a.Reg(7), a.Reg(1))
	}
	if got := a.Indirect(-8, a.BP()); got != "-8(%ebp)" {
		t.Errorf("Indirect = %s", got)
	}
	v := env.Extend("x", types.Int, 12, false, nil)
	if got := a.VarRef(v); got != "12(%ebp)" {
		t.Errorf("VarRef = %s", got)
	}
	if got := a.Immed(-3); got != "$-3" {
		t.Errorf("Immed = %s", got)
	}
	if l1, l2 := a.NewLabel(), a.NewLabel(); l1 == l2 {
		t.Errorf("labels must be fresh, got %s twice", l1)
	}
}

func TestSpillOnlyWhenAliased(t *testing.T) {
	a := newAssembly(t, "i386", "linux")
	if got := a.Spill(2, 20); got != 20 {
		t.Errorf("Spill of an unaliased register changed pushed to %d", got)
	}
	a.Unspill(2)
	if a.String() != "" {
		t.Errorf("no code expected, got %q", a.String())
	}

	var inner int
	a.WithSpill(6, 20, func(pushed int) {
		inner = pushed
		a.EmitW("mov", a.Immed(1), a.Reg(6))
	})
	if inner != 24 {
		t.Errorf("pushed inside WithSpill = %d, want 24", inner)
	}
	want := []string{"\tpushl\t%eax", "\tmovl\t$1, %eax", "\tpopl\t%eax"}
	if diff := cmp.Diff(want, lines(a)); diff != "" {
		t.Errorf("spill code mismatch (-want +got):\n%s", diff)
	}
}

func TestPrologueEpilogue(t *testing.T) {
	a := newAssembly(t, "amd64", "darwin")
	pushed := a.Prologue("main", 16)
	a.Epilogue()
	if pushed != 2*8+16+3*8 {
		t.Errorf("pushed = %d", pushed)
	}
	want := []string{
		"\t.globl\t_main",
		"_main:",
		"\tpushq\t%rbp",
		"\tmovq\t%rsp, %rbp",
		"\tsubq\t$16, %rsp",
		"\tpushq\t%rbx",
		"\tpushq\t%rsi",
		"\tpushq\t%rdi",
		"\tpopq\t%rdi",
		"\tpopq\t%rsi",
		"\tpopq\t%rbx",
		"\tmovq\t%rbp, %rsp",
		"\tpopq\t%rbp",
		"\tret",
	}
	if diff := cmp.Diff(want, lines(a)); diff != "" {
		t.Errorf("frame code mismatch (-want +got):\n%s", diff)
	}
}
