// Package asm accumulates AT&T syntax x86 assembly text.
package asm

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/env"
)

type Assembly struct {
	target     config.Target
	prefix     string
	labelCount int
	buf        strings.Builder
}

func New(cfg *config.Config) *Assembly {
	return &Assembly{target: cfg.Target, prefix: cfg.SymbolPrefix}
}

func (a *Assembly) WordSize() int { return a.target.WordSize }
func (a *Assembly) NumRegs() int  { return len(a.target.Regs) }

// Reg maps a logical register number onto the register file. Numbers past
// the end wrap around and must be spilled before use.
func (a *Assembly) Reg(n int) string { return a.target.Regs[n%len(a.target.Regs)] }

func (a *Assembly) SP() string { return a.target.SP }
func (a *Assembly) BP() string { return a.target.BP }

func (a *Assembly) Immed(v int64) string { return fmt.Sprintf("$%d", v) }

func (a *Assembly) Indirect(offset int, base string) string {
	return fmt.Sprintf("%d(%s)", offset, base)
}

// VarRef is the frame slot of a binding.
func (a *Assembly) VarRef(v *env.VarEnv) string { return a.Indirect(v.Offset, a.target.BP) }

// Name decorates a source level function name for the target's linker.
func (a *Assembly) Name(sym string) string { return a.prefix + sym }

func (a *Assembly) NewLabel() string {
	a.labelCount++
	return fmt.Sprintf(".L%d", a.labelCount)
}

func (a *Assembly) IsCallerSaved(reg string) bool { return slices.Contains(a.target.CallerSaved, reg) }

func (a *Assembly) Emit(op string, operands ...string) {
	a.buf.WriteString("\t")
	a.buf.WriteString(op)
	if len(operands) > 0 {
		a.buf.WriteString("\t")
		a.buf.WriteString(strings.Join(operands, ", "))
	}
	a.buf.WriteString("\n")
}

// EmitW emits op with the target's word size suffix.
func (a *Assembly) EmitW(op string, operands ...string) {
	a.Emit(op+a.target.Suffix, operands...)
}

func (a *Assembly) EmitLabel(label string) { fmt.Fprintf(&a.buf, "%s:\n", label) }

func (a *Assembly) Comment(format string, args ...interface{}) {
	fmt.Fprintf(&a.buf, "\t# %s\n", fmt.Sprintf(format, args...))
}

func (a *Assembly) Directive(name string, args ...string) {
	a.buf.WriteString("\t" + name)
	if len(args) > 0 {
		a.buf.WriteString("\t" + strings.Join(args, ","))
	}
	a.buf.WriteString("\n")
}

// Spill saves register r when it aliases a live lower register, returning
// the updated count of pushed bytes.
func (a *Assembly) Spill(r, pushed int) int {
	if r >= a.NumRegs() {
		a.EmitW("push", a.Reg(r))
		return pushed + a.target.WordSize
	}
	return pushed
}

// Unspill undoes a matching Spill.
func (a *Assembly) Unspill(r int) {
	if r >= a.NumRegs() {
		a.EmitW("pop", a.Reg(r))
	}
}

// WithSpill runs fn with register r free for scratch use.
func (a *Assembly) WithSpill(r, pushed int, fn func(pushed int)) {
	inner := a.Spill(r, pushed)
	defer a.Unspill(r)
	fn(inner)
}

// Prologue opens a frame with frameBytes of locals and saves the
// callee-saved registers. It returns the bytes pushed since the caller's
// aligned stack pointer.
func (a *Assembly) Prologue(name string, frameBytes int) int {
	w := a.target.WordSize
	a.Directive(".globl", a.Name(name))
	a.EmitLabel(a.Name(name))
	a.EmitW("push", a.target.BP)
	a.EmitW("mov", a.target.SP, a.target.BP)
	if frameBytes > 0 {
		a.EmitW("sub", a.Immed(int64(frameBytes)), a.target.SP)
	}
	for _, reg := range a.target.CalleeSaved {
		a.EmitW("push", reg)
	}
	return 2*w + frameBytes + len(a.target.CalleeSaved)*w
}

// Epilogue restores the callee-saved registers and returns.
func (a *Assembly) Epilogue() {
	for i := len(a.target.CalleeSaved) - 1; i >= 0; i-- {
		a.EmitW("pop", a.target.CalleeSaved[i])
	}
	a.EmitW("mov", a.target.BP, a.target.SP)
	a.EmitW("pop", a.target.BP)
	a.Emit("ret")
}

func (a *Assembly) String() string { return a.buf.String() }

func (a *Assembly) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, a.buf.String())
	return int64(n), err
}
