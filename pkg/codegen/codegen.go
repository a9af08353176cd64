// Package codegen translates a checked program into x86 assembly. Values
// are computed in a small register file addressed by logical register
// numbers; numbers past the end of the file wrap around and are spilled
// to the stack around their use.
package codegen

import (
	"io"

	"github.com/xplshn/gmini/pkg/asm"
	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/config"
)

type Context struct {
	a        *asm.Assembly
	cfg      *config.Config
	epilogue string // label of the current function's epilogue
}

func NewContext(cfg *config.Config) *Context {
	return &Context{a: asm.New(cfg), cfg: cfg}
}

// Generate emits the whole program. prog must have passed type checking.
func (c *Context) Generate(prog *ast.Program) string {
	c.a.Comment("generated by gmini for %s", c.cfg.Target.Name)
	c.a.Directive(".text")
	for _, fn := range prog.Functions {
		if !fn.IsPrototype {
			c.compileFunction(fn)
		}
	}
	if c.cfg.GOOS != "darwin" {
		c.a.Directive(".section", ".note.GNU-stack", `""`, "@progbits")
	}
	return c.a.String()
}

// WriteTo copies the generated assembly to w.
func (c *Context) WriteTo(w io.Writer) (int64, error) { return c.a.WriteTo(w) }

func (c *Context) compileFunction(fn *ast.Function) {
	c.epilogue = c.a.NewLabel()
	pushed := c.a.Prologue(fn.Name, fn.FrameBytes)
	c.compileStmt(fn.Body, pushed, nil)
	c.a.EmitLabel(c.epilogue)
	c.a.Epilogue()
}

// loopTargets belongs to one loop. Its labels are allocated on the first
// continue or break that needs them and emitted by that loop only.
type loopTargets struct {
	continueLabel string
	breakLabel    string
}

func (l *loopTargets) continueTarget(a *asm.Assembly) string {
	if l == nil {
		panic("internal: continue outside of a loop reached code generation")
	}
	if l.continueLabel == "" {
		l.continueLabel = a.NewLabel()
	}
	return l.continueLabel
}

func (l *loopTargets) breakTarget(a *asm.Assembly) string {
	if l == nil {
		panic("internal: break outside of a loop reached code generation")
	}
	if l.breakLabel == "" {
		l.breakLabel = a.NewLabel()
	}
	return l.breakLabel
}
