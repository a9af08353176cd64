package typeChecker

import (
	"errors"

	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/env"
	"github.com/xplshn/gmini/pkg/token"
	"github.com/xplshn/gmini/pkg/types"
	"github.com/xplshn/gmini/pkg/util"
)

// Context collects diagnostics for one program. Expression typing returns
// a *util.Failure as its error; statement checks catch those and Report
// them so analysis can continue.
type Context struct {
	cfg      *config.Config
	funcs    map[string]*ast.Function
	failures []*util.Failure
	errors   int
}

// funcState is the per-function part of the analysis.
type funcState struct {
	fn      *ast.Function
	frame   *env.Frame
	scope   *env.VarEnv // environment at entry to the innermost block
	returns bool
}

func NewContext(cfg *config.Config) *Context {
	return &Context{cfg: cfg, funcs: make(map[string]*ast.Function)}
}

// Report records a diagnostic.
func (c *Context) Report(f *util.Failure) {
	c.failures = append(c.failures, f)
	if f.Severity == util.SevError {
		c.errors++
	}
}

func (c *Context) reportErr(err error) {
	var f *util.Failure
	if errors.As(err, &f) {
		c.Report(f)
		return
	}
	c.Report(util.NewFailure(token.Token{FileIndex: -1}, "%v", err))
}

func (c *Context) warn(w config.Warning, tok token.Token, format string, args ...interface{}) {
	if c.cfg.IsWarningEnabled(w) {
		c.Report(util.NewWarning(c.cfg.Warnings[w].Name, tok, format, args...))
	}
}

func (c *Context) Failures() []*util.Failure { return c.failures }
func (c *Context) HasErrors() bool           { return c.errors > 0 }
func (c *Context) ErrorCount() int           { return c.errors }

// Check analyses prog, resolving every identifier and filling in frame
// layouts. It reports whether the program is free of errors.
func (c *Context) Check(prog *ast.Program) bool {
	for _, fn := range prog.Functions {
		c.declare(fn)
	}
	for _, fn := range prog.Functions {
		if !fn.IsPrototype {
			c.checkFunction(fn)
		}
	}
	return !c.HasErrors()
}

func (c *Context) declare(fn *ast.Function) {
	prev, ok := c.funcs[fn.Name]
	if !ok {
		c.funcs[fn.Name] = fn
		return
	}
	if !prev.IsPrototype && !fn.IsPrototype {
		c.Report(util.NewFailure(fn.Tok, "Redefinition of function '%s'", fn.Name))
		return
	}
	if !sameSignature(prev, fn) {
		c.Report(util.NewFailure(fn.Tok, "Conflicting declaration of '%s'", fn.Name))
		return
	}
	if !fn.IsPrototype {
		c.funcs[fn.Name] = fn
	}
}

func sameSignature(a, b *ast.Function) bool {
	if !a.RetType.Equal(b.RetType) || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !a.Params[i].Type.Equal(b.Params[i].Type) || a.Params[i].ByRef != b.Params[i].ByRef {
			return false
		}
	}
	return true
}

func (c *Context) checkFunction(fn *ast.Function) {
	fs := &funcState{fn: fn, frame: env.NewFrame(c.cfg.WordSize)}
	var e *env.VarEnv
	for i, p := range fn.Params {
		if !p.Type.IsValue() {
			c.Report(util.NewFailure(p.Tok, "Parameter '%s' cannot have type void", p.Name))
		}
		for _, q := range fn.Params[:i] {
			if q.Name == p.Name {
				c.Report(util.NewFailure(p.Tok, "Duplicate parameter name '%s'", p.Name))
				break
			}
		}
		e = env.Extend(p.Name, p.Type, fs.frame.Param(i), p.ByRef, e)
		p.Binding = e
	}

	c.checkStmt(fs, fn.Body, false, e)

	fn.FrameBytes = fs.frame.Bytes()
	fn.Returns = fs.returns
	if !fs.returns && !fn.RetType.Equal(types.Void) {
		c.Report(util.NewFailure(fn.Tok, "Function '%s' may reach the end without returning a value", fn.Name))
	}
}
