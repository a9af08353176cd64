package typeChecker

import (
	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/env"
	"github.com/xplshn/gmini/pkg/types"
	"github.com/xplshn/gmini/pkg/util"
)

// checkStmt checks s in environment e and returns the environment in
// force after it. Only Locals extends it.
func (c *Context) checkStmt(fs *funcState, s ast.Stmt, inLoop bool, e *env.VarEnv) *env.VarEnv {
	switch s := s.(type) {
	case *ast.Block:
		outer, mark := fs.scope, fs.frame.Mark()
		fs.scope = e
		inner, terminated, warned := e, false, false
		for _, st := range s.Stmts {
			if terminated && !warned {
				c.warn(config.WarnUnreachableCode, st.Pos(), "Unreachable code")
				warned = true
			}
			inner = c.checkStmt(fs, st, inLoop, inner)
			switch st.(type) {
			case *ast.Return, *ast.Break, *ast.Continue:
				terminated = true
			}
		}
		fs.scope = outer
		fs.frame.Release(mark)
		return e

	case *ast.Empty:
		return e

	case *ast.ExprStmt:
		c.checkExprStmt(s, e)
		return e

	case *ast.Locals:
		return c.checkLocals(fs, s, e)

	case *ast.If:
		c.checkTest(s.Test, e, "Boolean test expected in if statement")
		fs.returns = false
		c.checkStmt(fs, s.Then, inLoop, e)
		thenReturns := fs.returns
		fs.returns = false
		if s.Else != nil {
			c.checkStmt(fs, s.Else, inLoop, e)
		}
		fs.returns = thenReturns && fs.returns
		return e

	case *ast.While:
		c.checkTest(s.Test, e, "Boolean test expected in while loop")
		c.checkLoopBody(fs, s.Body, "while", e)
		return e

	case *ast.For:
		mark, outer := fs.frame.Mark(), fs.scope
		fs.scope = e
		inner := e
		if s.Init != nil {
			inner = c.checkStmt(fs, s.Init, inLoop, inner)
		}
		if s.Test != nil {
			c.checkTest(s.Test, inner, "Boolean test expected in for loop")
		}
		if s.Step != nil {
			if _, err := c.TypeOf(s.Step, inner); err != nil {
				c.reportErr(err)
			}
		}
		c.checkLoopBody(fs, s.Body, "for", inner)
		fs.scope = outer
		fs.frame.Release(mark)
		return e

	case *ast.Break:
		if !inLoop {
			c.Report(util.NewFailure(s.Tok, "break can only be used in a loop"))
		}
		fs.returns = false
		return e

	case *ast.Continue:
		if !inLoop {
			c.Report(util.NewFailure(s.Tok, "continue can only be used in a loop"))
		}
		fs.returns = false
		return e

	case *ast.Return:
		c.checkReturn(fs, s, e)
		fs.returns = true
		return e
	}
	panic("internal: unhandled statement in type checker")
}

// checkLoopBody checks a loop body with break and continue permitted. The
// body's own declarations do not outlive it.
func (c *Context) checkLoopBody(fs *funcState, body ast.Stmt, kind string, e *env.VarEnv) {
	if _, empty := body.(*ast.Empty); empty {
		c.warn(config.WarnEmptyBody, body.Pos(), "Empty body in %s loop", kind)
	}
	mark := fs.frame.Mark()
	c.checkStmt(fs, body, true, e)
	fs.frame.Release(mark)
	fs.returns = false
}

func (c *Context) checkTest(test ast.Expr, e *env.VarEnv, msg string) {
	t, err := c.TypeOf(test, e)
	if err != nil {
		c.reportErr(err)
		return
	}
	if !t.Equal(types.Boolean) {
		c.Report(util.NewFailure(test.Pos(), "%s", msg))
	}
}

func (c *Context) checkExprStmt(s *ast.ExprStmt, e *env.VarEnv) {
	var err error
	switch x := s.X.(type) {
	case *ast.Call:
		_, err = c.typeOfCall(x, e, true)
	case *ast.Assign:
		_, err = c.TypeOf(x, e)
	default:
		if _, err = c.TypeOf(x, e); err == nil {
			c.warn(config.WarnExtra, s.Tok, "Expression result is unused")
		}
	}
	if err != nil {
		c.reportErr(err)
	}
}

func (c *Context) checkLocals(fs *funcState, s *ast.Locals, e *env.VarEnv) *env.VarEnv {
	if !s.Type.IsValue() {
		c.Report(util.NewFailure(s.Tok, "Variables cannot have type %s", s.Type))
	}
	for _, v := range s.Vars {
		if v.Init != nil {
			if t, err := c.TypeOf(v.Init, e); err != nil {
				c.reportErr(err)
			} else if !t.Equal(s.Type) {
				c.Report(util.NewFailure(v.Init.Pos(), "Types in initialization of '%s' do not match: expected %s, found %s", v.Name, s.Type, t))
			}
		}

		switch prev := env.Find(v.Name, e); {
		case prev == nil:
		case declaredSince(v.Name, e, fs.scope):
			c.Report(util.NewFailure(v.Tok, "Variable '%s' is already declared in this scope", v.Name))
		default:
			c.warn(config.WarnShadow, v.Tok, "Declaration of '%s' shadows an earlier declaration", v.Name)
		}

		e = env.Extend(v.Name, s.Type, fs.frame.Local(), false, e)
		v.Binding = e
	}
	return e
}

// declaredSince reports whether name is bound in e above the scope
// boundary.
func declaredSince(name string, e, boundary *env.VarEnv) bool {
	for ; e != nil && e != boundary; e = e.Next {
		if e.Name == name {
			return true
		}
	}
	return false
}

func (c *Context) checkReturn(fs *funcState, s *ast.Return, e *env.VarEnv) {
	fn := fs.fn
	if s.Value == nil {
		if !fn.RetType.Equal(types.Void) {
			c.Report(util.NewFailure(s.Tok, "Return statement missing a value in function '%s' returning %s", fn.Name, fn.RetType))
		}
		return
	}

	t, err := c.TypeOf(s.Value, e)
	switch {
	case err != nil:
		c.reportErr(err)
	case fn.RetType.Equal(types.Void):
		c.Report(util.NewFailure(s.Tok, "Void function '%s' cannot return a value", fn.Name))
	case !t.Equal(fn.RetType):
		c.Report(util.NewFailure(s.Value.Pos(), "Return type mismatch in '%s': expected %s, found %s", fn.Name, fn.RetType, t))
	}
}
