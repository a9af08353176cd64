package codegen

import "github.com/xplshn/gmini/pkg/ast"

// compileStmt emits s. loop is the innermost enclosing loop, nil outside
// of any.
func (c *Context) compileStmt(s ast.Stmt, pushed int, loop *loopTargets) {
	a := c.a
	switch s := s.(type) {
	case *ast.Block:
		for _, st := range s.Stmts {
			c.compileStmt(st, pushed, loop)
		}

	case *ast.Empty:

	case *ast.ExprStmt:
		c.compileExpr(s.X, pushed, 0)

	case *ast.Locals:
		for _, v := range s.Vars {
			if v.Init == nil {
				a.EmitW("mov", a.Immed(0), a.VarRef(v.Binding))
				continue
			}
			c.compileExpr(v.Init, pushed, 0)
			a.EmitW("mov", a.Reg(0), a.VarRef(v.Binding))
		}

	case *ast.If:
		endL := a.NewLabel()
		if s.Else == nil {
			c.branchFalse(s.Test, endL, pushed, 0)
			c.compileStmt(s.Then, pushed, loop)
		} else {
			elseL := a.NewLabel()
			c.branchFalse(s.Test, elseL, pushed, 0)
			c.compileStmt(s.Then, pushed, loop)
			a.Emit("jmp", endL)
			a.EmitLabel(elseL)
			c.compileStmt(s.Else, pushed, loop)
		}
		a.EmitLabel(endL)

	case *ast.While:
		c.compileLoop(s.Test, nil, s.Body, pushed)

	case *ast.For:
		if s.Init != nil {
			c.compileStmt(s.Init, pushed, loop)
		}
		c.compileLoop(s.Test, s.Step, s.Body, pushed)

	case *ast.Continue:
		a.Emit("jmp", loop.continueTarget(a))

	case *ast.Break:
		a.Emit("jmp", loop.breakTarget(a))

	case *ast.Return:
		if s.Value != nil {
			c.compileExpr(s.Value, pushed, 0)
		}
		a.Emit("jmp", c.epilogue)

	default:
		panic("internal: unhandled statement in code generator")
	}
}

// compileLoop lays a loop out with its test at the bottom:
//
//	jmp test
//	loop: body
//	continue: step
//	test: if test goto loop
//	break:
func (c *Context) compileLoop(test, step ast.Expr, body ast.Stmt, pushed int) {
	a := c.a
	targets := &loopTargets{}
	loopL, testL := a.NewLabel(), a.NewLabel()

	a.Emit("jmp", testL)
	a.EmitLabel(loopL)
	c.compileStmt(body, pushed, targets)
	if targets.continueLabel != "" {
		a.EmitLabel(targets.continueLabel)
	}
	if step != nil {
		c.compileExpr(step, pushed, 0)
	}
	a.EmitLabel(testL)
	if test != nil {
		c.branchTrue(test, loopL, pushed, 0)
	} else {
		a.Emit("jmp", loopL)
	}
	if targets.breakLabel != "" {
		a.EmitLabel(targets.breakLabel)
	}
}
