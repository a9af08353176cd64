package codegen

import (
	"math"

	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/token"
)

type jumpPair struct{ onTrue, onFalse string }

var condJumps = map[token.Type]jumpPair{
	token.Lt:   {"jl", "jnl"},
	token.Lte:  {"jle", "jnle"},
	token.Gt:   {"jg", "jng"},
	token.Gte:  {"jge", "jnge"},
	token.EqEq: {"je", "jne"},
	token.Neq:  {"jne", "je"},
}

var arithOps = map[token.Type]string{
	token.Plus:  "add",
	token.Minus: "sub",
	token.Star:  "imul",
}

// compileExpr leaves the value of e in register free. Registers below free
// are preserved. pushed is the number of bytes on the stack above the
// caller's aligned stack pointer.
func (c *Context) compileExpr(e ast.Expr, pushed, free int) {
	a := c.a
	dst := a.Reg(free)
	switch e := e.(type) {
	case *ast.IntLit:
		c.loadImmediate(e.Value, dst)

	case *ast.BoolLit:
		if e.Value {
			a.EmitW("mov", a.Immed(1), dst)
		} else {
			a.EmitW("mov", a.Immed(0), dst)
		}

	case *ast.Id:
		v := e.Ve()
		if !v.ByRef {
			a.EmitW("mov", a.VarRef(v), dst)
			return
		}
		a.WithSpill(free+1, pushed, func(int) {
			addr := a.Reg(free + 1)
			a.EmitW("mov", a.VarRef(v), addr)
			a.EmitW("mov", a.Indirect(0, addr), dst)
		})

	case *ast.Assign:
		c.compileExpr(e.Rhs, pushed, free)
		v := e.Lhs.Ve()
		if !v.ByRef {
			a.EmitW("mov", dst, a.VarRef(v))
			return
		}
		a.WithSpill(free+1, pushed, func(int) {
			addr := a.Reg(free + 1)
			a.EmitW("mov", a.VarRef(v), addr)
			a.EmitW("mov", dst, a.Indirect(0, addr))
		})

	case *ast.Call:
		c.compileCall(e, pushed, free)

	case *ast.Unary:
		c.compileExpr(e.X, pushed, free)
		switch e.Op {
		case token.Minus:
			a.EmitW("neg", dst)
		case token.Not:
			a.EmitW("xor", a.Immed(1), dst)
		default:
			panic("internal: unknown unary operator " + e.Op.String())
		}

	case *ast.BinArith:
		switch e.Op {
		case token.Slash, token.Rem:
			c.operands(e.Left, e.Right, pushed, free, func(l, r string) {
				c.divide(l, r, dst, e.Op == token.Rem)
			})
		default:
			op, ok := arithOps[e.Op]
			if !ok {
				panic("internal: unknown arithmetic operator " + e.Op.String())
			}
			c.operands(e.Left, e.Right, pushed, free, func(l, r string) {
				a.EmitW(op, r, l)
				if l != dst {
					a.EmitW("mov", l, dst)
				}
			})
		}

	case *ast.BinComp:
		trueL := a.NewLabel()
		c.operands(e.Left, e.Right, pushed, free, func(l, r string) {
			a.EmitW("cmp", r, l)
		})
		a.EmitW("mov", a.Immed(1), dst)
		a.Emit(condJumps[e.Op].onTrue, trueL)
		a.EmitW("mov", a.Immed(0), dst)
		a.EmitLabel(trueL)

	case *ast.Logical:
		falseL, endL := a.NewLabel(), a.NewLabel()
		c.branchFalse(e, falseL, pushed, free)
		a.EmitW("mov", a.Immed(1), dst)
		a.Emit("jmp", endL)
		a.EmitLabel(falseL)
		a.EmitW("mov", a.Immed(0), dst)
		a.EmitLabel(endL)

	default:
		panic("internal: unhandled expression in code generator")
	}
}

func (c *Context) loadImmediate(v int64, dst string) {
	if c.a.WordSize() == 8 && (v > math.MaxInt32 || v < math.MinInt32) {
		c.a.Emit("movabsq", c.a.Immed(v), dst)
		return
	}
	c.a.EmitW("mov", c.a.Immed(v), dst)
}

// operands evaluates both sides of a binary expression and hands their
// registers to emit. The deeper side goes first into free; side effects
// or equal depths force left to right order. emit must leave any result
// in register free.
func (c *Context) operands(left, right ast.Expr, pushed, free int, emit func(l, r string)) {
	a := c.a
	ld, rd := ast.Depth(left), ast.Depth(right)
	a.WithSpill(free+1, pushed, func(pushed int) {
		if ld >= ast.DEEP || rd >= ast.DEEP || ld >= rd {
			c.compileExpr(left, pushed, free)
			c.compileExpr(right, pushed, free+1)
			emit(a.Reg(free), a.Reg(free+1))
			return
		}
		c.compileExpr(right, pushed, free)
		c.compileExpr(left, pushed, free+1)
		emit(a.Reg(free+1), a.Reg(free))
	})
}

// divide computes l / r, or l % r when rem is set, into dst. idiv needs
// the accumulator and its extension register, which are saved unless one
// of them is the destination.
func (c *Context) divide(l, r, dst string, rem bool) {
	a := c.a
	w := a.WordSize()
	acc, ext := a.Reg(0), a.Reg(3)

	var saved []string
	for _, reg := range []string{acc, ext} {
		if reg != dst {
			a.EmitW("push", reg)
			saved = append(saved, reg)
		}
	}
	a.EmitW("push", r)
	if l != acc {
		a.EmitW("mov", l, acc)
	}
	a.Emit(c.cfg.Target.SignExtend)
	a.EmitW("idiv", a.Indirect(0, a.SP()))
	a.EmitW("add", a.Immed(int64(w)), a.SP())

	result := acc
	if rem {
		result = ext
	}
	if result != dst {
		a.EmitW("mov", result, dst)
	}
	for i := len(saved) - 1; i >= 0; i-- {
		a.EmitW("pop", saved[i])
	}
}

// branchTrue jumps to label when e, a boolean, is true.
func (c *Context) branchTrue(e ast.Expr, label string, pushed, free int) {
	c.branch(e, label, true, pushed, free)
}

// branchFalse jumps to label when e, a boolean, is false.
func (c *Context) branchFalse(e ast.Expr, label string, pushed, free int) {
	c.branch(e, label, false, pushed, free)
}

func (c *Context) branch(e ast.Expr, label string, sense bool, pushed, free int) {
	a := c.a
	switch e := e.(type) {
	case *ast.BoolLit:
		if e.Value == sense {
			a.Emit("jmp", label)
		}

	case *ast.Unary:
		if e.Op == token.Not {
			c.branch(e.X, label, !sense, pushed, free)
			return
		}
		c.branchOnValue(e, label, sense, pushed, free)

	case *ast.BinComp:
		c.operands(e.Left, e.Right, pushed, free, func(l, r string) {
			a.EmitW("cmp", r, l)
		})
		jumps := condJumps[e.Op]
		if sense {
			a.Emit(jumps.onTrue, label)
		} else {
			a.Emit(jumps.onFalse, label)
		}

	case *ast.Logical:
		// a && b is true only if both are; a || b is false only if both are.
		decisive := e.Op == token.OrOr
		if sense == decisive {
			c.branch(e.Left, label, sense, pushed, free)
			c.branch(e.Right, label, sense, pushed, free)
			return
		}
		skip := a.NewLabel()
		c.branch(e.Left, skip, !sense, pushed, free)
		c.branch(e.Right, label, sense, pushed, free)
		a.EmitLabel(skip)

	default:
		c.branchOnValue(e, label, sense, pushed, free)
	}
}

func (c *Context) branchOnValue(e ast.Expr, label string, sense bool, pushed, free int) {
	a := c.a
	c.compileExpr(e, pushed, free)
	a.EmitW("or", a.Reg(free), a.Reg(free))
	if sense {
		a.Emit("jnz", label)
	} else {
		a.Emit("jz", label)
	}
}
