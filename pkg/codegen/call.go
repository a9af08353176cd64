package codegen

import (
	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/util"
)

// ArgBytes is the size of the argument area for args: one word each,
// whether passed by value or by reference.
func ArgBytes(args *ast.Args, wordSize int) int { return args.Len() * wordSize }

// refTemps counts the by-reference arguments that need a temporary slot to
// hold their value.
func refTemps(args *ast.Args) int {
	n := 0
	for ; args != nil; args = args.Rest {
		if _, isVar := args.Arg.(*ast.Id); args.ByRef && !isVar {
			n++
		}
	}
	return n
}

// compileCall emits a call with its result in register free. Live
// registers below free are saved around it. Without arguments only the
// caller-saved ones are at risk; marshalling arguments may clobber any.
func (c *Context) compileCall(call *ast.Call, pushed, free int) {
	a := c.a
	w := a.WordSize()

	var saved []string
	for r := max(0, free-a.NumRegs()+1); r < free; r++ {
		reg := a.Reg(r)
		if call.Args == nil && !a.IsCallerSaved(reg) {
			continue
		}
		a.EmitW("push", reg)
		saved = append(saved, reg)
		pushed += w
	}

	argBytes := ArgBytes(call.Args, w)
	space := argBytes + refTemps(call.Args)*w
	total := util.AlignUp(pushed+space, c.cfg.Target.StackAlignment) - pushed
	if total > 0 {
		a.EmitW("sub", a.Immed(int64(total)), a.SP())
	}
	c.compileArgs(call.Args, pushed+total)
	a.Emit("call", a.Name(call.Name))
	if total > 0 {
		a.EmitW("add", a.Immed(int64(total)), a.SP())
	}

	if dst := a.Reg(free); dst != a.Reg(0) {
		a.EmitW("mov", a.Reg(0), dst)
	}
	for i := len(saved) - 1; i >= 0; i-- {
		a.EmitW("pop", saved[i])
	}
}

// compileArgs stores each argument in its word of the outgoing area. The
// k-th by-reference argument that is not a variable is evaluated into the
// k-th temporary slot past the argument words.
func (c *Context) compileArgs(args *ast.Args, pushed int) {
	w := c.a.WordSize()
	argBytes := ArgBytes(args, w)
	k := 0
	for i := 0; args != nil; i, args = i+1, args.Rest {
		offset := i * w
		_, isVar := args.Arg.(*ast.Id)
		switch {
		case !args.ByRef:
			c.compileToStack(args.Arg, pushed, 0, offset)
		case isVar:
			c.compileRefToStack(args.Arg, pushed, 0, offset, 0)
		default:
			c.compileRefToStack(args.Arg, pushed, 0, offset, argBytes+k*w)
			k++
		}
	}
}

func (c *Context) compileToStack(e ast.Expr, pushed, free, offset int) {
	c.compileExpr(e, pushed, free)
	c.a.EmitW("mov", c.a.Reg(free), c.a.Indirect(offset, c.a.SP()))
}

// compileRefToStack stores the address of e at offset(SP). A variable
// passes its own slot, or the address its by-reference slot already
// holds. Anything else is evaluated into temp(SP) and that slot is passed.
func (c *Context) compileRefToStack(e ast.Expr, pushed, free, offset, temp int) {
	a := c.a
	reg := a.Reg(free)
	if id, ok := e.(*ast.Id); ok {
		if v := id.Ve(); v.ByRef {
			a.EmitW("mov", a.VarRef(v), reg)
		} else {
			a.EmitW("lea", a.VarRef(v), reg)
		}
		a.EmitW("mov", reg, a.Indirect(offset, a.SP()))
		return
	}
	c.compileExpr(e, pushed, free)
	a.EmitW("mov", reg, a.Indirect(temp, a.SP()))
	a.EmitW("lea", a.Indirect(temp, a.SP()), reg)
	a.EmitW("mov", reg, a.Indirect(offset, a.SP()))
}
