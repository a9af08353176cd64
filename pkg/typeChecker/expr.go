package typeChecker

import (
	"math"

	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/env"
	"github.com/xplshn/gmini/pkg/token"
	"github.com/xplshn/gmini/pkg/types"
	"github.com/xplshn/gmini/pkg/util"
)

// TypeOf returns the type of e, resolving identifiers against env. It
// fails with a *util.Failure when e cannot be typed.
func (c *Context) TypeOf(e ast.Expr, env *env.VarEnv) (*types.Type, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		c.checkIntRange(e, false)
		return types.Int, nil

	case *ast.BoolLit:
		return types.Boolean, nil

	case *ast.Id:
		return c.typeOfId(e, env)

	case *ast.Assign:
		lt, err := c.typeOfId(e.Lhs, env)
		if err != nil {
			return nil, err
		}
		rt, err := c.TypeOf(e.Rhs, env)
		if err != nil {
			return nil, err
		}
		if !lt.Equal(rt) {
			c.Report(util.NewFailure(e.Tok, "Types in assignment do not match"))
		}
		return rt, nil

	case *ast.Call:
		return c.typeOfCall(e, env, false)

	case *ast.Unary:
		if lit, ok := e.X.(*ast.IntLit); ok && e.Op == token.Minus {
			c.checkIntRange(lit, true)
			return types.Int, nil
		}
		want := types.Int
		if e.Op == token.Not {
			want = types.Boolean
		}
		if err := c.expect(e.X, env, want, e.Tok, "Operand of unary '%s' must be %s, found %s", e.Op); err != nil {
			return nil, err
		}
		return want, nil

	case *ast.BinArith:
		if err := c.operands(e.Left, e.Right, env, types.Int, e.Tok, e.Op); err != nil {
			return nil, err
		}
		return types.Int, nil

	case *ast.BinComp:
		if e.Op == token.EqEq || e.Op == token.Neq {
			lt, err := c.TypeOf(e.Left, env)
			if err != nil {
				return nil, err
			}
			rt, err := c.TypeOf(e.Right, env)
			if err != nil {
				return nil, err
			}
			if !lt.Equal(rt) {
				return nil, util.NewFailure(e.Tok, "Operands of '%s' must have the same type, found %s and %s", e.Op, lt, rt)
			}
			return types.Boolean, nil
		}
		if err := c.operands(e.Left, e.Right, env, types.Int, e.Tok, e.Op); err != nil {
			return nil, err
		}
		return types.Boolean, nil

	case *ast.Logical:
		if err := c.operands(e.Left, e.Right, env, types.Boolean, e.Tok, e.Op); err != nil {
			return nil, err
		}
		return types.Boolean, nil
	}
	panic("internal: unhandled expression in type checker")
}

func (c *Context) typeOfId(id *ast.Id, env_ *env.VarEnv) (*types.Type, error) {
	id.Binding = env.Find(id.Name, env_)
	if id.Binding == nil {
		return nil, util.NewFailure(id.Tok, "The variable %s is not in scope", id.Name)
	}
	return id.Binding.Type, nil
}

func (c *Context) expect(x ast.Expr, env *env.VarEnv, want *types.Type, tok token.Token, format string, op token.Type) error {
	t, err := c.TypeOf(x, env)
	if err != nil {
		return err
	}
	if !t.Equal(want) {
		return util.NewFailure(tok, format, op, want, t)
	}
	return nil
}

func (c *Context) operands(l, r ast.Expr, env *env.VarEnv, want *types.Type, tok token.Token, op token.Type) error {
	if err := c.expect(l, env, want, tok, "Left operand of '%s' must be %s, found %s", op); err != nil {
		return err
	}
	return c.expect(r, env, want, tok, "Right operand of '%s' must be %s, found %s", op)
}

// typeOfCall checks a call against its callee's declaration and records
// which arguments are passed by reference. Void results are only accepted
// when the call is a statement.
func (c *Context) typeOfCall(call *ast.Call, env *env.VarEnv, allowVoid bool) (*types.Type, error) {
	fn, ok := c.funcs[call.Name]
	if !ok {
		return nil, util.NewFailure(call.Tok, "Call to undefined function '%s'", call.Name)
	}
	call.Callee = fn

	if n := call.Args.Len(); n != len(fn.Params) {
		return nil, util.NewFailure(call.Tok, "Function '%s' expects %d argument(s), got %d", fn.Name, len(fn.Params), n)
	}

	args := call.Args
	for i, param := range fn.Params {
		t, err := c.TypeOf(args.Arg, env)
		if err != nil {
			return nil, err
		}
		if !t.Equal(param.Type) {
			return nil, util.NewFailure(args.Arg.Pos(), "Argument %d of '%s' has type %s, expected %s", i+1, fn.Name, t, param.Type)
		}
		args.ByRef = param.ByRef
		if _, isVar := args.Arg.(*ast.Id); param.ByRef && !isVar {
			c.warn(config.WarnExtra, args.Arg.Pos(), "Argument %d of '%s' is passed by reference but is not a variable; updates are discarded", i+1, fn.Name)
		}
		args = args.Rest
	}

	if !allowVoid && !fn.RetType.IsValue() {
		return nil, util.NewFailure(call.Tok, "Function '%s' returns void and cannot be used as a value", fn.Name)
	}
	return fn.RetType, nil
}

// checkIntRange reports a literal that does not fit in the target's int.
// A negated literal may reach one past the positive limit.
func (c *Context) checkIntRange(lit *ast.IntLit, negated bool) {
	if c.cfg.WordSize >= 8 {
		return
	}
	limit := int64(math.MaxInt32)
	if negated {
		limit++
	}
	if lit.Value > limit {
		c.Report(util.NewFailure(lit.Tok, "Integer constant '%d' is out of range for a %d-byte int", lit.Value, c.cfg.WordSize))
	}
}
