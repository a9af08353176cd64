// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/gmini/pkg/env"
	"github.com/xplshn/gmini/pkg/token"
	"github.com/xplshn/gmini/pkg/types"
)

// DEEP is the depth of any expression with a potential side effect. Such
// expressions, and any expression containing one, are evaluated strictly
// left to right.
const DEEP = 1000

// Expr is an expression node. The set of implementations is closed.
type Expr interface {
	Pos() token.Token
	isExpr()
}

// Stmt is a statement node. The set of implementations is closed.
type Stmt interface {
	Pos() token.Token
	isStmt()
}

// --- Expressions ---

type IntLit struct {
	Tok   token.Token
	Value int64
}

type BoolLit struct {
	Tok   token.Token
	Value bool
}

type Id struct {
	Tok     token.Token
	Name    string
	Binding *env.VarEnv // Set by the type checker
}

type Assign struct {
	Tok token.Token
	Lhs *Id
	Rhs Expr
}

type Call struct {
	Tok    token.Token
	Name   string
	Args   *Args
	Callee *Function // Set by the type checker
}

// Unary is arithmetic negation or logical not.
type Unary struct {
	Tok token.Token
	Op  token.Type
	X   Expr
}

// BinArith is + - * / %.
type BinArith struct {
	Tok         token.Token
	Op          token.Type
	Left, Right Expr
}

// BinComp is < <= > >= == !=.
type BinComp struct {
	Tok         token.Token
	Op          token.Type
	Left, Right Expr
}

// Logical is the short-circuit && and ||.
type Logical struct {
	Tok         token.Token
	Op          token.Type
	Left, Right Expr
}

// Args is the argument list of a call, in source order.
type Args struct {
	Arg   Expr
	ByRef bool // Set by the type checker from the callee's parameter
	Rest  *Args
}

func (e *IntLit) Pos() token.Token   { return e.Tok }
func (e *BoolLit) Pos() token.Token  { return e.Tok }
func (e *Id) Pos() token.Token       { return e.Tok }
func (e *Assign) Pos() token.Token   { return e.Tok }
func (e *Call) Pos() token.Token     { return e.Tok }
func (e *Unary) Pos() token.Token    { return e.Tok }
func (e *BinArith) Pos() token.Token { return e.Tok }
func (e *BinComp) Pos() token.Token  { return e.Tok }
func (e *Logical) Pos() token.Token  { return e.Tok }

func (*IntLit) isExpr()   {}
func (*BoolLit) isExpr()  {}
func (*Id) isExpr()       {}
func (*Assign) isExpr()   {}
func (*Call) isExpr()     {}
func (*Unary) isExpr()    {}
func (*BinArith) isExpr() {}
func (*BinComp) isExpr()  {}
func (*Logical) isExpr()  {}

// Ve returns the binding recorded by the type checker.
func (e *Id) Ve() *env.VarEnv { return e.Binding }

// Len returns the number of arguments in the list.
func (a *Args) Len() int {
	n := 0
	for ; a != nil; a = a.Rest {
		n++
	}
	return n
}

// --- Statements ---

type Block struct {
	Tok   token.Token
	Stmts []Stmt
}

type Empty struct{ Tok token.Token }

type ExprStmt struct {
	Tok token.Token
	X   Expr
}

// VarIntro introduces one name in a Locals declaration.
type VarIntro struct {
	Tok     token.Token
	Name    string
	Init    Expr        // nil means zero
	Binding *env.VarEnv // Set by the type checker
}

type Locals struct {
	Tok  token.Token
	Type *types.Type
	Vars []*VarIntro
}

type If struct {
	Tok  token.Token
	Test Expr
	Then Stmt
	Else Stmt // may be nil
}

type While struct {
	Tok  token.Token
	Test Expr
	Body Stmt
}

// For is `for (init; test; step) body`. Init is a *Locals, an *ExprStmt
// or nil; Test and Step may be nil.
type For struct {
	Tok  token.Token
	Init Stmt
	Test Expr
	Step Expr
	Body Stmt
}

type Break struct{ Tok token.Token }
type Continue struct{ Tok token.Token }

type Return struct {
	Tok   token.Token
	Value Expr // nil in a void function
}

func (s *Block) Pos() token.Token    { return s.Tok }
func (s *Empty) Pos() token.Token    { return s.Tok }
func (s *ExprStmt) Pos() token.Token { return s.Tok }
func (s *Locals) Pos() token.Token   { return s.Tok }
func (s *If) Pos() token.Token       { return s.Tok }
func (s *While) Pos() token.Token    { return s.Tok }
func (s *For) Pos() token.Token      { return s.Tok }
func (s *Break) Pos() token.Token    { return s.Tok }
func (s *Continue) Pos() token.Token { return s.Tok }
func (s *Return) Pos() token.Token   { return s.Tok }

func (*Block) isStmt()    {}
func (*Empty) isStmt()    {}
func (*ExprStmt) isStmt() {}
func (*Locals) isStmt()   {}
func (*If) isStmt()       {}
func (*While) isStmt()    {}
func (*For) isStmt()      {}
func (*Break) isStmt()    {}
func (*Continue) isStmt() {}
func (*Return) isStmt()   {}

// --- Declarations ---

type Param struct {
	Tok     token.Token
	Type    *types.Type
	Name    string
	ByRef   bool
	Binding *env.VarEnv // Set by the type checker
}

type Function struct {
	Tok         token.Token
	Name        string
	RetType     *types.Type
	Params      []*Param
	Body        *Block // nil for a prototype
	IsPrototype bool

	// Set by the type checker
	FrameBytes int
	Returns    bool
}

type Program struct {
	Functions []*Function
}

// Lookup returns the first function declared with name, or nil.
func (p *Program) Lookup(name string) *Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// --- Constructors ---

func NewInt(tok token.Token, value int64) *IntLit   { return &IntLit{Tok: tok, Value: value} }
func NewBool(tok token.Token, value bool) *BoolLit  { return &BoolLit{Tok: tok, Value: value} }
func NewId(tok token.Token, name string) *Id        { return &Id{Tok: tok, Name: name} }
func NewAssign(tok token.Token, lhs *Id, rhs Expr) *Assign {
	return &Assign{Tok: tok, Lhs: lhs, Rhs: rhs}
}
func NewUnary(tok token.Token, op token.Type, x Expr) *Unary { return &Unary{Tok: tok, Op: op, X: x} }

// NewCall builds a call with its arguments linked in order.
func NewCall(tok token.Token, name string, args []Expr) *Call {
	var list *Args
	for i := len(args) - 1; i >= 0; i-- {
		list = &Args{Arg: args[i], Rest: list}
	}
	return &Call{Tok: tok, Name: name, Args: list}
}

// NewBinary picks the node kind that matches op.
func NewBinary(tok token.Token, op token.Type, left, right Expr) Expr {
	switch op {
	case token.Lt, token.Lte, token.Gt, token.Gte, token.EqEq, token.Neq:
		return &BinComp{Tok: tok, Op: op, Left: left, Right: right}
	case token.AndAnd, token.OrOr:
		return &Logical{Tok: tok, Op: op, Left: left, Right: right}
	default:
		return &BinArith{Tok: tok, Op: op, Left: left, Right: right}
	}
}

// Depth estimates how many registers e needs, Sethi-Ullman style.
func Depth(e Expr) int {
	switch e := e.(type) {
	case *IntLit, *BoolLit, *Id:
		return 1
	case *Assign, *Call:
		return DEEP
	case *Unary:
		return Depth(e.X)
	case *BinArith:
		return binaryDepth(Depth(e.Left), Depth(e.Right))
	case *BinComp:
		return binaryDepth(Depth(e.Left), Depth(e.Right))
	case *Logical:
		// both operands are evaluated into the same register
		l, r := Depth(e.Left), Depth(e.Right)
		if l >= DEEP || r >= DEEP {
			return DEEP
		}
		return max(l, r)
	}
	panic("internal: Depth of unknown expression")
}

func binaryDepth(l, r int) int {
	switch {
	case l >= DEEP || r >= DEEP:
		return DEEP
	case l == r:
		return l + 1
	default:
		return max(l, r)
	}
}
