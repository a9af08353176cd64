package ast

import (
	"testing"

	"github.com/xplshn/gmini/pkg/token"
)

var tok token.Token

func id(name string) *Id  { return NewId(tok, name) }
func num(v int64) *IntLit { return NewInt(tok, v) }

func TestDepth(t *testing.T) {
	call := NewCall(tok, "f", []Expr{num(1)})
	tests := []struct {
		name string
		expr Expr
		want int
	}{
		{"leaf", id("x"), 1},
		{"literal", num(3), 1},
		{"balanced", NewBinary(tok, token.Plus, id("a"), id("b")), 2},
		{"left heavy", NewBinary(tok, token.Plus, NewBinary(tok, token.Star, id("a"), id("b")), id("c")), 2},
		{"both sides two", NewBinary(tok, token.Plus,
			NewBinary(tok, token.Star, id("a"), id("b")),
			NewBinary(tok, token.Star, id("c"), id("d"))), 3},
		{"assignment", NewAssign(tok, id("x"), num(1)), DEEP},
		{"call", call, DEEP},
		{"contains call", NewBinary(tok, token.Plus, id("a"), call), DEEP},
		{"two deep operands", NewBinary(tok, token.Lt, call, call), DEEP},
		{"negation", NewUnary(tok, token.Minus, NewBinary(tok, token.Plus, id("a"), id("b"))), 2},
		{"logical", NewBinary(tok, token.AndAnd, id("p"), NewBinary(tok, token.Lt, id("a"), id("b"))), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Depth(tt.expr); got != tt.want {
				t.Errorf("Depth(%s) = %d, want %d", Format(tt.expr), got, tt.want)
			}
		})
	}
}

func TestNewBinaryKinds(t *testing.T) {
	if _, ok := NewBinary(tok, token.Lte, id("a"), id("b")).(*BinComp); !ok {
		t.Error("<= should build a BinComp")
	}
	if _, ok := NewBinary(tok, token.OrOr, id("a"), id("b")).(*Logical); !ok {
		t.Error("|| should build a Logical")
	}
	if _, ok := NewBinary(tok, token.Rem, id("a"), id("b")).(*BinArith); !ok {
		t.Error("% should build a BinArith")
	}
}

func TestArgsOrder(t *testing.T) {
	c := NewCall(tok, "g", []Expr{id("a"), num(2), id("c")})
	if c.Args.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Args.Len())
	}
	if got := Format(c); got != "g(a, 2, c)" {
		t.Errorf("Format = %q", got)
	}
	if (*Args)(nil).Len() != 0 {
		t.Error("empty list has length 0")
	}
}
