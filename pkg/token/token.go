package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Illegal
	Ident
	Number
	// Keywords
	Int
	Boolean
	Void
	If
	Else
	While
	For
	Break
	Continue
	Return
	True
	False
	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	Semi
	Comma
	// Operators
	Eq
	Plus
	Minus
	Star
	Slash
	Rem
	And
	AndAnd
	OrOr
	Not
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
)

var KeywordMap = map[string]Type{
	"int":      Int,
	"boolean":  Boolean,
	"void":     Void,
	"if":       If,
	"else":     Else,
	"while":    While,
	"for":      For,
	"break":    Break,
	"continue": Continue,
	"return":   Return,
	"true":     True,
	"false":    False,
}

var punctStrings = map[Type]string{
	EOF: "end of file", Illegal: "illegal token", Ident: "identifier", Number: "number",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", Semi: ";", Comma: ",",
	Eq: "=", Plus: "+", Minus: "-", Star: "*", Slash: "/", Rem: "%", And: "&",
	AndAnd: "&&", OrOr: "||", Not: "!", EqEq: "==", Neq: "!=",
	Lt: "<", Gt: ">", Lte: "<=", Gte: ">=",
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range punctStrings {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsTypeKeyword reports whether t names one of the primitive types.
func (t Type) IsTypeKeyword() bool { return t == Int || t == Boolean || t == Void }

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
