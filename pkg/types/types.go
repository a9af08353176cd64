// Package types holds the closed set of Mini value types.
package types

type Kind int

const (
	KindInt Kind = iota
	KindBoolean
	KindVoid
)

type Type struct {
	Kind Kind
	Name string
}

var (
	Int     = &Type{Kind: KindInt, Name: "int"}
	Boolean = &Type{Kind: KindBoolean, Name: "boolean"}
	Void    = &Type{Kind: KindVoid, Name: "void"}
)

// Equal reports structural equality. Two nil types are equal.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Kind == other.Kind
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// IsValue reports whether a variable or expression may have this type.
func (t *Type) IsValue() bool { return t != nil && t.Kind != KindVoid }
