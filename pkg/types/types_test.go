package types

import "testing"

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b *Type
		want bool
	}{
		{Int, Int, true},
		{Int, &Type{Kind: KindInt, Name: "int"}, true},
		{Int, Boolean, false},
		{Boolean, Void, false},
		{nil, nil, true},
		{Int, nil, false},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	for typ, want := range map[*Type]string{Int: "int", Boolean: "boolean", Void: "void"} {
		if got := typ.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
	if Void.IsValue() || !Int.IsValue() {
		t.Error("only non-void types hold values")
	}
}
