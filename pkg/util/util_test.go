package util

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gmini/pkg/token"
)

func TestPrint(t *testing.T) {
	SetColor(false)
	SetSourceFiles([]SourceFileRecord{{Name: "a.mini", Content: []rune("int main() {\n\tx = 1;\n}\n")}})
	defer SetSourceFiles(nil)

	tok := token.Token{FileIndex: 0, Line: 2, Column: 2, Len: 1}
	tests := []struct {
		name string
		f    *Failure
		want string
	}{
		{
			"Error",
			NewFailure(tok, "The variable %s is not in scope", "x"),
			"a.mini:2:2: error: The variable x is not in scope\n  \tx = 1;\n   ^\n",
		},
		{
			"Warning",
			NewWarning("extra", token.Token{FileIndex: 0, Line: 1, Column: 5, Len: 4}, "Expression result is unused"),
			"a.mini:1:5: warning: Expression result is unused [-Wextra]\n  int main() {\n      ^~~~\n",
		},
		{
			"NoSource",
			NewFailure(token.Token{FileIndex: -1}, "no input files specified."),
			"unknown:0:0: error: no input files specified.\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Print(&buf, tt.f)
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("Print mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFailureError(t *testing.T) {
	SetSourceFiles([]SourceFileRecord{{Name: "b.mini"}})
	defer SetSourceFiles(nil)
	var err error = NewFailure(token.Token{Line: 3, Column: 7}, "Expected %s", "';'")
	if got, want := err.Error(), "b.mini:3:7: Expected ';'"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct{ n, align, want int }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{28, 16, 32},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}
