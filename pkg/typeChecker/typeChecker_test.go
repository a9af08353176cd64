package typeChecker

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/lexer"
	"github.com/xplshn/gmini/pkg/parser"
	"github.com/xplshn/gmini/pkg/util"
)

func check(t *testing.T, cfg *config.Config, src string) (*ast.Program, *Context) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	toks := lexer.NewLexer([]rune(src), 0, cfg).All()
	prog, err := parser.NewParser(toks, cfg).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ctx := NewContext(cfg)
	ctx.Check(prog)
	return prog, ctx
}

func messages(ctx *Context, sev util.Severity) []string {
	var out []string
	for _, f := range ctx.Failures() {
		if f.Severity == sev {
			out = append(out, f.Msg)
		}
	}
	return out
}

func TestAssignmentMismatchContinues(t *testing.T) {
	_, ctx := check(t, nil, `
		void f() {
			int x;
			boolean b;
			x = true;
			b = undefinedName;
		}
	`)
	want := []string{
		"Types in assignment do not match",
		"The variable undefinedName is not in scope",
	}
	if diff := cmp.Diff(want, messages(ctx, util.SevError)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopTestMustBeBoolean(t *testing.T) {
	_, ctx := check(t, nil, `
		void f() {
			int i = 0;
			while (i) { i = false; }
			for (i = 0; i + 1; i = i + 1) { }
		}
	`)
	want := []string{
		"Boolean test expected in while loop",
		"Types in assignment do not match",
		"Boolean test expected in for loop",
	}
	if diff := cmp.Diff(want, messages(ctx, util.SevError)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestJumpsOutsideLoops(t *testing.T) {
	_, ctx := check(t, nil, `
		void f() {
			break;
			if (true) continue;
			while (true) { if (false) break; continue; }
		}
	`)
	want := []string{
		"break can only be used in a loop",
		"continue can only be used in a loop",
	}
	if diff := cmp.Diff(want, messages(ctx, util.SevError)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameLayout(t *testing.T) {
	prog, ctx := check(t, nil, `
		int f(int a, int &b) {
			int x = a;
			{ int y = 1, z = 2; x = y + z; }
			{ int w = 3; x = w; }
			return x + b;
		}
	`)
	if ctx.HasErrors() {
		t.Fatalf("unexpected errors: %v", messages(ctx, util.SevError))
	}
	fn := prog.Functions[0]
	if fn.FrameBytes != 3*4 {
		t.Errorf("FrameBytes = %d, want 12 (sibling blocks share slots)", fn.FrameBytes)
	}

	type slot struct {
		Offset int
		ByRef  bool
	}
	got := []slot{
		{fn.Params[0].Binding.Offset, fn.Params[0].Binding.ByRef},
		{fn.Params[1].Binding.Offset, fn.Params[1].Binding.ByRef},
	}
	want := []slot{{8, false}, {12, true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parameter slots mismatch (-want +got):\n%s", diff)
	}

	first := fn.Body.Stmts[0].(*ast.Locals).Vars[0]
	if first.Binding.Offset != -4 {
		t.Errorf("first local at %d, want -4", first.Binding.Offset)
	}
	w := fn.Body.Stmts[2].(*ast.Block).Stmts[0].(*ast.Locals).Vars[0]
	if w.Binding.Offset != -8 {
		t.Errorf("w reuses the slot of y: got %d, want -8", w.Binding.Offset)
	}
}

func TestIdentifiersResolved(t *testing.T) {
	prog, ctx := check(t, nil, `
		int f(int a) {
			int a2 = a;
			return a2;
		}
	`)
	if ctx.HasErrors() {
		t.Fatalf("unexpected errors: %v", messages(ctx, util.SevError))
	}
	ret := prog.Functions[0].Body.Stmts[1].(*ast.Return)
	id := ret.Value.(*ast.Id)
	if id.Ve() == nil || id.Ve().Offset != -4 {
		t.Errorf("a2 not bound to its local slot: %+v", id.Ve())
	}
}

func TestCallChecks(t *testing.T) {
	prog, ctx := check(t, nil, `
		void swap(int &a, int &b);
		int g(int x) { return x; }
		void f() {
			int x = 1, y = 2;
			swap(x, y);
			x = g(true);
			x = g(1, 2);
			x = h();
			x = swap(x, y);
		}
	`)
	want := []string{
		"Argument 1 of 'g' has type boolean, expected int",
		"Function 'g' expects 1 argument(s), got 2",
		"Call to undefined function 'h'",
		"Function 'swap' returns void and cannot be used as a value",
	}
	if diff := cmp.Diff(want, messages(ctx, util.SevError)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	call := prog.Functions[2].Body.Stmts[1].(*ast.ExprStmt).X.(*ast.Call)
	if call.Callee == nil || call.Callee.Name != "swap" {
		t.Fatalf("callee not resolved")
	}
	for a := call.Args; a != nil; a = a.Rest {
		if !a.ByRef {
			t.Errorf("argument %s should be marked by reference", ast.Format(a.Arg))
		}
	}
}

func TestFunctionRules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Redefinition", "void f() { } void f() { }", "Redefinition of function 'f'"},
		{"Conflict", "int f(int a); boolean f(int a) { return true; }", "Conflicting declaration of 'f'"},
		{"MissingReturn", "int f(boolean b) { if (b) return 1; }", "Function 'f' may reach the end without returning a value"},
		{"VoidValue", "void f() { return 1; }", "Void function 'f' cannot return a value"},
		{"NoValue", "int f() { return; }", "Return statement missing a value in function 'f' returning int"},
		{"ReturnMismatch", "int f() { return true; }", "Return type mismatch in 'f': expected int, found boolean"},
		{"VoidParam", "void f(void v) { }", "Parameter 'v' cannot have type void"},
		{"DuplicateParam", "void f(int a, int a) { }", "Duplicate parameter name 'a'"},
		{"DuplicateLocal", "void f() { int a; int a; }", "Variable 'a' is already declared in this scope"},
		{"VoidLocal", "void f() { void v; }", "Variables cannot have type void"},
		{"IfTest", "void f() { if (1) { } }", "Boolean test expected in if statement"},
		{"Operand", "void f() { int x = 1 + true; }", "Right operand of '+' must be int, found boolean"},
		{"Equality", "void f() { boolean b = 1 == true; }", "Operands of '==' must have the same type, found int and boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ctx := check(t, nil, tt.src)
			errs := messages(ctx, util.SevError)
			if len(errs) == 0 || errs[0] != tt.want {
				t.Errorf("got %q, want first error %q", errs, tt.want)
			}
		})
	}
}

func TestPrototypeThenDefinition(t *testing.T) {
	prog, ctx := check(t, nil, `
		int twice(int x);
		int main() { return twice(2); }
		int twice(int x) { return x + x; }
	`)
	if ctx.HasErrors() {
		t.Fatalf("unexpected errors: %v", messages(ctx, util.SevError))
	}
	call := prog.Functions[1].Body.Stmts[0].(*ast.Return).Value.(*ast.Call)
	if call.Callee != prog.Functions[2] {
		t.Errorf("call should resolve to the definition, not the prototype")
	}
}

func TestWarnings(t *testing.T) {
	src := `
		void set(int &r) { r = 1; }
		void f() {
			int x = 0;
			while (x < 1) ;
			x + 1;
			set(x + 1);
			{ int x = 2; }
			return;
			x = 3;
		}
	`
	_, ctx := check(t, nil, src)
	if ctx.HasErrors() {
		t.Fatalf("unexpected errors: %v", messages(ctx, util.SevError))
	}
	want := []string{
		"Empty body in while loop",
		"Expression result is unused",
		"Argument 1 of 'set' is passed by reference but is not a variable; updates are discarded",
		"Unreachable code",
	}
	if diff := cmp.Diff(want, messages(ctx, util.SevWarning)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}

	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnShadow, true)
	cfg.SetWarning(config.WarnExtra, false)
	_, ctx = check(t, cfg, src)
	got := strings.Join(messages(ctx, util.SevWarning), "\n")
	if !strings.Contains(got, "Declaration of 'x' shadows an earlier declaration") {
		t.Errorf("expected a shadow warning, got:\n%s", got)
	}
	if strings.Contains(got, "Expression result is unused") {
		t.Errorf("-Wno-extra should silence unused results, got:\n%s", got)
	}
	for _, f := range ctx.Failures() {
		if f.Flag == "" {
			t.Errorf("warning %q carries no flag", f.Msg)
		}
	}
}

func TestLoopScopesEndWithLoop(t *testing.T) {
	_, ctx := check(t, nil, `
		void f(boolean c) {
			int n;
			while (c) { int k; k = 1; }
			n = k;
			for (int i = 0; i < 3; i = i + 1) { n = i; }
			n = i;
		}
	`)
	want := []string{
		"The variable k is not in scope",
		"The variable i is not in scope",
	}
	if diff := cmp.Diff(want, messages(ctx, util.SevError)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestIntegerRange(t *testing.T) {
	src := `
		int big() { return 4000000000; }
		int edge() { return 2147483648; }
		int lowest() { return -2147483648; }
		int highest() { return 2147483647; }
	`
	_, ctx := check(t, nil, src)
	want := []string{
		"Integer constant '4000000000' is out of range for a 4-byte int",
		"Integer constant '2147483648' is out of range for a 4-byte int",
	}
	if diff := cmp.Diff(want, messages(ctx, util.SevError)); diff != "" {
		t.Errorf("i386 errors mismatch (-want +got):\n%s", diff)
	}

	cfg := config.NewConfig()
	if err := cfg.SetTarget("linux", "amd64", "amd64"); err != nil {
		t.Fatal(err)
	}
	if _, ctx := check(t, cfg, src); ctx.HasErrors() {
		t.Errorf("amd64 should accept 64-bit constants, got %v", messages(ctx, util.SevError))
	}
}
