package ast

import (
	"fmt"
	"strings"
)

// Format renders an expression fully parenthesized, which makes operator
// grouping visible.
func Format(e Expr) string {
	switch e := e.(type) {
	case *IntLit:
		return fmt.Sprint(e.Value)
	case *BoolLit:
		return fmt.Sprint(e.Value)
	case *Id:
		return e.Name
	case *Assign:
		return fmt.Sprintf("(%s = %s)", e.Lhs.Name, Format(e.Rhs))
	case *Call:
		var parts []string
		for a := e.Args; a != nil; a = a.Rest {
			s := Format(a.Arg)
			if a.ByRef {
				s = "&" + s
			}
			parts = append(parts, s)
		}
		return fmt.Sprintf("%s(%s)", e.Name, strings.Join(parts, ", "))
	case *Unary:
		return fmt.Sprintf("(%s%s)", e.Op, Format(e.X))
	case *BinArith:
		return fmt.Sprintf("(%s %s %s)", Format(e.Left), e.Op, Format(e.Right))
	case *BinComp:
		return fmt.Sprintf("(%s %s %s)", Format(e.Left), e.Op, Format(e.Right))
	case *Logical:
		return fmt.Sprintf("(%s %s %s)", Format(e.Left), e.Op, Format(e.Right))
	case nil:
		return ""
	}
	return "?"
}

// FormatStmt renders a statement on one line.
func FormatStmt(s Stmt) string {
	switch s := s.(type) {
	case *Block:
		parts := make([]string, len(s.Stmts))
		for i, st := range s.Stmts {
			parts[i] = FormatStmt(st)
		}
		return "{ " + strings.Join(parts, " ") + " }"
	case *Empty:
		return ";"
	case *ExprStmt:
		return Format(s.X) + ";"
	case *Locals:
		parts := make([]string, len(s.Vars))
		for i, v := range s.Vars {
			parts[i] = v.Name
			if v.Init != nil {
				parts[i] += " = " + Format(v.Init)
			}
		}
		return s.Type.String() + " " + strings.Join(parts, ", ") + ";"
	case *If:
		out := fmt.Sprintf("if (%s) %s", Format(s.Test), FormatStmt(s.Then))
		if s.Else != nil {
			out += " else " + FormatStmt(s.Else)
		}
		return out
	case *While:
		return fmt.Sprintf("while (%s) %s", Format(s.Test), FormatStmt(s.Body))
	case *For:
		init := ";"
		if s.Init != nil {
			init = FormatStmt(s.Init)
		}
		return fmt.Sprintf("for (%s %s; %s) %s", init, Format(s.Test), Format(s.Step), FormatStmt(s.Body))
	case *Break:
		return "break;"
	case *Continue:
		return "continue;"
	case *Return:
		if s.Value == nil {
			return "return;"
		}
		return "return " + Format(s.Value) + ";"
	}
	return "?"
}

// FormatFunction renders a function header followed by its body, or a
// trailing ';' for a prototype.
func FormatFunction(fn *Function) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type.String() + " "
		if p.ByRef {
			params[i] += "&"
		}
		params[i] += p.Name
	}
	head := fmt.Sprintf("%s %s(%s)", fn.RetType, fn.Name, strings.Join(params, ", "))
	if fn.Body == nil {
		return head + ";"
	}
	return head + " " + FormatStmt(fn.Body)
}
