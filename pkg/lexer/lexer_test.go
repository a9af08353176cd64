package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/token"
)

func lex(cfg *config.Config, src string) []token.Token {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return NewLexer([]rune(src), 0, cfg).All()
}

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokens(t *testing.T) {
	toks := lex(nil, "int f(int &x) { return x <= 10 && !(x != 3) || x == -1; }")
	want := []token.Type{
		token.Int, token.Ident, token.LParen, token.Int, token.And, token.Ident, token.RParen,
		token.LBrace, token.Return, token.Ident, token.Lte, token.Number, token.AndAnd,
		token.Not, token.LParen, token.Ident, token.Neq, token.Number, token.RParen,
		token.OrOr, token.Ident, token.EqEq, token.Minus, token.Number, token.Semi, token.RBrace,
		token.EOF,
	}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestPositions(t *testing.T) {
	toks := lex(nil, "while\n  (counter >= 42)")
	type pos struct {
		Value            string
		Line, Column, Len int
	}
	var got []pos
	for _, tok := range toks[:len(toks)-1] {
		got = append(got, pos{tok.Value, tok.Line, tok.Column, tok.Len})
	}
	want := []pos{
		{"while", 1, 1, 5},
		{"", 2, 3, 1},
		{"counter", 2, 4, 7},
		{"", 2, 12, 2},
		{"42", 2, 15, 2},
		{"", 2, 17, 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestComments(t *testing.T) {
	src := "a /* block\n comment */ b // line\nc"
	if diff := cmp.Diff([]token.Type{token.Ident, token.Ident, token.Ident, token.EOF}, types(lex(nil, src))); diff != "" {
		t.Errorf("comments not skipped (-want +got):\n%s", diff)
	}

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatCComments, false)
	got := types(lex(cfg, "a // b"))
	want := []token.Type{token.Ident, token.Slash, token.Slash, token.Ident, token.EOF}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("line comments should lex as operators when disabled (-want +got):\n%s", diff)
	}
}

func TestIllegal(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x # y", "Unexpected character: '#'"},
		{"a | b", "Unexpected character: '|' (did you mean '||'?)"},
		{"12ab", "Malformed number '12ab'"},
		{"/* open", "Unterminated block comment"},
	}
	for _, tt := range tests {
		toks := lex(nil, tt.src)
		last := toks[len(toks)-1]
		if last.Type != token.Illegal || last.Value != tt.want {
			t.Errorf("%q: last token = %v %q, want Illegal %q", tt.src, last.Type, last.Value, tt.want)
		}
	}
}
