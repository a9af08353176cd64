package parser

import (
	"strconv"

	"github.com/xplshn/gmini/pkg/ast"
	"github.com/xplshn/gmini/pkg/config"
	"github.com/xplshn/gmini/pkg/token"
	"github.com/xplshn/gmini/pkg/types"
	"github.com/xplshn/gmini/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
}

// bailout unwinds the recursive descent on the first syntax error.
type bailout struct{ failure *util.Failure }

// NewParser creates and initializes a new Parser from a token stream. The
// stream must end with an EOF or Illegal token.
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	p := &Parser{tokens: tokens, cfg: cfg}
	if len(tokens) == 0 {
		p.tokens = []token.Token{{Type: token.EOF}}
	}
	p.current = p.tokens[0]
	return p
}

// Parse reads a whole program. The first lexical or syntax error is
// returned as a *util.Failure.
func (p *Parser) Parse() (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			prog, err = nil, b.failure
		}
	}()

	prog = &ast.Program{}
	for !p.check(token.EOF) {
		prog.Functions = append(prog.Functions, p.parseFunction())
	}
	return prog, nil
}

// Parser helpers
func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	panic(bailout{util.NewFailure(tok, format, args...)})
}

func (p *Parser) advance() {
	p.guard()
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
	p.guard()
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

// guard surfaces a lexical error sitting at the current position.
func (p *Parser) guard() {
	if p.current.Type == token.Illegal {
		p.fail(p.current, "%s", p.current.Value)
	}
}

func (p *Parser) check(tokType token.Type) bool {
	p.guard()
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		tok := p.current
		p.advance()
		return tok
	}
	p.fail(p.current, "%s", message)
	return token.Token{}
}

func (p *Parser) requireFeature(ft config.Feature, tok token.Token) {
	if p.cfg != nil && !p.cfg.IsFeatureEnabled(ft) {
		p.fail(tok, "'%s' is not allowed: feature '%s' is disabled (-F%s)", tok.Type, p.cfg.Features[ft].Name, p.cfg.Features[ft].Name)
	}
}

func typeOfKeyword(t token.Type) *types.Type {
	switch t {
	case token.Int:
		return types.Int
	case token.Boolean:
		return types.Boolean
	case token.Void:
		return types.Void
	}
	return nil
}

// Declarations

func (p *Parser) parseFunction() *ast.Function {
	p.guard()
	if !p.current.Type.IsTypeKeyword() {
		p.fail(p.current, "Expected a return type at the start of a function declaration.")
	}
	fn := &ast.Function{RetType: typeOfKeyword(p.current.Type)}
	p.advance()
	nameTok := p.expect(token.Ident, "Expected function name.")
	fn.Tok, fn.Name = nameTok, nameTok.Value

	p.expect(token.LParen, "Expected '(' after function name.")
	if !p.check(token.RParen) {
		for {
			fn.Params = append(fn.Params, p.parseParam())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after parameter list.")

	if p.match(token.Semi) {
		fn.IsPrototype = true
		return fn
	}
	if !p.check(token.LBrace) {
		p.fail(p.current, "Expected '{' to begin the body of '%s', or ';' for a prototype.", fn.Name)
	}
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseParam() *ast.Param {
	p.guard()
	if !p.current.Type.IsTypeKeyword() {
		p.fail(p.current, "Expected parameter type.")
	}
	param := &ast.Param{Type: typeOfKeyword(p.current.Type)}
	p.advance()
	if p.check(token.And) {
		p.requireFeature(config.FeatByRef, p.current)
		p.advance()
		param.ByRef = true
	}
	nameTok := p.expect(token.Ident, "Expected parameter name.")
	param.Tok, param.Name = nameTok, nameTok.Value
	return param
}

// Statements

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Tok: p.expect(token.LBrace, "Expected '{'.")}
	for !p.check(token.RBrace) {
		if p.check(token.EOF) {
			p.fail(block.Tok, "Unclosed block: expected '}' before end of file.")
		}
		block.Stmts = append(block.Stmts, p.parseStmt())
	}
	p.advance()
	return block
}

func (p *Parser) parseStmt() ast.Stmt {
	p.guard()
	tok := p.current
	switch {
	case tok.Type == token.LBrace:
		return p.parseBlock()
	case tok.Type.IsTypeKeyword():
		locals := p.parseLocals()
		p.expect(token.Semi, "Expected ';' after declaration.")
		return locals
	}

	switch tok.Type {
	case token.Semi:
		p.advance()
		return &ast.Empty{Tok: tok}
	case token.If:
		p.advance()
		test := p.parseCondition("if")
		then := p.parseStmt()
		var els ast.Stmt
		if p.match(token.Else) {
			els = p.parseStmt()
		}
		return &ast.If{Tok: tok, Test: test, Then: then, Else: els}
	case token.While:
		p.advance()
		test := p.parseCondition("while")
		return &ast.While{Tok: tok, Test: test, Body: p.parseStmt()}
	case token.For:
		return p.parseFor()
	case token.Break:
		p.advance()
		p.expect(token.Semi, "Expected ';' after 'break'.")
		return &ast.Break{Tok: tok}
	case token.Continue:
		p.requireFeature(config.FeatContinue, tok)
		p.advance()
		p.expect(token.Semi, "Expected ';' after 'continue'.")
		return &ast.Continue{Tok: tok}
	case token.Return:
		p.advance()
		ret := &ast.Return{Tok: tok}
		if !p.check(token.Semi) {
			ret.Value = p.parseExpr()
		}
		p.expect(token.Semi, "Expected ';' after return statement.")
		return ret
	case token.Else:
		p.fail(tok, "'else' without a matching 'if'.")
	}

	expr := p.parseExpr()
	p.expect(token.Semi, "Expected ';' after expression.")
	return &ast.ExprStmt{Tok: tok, X: expr}
}

func (p *Parser) parseCondition(keyword string) ast.Expr {
	p.expect(token.LParen, "Expected '(' after '"+keyword+"'.")
	test := p.parseExpr()
	p.expect(token.RParen, "Expected ')' after "+keyword+" condition.")
	return test
}

func (p *Parser) parseLocals() *ast.Locals {
	locals := &ast.Locals{Tok: p.current, Type: typeOfKeyword(p.current.Type)}
	p.advance()
	for {
		nameTok := p.expect(token.Ident, "Expected variable name in declaration.")
		v := &ast.VarIntro{Tok: nameTok, Name: nameTok.Value}
		if p.match(token.Eq) {
			v.Init = p.parseExpr()
		}
		locals.Vars = append(locals.Vars, v)
		if !p.match(token.Comma) {
			return locals
		}
	}
}

func (p *Parser) parseFor() ast.Stmt {
	tok := p.current
	p.requireFeature(config.FeatForLoops, tok)
	p.advance()
	p.expect(token.LParen, "Expected '(' after 'for'.")

	loop := &ast.For{Tok: tok}
	switch {
	case p.check(token.Semi):
	case p.current.Type.IsTypeKeyword():
		loop.Init = p.parseLocals()
	default:
		initTok := p.current
		loop.Init = &ast.ExprStmt{Tok: initTok, X: p.parseExpr()}
	}
	p.expect(token.Semi, "Expected ';' after for-loop initializer.")

	if !p.check(token.Semi) {
		loop.Test = p.parseExpr()
	}
	p.expect(token.Semi, "Expected ';' after for-loop condition.")

	if !p.check(token.RParen) {
		loop.Step = p.parseExpr()
	}
	p.expect(token.RParen, "Expected ')' after for-loop step.")

	loop.Body = p.parseStmt()
	return loop
}

// Expressions

func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash, token.Rem:
		return 13
	case token.Plus, token.Minus:
		return 12
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 10
	case token.EqEq, token.Neq:
		return 9
	case token.AndAnd:
		return 4
	case token.OrOr:
		return 3
	default:
		return -1
	}
}

func (p *Parser) parseExpr() ast.Expr {
	if p.check(token.Ident) && p.peek().Type == token.Eq {
		lhs := ast.NewId(p.current, p.current.Value)
		p.advance()
		eqTok := p.current
		p.advance()
		return ast.NewAssign(eqTok, lhs, p.parseExpr())
	}
	expr := p.parseBinaryExpr(0)
	if p.check(token.Eq) {
		p.fail(p.current, "Left side of assignment must be a variable.")
	}
	return expr
}

func (p *Parser) parseBinaryExpr(minPrec int) ast.Expr {
	left := p.parseUnaryExpr()
	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op)
		if prec < minPrec || prec < 0 {
			return left
		}
		opTok := p.current
		p.advance()
		right := p.parseBinaryExpr(prec + 1)
		left = ast.NewBinary(opTok, op, left, right)
	}
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	tok := p.current
	if p.match(token.Minus) || p.match(token.Not) {
		return ast.NewUnary(tok, tok.Type, p.parseUnaryExpr())
	}
	return p.parsePrimaryExpr()
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	tok := p.current
	switch {
	case p.match(token.Number):
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.fail(tok, "Integer constant '%s' is out of range.", tok.Value)
		}
		return ast.NewInt(tok, val)
	case p.match(token.True):
		return ast.NewBool(tok, true)
	case p.match(token.False):
		return ast.NewBool(tok, false)
	case p.match(token.Ident):
		if !p.match(token.LParen) {
			return ast.NewId(tok, tok.Value)
		}
		var args []ast.Expr
		if !p.check(token.RParen) {
			for {
				args = append(args, p.parseExpr())
				if !p.match(token.Comma) {
					break
				}
			}
		}
		p.expect(token.RParen, "Expected ')' after function arguments.")
		return ast.NewCall(tok, tok.Value, args)
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after expression.")
		return expr
	}
	p.fail(tok, "Expected an expression.")
	return nil
}
