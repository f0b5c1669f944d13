package parser

import (
	"strings"

	"github.com/hipabi/hdrparse/ast"
	"github.com/hipabi/hdrparse/lexer"
	"github.com/hipabi/hdrparse/preproc"
)

// expression parses a conditional expression, the form allowed for
// enumerator values, array lengths, bit widths and initializers.
func (p *parser) expression() (ast.Expr, error) {
	at := p.peek()
	cond, err := p.binary(1)
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return cond, nil
	}

	then, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.Conditional{Pos: at.Pos, Cond: cond, Then: then, Else: els}, nil
}

func (p *parser) binary(min int) (ast.Expr, error) {
	x, err := p.unary()
	if err != nil {
		return nil, err
	}

	for {
		op := p.peek()
		prec, ok := ast.BinaryPrec[op.Text]
		if !ok || op.Kind != lexer.Punct || prec < min {
			return x, nil
		}
		p.next()

		y, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		x = &ast.Binary{Pos: op.Pos, Op: op.Text, X: x, Y: y}
	}
}

func (p *parser) unary() (ast.Expr, error) {
	tok := p.peek()
	switch {
	case tok.Kind == lexer.Punct && ast.IsUnaryOp(tok.Text):
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Pos: tok.Pos, Op: tok.Text, X: x}, nil
	case tok.Is("("):
		if next := p.peekN(1); next.Kind == lexer.Ident && isKeyword(next.Text) {
			return nil, p.errorf(tok, ErrUnsupported, "cast expression")
		}
		p.next()
		x, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return x, nil
	case tok.Kind == lexer.Number:
		p.next()
		return intLiteral(p, tok)
	case tok.Kind == lexer.Char:
		p.next()
		v, err := preproc.CharValue(tok.Text)
		if err != nil {
			return nil, p.errorf(tok, ErrSyntax, "invalid character literal %s", tok.Text)
		}
		return &ast.CharLiteral{Pos: tok.Pos, Text: tok.Text, Value: v}, nil
	case tok.Is("sizeof"), tok.Is("_Alignof"):
		return nil, p.errorf(tok, ErrUnsupported, "%s expression", tok.Text)
	case tok.Kind == lexer.Ident && !isKeyword(tok.Text):
		p.next()
		if p.peek().Is("(") {
			return nil, p.errorf(tok, ErrUnsupported, "function call in constant expression")
		}
		return &ast.Variable{Pos: tok.Pos, Name: tok.Text}, nil
	}
	return nil, p.expected("expression")
}

func intLiteral(p *parser, tok lexer.Token) (ast.Expr, error) {
	text := strings.ToLower(tok.Text)
	if strings.ContainsAny(text, ".") || !strings.HasPrefix(text, "0x") && strings.ContainsAny(text, "ep") {
		return nil, p.errorf(tok, ErrUnsupported, "floating constant %s", tok.Text)
	}

	v, err := preproc.ParseInt(tok.Text)
	if err != nil {
		return nil, p.errorf(tok, ErrSyntax, "invalid integer constant %s", tok.Text)
	}

	lit := &ast.IntLiteral{Pos: tok.Pos, Text: tok.Text, Value: v}
	switch {
	case strings.HasPrefix(text, "0x"):
		lit.Format = ast.Hex
	case strings.HasPrefix(text, "0b"):
		lit.Format = ast.Bin
	case len(strings.TrimRight(text, "ul")) > 1 && text[0] == '0':
		lit.Format = ast.Octal
	}
	return lit, nil
}
