package parser

import (
	"github.com/hipabi/hdrparse/ast"
	"github.com/hipabi/hdrparse/lexer"
)

type declMode int

const (
	// named declarators must have a name
	named declMode = iota
	// optional declarators may be abstract, as in parameter lists
	optional
)

// derive wraps a base type in the pointer, array and function layers of a
// declarator. Every call builds fresh nodes.
type derive func(ast.Type) ast.Type

func identity(t ast.Type) ast.Type { return t }

func (p *parser) declarator(mode declMode) (string, lexer.Pos, derive, error) {
	var ptrs []ast.Qualifiers
	for p.accept("*") {
		var q ast.Qualifiers
		for {
			if err := p.skipNoise(); err != nil {
				return "", lexer.Pos{}, nil, err
			}
			if tok := p.peek(); tok.Kind == lexer.Ident && qualifier(tok.Text, &q) {
				p.next()
				continue
			}
			break
		}
		ptrs = append(ptrs, q)
	}

	if err := p.skipNoise(); err != nil {
		return "", lexer.Pos{}, nil, err
	}

	var name string
	pos := p.peek().Pos
	inner := derive(identity)

	tok := p.peek()
	switch {
	case tok.Kind == lexer.Ident && !isKeyword(tok.Text):
		name = p.next().Text
	case tok.Is("(") && p.nested(mode):
		p.next()
		var err error
		name, pos, inner, err = p.declarator(mode)
		if err != nil {
			return "", lexer.Pos{}, nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return "", lexer.Pos{}, nil, err
		}
	case mode == named:
		return "", lexer.Pos{}, nil, p.expected("declarator name")
	}

	var suffixes []derive
	for {
		switch {
		case p.peek().Is("["):
			s, err := p.arraySuffix()
			if err != nil {
				return "", lexer.Pos{}, nil, err
			}
			suffixes = append(suffixes, s)
			continue
		case p.peek().Is("("):
			s, err := p.functionSuffix()
			if err != nil {
				return "", lexer.Pos{}, nil, err
			}
			suffixes = append(suffixes, s)
			continue
		}
		break
	}

	return name, pos, func(base ast.Type) ast.Type {
		t := base
		for _, q := range ptrs {
			t = &ast.Pointer{Qualifiers: q, Type: t}
		}
		for i := len(suffixes) - 1; i >= 0; i-- {
			t = suffixes[i](t)
		}
		return inner(t)
	}, nil
}

// nested reports whether the '(' at the current position opens a nested
// declarator rather than a parameter list.
func (p *parser) nested(mode declMode) bool {
	next := p.peekN(1)
	switch {
	case next.Is("*"), next.Is("("), next.Is("["):
		return true
	case noiseCalls[next.Text] || noise[next.Text]:
		return true
	case mode == named && next.Kind == lexer.Ident && !isKeyword(next.Text):
		return true
	}
	return false
}

func (p *parser) arraySuffix() (derive, error) {
	p.next()

	var q ast.Qualifiers
	for {
		tok := p.peek()
		if tok.Kind == lexer.Ident && (qualifier(tok.Text, &q) || tok.Text == "static") {
			p.next()
			continue
		}
		break
	}

	var length ast.Expr
	if !p.peek().Is("]") {
		if p.peek().Is("*") && p.peekN(1).Is("]") {
			return nil, p.errorf(p.peek(), ErrUnsupported, "variable length array")
		}
		var err error
		length, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect("]"); err != nil {
		return nil, err
	}

	return func(t ast.Type) ast.Type {
		return &ast.Array{Qualifiers: q, Type: t, Length: length}
	}, nil
}

func (p *parser) functionSuffix() (derive, error) {
	p.next()

	f := ast.Function{}
	switch {
	case p.accept(")"):
		f.Unprototyped = true
	case p.peek().Is("void") && p.peekN(1).Is(")"):
		p.next()
		p.next()
		f.Params = []*ast.Parameter{}
	default:
		f.Params = []*ast.Parameter{}
		for {
			if p.accept("...") {
				f.Variadic = true
				if _, err := p.expect(")"); err != nil {
					return nil, err
				}
				break
			}

			param, err := p.parameter()
			if err != nil {
				return nil, err
			}
			f.Params = append(f.Params, param)

			if p.accept(",") {
				continue
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			break
		}
	}

	return func(t ast.Type) ast.Type {
		c := f
		c.Type = t
		return &c
	}, nil
}

func (p *parser) parameter() (*ast.Parameter, error) {
	start := p.peek()
	s, err := p.specifiers(false)
	if err != nil {
		return nil, err
	}
	base, err := s.build(p)
	if err != nil {
		return nil, err
	}

	name, pos, derive, err := p.declarator(optional)
	if err != nil {
		return nil, err
	}
	if err := p.skipNoise(); err != nil {
		return nil, err
	}
	if name == "" {
		pos = start.Pos
	}

	return &ast.Parameter{Pos: pos, Type: derive(base), Name: name}, nil
}
