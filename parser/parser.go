// Package parser reads C headers into declaration trees.
//
// Input goes through the lexer and preprocessor first; the parser itself
// understands declarations only. Function bodies are skipped.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/hipabi/hdrparse/ast"
	"github.com/hipabi/hdrparse/lexer"
	"github.com/hipabi/hdrparse/logutil"
	"github.com/hipabi/hdrparse/preproc"
)

type Options struct {
	// Defines are predefined macros. An empty value defines the macro as 1.
	Defines map[string]string
	// Lenient skips declarations that fail to parse instead of failing.
	Lenient bool
}

func ParseFile(path string, opts Options) (*ast.TranslationUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(path, f, opts)
}

func Parse(name string, r io.Reader, opts Options) (*ast.TranslationUnit, error) {
	var b bytes.Buffer
	tr := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	if _, err := io.Copy(&b, transform.NewReader(r, tr)); err != nil {
		return nil, err
	}

	toks, err := lexer.Scan(name, b.Bytes())
	if err != nil {
		return nil, err
	}
	logutil.Trace("scanned", "file", name, "tokens", len(toks))

	pp, err := preproc.Run(toks, opts.Defines)
	if err != nil {
		return nil, err
	}
	logutil.Trace("preprocessed", "file", name, "tokens", len(pp.Tokens), "macros", len(pp.Macros), "includes", len(pp.Includes))

	p := &parser{toks: pp.Tokens, opts: opts}
	entities, err := p.translationUnit()
	if err != nil {
		return nil, err
	}

	return &ast.TranslationUnit{
		Name:     name,
		Includes: pp.Includes,
		Entities: entities,
	}, nil
}

type parser struct {
	toks []lexer.Token
	i    int
	opts Options
}

func (p *parser) peek() lexer.Token {
	return p.peekN(0)
}

func (p *parser) peekN(n int) lexer.Token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() lexer.Token {
	tok := p.peek()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return tok
}

// accept consumes the next token if it is the punctuator or keyword text.
func (p *parser) accept(text string) bool {
	if p.peek().Is(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) (lexer.Token, error) {
	if !p.peek().Is(text) {
		return lexer.Token{}, p.expected(fmt.Sprintf("%q", text))
	}
	return p.next(), nil
}

func (p *parser) translationUnit() ([]*ast.Declaration, error) {
	return p.declarations("")
}

// declarations parses external declarations up to end, or to EOF when end
// is empty. In lenient mode a failing declaration is logged and skipped.
func (p *parser) declarations(end string) ([]*ast.Declaration, error) {
	var entities []*ast.Declaration
	for {
		tok := p.peek()
		if end != "" && tok.Is(end) {
			p.next()
			return entities, nil
		}
		if tok.Kind == lexer.EOF {
			if end != "" {
				return nil, p.expected(fmt.Sprintf("%q", end))
			}
			return entities, nil
		}

		start := p.i
		decls, err := p.externalDeclaration()
		if err != nil {
			if !p.opts.Lenient {
				return nil, err
			}
			slog.Warn("skipping declaration", "error", err)
			p.i = start
			p.recover()
			continue
		}
		entities = append(entities, decls...)
	}
}

// recover skips to the end of the declaration starting at the current
// token: a ';' outside any brackets, or the closing brace of a function
// body.
//
// An unmatched '}' closes an enclosing block and is left for the caller
// unless it is the token the failed declaration started at.
func (p *parser) recover() {
	start := p.i
	depth := 0
	var beforeBrace lexer.Token
	for {
		tok := p.next()
		switch {
		case tok.Kind == lexer.EOF:
			return
		case tok.Is("{"), tok.Is("("), tok.Is("["):
			if tok.Is("{") && depth == 0 && p.i >= 2 {
				beforeBrace = p.toks[p.i-2]
			}
			depth++
		case tok.Is("}"), tok.Is(")"), tok.Is("]"):
			if depth == 0 {
				if tok.Is("}") && p.i-1 > start {
					p.i--
				}
				return
			}
			depth--
			if tok.Is("}") && depth == 0 {
				if p.accept(";") || beforeBrace.Is(")") {
					return
				}
			}
		case tok.Is(";") && depth == 0:
			return
		}
	}
}

func (p *parser) externalDeclaration() ([]*ast.Declaration, error) {
	if p.accept(";") {
		return nil, nil
	}

	// extern "C" { ... } and extern "C" declarations are flattened
	if p.peek().Is("extern") && p.peekN(1).Kind == lexer.String {
		p.next()
		linkage := p.next()
		slog.Debug("linkage specification", "linkage", linkage.Text, "pos", linkage.Pos)
		if !p.accept("{") {
			return p.externalDeclaration()
		}

		return p.declarations("}")
	}

	d, err := p.declaration()
	if err != nil {
		return nil, err
	}
	return []*ast.Declaration{d}, nil
}

func (p *parser) declaration() (*ast.Declaration, error) {
	start := p.peek()
	s, err := p.specifiers(true)
	if err != nil {
		return nil, err
	}

	base, err := s.build(p)
	if err != nil {
		return nil, err
	}

	decl := &ast.Declaration{
		Pos:     start.Pos,
		Storage: s.storage,
		Inline:  s.inline,
		Type:    base,
	}

	if p.accept(";") {
		return decl, nil
	}

	for {
		d, err := p.initDeclarator()
		if err != nil {
			return nil, err
		}
		decl.Declarators = append(decl.Declarators, d)

		if len(decl.Declarators) == 1 && d.IsFunction() && p.peek().Is("{") {
			if err := p.skipBody(); err != nil {
				return nil, err
			}
			decl.Definition = true
			return decl, nil
		}

		if p.accept(",") {
			continue
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return decl, nil
	}
}

func (p *parser) initDeclarator() (*ast.Declarator, error) {
	at := p.peek()
	name, pos, derive, err := p.declarator(named)
	if err != nil {
		return nil, err
	}
	if err := p.skipNoise(); err != nil {
		return nil, err
	}

	d := &ast.Declarator{Pos: pos, Name: name, Indirect: derive(nil)}
	if d.Name == "" {
		d.Pos = at.Pos
	}

	if p.accept("=") {
		if p.peek().Is("{") {
			return nil, p.errorf(p.peek(), ErrUnsupported, "brace-enclosed initializer for %s", name)
		}
		d.Init, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (p *parser) skipBody() error {
	open := p.next()
	depth := 1
	for depth > 0 {
		tok := p.next()
		switch {
		case tok.Kind == lexer.EOF:
			return p.errorf(open, ErrSyntax, "unterminated function body")
		case tok.Is("{"):
			depth++
		case tok.Is("}"):
			depth--
		}
	}
	return nil
}
