package parser

import (
	"strings"

	"github.com/hipabi/hdrparse/ast"
	"github.com/hipabi/hdrparse/lexer"
)

var primitiveWords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true,
}

var spellings = map[string]string{
	"__signed":     "signed",
	"__signed__":   "signed",
	"__const":      "const",
	"__const__":    "const",
	"__volatile":   "volatile",
	"__volatile__": "volatile",
	"__restrict":   "restrict",
	"__restrict__": "restrict",
	"__inline":     "inline",
	"__inline__":   "inline",
}

// noise keywords are accepted and dropped wherever specifiers may appear.
var noise = map[string]bool{
	"__extension__": true,
	"_Noreturn":     true,
	"__cdecl":       true,
	"__stdcall":     true,
	"__fastcall":    true,
	"__thread":      true,
	"_Thread_local": true,
}

// noiseCalls are keywords followed by a parenthesised argument that is
// skipped.
var noiseCalls = map[string]bool{
	"__attribute__": true,
	"__attribute":   true,
	"__declspec":    true,
	"__asm__":       true,
	"__asm":         true,
	"asm":           true,
	"_Alignas":      true,
}

var keywords = map[string]bool{
	"typedef": true, "extern": true, "static": true, "auto": true, "register": true,
	"inline": true, "const": true, "volatile": true, "restrict": true,
	"struct": true, "union": true, "enum": true, "sizeof": true,
	"_Atomic": true,
}

func isKeyword(s string) bool {
	_, spelled := spellings[s]
	return keywords[s] || primitiveWords[s] || noise[s] || noiseCalls[s] || spelled
}

func canonical(s string) string {
	if c, ok := spellings[s]; ok {
		return c
	}
	return s
}

type specs struct {
	first   lexer.Token
	storage ast.Storage
	inline  bool
	quals   ast.Qualifiers
	words   []string
	custom  string
	tagged  ast.Type
}

func (s *specs) hasType() bool {
	return len(s.words) > 0 || s.custom != "" || s.tagged != nil
}

// skipNoise drops attribute-like annotations at the current position.
func (p *parser) skipNoise() error {
	for {
		tok := p.peek()
		switch {
		case tok.Kind != lexer.Ident:
			return nil
		case noise[tok.Text]:
			p.next()
		case noiseCalls[tok.Text]:
			p.next()
			if !p.peek().Is("(") {
				return p.expected("'(' after " + tok.Text)
			}
			if err := p.skipParens(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) skipParens() error {
	open := p.next()
	depth := 1
	for depth > 0 {
		tok := p.next()
		switch {
		case tok.Kind == lexer.EOF:
			return p.errorf(open, ErrSyntax, "unbalanced parentheses")
		case tok.Is("("):
			depth++
		case tok.Is(")"):
			depth--
		}
	}
	return nil
}

// qualifier applies a type qualifier keyword to q and reports whether the
// token was one.
func qualifier(text string, q *ast.Qualifiers) bool {
	switch canonical(text) {
	case "const":
		q.Const = true
	case "volatile":
		q.Volatile = true
	case "restrict":
		q.Restrict = true
	case "_Atomic":
	default:
		return false
	}
	return true
}

func (p *parser) specifiers(allowStorage bool) (*specs, error) {
	s := &specs{first: p.peek()}
	for {
		if err := p.skipNoise(); err != nil {
			return nil, err
		}

		tok := p.peek()
		if tok.Kind != lexer.Ident {
			break
		}
		word := canonical(tok.Text)

		if storage, ok := ast.ParseStorage(word); ok {
			if !allowStorage && storage != ast.StorageRegister {
				return nil, p.errorf(tok, ErrSyntax, "storage class %s not allowed here", word)
			}
			if s.storage != ast.StorageNone {
				return nil, p.errorf(tok, ErrSyntax, "multiple storage classes")
			}
			p.next()
			if storage != ast.StorageRegister {
				s.storage = storage
			}
			continue
		}

		if word == "inline" {
			p.next()
			s.inline = true
			continue
		}

		if qualifier(word, &s.quals) {
			p.next()
			continue
		}

		if primitiveWords[word] {
			if s.custom != "" || s.tagged != nil {
				return nil, p.errorf(tok, ErrSyntax, "unexpected %s after type name", word)
			}
			p.next()
			s.words = append(s.words, word)
			continue
		}

		if word == "struct" || word == "union" || word == "enum" {
			if s.hasType() {
				return nil, p.errorf(tok, ErrSyntax, "unexpected %s after type name", word)
			}
			var err error
			if word == "enum" {
				s.tagged, err = p.enum()
			} else {
				s.tagged, err = p.record(word == "union")
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		if word == "sizeof" {
			return nil, p.errorf(tok, ErrSyntax, "unexpected sizeof")
		}

		// an identifier names a type only until a type has been seen
		if s.hasType() {
			break
		}
		p.next()
		s.custom = tok.Text
	}

	if !s.hasType() {
		return nil, p.errorf(s.first, ErrSyntax, "missing type specifier, found %s", p.peek())
	}
	return s, nil
}

// build turns the collected specifiers into a base type. Primitive words
// may come in any order.
func (s *specs) build(p *parser) (ast.Type, error) {
	var t ast.Type
	switch {
	case s.tagged != nil:
		t = s.tagged
	case s.custom != "":
		t = &ast.Custom{Name: s.custom}
	default:
		var err error
		t, err = primitive(s.words)
		if err != nil {
			return nil, p.errorf(s.first, ErrSyntax, "%v", err)
		}
	}

	q := t.Quals()
	q.Const = q.Const || s.quals.Const
	q.Volatile = q.Volatile || s.quals.Volatile
	q.Restrict = q.Restrict || s.quals.Restrict
	return t, nil
}

type invalidSpecifiers []string

func (e invalidSpecifiers) Error() string {
	return "invalid type specifier combination: " + strings.Join(e, " ")
}

func primitive(words []string) (ast.Type, error) {
	count := make(map[string]int, len(words))
	for _, w := range words {
		count[w]++
	}

	only := func(allowed ...string) bool {
		n := 0
		for _, a := range allowed {
			n += count[a]
		}
		return n == len(words)
	}

	signed, unsigned := count["signed"], count["unsigned"]
	if signed+unsigned > 1 {
		return nil, invalidSpecifiers(words)
	}

	switch {
	case count["void"] == 1 && len(words) == 1:
		return &ast.Void{}, nil
	case count["_Bool"] == 1 && len(words) == 1:
		return &ast.Bool{}, nil
	case count["char"] == 1 && only("char", "signed", "unsigned"):
		c := &ast.Char{}
		if signed+unsigned == 1 {
			v := signed == 1
			c.Signed = &v
		}
		return c, nil
	case count["float"] == 1 && len(words) == 1:
		return &ast.Float{}, nil
	case count["double"] == 1 && only("double", "long") && count["long"] <= 1:
		return &ast.Float{Longness: 1 + count["long"]}, nil
	case only("short", "long", "int", "signed", "unsigned") && len(words) > 0:
		short, long := count["short"], count["long"]
		if count["int"] > 1 || short > 1 || long > 2 || short > 0 && long > 0 {
			return nil, invalidSpecifiers(words)
		}
		return &ast.Int{Longness: long - short, Unsigned: unsigned == 1}, nil
	}
	return nil, invalidSpecifiers(words)
}

func (p *parser) record(union bool) (*ast.Record, error) {
	kw := p.next()
	if err := p.skipNoise(); err != nil {
		return nil, err
	}

	r := &ast.Record{Union: union}
	if tok := p.peek(); tok.Kind == lexer.Ident && !isKeyword(tok.Text) {
		r.Name = p.next().Text
	}

	if !p.accept("{") {
		if r.Name == "" {
			return nil, p.expected(kw.Text + " tag or body")
		}
		return r, nil
	}

	r.Complete = true
	r.Members = []*ast.Member{}
	for !p.accept("}") {
		if p.peek().Kind == lexer.EOF {
			return nil, p.expected("'}' closing " + r.Kind())
		}
		if p.accept(";") {
			continue
		}
		m, err := p.member()
		if err != nil {
			return nil, err
		}
		r.Members = append(r.Members, m)
	}
	return r, p.skipNoise()
}

func (p *parser) member() (*ast.Member, error) {
	start := p.peek()
	s, err := p.specifiers(false)
	if err != nil {
		return nil, err
	}
	base, err := s.build(p)
	if err != nil {
		return nil, err
	}

	m := &ast.Member{Pos: start.Pos, Type: base}
	if p.accept(";") {
		return m, nil
	}

	for {
		at := p.peek()
		d := &ast.Declarator{Pos: at.Pos}
		if !at.Is(":") {
			name, pos, derive, err := p.declarator(named)
			if err != nil {
				return nil, err
			}
			d.Name, d.Pos, d.Indirect = name, pos, derive(nil)
		}
		if p.accept(":") {
			d.BitWidth, err = p.expression()
			if err != nil {
				return nil, err
			}
		}
		if err := p.skipNoise(); err != nil {
			return nil, err
		}
		m.Declarators = append(m.Declarators, d)

		if p.accept(",") {
			continue
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (p *parser) enum() (*ast.Enum, error) {
	p.next()
	if err := p.skipNoise(); err != nil {
		return nil, err
	}

	e := &ast.Enum{}
	if tok := p.peek(); tok.Kind == lexer.Ident && !isKeyword(tok.Text) {
		e.Name = p.next().Text
	}

	if !p.accept("{") {
		if e.Name == "" {
			return nil, p.expected("enum tag or body")
		}
		return e, nil
	}

	e.Complete = true
	e.Members = []*ast.Enumerator{}
	for !p.accept("}") {
		tok := p.peek()
		if tok.Kind != lexer.Ident || isKeyword(tok.Text) {
			return nil, p.expected("enumerator name")
		}
		p.next()

		m := &ast.Enumerator{Pos: tok.Pos, Name: tok.Text}
		if err := p.skipNoise(); err != nil {
			return nil, err
		}
		if p.accept("=") {
			var err error
			m.Value, err = p.expression()
			if err != nil {
				return nil, err
			}
		}
		e.Members = append(e.Members, m)

		if !p.accept(",") && !p.peek().Is("}") {
			return nil, p.expected("',' or '}' in enum")
		}
	}
	return e, p.skipNoise()
}
