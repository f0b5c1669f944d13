// Package preproc implements the subset of the C preprocessor that public
// headers rely on: include guards, conditional blocks and macro expansion.
// Includes are recorded but never followed.
package preproc

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hipabi/hdrparse/lexer"
	"github.com/hipabi/hdrparse/logutil"
)

var ErrPreprocessor = errors.New("preprocessor error")

type Error struct {
	Pos lexer.Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *Error) Unwrap() error {
	return ErrPreprocessor
}

func errorf(pos lexer.Pos, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

type Macro struct {
	Name     string
	FuncLike bool
	Params   []string
	Variadic bool
	Body     []lexer.Token
}

// Result is the output of a preprocessor run.
type Result struct {
	Tokens   []lexer.Token
	Includes []string
	Macros   map[string]*Macro
}

type cond struct {
	pos lexer.Pos
	// active is true while tokens in the current branch are emitted
	active bool
	// taken is true once any branch of the group has been selected
	taken   bool
	sawElse bool
	parent  bool
}

type state struct {
	toks     []lexer.Token
	i        int
	macros   map[string]*Macro
	conds    []cond
	out      []lexer.Token
	includes []string
}

// Run preprocesses toks. Each entry in defines is a predefined object-like
// macro; an empty value defines it as 1.
func Run(toks []lexer.Token, defines map[string]string) (*Result, error) {
	s := &state{toks: toks, macros: make(map[string]*Macro)}
	for name, value := range defines {
		if err := s.predefine(name, value); err != nil {
			return nil, err
		}
	}

	for s.i < len(s.toks) {
		tok := s.toks[s.i]
		if tok.Kind == lexer.EOF {
			break
		}

		if tok.LineStart && tok.Is("#") {
			line := s.line()
			if err := s.directive(tok, line); err != nil {
				return nil, err
			}
			continue
		}

		s.i++
		if !s.active() {
			continue
		}

		if m, ok := s.macros[tok.Text]; ok && tok.Kind == lexer.Ident {
			expanded, err := s.invoke(tok, m, map[string]bool{})
			if err != nil {
				return nil, err
			}
			s.out = append(s.out, expanded...)
			continue
		}

		s.out = append(s.out, tok)
	}

	if len(s.conds) > 0 {
		return nil, errorf(s.conds[len(s.conds)-1].pos, "unterminated conditional directive")
	}
	if err := invalid(s.out); err != nil {
		return nil, err
	}

	eof := lexer.Token{Kind: lexer.EOF, LineStart: true}
	if n := len(s.toks); n > 0 {
		eof = s.toks[n-1]
	}

	return &Result{
		Tokens:   append(s.out, eof),
		Includes: s.includes,
		Macros:   s.macros,
	}, nil
}

func (s *state) predefine(name, value string) error {
	if value == "" {
		value = "1"
	}
	body, err := lexer.Scan("<command line>", []byte(value))
	if err != nil {
		return err
	}
	if err := invalid(body); err != nil {
		return err
	}
	s.macros[name] = &Macro{Name: name, Body: body[:len(body)-1]}
	return nil
}

func (s *state) active() bool {
	return len(s.conds) == 0 || s.conds[len(s.conds)-1].active
}

// line consumes the directive starting at s.i and returns its tokens after
// the leading '#'.
func (s *state) line() []lexer.Token {
	s.i++
	start := s.i
	for s.i < len(s.toks) && !s.toks[s.i].LineStart {
		s.i++
	}
	return s.toks[start:s.i]
}

func (s *state) directive(hash lexer.Token, line []lexer.Token) error {
	if len(line) == 0 {
		return nil
	}

	name := line[0].Text
	args := line[1:]

	switch name {
	case "if", "ifdef", "ifndef":
		c := cond{pos: hash.Pos, parent: s.active()}
		if c.parent {
			ok, err := s.test(name, line[0], args)
			if err != nil {
				return err
			}
			c.active, c.taken = ok, ok
		}
		s.conds = append(s.conds, c)
		return nil
	case "elif":
		c, err := s.top(line[0])
		if err != nil {
			return err
		}
		if c.sawElse {
			return errorf(line[0].Pos, "#elif after #else")
		}
		c.active = false
		if c.parent && !c.taken {
			ok, err := s.test("if", line[0], args)
			if err != nil {
				return err
			}
			c.active, c.taken = ok, ok
		}
		return nil
	case "else":
		c, err := s.top(line[0])
		if err != nil {
			return err
		}
		if c.sawElse {
			return errorf(line[0].Pos, "#else after #else")
		}
		c.sawElse = true
		c.active = c.parent && !c.taken
		c.taken = true
		return nil
	case "endif":
		if _, err := s.top(line[0]); err != nil {
			return err
		}
		s.conds = s.conds[:len(s.conds)-1]
		return nil
	}

	if !s.active() {
		return nil
	}
	if name != "error" && name != "warning" {
		if err := invalid(args); err != nil {
			return err
		}
	}

	switch name {
	case "define":
		return s.define(line[0], args)
	case "undef":
		if len(args) == 0 || args[0].Kind != lexer.Ident {
			return errorf(line[0].Pos, "#undef expects a macro name")
		}
		delete(s.macros, args[0].Text)
	case "include", "include_next":
		path := includePath(args)
		if path == "" {
			return errorf(line[0].Pos, "#%s expects a file name", name)
		}
		slog.Debug("include not followed", "path", path, "pos", line[0].Pos)
		s.includes = append(s.includes, path)
	case "error":
		return errorf(line[0].Pos, "#error %s", join(args))
	case "warning":
		slog.Warn("#warning", "pos", line[0].Pos, "message", join(args))
	case "pragma", "line", "ident":
	default:
		return errorf(line[0].Pos, "unknown directive #%s", name)
	}
	return nil
}

func (s *state) top(tok lexer.Token) (*cond, error) {
	if len(s.conds) == 0 {
		return nil, errorf(tok.Pos, "#%s without #if", tok.Text)
	}
	return &s.conds[len(s.conds)-1], nil
}

// invalid returns the error of the first Invalid token in toks.
func invalid(toks []lexer.Token) error {
	for _, tok := range toks {
		if err := tok.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) test(kind string, at lexer.Token, args []lexer.Token) (bool, error) {
	switch kind {
	case "ifdef", "ifndef":
		if len(args) == 0 || args[0].Kind != lexer.Ident {
			return false, errorf(at.Pos, "#%s expects a macro name", kind)
		}
		_, ok := s.macros[args[0].Text]
		return ok == (kind == "ifdef"), nil
	}

	if len(args) == 0 {
		return false, errorf(at.Pos, "#%s with no expression", at.Text)
	}

	v, err := s.eval(at, args)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (s *state) define(at lexer.Token, args []lexer.Token) error {
	if len(args) == 0 || args[0].Kind != lexer.Ident {
		return errorf(at.Pos, "#define expects a macro name")
	}

	m := &Macro{Name: args[0].Text}
	rest := args[1:]

	// a '(' directly after the name starts a parameter list
	if len(rest) > 0 && rest[0].Is("(") && !rest[0].Space {
		m.FuncLike = true
		i := 1
		for {
			if i >= len(rest) {
				return errorf(at.Pos, "unterminated parameter list for macro %s", m.Name)
			}
			tok := rest[i]
			i++
			switch {
			case tok.Is(")"):
			case tok.Is("..."):
				m.Variadic = true
				m.Params = append(m.Params, "__VA_ARGS__")
				continue
			case tok.Is(","):
				continue
			case tok.Kind == lexer.Ident:
				m.Params = append(m.Params, tok.Text)
				continue
			default:
				return errorf(tok.Pos, "unexpected %s in parameters of macro %s", tok, m.Name)
			}
			break
		}
		rest = rest[i:]
	}

	m.Body = rest
	logutil.Trace("define", "name", m.Name, "funclike", m.FuncLike, "body", join(rest))
	s.macros[m.Name] = m
	return nil
}

// invoke expands a macro use whose name token has already been consumed
// from the main stream.
func (s *state) invoke(name lexer.Token, m *Macro, hide map[string]bool) ([]lexer.Token, error) {
	if !m.FuncLike {
		expanded, err := s.expand(relocate(m.Body, name.Pos), with(hide, m.Name))
		if err != nil {
			return nil, err
		}
		return s.rescan(expanded, hide)
	}

	if s.i >= len(s.toks) || !s.toks[s.i].Is("(") {
		// a function-like macro name without arguments is an ordinary identifier
		return []lexer.Token{name}, nil
	}

	args, n, err := collectArgs(name, s.toks[s.i:])
	if err != nil {
		return nil, err
	}
	s.i += n

	expanded, err := s.substitute(name, m, args, hide)
	if err != nil {
		return nil, err
	}
	return s.rescan(expanded, hide)
}

// rescan completes an expansion that ends in the name of a function-like
// macro by taking its arguments from the tokens that follow in the main
// stream, as in
//
//	#define EXPORT API_CALL
//	int EXPORT(foo);
func (s *state) rescan(expanded []lexer.Token, hide map[string]bool) ([]lexer.Token, error) {
	for len(expanded) > 0 {
		last := expanded[len(expanded)-1]
		m, ok := s.macros[last.Text]
		if !ok || !m.FuncLike || last.Kind != lexer.Ident || hide[last.Text] {
			return expanded, nil
		}
		if s.i >= len(s.toks) || !s.toks[s.i].Is("(") {
			return expanded, nil
		}

		args, n, err := collectArgs(last, s.toks[s.i:])
		if err != nil {
			return nil, err
		}
		s.i += n

		tail, err := s.substitute(last, m, args, hide)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded[:len(expanded)-1:len(expanded)-1], tail...)
	}
	return expanded, nil
}

// expand fully macro-expands a token list.
func (s *state) expand(list []lexer.Token, hide map[string]bool) ([]lexer.Token, error) {
	var out []lexer.Token
	for i := 0; i < len(list); i++ {
		tok := list[i]
		m, ok := s.macros[tok.Text]
		if !ok || tok.Kind != lexer.Ident || hide[tok.Text] {
			out = append(out, tok)
			continue
		}

		if !m.FuncLike {
			expanded, err := s.expand(relocate(m.Body, tok.Pos), with(hide, m.Name))
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}

		if i+1 >= len(list) || !list[i+1].Is("(") {
			out = append(out, tok)
			continue
		}

		args, n, err := collectArgs(tok, list[i+1:])
		if err != nil {
			return nil, err
		}
		i += n

		expanded, err := s.substitute(tok, m, args, hide)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func (s *state) substitute(name lexer.Token, m *Macro, args [][]lexer.Token, hide map[string]bool) ([]lexer.Token, error) {
	// f() passes one empty argument
	if len(args) == 1 && len(args[0]) == 0 && len(m.Params) == 0 {
		args = nil
	}

	if m.Variadic {
		fixed := len(m.Params) - 1
		if len(args) < fixed {
			return nil, errorf(name.Pos, "macro %s expects at least %d arguments, got %d", m.Name, fixed, len(args))
		}
		if len(args) > fixed {
			var va []lexer.Token
			for i, arg := range args[fixed:] {
				if i > 0 {
					va = append(va, lexer.Token{Kind: lexer.Punct, Text: ",", Pos: name.Pos})
				}
				va = append(va, arg...)
			}
			args = append(args[:fixed], va)
		} else {
			args = append(args, nil)
		}
	}

	if len(args) != len(m.Params) {
		return nil, errorf(name.Pos, "macro %s expects %d arguments, got %d", m.Name, len(m.Params), len(args))
	}

	params := make(map[string][]lexer.Token, len(m.Params))
	for i, p := range m.Params {
		expanded, err := s.expand(args[i], hide)
		if err != nil {
			return nil, err
		}
		params[p] = expanded
	}

	var body []lexer.Token
	for _, tok := range m.Body {
		if tok.Is("#") || tok.Is("##") {
			return nil, errorf(name.Pos, "macro %s: %s operator is not supported", m.Name, tok.Text)
		}
		if arg, ok := params[tok.Text]; ok && tok.Kind == lexer.Ident {
			body = append(body, arg...)
			continue
		}
		body = append(body, tok)
	}

	return s.expand(relocate(body, name.Pos), with(hide, m.Name))
}

// collectArgs splits a parenthesised argument list. list[0] must be '('.
// It returns the arguments and the number of tokens consumed.
func collectArgs(name lexer.Token, list []lexer.Token) ([][]lexer.Token, int, error) {
	var args [][]lexer.Token
	var cur []lexer.Token
	depth := 0
	for i, tok := range list {
		if i > 0 && tok.LineStart && tok.Is("#") {
			return nil, 0, errorf(tok.Pos, "directive inside arguments of macro %s", name.Text)
		}
		switch {
		case tok.Kind == lexer.EOF:
			return nil, 0, errorf(name.Pos, "unterminated arguments for macro %s", name.Text)
		case tok.Is("("):
			depth++
			if depth == 1 {
				continue
			}
		case tok.Is(")"):
			depth--
			if depth == 0 {
				return append(args, cur), i + 1, nil
			}
		case tok.Is(",") && depth == 1:
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	return nil, 0, errorf(name.Pos, "unterminated arguments for macro %s", name.Text)
}

func relocate(body []lexer.Token, pos lexer.Pos) []lexer.Token {
	out := make([]lexer.Token, len(body))
	for i, tok := range body {
		tok.Pos = pos
		tok.LineStart = false
		out[i] = tok
	}
	return out
}

func with(hide map[string]bool, name string) map[string]bool {
	h := make(map[string]bool, len(hide)+1)
	for k := range hide {
		h[k] = true
	}
	h[name] = true
	return h
}

func includePath(args []lexer.Token) string {
	if len(args) == 0 {
		return ""
	}
	if args[0].Kind == lexer.String {
		return strings.Trim(args[0].Text, `"`)
	}
	if args[0].Is("<") {
		var sb strings.Builder
		for _, tok := range args[1:] {
			if tok.Is(">") {
				return sb.String()
			}
			sb.WriteString(tok.Text)
		}
	}
	return ""
}

func join(toks []lexer.Token) string {
	var sb strings.Builder
	for i, tok := range toks {
		if i > 0 && tok.Space {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Text)
	}
	return sb.String()
}
