package preproc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hipabi/hdrparse/ast"
	"github.com/hipabi/hdrparse/lexer"
)

// eval evaluates a #if expression. defined operators are resolved before
// macro expansion; identifiers left afterwards evaluate to 0.
func (s *state) eval(at lexer.Token, args []lexer.Token) (int64, error) {
	var resolved []lexer.Token
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if !tok.Is("defined") || tok.Kind != lexer.Ident {
			resolved = append(resolved, tok)
			continue
		}

		var name lexer.Token
		switch {
		case i+1 < len(args) && args[i+1].Kind == lexer.Ident:
			name = args[i+1]
			i++
		case i+3 < len(args) && args[i+1].Is("(") && args[i+2].Kind == lexer.Ident && args[i+3].Is(")"):
			name = args[i+2]
			i += 3
		default:
			return 0, errorf(tok.Pos, "malformed defined operator")
		}

		v := "0"
		if _, ok := s.macros[name.Text]; ok {
			v = "1"
		}
		resolved = append(resolved, lexer.Token{Kind: lexer.Number, Text: v, Pos: tok.Pos})
	}

	expanded, err := s.expand(resolved, map[string]bool{})
	if err != nil {
		return 0, err
	}

	e := &evaluator{toks: expanded, at: at}
	v, err := e.conditional()
	if err != nil {
		return 0, err
	}
	if e.i < len(e.toks) {
		return 0, errorf(e.toks[e.i].Pos, "unexpected %s in #%s expression", e.toks[e.i], at.Text)
	}
	return v, nil
}

type evaluator struct {
	toks []lexer.Token
	i    int
	at   lexer.Token
	// skip is non-zero while parsing an operand whose value is discarded
	skip int
}

func (e *evaluator) peek() lexer.Token {
	if e.i < len(e.toks) {
		return e.toks[e.i]
	}
	return lexer.Token{Kind: lexer.EOF, Pos: e.at.Pos}
}

func (e *evaluator) conditional() (int64, error) {
	c, err := e.binary(1)
	if err != nil {
		return 0, err
	}
	if !e.peek().Is("?") {
		return c, nil
	}
	e.i++
	then, err := e.operand(c == 0, e.conditional)
	if err != nil {
		return 0, err
	}
	if !e.peek().Is(":") {
		return 0, errorf(e.peek().Pos, "expected ':' in conditional expression")
	}
	e.i++
	els, err := e.operand(c != 0, e.conditional)
	if err != nil {
		return 0, err
	}
	if c != 0 {
		return then, nil
	}
	return els, nil
}

func (e *evaluator) binary(min int) (int64, error) {
	x, err := e.unary()
	if err != nil {
		return 0, err
	}

	for {
		op := e.peek()
		prec, ok := ast.BinaryPrec[op.Text]
		if !ok || op.Kind != lexer.Punct || prec < min {
			return x, nil
		}
		e.i++

		short := op.Is("&&") && x == 0 || op.Is("||") && x != 0
		y, err := e.operand(short, func() (int64, error) { return e.binary(prec + 1) })
		if err != nil {
			return 0, err
		}

		x, err = apply(op, x, y)
		if err != nil && e.skip == 0 {
			return 0, err
		}
	}
}

// operand parses an operand with parse. When discard is set, evaluation
// errors inside it are ignored as C does for unevaluated operands.
func (e *evaluator) operand(discard bool, parse func() (int64, error)) (int64, error) {
	if discard {
		e.skip++
		defer func() { e.skip-- }()
	}
	return parse()
}

func (e *evaluator) unary() (int64, error) {
	tok := e.peek()
	switch {
	case tok.Is("!"), tok.Is("~"), tok.Is("-"), tok.Is("+"):
		e.i++
		x, err := e.unary()
		if err != nil {
			return 0, err
		}
		switch tok.Text {
		case "!":
			return b2i(x == 0), nil
		case "~":
			return ^x, nil
		case "-":
			return -x, nil
		}
		return x, nil
	case tok.Is("("):
		e.i++
		x, err := e.conditional()
		if err != nil {
			return 0, err
		}
		if !e.peek().Is(")") {
			return 0, errorf(e.peek().Pos, "expected ')' in #%s expression", e.at.Text)
		}
		e.i++
		return x, nil
	case tok.Kind == lexer.Number:
		e.i++
		v, err := ParseInt(tok.Text)
		if err != nil {
			return 0, errorf(tok.Pos, "invalid integer %s in #%s expression", tok.Text, e.at.Text)
		}
		return v, nil
	case tok.Kind == lexer.Char:
		e.i++
		v, err := CharValue(tok.Text)
		if err != nil {
			return 0, errorf(tok.Pos, "invalid character literal %s", tok.Text)
		}
		return v, nil
	case tok.Kind == lexer.Ident:
		e.i++
		return 0, nil
	default:
		return 0, errorf(tok.Pos, "unexpected %s in #%s expression", tok, e.at.Text)
	}
}

func apply(op lexer.Token, x, y int64) (int64, error) {
	switch op.Text {
	case "||":
		return b2i(x != 0 || y != 0), nil
	case "&&":
		return b2i(x != 0 && y != 0), nil
	case "|":
		return x | y, nil
	case "^":
		return x ^ y, nil
	case "&":
		return x & y, nil
	case "==":
		return b2i(x == y), nil
	case "!=":
		return b2i(x != y), nil
	case "<":
		return b2i(x < y), nil
	case ">":
		return b2i(x > y), nil
	case "<=":
		return b2i(x <= y), nil
	case ">=":
		return b2i(x >= y), nil
	case "<<":
		return x << uint64(y), nil
	case ">>":
		return x >> uint64(y), nil
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/", "%":
		if y == 0 {
			return 0, errorf(op.Pos, "division by zero")
		}
		if op.Text == "/" {
			return x / y, nil
		}
		return x % y, nil
	}
	return 0, errorf(op.Pos, "unsupported operator %s", op.Text)
}

// ParseInt parses a C integer literal, ignoring any u/l suffix.
func ParseInt(text string) (int64, error) {
	s := strings.TrimRight(text, "uUlL")
	if len(s) > 1 && s[0] == '0' && (s[1] == 'b' || s[1] == 'B') {
		v, err := strconv.ParseUint(s[2:], 2, 64)
		return int64(v), err
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// CharValue returns the value of a single-character C literal such as 'a',
// '\n', '\0' or '\x7f'.
func CharValue(text string) (int64, error) {
	s := strings.TrimLeft(text, "LuU8")
	if len(s) < 3 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return 0, strconv.ErrSyntax
	}

	v, rest, err := unescape(s[1 : len(s)-1])
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, fmt.Errorf("multi-character literal %s: %w", text, strconv.ErrSyntax)
	}
	return v, nil
}

// unescape decodes the first character of s, which may be a C escape
// sequence, and returns the remainder.
func unescape(s string) (int64, string, error) {
	if s[0] != '\\' {
		r, n := utf8.DecodeRuneInString(s)
		return int64(r), s[n:], nil
	}
	if len(s) < 2 {
		return 0, "", strconv.ErrSyntax
	}

	switch c := s[1]; c {
	case 'n':
		return '\n', s[2:], nil
	case 't':
		return '\t', s[2:], nil
	case 'r':
		return '\r', s[2:], nil
	case 'a':
		return '\a', s[2:], nil
	case 'b':
		return '\b', s[2:], nil
	case 'f':
		return '\f', s[2:], nil
	case 'v':
		return '\v', s[2:], nil
	case '\\', '\'', '"', '?':
		return int64(c), s[2:], nil
	case 'x':
		n := 2
		for n < len(s) && isHex(s[n]) {
			n++
		}
		if n == 2 {
			return 0, "", strconv.ErrSyntax
		}
		v, err := strconv.ParseUint(s[2:n], 16, 64)
		return int64(v), s[n:], err
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := 1
		for n < len(s) && n < 4 && s[n] >= '0' && s[n] <= '7' {
			n++
		}
		v, err := strconv.ParseUint(s[1:n], 8, 64)
		return int64(v), s[n:], err
	}
	return 0, "", strconv.ErrSyntax
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
