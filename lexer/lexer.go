// Package lexer splits C source into preprocessing tokens.
package lexer

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

var ErrLex = errors.New("lexical error")

// Error is a lexical error at a position in the input.
type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *Error) Unwrap() error {
	return ErrLex
}

// punctuators ordered longest first so the scanner takes the longest match.
var punctuators = []string{
	"...", "<<=", ">>=",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"*=", "/=", "%=", "+=", "-=", "&=", "^=", "|=", "##",
	"[", "]", "(", ")", "{", "}", ".", "&", "*", "+", "-", "~", "!",
	"/", "%", "<", ">", "^", "|", "?", ":", ";", "=", ",", "#",
}

type scanner struct {
	src  []byte
	file string
	off  int
	line int
	col  int

	lineStart bool
	space     bool
}

// Scan tokenises src. The returned slice always ends with an EOF token.
// Unterminated quotes and stray bytes become Invalid tokens so that text in
// skipped conditional blocks is tolerated; Token.Err reports them. Only an
// unterminated comment fails the scan.
func Scan(file string, src []byte) ([]Token, error) {
	s := &scanner{
		src:       src,
		file:      file,
		line:      1,
		col:       1,
		lineStart: true,
	}

	var toks []Token
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (s *scanner) pos() Pos {
	return Pos{File: s.file, Line: s.line, Col: s.col}
}

func (s *scanner) peek(n int) byte {
	if s.off+n < len(s.src) {
		return s.src[s.off+n]
	}
	return 0
}

func (s *scanner) advance() byte {
	c := s.src[s.off]
	s.off++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

// skip consumes whitespace, comments and line splices.
func (s *scanner) skip() error {
	for s.off < len(s.src) {
		c := s.peek(0)
		switch {
		case c == '\n':
			s.advance()
			s.lineStart = true
			s.space = false
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			s.advance()
			s.space = true
		case c == '\\' && (s.peek(1) == '\n' || s.peek(1) == '\r' && s.peek(2) == '\n'):
			s.advance()
			if s.peek(0) == '\r' {
				s.advance()
			}
			s.advance()
			s.space = true
		case c == '/' && s.peek(1) == '/':
			for s.off < len(s.src) && s.peek(0) != '\n' {
				s.advance()
			}
			s.space = true
		case c == '/' && s.peek(1) == '*':
			start := s.pos()
			s.advance()
			s.advance()
			for {
				if s.off >= len(s.src) {
					return &Error{Pos: start, Msg: "unterminated comment"}
				}
				if s.peek(0) == '*' && s.peek(1) == '/' {
					s.advance()
					s.advance()
					break
				}
				s.advance()
			}
			s.space = true
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) next() (Token, error) {
	if err := s.skip(); err != nil {
		return Token{}, err
	}

	tok := Token{Pos: s.pos(), LineStart: s.lineStart, Space: s.space}
	s.lineStart = false
	s.space = false

	if s.off >= len(s.src) {
		tok.Kind = EOF
		tok.LineStart = true
		return tok, nil
	}

	start := s.off
	c := s.peek(0)
	switch {
	case isIdentStart(c):
		// wide and unicode string/char prefixes
		if (c == 'L' || c == 'u' || c == 'U') && (s.peek(1) == '"' || s.peek(1) == '\'') {
			s.advance()
			return s.quoted(tok, start)
		}
		for s.off < len(s.src) && isIdentPart(s.peek(0)) {
			s.advance()
		}
		tok.Kind = Ident
	case isDigit(c) || c == '.' && isDigit(s.peek(1)):
		// pp-number: digits, identifier characters, dots and signed exponents
		for s.off < len(s.src) {
			c := s.peek(0)
			if (c == '+' || c == '-') && s.off > start {
				prev := s.src[s.off-1]
				if prev == 'e' || prev == 'E' || prev == 'p' || prev == 'P' {
					s.advance()
					continue
				}
			}
			if !isIdentPart(c) && c != '.' {
				break
			}
			s.advance()
		}
		tok.Kind = Number
	case c == '"' || c == '\'':
		return s.quoted(tok, start)
	default:
		for _, p := range punctuators {
			if bytes.HasPrefix(s.src[s.off:], []byte(p)) {
				for range len(p) {
					s.advance()
				}
				tok.Kind = Punct
				tok.Text = p
				return tok, nil
			}
		}
		_, n := utf8.DecodeRune(s.src[s.off:])
		for range n {
			s.advance()
		}
		tok.Kind = Invalid
	}

	tok.Text = string(s.src[start:s.off])
	return tok, nil
}

func (s *scanner) quoted(tok Token, start int) (Token, error) {
	quote := s.advance()
	tok.Kind = String
	if quote == '\'' {
		tok.Kind = Char
	}

	for {
		if s.off >= len(s.src) || s.peek(0) == '\n' {
			tok.Kind = Invalid
			break
		}
		c := s.advance()
		if c == '\\' && s.off < len(s.src) {
			s.advance()
			continue
		}
		if c == quote {
			break
		}
	}

	tok.Text = string(s.src[start:s.off])
	return tok, nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
