package parser

import (
	"errors"
	"fmt"

	"github.com/hipabi/hdrparse/lexer"
)

var (
	ErrSyntax      = errors.New("syntax error")
	ErrUnsupported = errors.New("unsupported construct")
)

// Error is a parse failure at a source position. It wraps ErrSyntax or
// ErrUnsupported.
type Error struct {
	Pos lexer.Pos
	Msg string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (p *parser) errorf(tok lexer.Token, kind error, format string, args ...any) error {
	return &Error{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...), Err: kind}
}

func (p *parser) expected(what string) error {
	tok := p.peek()
	return p.errorf(tok, ErrSyntax, "expected %s, found %s", what, tok)
}
