package lexer

import (
	"fmt"
	"strings"
)

type Kind int

const (
	EOF Kind = iota
	Ident
	Number
	Char
	String
	Punct
	// Invalid holds text that does not form a token, such as an
	// unterminated quote or a stray byte.
	Invalid
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case Char:
		return "char literal"
	case String:
		return "string literal"
	case Punct:
		return "punctuator"
	case Invalid:
		return "invalid token"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Token is a single preprocessing token. LineStart is set on the first token
// of each logical line, which is how directives are recognised.
type Token struct {
	Kind      Kind
	Text      string
	Pos       Pos
	LineStart bool
	Space     bool
}

func (t Token) Is(text string) bool {
	return t.Kind != String && t.Kind != Char && t.Kind != Invalid && t.Text == text
}

// Err returns the lexical error for an Invalid token and nil for any other.
func (t Token) Err() error {
	if t.Kind != Invalid {
		return nil
	}

	switch text := strings.TrimLeft(t.Text, "LuU"); {
	case strings.HasPrefix(text, `"`):
		return &Error{Pos: t.Pos, Msg: "unterminated string literal"}
	case strings.HasPrefix(text, "'"):
		return &Error{Pos: t.Pos, Msg: "unterminated char literal"}
	default:
		return &Error{Pos: t.Pos, Msg: fmt.Sprintf("unexpected character %q", t.Text)}
	}
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%q", t.Text)
}
