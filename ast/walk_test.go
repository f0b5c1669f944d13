package ast

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func label(node any) string {
	switch n := node.(type) {
	case *Declaration:
		return "declaration"
	case *Declarator:
		return "declarator " + n.Name
	case *Parameter:
		return "parameter " + n.Name
	case *Member:
		return "member"
	case *Enumerator:
		return "enumerator " + n.Name
	case *Custom:
		return "custom " + n.Name
	case *Record:
		return "record " + n.Name
	case *Enum:
		return "enum " + n.Name
	case Type:
		return n.Kind()
	case *IntLiteral:
		return fmt.Sprintf("%d", n.Value)
	case *Variable:
		return "variable " + n.Name
	case Expr:
		return n.Kind()
	}
	return fmt.Sprintf("%T", node)
}

func TestWalk(t *testing.T) {
	// struct s { len_t a; }; enum { A, B = A + 1 }; int f(char *p, int n[4]);
	tu := &TranslationUnit{Entities: []*Declaration{
		{Type: &Record{Name: "s", Complete: true, Members: []*Member{
			{Type: &Custom{Name: "len_t"}, Declarators: []*Declarator{{Name: "a"}}},
		}}},
		{Type: &Enum{Complete: true, Members: []*Enumerator{
			{Name: "A"},
			{Name: "B", Value: &Binary{Op: "+", X: &Variable{Name: "A"}, Y: &IntLiteral{Value: 1}}},
		}}},
		{Type: &Int{}, Declarators: []*Declarator{{Name: "f", Indirect: &Function{Params: []*Parameter{
			{Name: "p", Type: &Pointer{Type: &Char{}}},
			{Name: "n", Type: &Array{Type: &Int{}, Length: &IntLiteral{Value: 4}}},
		}}}}},
	}}

	var got []string
	Walk(tu, func(node any) bool {
		got = append(got, label(node))
		return true
	})

	want := []string{
		"*ast.TranslationUnit",
		"declaration", "record s", "member", "custom len_t", "declarator a",
		"declaration", "enum ", "enumerator A", "enumerator B", "add", "variable A", "1",
		"declaration", "int", "declarator f", "function",
		"parameter p", "pointer", "char",
		"parameter n", "array", "int", "4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("visit order mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	tu := &TranslationUnit{Entities: []*Declaration{
		{Type: &Record{Name: "s", Complete: true, Members: []*Member{{Type: &Int{}}}}},
		{Type: &Custom{Name: "handle_t"}},
	}}

	var got []string
	Walk(tu, func(node any) bool {
		got = append(got, label(node))
		_, isRecord := node.(*Record)
		return !isRecord
	})

	assert.Equal(t, []string{"*ast.TranslationUnit", "declaration", "record s", "declaration", "custom handle_t"}, got)
}

func TestIntFormat(t *testing.T) {
	cases := map[IntFormat]string{
		Decimal: "dec",
		Hex:     "hex",
		Octal:   "oct",
		Bin:     "bin",
	}
	for f, want := range cases {
		assert.Equal(t, want, f.String())
	}
}
