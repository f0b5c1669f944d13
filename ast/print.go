package ast

import (
	"fmt"
	"strings"
)

const indent = "    "

// String renders the unit as C declarations. Parsing the result yields an
// equal tree, apart from positions.
func (tu *TranslationUnit) String() string {
	var p printer
	for _, inc := range tu.Includes {
		fmt.Fprintf(&p.sb, "#include %q\n", inc)
	}
	if len(tu.Includes) > 0 && len(tu.Entities) > 0 {
		p.sb.WriteByte('\n')
	}
	for _, d := range tu.Entities {
		p.declaration(d)
	}
	return p.sb.String()
}

func (d *Declaration) String() string {
	var p printer
	p.declaration(d)
	return strings.TrimSuffix(p.sb.String(), "\n")
}

// TypeString renders t as an abstract declaration, e.g. "const char *".
func TypeString(t Type) string {
	return declString(t, "", 0)
}

// DeclString renders a named declaration of t, e.g. "void (*fn)(int)".
func DeclString(t Type, name string) string {
	return declString(t, name, 0)
}

// ExprString renders e with the minimum parentheses needed.
func ExprString(e Expr) string {
	return exprString(e, 0)
}

type printer struct {
	sb    strings.Builder
	depth int
}

func (p *printer) declaration(d *Declaration) {
	p.sb.WriteString(strings.Repeat(indent, p.depth))
	if d.Storage != StorageNone {
		p.sb.WriteString(d.Storage.String())
		p.sb.WriteByte(' ')
	}
	if d.Inline {
		p.sb.WriteString("inline ")
	}

	p.sb.WriteString(spec(d.Type, p.depth))
	p.declarators(d.Declarators)

	if d.Definition {
		p.sb.WriteString(" {}\n")
		return
	}
	p.sb.WriteString(";\n")
}

func (p *printer) declarators(ds []*Declarator) {
	for i, d := range ds {
		if i > 0 {
			p.sb.WriteByte(',')
		}
		s := declarator(d.Indirect, d.Name, p.depth)
		if s != "" {
			p.sb.WriteByte(' ')
			p.sb.WriteString(s)
		}
		if d.BitWidth != nil {
			p.sb.WriteString(" : ")
			p.sb.WriteString(ExprString(d.BitWidth))
		}
		if d.Init != nil {
			p.sb.WriteString(" = ")
			p.sb.WriteString(ExprString(d.Init))
		}
	}
}

func declString(t Type, name string, depth int) string {
	base := t
	for Target(base) != nil {
		base = Target(base)
	}
	s := spec(base, depth)
	if d := declarator(t, name, depth); d != "" {
		s += " " + d
	}
	return s
}

func quals(q *Qualifiers) string {
	var parts []string
	if q.Const {
		parts = append(parts, "const")
	}
	if q.Volatile {
		parts = append(parts, "volatile")
	}
	if q.Restrict {
		parts = append(parts, "restrict")
	}
	return strings.Join(parts, " ")
}

// spec renders the specifier part of a base type.
func spec(t Type, depth int) string {
	var s string
	switch t := t.(type) {
	case *Void:
		s = "void"
	case *Bool:
		s = "_Bool"
	case *Char:
		s = "char"
		if t.Signed != nil {
			if *t.Signed {
				s = "signed char"
			} else {
				s = "unsigned char"
			}
		}
	case *Int:
		s = [...]string{"short", "int", "long", "long long"}[t.Longness+1]
		if t.Unsigned {
			s = "unsigned " + s
		}
	case *Float:
		s = [...]string{"float", "double", "long double"}[t.Longness]
	case *Custom:
		s = t.Name
	case *Record:
		s = record(t, depth)
	case *Enum:
		s = enum(t, depth)
	case nil:
		return ""
	default:
		s = TypeString(t)
	}

	if q := quals(t.Quals()); q != "" {
		return q + " " + s
	}
	return s
}

func record(r *Record, depth int) string {
	s := r.Kind()
	if r.Name != "" {
		s += " " + r.Name
	}
	if !r.Complete {
		return s
	}

	p := printer{depth: depth + 1}
	p.sb.WriteString(s)
	p.sb.WriteString(" {\n")
	for _, m := range r.Members {
		p.sb.WriteString(strings.Repeat(indent, p.depth))
		p.sb.WriteString(spec(m.Type, p.depth))
		p.declarators(m.Declarators)
		p.sb.WriteString(";\n")
	}
	p.sb.WriteString(strings.Repeat(indent, depth))
	p.sb.WriteString("}")
	return p.sb.String()
}

func enum(e *Enum, depth int) string {
	s := "enum"
	if e.Name != "" {
		s += " " + e.Name
	}
	if !e.Complete {
		return s
	}

	var sb strings.Builder
	sb.WriteString(s)
	sb.WriteString(" {\n")
	for i, m := range e.Members {
		sb.WriteString(strings.Repeat(indent, depth+1))
		sb.WriteString(m.Name)
		if m.Value != nil {
			sb.WriteString(" = ")
			sb.WriteString(ExprString(m.Value))
		}
		if i < len(e.Members)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Repeat(indent, depth))
	sb.WriteString("}")
	return sb.String()
}

// declarator renders the derived part of a type around name, working
// outwards from the name.
func declarator(t Type, name string, depth int) string {
	switch t := t.(type) {
	case *Pointer:
		s := "*"
		if q := quals(&t.Qualifiers); q != "" {
			s += " " + q
			if name != "" {
				s += " "
			}
		}
		s += name
		switch t.Type.(type) {
		case *Array, *Function:
			s = "(" + s + ")"
		}
		return declarator(t.Type, s, depth)
	case *Array:
		s := name + "["
		if q := quals(&t.Qualifiers); q != "" {
			s += q + " "
		}
		if t.Length != nil {
			s += ExprString(t.Length)
		}
		return declarator(t.Type, s+"]", depth)
	case *Function:
		return declarator(t.Type, name+"("+params(t, depth)+")", depth)
	}
	return name
}

func params(f *Function, depth int) string {
	if f.Unprototyped {
		return ""
	}
	if len(f.Params) == 0 && !f.Variadic {
		return "void"
	}

	parts := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		parts = append(parts, declString(p.Type, p.Name, depth))
	}
	if f.Variadic {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

func exprString(e Expr, prec int) string {
	switch e := e.(type) {
	case *IntLiteral:
		return e.Text
	case *CharLiteral:
		return e.Text
	case *Variable:
		return e.Name
	case *Unary:
		x := exprString(e.X, 11)
		if strings.HasPrefix(x, e.Op) {
			x = "(" + x + ")"
		}
		return e.Op + x
	case *Binary:
		p := BinaryPrec[e.Op]
		s := exprString(e.X, p) + " " + e.Op + " " + exprString(e.Y, p+1)
		if p < prec {
			return "(" + s + ")"
		}
		return s
	case *Conditional:
		s := exprString(e.Cond, 1) + " ? " + exprString(e.Then, 0) + " : " + exprString(e.Else, 0)
		if prec > 0 {
			return "(" + s + ")"
		}
		return s
	}
	return ""
}
