// Package abi derives a symbol table from a declaration tree and compares
// tables for binary compatibility.
package abi

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/hipabi/hdrparse/ast"
)

type Kind string

const (
	KindFunction Kind = "function"
	KindVariable Kind = "variable"
	KindTypedef  Kind = "typedef"
	KindConstant Kind = "constant"
	KindRecord   Kind = "record"
)

// Symbol is one entry of a table. Detail is the canonical form compared by
// Diff and hashed by Fingerprint.
type Symbol struct {
	Kind   Kind
	Name   string
	Detail string
	Pos    ast.Pos
}

type Param struct {
	Name string
	Type string
}

type Function struct {
	Name      string
	Return    string
	Params    []Param
	Variadic  bool
	Signature string
}

type Constant struct {
	Value int64
	// Enum is the enumeration's tag, typedef name or enclosing member path.
	Enum string
}

type Field struct {
	Name string
	Type string
	// Bits is the bit-field width expression, if any.
	Bits string
}

type Record struct {
	Name   string
	Union  bool
	Fields []Field
}

type Table struct {
	Functions map[string]*Function
	Variables map[string]string
	Typedefs  map[string]string
	Constants map[string]Constant
	Records   map[string]*Record

	symbols []Symbol
	seen    map[Kind]map[string]int
}

// Symbols returns every symbol in declaration order.
func (t *Table) Symbols() []Symbol {
	return t.symbols
}

func (t *Table) add(s Symbol) {
	byName, ok := t.seen[s.Kind]
	if !ok {
		byName = make(map[string]int)
		t.seen[s.Kind] = byName
	}

	if i, ok := byName[s.Name]; ok {
		if t.symbols[i].Detail != s.Detail {
			slog.Warn("conflicting redeclaration", "name", s.Name, "kind", s.Kind, "pos", s.Pos, "previous", t.symbols[i].Pos)
			t.symbols[i] = s
		}
		return
	}
	byName[s.Name] = len(t.symbols)
	t.symbols = append(t.symbols, s)
}

// Collect builds the symbol table of tu. Declarations with internal
// linkage are left out. Enumeration constants are evaluated in order.
func Collect(tu *ast.TranslationUnit) (*Table, error) {
	t := &Table{
		Functions: make(map[string]*Function),
		Variables: make(map[string]string),
		Typedefs:  make(map[string]string),
		Constants: make(map[string]Constant),
		Records:   make(map[string]*Record),
		seen:      make(map[Kind]map[string]int),
	}

	for _, decl := range tu.Entities {
		if err := t.declaration(decl); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) declaration(decl *ast.Declaration) error {
	// an untagged type takes the name of the first declarator
	anon := ""
	if len(decl.Declarators) > 0 {
		anon = decl.Declarators[0].Name
	}
	if err := t.definitions(decl.Type, anon, decl.Pos); err != nil {
		return err
	}

	if decl.Storage == ast.StorageStatic {
		return nil
	}

	for _, d := range decl.Declarators {
		full := strip(d.Resolve(reference(decl.Type, anon)))

		switch {
		case decl.Storage == ast.StorageTypedef:
			detail := ast.TypeString(full)
			t.Typedefs[d.Name] = detail
			t.add(Symbol{KindTypedef, d.Name, detail, d.Pos})
		case d.IsFunction():
			fn := function(d.Name, d.Resolve(reference(decl.Type, anon)).(*ast.Function))
			t.Functions[d.Name] = fn
			t.add(Symbol{KindFunction, d.Name, fn.Signature, d.Pos})
		default:
			detail := ast.TypeString(full)
			t.Variables[d.Name] = detail
			t.add(Symbol{KindVariable, d.Name, detail, d.Pos})
		}
	}
	return nil
}

// definitions records the complete records and enumerations in typ and in
// any member types nested within it.
func (t *Table) definitions(typ ast.Type, anon string, pos ast.Pos) error {
	switch typ := typ.(type) {
	case *ast.Enum:
		if !typ.Complete {
			return nil
		}
		owner := name(typ.Name, anon)

		next := int64(0)
		for _, m := range typ.Members {
			v := next
			if m.Value != nil {
				var err error
				v, err = eval(m.Value, t.Constants)
				if err != nil {
					return err
				}
			}
			t.Constants[m.Name] = Constant{Value: v, Enum: owner}
			t.add(Symbol{KindConstant, m.Name, strconv.FormatInt(v, 10), m.Pos})
			next = v + 1
		}
	case *ast.Record:
		if !typ.Complete {
			return nil
		}
		rname := name(typ.Name, anon)

		r := &Record{Name: rname, Union: typ.Union}
		var parts []string
		for i, m := range typ.Members {
			inner := rname + "." + strconv.Itoa(i)
			if len(m.Declarators) > 0 && m.Declarators[0].Name != "" {
				inner = rname + "." + m.Declarators[0].Name
			}
			if err := t.definitions(m.Type, inner, m.Pos); err != nil {
				return err
			}

			base := reference(m.Type, inner)
			if len(m.Declarators) == 0 {
				r.Fields = append(r.Fields, Field{Type: ast.TypeString(base)})
				parts = append(parts, ast.TypeString(base))
				continue
			}
			for _, d := range m.Declarators {
				full := strip(d.Resolve(base))
				f := Field{Name: d.Name, Type: ast.TypeString(full)}
				part := ast.DeclString(full, d.Name)
				if d.BitWidth != nil {
					f.Bits = ast.ExprString(d.BitWidth)
					part += " : " + f.Bits
				}
				r.Fields = append(r.Fields, f)
				parts = append(parts, part)
			}
		}

		if rname == "" {
			return nil
		}
		detail := typ.Kind() + " { " + strings.Join(parts, "; ") + "; }"
		if len(parts) == 0 {
			detail = typ.Kind() + " {}"
		}
		t.Records[rname] = r
		t.add(Symbol{KindRecord, rname, detail, pos})
	}
	return nil
}

func name(tag, anon string) string {
	if tag != "" {
		return tag
	}
	return anon
}

// reference replaces a record or enumeration base type by a reference to
// it, so canonical strings never spell out bodies.
func reference(typ ast.Type, anon string) ast.Type {
	switch typ := typ.(type) {
	case *ast.Record:
		return &ast.Custom{Qualifiers: typ.Qualifiers, Name: typ.Kind() + " " + name(typ.Name, anon)}
	case *ast.Enum:
		return &ast.Custom{Qualifiers: typ.Qualifiers, Name: "enum " + name(typ.Name, anon)}
	}
	return typ
}

// strip drops parameter names, which do not take part in the ABI.
func strip(typ ast.Type) ast.Type {
	switch t := typ.(type) {
	case *ast.Pointer:
		c := *t
		c.Type = strip(t.Type)
		return &c
	case *ast.Array:
		c := *t
		c.Type = strip(t.Type)
		return &c
	case *ast.Function:
		c := *t
		c.Type = strip(t.Type)
		if t.Params != nil {
			c.Params = make([]*ast.Parameter, len(t.Params))
			for i, p := range t.Params {
				c.Params[i] = &ast.Parameter{Type: strip(p.Type)}
			}
		}
		return &c
	}
	return typ
}

func function(n string, fn *ast.Function) *Function {
	f := &Function{
		Name:      n,
		Return:    ast.TypeString(fn.Type),
		Params:    make([]Param, 0, len(fn.Params)),
		Variadic:  fn.Variadic,
		Signature: ast.DeclString(strip(fn), n),
	}
	for _, p := range fn.Params {
		f.Params = append(f.Params, Param{Name: p.Name, Type: ast.TypeString(p.Type)})
	}
	return f
}

// External returns the typedef names tu uses without declaring, in order of
// first use. They normally come from headers tu includes.
func External(tu *ast.TranslationUnit) []string {
	declared := make(map[string]bool)
	for _, decl := range tu.Entities {
		if decl.Storage != ast.StorageTypedef {
			continue
		}
		for _, d := range decl.Declarators {
			declared[d.Name] = true
		}
	}

	var names []string
	ast.Walk(tu, func(node any) bool {
		if c, ok := node.(*ast.Custom); ok && !declared[c.Name] {
			declared[c.Name] = true
			names = append(names, c.Name)
		}
		return true
	})
	return names
}
