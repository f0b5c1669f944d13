package emit

import (
	"github.com/hipabi/hdrparse/ast"
)

// Tree converts a translation unit to the node mapping written by every
// format. Key order within a node is kind and qualifiers first. Parameters
// and declarators put their type before the name, and arrays put the
// element type before the length.
func Tree(tu *ast.TranslationUnit) Object {
	o := Object{{"kind", "translation_unit"}}
	if len(tu.Includes) > 0 {
		includes := make([]any, len(tu.Includes))
		for i, inc := range tu.Includes {
			includes[i] = inc
		}
		o.set("includes", includes)
	}

	entities := make([]any, 0, len(tu.Entities))
	for _, d := range tu.Entities {
		entities = append(entities, Declaration(d))
	}
	o.set("entities", entities)
	return o
}

func Declaration(d *ast.Declaration) Object {
	o := Object{{"kind", "declaration"}}
	if d.Storage != ast.StorageNone {
		o.set("storage", ":"+d.Storage.String())
	}
	if d.Inline {
		o.set("inline", true)
	}
	if d.Definition {
		o.set("definition", true)
	}
	o.set("type", Type(d.Type))
	if len(d.Declarators) > 0 {
		o.set("declarators", declarators(d.Declarators))
	}
	return o
}

func declarators(ds []*ast.Declarator) []any {
	s := make([]any, 0, len(ds))
	for _, d := range ds {
		o := Object{{"kind", "declarator"}}
		if d.Indirect != nil {
			o.set("indirect_type", Type(d.Indirect))
		}
		if d.Name != "" {
			o.set("name", d.Name)
		}
		if d.Init != nil {
			o.set("init", Expr(d.Init))
		}
		if d.BitWidth != nil {
			o.set("num_bits", Expr(d.BitWidth))
		}
		s = append(s, o)
	}
	return s
}

func Type(t ast.Type) Object {
	o := Object{{"kind", t.Kind()}}
	if q := t.Quals(); q.Const {
		o.set("const", true)
	}
	if q := t.Quals(); q.Volatile {
		o.set("volatile", true)
	}
	if q := t.Quals(); q.Restrict {
		o.set("restrict", true)
	}

	switch t := t.(type) {
	case *ast.Char:
		if t.Signed != nil {
			o.set("signed", *t.Signed)
		}
	case *ast.Int:
		if t.Longness != 0 {
			o.set("longness", t.Longness)
		}
		if t.Unsigned {
			o.set("unsigned", true)
		}
	case *ast.Float:
		if t.Longness != 0 {
			o.set("longness", t.Longness)
		}
	case *ast.Custom:
		o.set("name", t.Name)
	case *ast.Record:
		if t.Name != "" {
			o.set("name", t.Name)
		}
		if t.Complete {
			members := make([]any, 0, len(t.Members))
			for _, m := range t.Members {
				mo := Object{{"kind", "declaration"}, {"type", Type(m.Type)}}
				if len(m.Declarators) > 0 {
					mo.set("declarators", declarators(m.Declarators))
				}
				members = append(members, mo)
			}
			o.set("members", members)
		}
	case *ast.Enum:
		if t.Name != "" {
			o.set("name", t.Name)
		}
		if t.Complete {
			members := make([]any, 0, len(t.Members))
			for _, m := range t.Members {
				mo := Object{{"kind", "enumerator"}, {"name", m.Name}}
				if m.Value != nil {
					mo.set("val", Expr(m.Value))
				}
				members = append(members, mo)
			}
			o.set("members", members)
		}
	case *ast.Pointer:
		if t.Type != nil {
			o.set("type", Type(t.Type))
		}
	case *ast.Array:
		if t.Type != nil {
			o.set("type", Type(t.Type))
		}
		if t.Length != nil {
			o.set("length", Expr(t.Length))
		}
	case *ast.Function:
		if !t.Unprototyped {
			params := make([]any, 0, len(t.Params))
			for _, p := range t.Params {
				po := Object{{"kind", "parameter"}, {"type", Type(p.Type)}}
				if p.Name != "" {
					po.set("name", p.Name)
				}
				params = append(params, po)
			}
			o.set("params", params)
		}
		if t.Variadic {
			o.set("var_args", true)
		}
		if t.Type != nil {
			o.set("type", Type(t.Type))
		}
	}
	return o
}

func Expr(e ast.Expr) Object {
	o := Object{{"kind", e.Kind()}}
	switch e := e.(type) {
	case *ast.IntLiteral:
		o.set("format", e.Format.String())
		o.set("val", e.Value)
	case *ast.CharLiteral:
		o.set("val", e.Text)
	case *ast.Variable:
		o.set("name", e.Name)
	case *ast.Unary:
		o.set("expr", Expr(e.X))
	case *ast.Binary:
		o.set("expr1", Expr(e.X))
		o.set("expr2", Expr(e.Y))
	case *ast.Conditional:
		o.set("cond", Expr(e.Cond))
		o.set("then", Expr(e.Then))
		o.set("else", Expr(e.Else))
	}
	return o
}
