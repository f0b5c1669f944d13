package ast

// Type is implemented by every type node.
type Type interface {
	Kind() string
	Quals() *Qualifiers
}

type Qualifiers struct {
	Const    bool
	Volatile bool
	Restrict bool
}

func (q *Qualifiers) Quals() *Qualifiers { return q }

func (q Qualifiers) IsZero() bool {
	return !q.Const && !q.Volatile && !q.Restrict
}

type Void struct{ Qualifiers }

type Bool struct{ Qualifiers }

// Char is plain, signed or unsigned char. Signed is nil for plain char.
type Char struct {
	Qualifiers
	Signed *bool
}

// Int covers every integer type. Longness is -1 for short, 0 for int, 1 for
// long and 2 for long long.
type Int struct {
	Qualifiers
	Longness int
	Unsigned bool
}

// Float is float (Longness 0), double (1) or long double (2).
type Float struct {
	Qualifiers
	Longness int
}

// Custom refers to a type by typedef name.
type Custom struct {
	Qualifiers
	Name string
}

// Record is a struct or union. Complete is set when the member list was
// declared at this point rather than just referenced by tag.
type Record struct {
	Qualifiers
	Union    bool
	Name     string
	Members  []*Member
	Complete bool
}

type Enum struct {
	Qualifiers
	Name     string
	Members  []*Enumerator
	Complete bool
}

type Pointer struct {
	Qualifiers
	Type Type
}

type Array struct {
	Qualifiers
	Type   Type
	Length Expr
}

// Function is a function type. Params is nil and Unprototyped is set for an
// empty parameter list, which C leaves unspecified; (void) gives an empty,
// non-nil Params.
type Function struct {
	Qualifiers
	Type         Type
	Params       []*Parameter
	Variadic     bool
	Unprototyped bool
}

func (*Void) Kind() string     { return "void" }
func (*Bool) Kind() string     { return "bool" }
func (*Char) Kind() string     { return "char" }
func (*Int) Kind() string      { return "int" }
func (*Float) Kind() string    { return "float" }
func (*Custom) Kind() string   { return "custom_type" }
func (*Enum) Kind() string     { return "enum" }
func (*Pointer) Kind() string  { return "pointer" }
func (*Array) Kind() string    { return "array" }
func (*Function) Kind() string { return "function" }

func (r *Record) Kind() string {
	if r.Union {
		return "union"
	}
	return "struct"
}

// Target returns the type a derived type refers to, or nil for base types.
func Target(t Type) Type {
	switch t := t.(type) {
	case *Pointer:
		return t.Type
	case *Array:
		return t.Type
	case *Function:
		return t.Type
	}
	return nil
}

// Complete returns the full type of a declarator whose derived part is
// indirect and whose declaration has base type base. indirect is not
// modified.
func Complete(indirect, base Type) Type {
	switch t := indirect.(type) {
	case nil:
		return base
	case *Pointer:
		c := *t
		c.Type = Complete(t.Type, base)
		return &c
	case *Array:
		c := *t
		c.Type = Complete(t.Type, base)
		return &c
	case *Function:
		c := *t
		c.Type = Complete(t.Type, base)
		return &c
	}
	return indirect
}

// Resolve returns the full type of d given its declaration's base type.
func (d *Declarator) Resolve(base Type) Type {
	return Complete(d.Indirect, base)
}

// IsFunction reports whether the declarator declares a function.
func (d *Declarator) IsFunction() bool {
	_, ok := d.Indirect.(*Function)
	return ok
}
