package ast

type Expr interface {
	Kind() string
}

type IntFormat int

const (
	Decimal IntFormat = iota
	Hex
	Octal
	Bin
)

func (f IntFormat) String() string {
	switch f {
	case Hex:
		return "hex"
	case Octal:
		return "oct"
	case Bin:
		return "bin"
	default:
		return "dec"
	}
}

type IntLiteral struct {
	Pos    Pos
	Text   string
	Value  int64
	Format IntFormat
}

type CharLiteral struct {
	Pos   Pos
	Text  string
	Value int64
}

type Variable struct {
	Pos  Pos
	Name string
}

type Unary struct {
	Pos Pos
	Op  string
	X   Expr
}

type Binary struct {
	Pos Pos
	Op  string
	X   Expr
	Y   Expr
}

type Conditional struct {
	Pos  Pos
	Cond Expr
	Then Expr
	Else Expr
}

var unaryKinds = map[string]string{
	"-": "negative",
	"+": "positive",
	"~": "bit_not",
	"!": "not",
}

var binaryKinds = map[string]string{
	"*":  "multiply",
	"/":  "divide",
	"%":  "mod",
	"+":  "add",
	"-":  "subtract",
	"<<": "shift_left",
	">>": "shift_right",
	"<":  "less",
	">":  "more",
	"<=": "less_or_equal",
	">=": "more_or_equal",
	"==": "equal",
	"!=": "not_equal",
	"&":  "bit_and",
	"^":  "bit_xor",
	"|":  "bit_or",
	"&&": "and",
	"||": "or",
}

// BinaryPrec is the binding strength of each binary operator; higher binds
// tighter.
var BinaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (*IntLiteral) Kind() string  { return "int_literal" }
func (*CharLiteral) Kind() string { return "char_literal" }
func (*Variable) Kind() string    { return "variable" }
func (*Conditional) Kind() string { return "conditional" }
func (e *Unary) Kind() string     { return unaryKinds[e.Op] }
func (e *Binary) Kind() string    { return binaryKinds[e.Op] }

// IsUnaryOp reports whether op is a supported prefix operator.
func IsUnaryOp(op string) bool {
	_, ok := unaryKinds[op]
	return ok
}
