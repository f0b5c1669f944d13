package abi

import (
	"errors"
	"fmt"

	"github.com/hipabi/hdrparse/ast"
)

var ErrConstant = errors.New("invalid constant expression")

type evalError struct {
	pos ast.Pos
	msg string
}

func (e *evalError) Error() string {
	return fmt.Sprintf("%s: %s", e.pos, e.msg)
}

func (e *evalError) Unwrap() error {
	return ErrConstant
}

// eval computes an integer constant expression. Identifiers resolve to
// enumeration constants defined earlier in consts.
func eval(e ast.Expr, consts map[string]Constant) (int64, error) {
	switch e := e.(type) {
	case *ast.IntLiteral:
		return e.Value, nil
	case *ast.CharLiteral:
		return e.Value, nil
	case *ast.Variable:
		c, ok := consts[e.Name]
		if !ok {
			return 0, &evalError{e.Pos, "undefined constant " + e.Name}
		}
		return c.Value, nil
	case *ast.Unary:
		x, err := eval(e.X, consts)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case "-":
			return -x, nil
		case "~":
			return ^x, nil
		case "!":
			return b2i(x == 0), nil
		}
		return x, nil
	case *ast.Conditional:
		c, err := eval(e.Cond, consts)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return eval(e.Then, consts)
		}
		return eval(e.Else, consts)
	case *ast.Binary:
		return binary(e, consts)
	}
	return 0, fmt.Errorf("%w: %T", ErrConstant, e)
}

func binary(e *ast.Binary, consts map[string]Constant) (int64, error) {
	x, err := eval(e.X, consts)
	if err != nil {
		return 0, err
	}

	// the right operand of a short-circuit operator is not evaluated
	switch {
	case e.Op == "&&" && x == 0:
		return 0, nil
	case e.Op == "||" && x != 0:
		return 1, nil
	}

	y, err := eval(e.Y, consts)
	if err != nil {
		return 0, err
	}

	switch e.Op {
	case "&&", "||":
		return b2i(y != 0), nil
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
	case "<<", ">>":
		if y < 0 || y > 63 {
			return 0, &evalError{e.Pos, fmt.Sprintf("shift count %d out of range", y)}
		}
		if e.Op == "<<" {
			return x << y, nil
		}
		return x >> y, nil
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/", "%":
		if y == 0 {
			return 0, &evalError{e.Pos, "division by zero"}
		}
		if e.Op == "/" {
			return x / y, nil
		}
		return x % y, nil
	}
	return 0, &evalError{e.Pos, "unsupported operator " + e.Op}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
