package ast

// Walk traverses the tree rooted at node depth-first, calling f for each
// node. If f returns false the node's children are skipped. Nil children are
// not visited.
func Walk(node any, f func(any) bool) {
	if node == nil || !f(node) {
		return
	}

	switch n := node.(type) {
	case *TranslationUnit:
		for _, d := range n.Entities {
			Walk(d, f)
		}
	case *Declaration:
		walkType(n.Type, f)
		for _, d := range n.Declarators {
			Walk(d, f)
		}
	case *Declarator:
		walkType(n.Indirect, f)
		walkExpr(n.BitWidth, f)
		walkExpr(n.Init, f)
	case *Member:
		walkType(n.Type, f)
		for _, d := range n.Declarators {
			Walk(d, f)
		}
	case *Parameter:
		walkType(n.Type, f)
	case *Enumerator:
		walkExpr(n.Value, f)
	case *Record:
		for _, m := range n.Members {
			Walk(m, f)
		}
	case *Enum:
		for _, m := range n.Members {
			Walk(m, f)
		}
	case *Pointer:
		walkType(n.Type, f)
	case *Array:
		walkType(n.Type, f)
		walkExpr(n.Length, f)
	case *Function:
		walkType(n.Type, f)
		for _, p := range n.Params {
			Walk(p, f)
		}
	case *Unary:
		walkExpr(n.X, f)
	case *Binary:
		walkExpr(n.X, f)
		walkExpr(n.Y, f)
	case *Conditional:
		walkExpr(n.Cond, f)
		walkExpr(n.Then, f)
		walkExpr(n.Else, f)
	}
}

// typed nils must not reach f
func walkType(t Type, f func(any) bool) {
	if t != nil {
		Walk(t, f)
	}
}

func walkExpr(e Expr, f func(any) bool) {
	if e != nil {
		Walk(e, f)
	}
}
