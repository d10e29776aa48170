package evidence

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"
)

// condKind classifies how a condition constrains one parameter.
type condKind int

const (
	condOther condKind = iota

	// condUnset asserts the parameter has no value (x == nil,
	// x == "", x == 0, len(x) == 0, !x).
	condUnset

	// condSet asserts the parameter has a value (the negations of
	// the above, or a bare boolean use).
	condSet

	// condRel compares the parameter (or its length) against a
	// numeric literal.
	condRel

	// condEqLit compares the parameter for equality against a
	// string literal.
	condEqLit

	// condNeqLit compares the parameter for inequality against a
	// literal (numeric value carried in value, strings in lit).
	condNeqLit
)

// cond is one classified single-parameter condition.
type cond struct {
	kind  condKind
	op    token.Token // for condRel: normalized so the param is on the left
	value float64     // numeric literal for condRel/condNeqLit
	lit   string      // string literal for condEqLit/condNeqLit
	// length marks conditions over len(x) rather than x itself.
	length bool
}

// classifyCond classifies expr as a condition on the named
// parameter. Returns false when the expression involves other
// variables or is not a recognized idiom.
func classifyCond(expr ast.Expr, name string) (cond, bool) {
	switch e := expr.(type) {
	case *ast.ParenExpr:
		return classifyCond(e.X, name)

	case *ast.Ident:
		// Bare boolean use: "if x".
		if e.Name == name {
			return cond{kind: condSet}, true
		}

	case *ast.UnaryExpr:
		if e.Op != token.NOT {
			break
		}
		inner, ok := classifyCond(e.X, name)
		if !ok {
			return cond{}, false
		}
		switch inner.kind {
		case condSet:
			return cond{kind: condUnset}, true
		case condUnset:
			return cond{kind: condSet}, true
		}
		return cond{}, false

	case *ast.BinaryExpr:
		return classifyBinary(e, name)
	}
	return cond{}, false
}

// classifyBinary handles comparison expressions, normalizing operand
// order so the parameter reads on the left.
func classifyBinary(e *ast.BinaryExpr, name string) (cond, bool) {
	lhsParam, lhsLen := refersToParam(e.X, name)
	rhsParam, rhsLen := refersToParam(e.Y, name)

	var lit ast.Expr
	op := e.Op
	isLen := false
	switch {
	case lhsParam && !rhsParam:
		lit = e.Y
		isLen = lhsLen
	case rhsParam && !lhsParam:
		lit = e.X
		op = flipOperand(op)
		isLen = rhsLen
	default:
		return cond{}, false
	}

	switch l := lit.(type) {
	case *ast.Ident:
		if l.Name != "nil" && l.Name != "true" && l.Name != "false" {
			return cond{}, false
		}
		switch {
		case e.Op == token.EQL && l.Name == "nil",
			e.Op == token.EQL && l.Name == "false",
			e.Op == token.NEQ && l.Name == "true":
			return cond{kind: condUnset}, true
		case e.Op == token.NEQ && l.Name == "nil",
			e.Op == token.NEQ && l.Name == "false",
			e.Op == token.EQL && l.Name == "true":
			return cond{kind: condSet}, true
		}
		return cond{}, false

	case *ast.BasicLit:
		switch l.Kind {
		case token.STRING:
			s := strings.Trim(l.Value, "`\"")
			switch op {
			case token.EQL:
				if s == "" {
					return cond{kind: condUnset}, true
				}
				return cond{kind: condEqLit, lit: s}, true
			case token.NEQ:
				if s == "" {
					return cond{kind: condSet}, true
				}
				return cond{kind: condNeqLit, lit: s}, true
			}
		case token.INT, token.FLOAT:
			v, err := strconv.ParseFloat(l.Value, 64)
			if err != nil {
				return cond{}, false
			}
			switch op {
			case token.EQL:
				if v == 0 && !isLen {
					return cond{kind: condUnset}, true
				}
				if v == 0 && isLen {
					return cond{kind: condUnset, length: true}, true
				}
				return cond{kind: condEqLit, lit: l.Value, value: v}, true
			case token.NEQ:
				if v == 0 {
					return cond{kind: condSet, length: isLen}, true
				}
				return cond{kind: condNeqLit, value: v, lit: l.Value}, true
			case token.LSS, token.GTR, token.LEQ, token.GEQ:
				return cond{kind: condRel, op: op, value: v, length: isLen}, true
			}
		}
	}
	return cond{}, false
}

// refersToParam reports whether expr is the named parameter or
// len(param); the second result marks the length form.
func refersToParam(expr ast.Expr, name string) (bool, bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name == name, false
	case *ast.CallExpr:
		fn, ok := e.Fun.(*ast.Ident)
		if !ok || fn.Name != "len" || len(e.Args) != 1 {
			return false, false
		}
		id, ok := e.Args[0].(*ast.Ident)
		return ok && id.Name == name, true
	}
	return false, false
}

// flipOperand mirrors a comparison operator when operands swap sides.
func flipOperand(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GTR
	case token.GTR:
		return token.LSS
	case token.LEQ:
		return token.GEQ
	case token.GEQ:
		return token.LEQ
	default:
		return op
	}
}

// conjuncts flattens a condition into its &&-joined parts.
func conjuncts(expr ast.Expr) []ast.Expr {
	if p, ok := expr.(*ast.ParenExpr); ok {
		return conjuncts(p.X)
	}
	be, ok := expr.(*ast.BinaryExpr)
	if !ok || be.Op != token.LAND {
		return []ast.Expr{expr}
	}
	return append(conjuncts(be.X), conjuncts(be.Y)...)
}
