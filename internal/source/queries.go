package source

import (
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
	"strings"
)

// IfStmts returns every if statement in the callable body, in
// lexical order.
func (u *CallableUnit) IfStmts() []*ast.IfStmt {
	var out []*ast.IfStmt
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		if s, ok := n.(*ast.IfStmt); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

// ReturnStmts returns every return statement in the callable body.
func (u *CallableUnit) ReturnStmts() []*ast.ReturnStmt {
	var out []*ast.ReturnStmt
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		// Do not descend into nested function literals: their
		// returns belong to the literal, not the callable.
		if _, ok := n.(*ast.FuncLit); ok {
			return false
		}
		if s, ok := n.(*ast.ReturnStmt); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

// AssignStmts returns every assignment in the callable body.
func (u *CallableUnit) AssignStmts() []*ast.AssignStmt {
	var out []*ast.AssignStmt
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		if s, ok := n.(*ast.AssignStmt); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

// Comparisons returns every relational or equality binary expression
// in the callable body.
func (u *CallableUnit) Comparisons() []*ast.BinaryExpr {
	var out []*ast.BinaryExpr
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		be, ok := n.(*ast.BinaryExpr)
		if !ok {
			return true
		}
		switch be.Op {
		case token.LSS, token.GTR, token.LEQ, token.GEQ, token.EQL, token.NEQ:
			out = append(out, be)
		}
		return true
	})
	return out
}

// Calls returns every call expression in the callable body.
func (u *CallableUnit) Calls() []*ast.CallExpr {
	var out []*ast.CallExpr
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		if c, ok := n.(*ast.CallExpr); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// SwitchStmts returns every switch statement in the callable body.
func (u *CallableUnit) SwitchStmts() []*ast.SwitchStmt {
	var out []*ast.SwitchStmt
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		if s, ok := n.(*ast.SwitchStmt); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

// TypeSwitches returns every type switch statement in the callable
// body.
func (u *CallableUnit) TypeSwitches() []*ast.TypeSwitchStmt {
	var out []*ast.TypeSwitchStmt
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		if s, ok := n.(*ast.TypeSwitchStmt); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}

// Text renders any AST node within the unit back to source text.
func (u *CallableUnit) Text(node ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, u.Fset, node); err != nil {
		return ""
	}
	return buf.String()
}

// CallName returns the dotted name of a call target: "os.Stat" for
// os.Stat(x), "x.Close" for x.Close(), "New" for New(). Empty for
// dynamic calls.
func CallName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		if x, ok := fn.X.(*ast.Ident); ok {
			return x.Name + "." + fn.Sel.Name
		}
		return fn.Sel.Name
	}
	return ""
}

// FailsFast reports whether a block's first statements abort the
// callable: a return carrying an error-ish value, a panic, or a call
// to a fatal logger. Guard clauses of this shape mark the guarded
// condition as a validation failure path.
func FailsFast(block *ast.BlockStmt) bool {
	if block == nil || len(block.List) == 0 {
		return false
	}
	for _, stmt := range block.List {
		switch s := stmt.(type) {
		case *ast.ReturnStmt:
			return returnsFailure(s)
		case *ast.ExprStmt:
			call, ok := s.X.(*ast.CallExpr)
			if !ok {
				continue
			}
			name := CallName(call)
			if name == "panic" || strings.HasSuffix(name, ".Fatal") ||
				strings.HasSuffix(name, ".Fatalf") {
				return true
			}
		case *ast.BranchStmt:
			// continue/break guards do not abort the callable.
			return false
		}
	}
	return false
}

// returnsFailure distinguishes failure-shaped returns (error values,
// all-zero results, bare returns) from success early-outs.
func returnsFailure(ret *ast.ReturnStmt) bool {
	if len(ret.Results) == 0 {
		return true
	}
	allZero := true
	for _, res := range ret.Results {
		if isErrorish(res) {
			return true
		}
		if !isZeroLiteral(res) {
			allZero = false
		}
	}
	return allZero
}

// isErrorish recognizes expressions that construct or forward an
// error value.
func isErrorish(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident:
		return strings.HasPrefix(e.Name, "err") || strings.HasPrefix(e.Name, "Err")
	case *ast.CallExpr:
		name := CallName(e)
		return name == "errors.New" || name == "fmt.Errorf"
	}
	return false
}

// isZeroLiteral recognizes nil, 0, "", and false.
func isZeroLiteral(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name == "nil" || e.Name == "false"
	case *ast.BasicLit:
		switch e.Kind {
		case token.INT:
			return e.Value == "0"
		case token.FLOAT:
			return e.Value == "0" || e.Value == "0.0"
		case token.STRING:
			return e.Value == `""` || e.Value == "``"
		}
	}
	return false
}

// MentionsError reports whether a failing block's return or panic
// carries an error value or message text. The message text, when
// present, is returned for relationship detection.
func MentionsError(u *CallableUnit, block *ast.BlockStmt) (string, bool) {
	if block == nil {
		return "", false
	}
	for _, stmt := range block.List {
		switch s := stmt.(type) {
		case *ast.ReturnStmt:
			for _, res := range s.Results {
				if msg, ok := errorMessage(u, res); ok {
					return msg, true
				}
			}
		case *ast.ExprStmt:
			call, ok := s.X.(*ast.CallExpr)
			if !ok {
				continue
			}
			if CallName(call) == "panic" && len(call.Args) == 1 {
				if msg, ok := errorMessage(u, call.Args[0]); ok {
					return msg, true
				}
				return u.Text(call.Args[0]), true
			}
		}
	}
	return "", false
}

// errorMessage extracts the message text from an error-constructing
// expression: errors.New("..."), fmt.Errorf("...", ...), or a bare
// string literal.
func errorMessage(u *CallableUnit, expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			return strings.Trim(e.Value, "`\""), true
		}
	case *ast.CallExpr:
		name := CallName(e)
		if name != "errors.New" && name != "fmt.Errorf" {
			return "", false
		}
		if len(e.Args) == 0 {
			return "", false
		}
		if lit, ok := e.Args[0].(*ast.BasicLit); ok && lit.Kind == token.STRING {
			return strings.Trim(lit.Value, "`\""), true
		}
	}
	return "", false
}
