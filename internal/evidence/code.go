package evidence

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// ScanCode produces the code-pattern partial parameter map. Each
// declared parameter is analyzed independently; maxParams bounds the
// scan so degenerate signatures leave the tail unanalyzed instead of
// failing.
func ScanCode(u *source.CallableUnit, maxParams int) map[string]*Finding {
	out := make(map[string]*Finding)
	if u.Decl == nil || u.Decl.Body == nil {
		return out
	}

	analyzed := 0
	for _, p := range u.Params {
		if p.Name == "" || p.Name == "_" {
			continue
		}
		if analyzed >= maxParams {
			break
		}
		analyzed++

		f := &Finding{}
		scanGuards(u, p.Name, f)
		scanDefaults(u, p.Name, f)
		scanMatches(u, p.Name, f)
		scanAssertions(u, p.Name, f)
		if !f.Empty() {
			out[p.Name] = f
		}
	}
	return out
}

// scanGuards reads validation guard clauses for one parameter:
// unset checks in failing branches mark it required; relational
// guards yield min/max bounds.
func scanGuards(u *source.CallableUnit, name string, f *Finding) {
	for _, ifs := range u.IfStmts() {
		if !source.FailsFast(ifs.Body) {
			continue
		}
		for _, part := range conjuncts(ifs.Cond) {
			c, ok := classifyCond(part, name)
			if !ok {
				continue
			}
			switch c.kind {
			case condUnset:
				// Definedness guard before use.
				f.Optional = schema.Required
			case condRel:
				applyRelGuard(c, f)
			}
		}
	}
}

// applyRelGuard converts a failing relational guard into the valid
// range it implies. "if x < 5 { fail }" means valid values satisfy
// x >= 5; strict operators get the off-by-one adjustment.
func applyRelGuard(c cond, f *Finding) {
	v := c.value
	switch c.op {
	case token.LSS: // fails when x < v → min v
		f.Min = &v
	case token.LEQ: // fails when x <= v → min v+1
		v++
		f.Min = &v
	case token.GTR: // fails when x > v → max v
		f.Max = &v
	case token.GEQ: // fails when x >= v → max v-1
		v--
		f.Max = &v
	}
}

// scanDefaults detects the default-value idiom: an unset guard whose
// body assigns the parameter marks it optional.
func scanDefaults(u *source.CallableUnit, name string, f *Finding) {
	for _, ifs := range u.IfStmts() {
		unset := false
		for _, part := range conjuncts(ifs.Cond) {
			if c, ok := classifyCond(part, name); ok && c.kind == condUnset {
				unset = true
			}
		}
		if !unset {
			continue
		}
		if assignsTo(ifs.Body, name) {
			f.Optional = schema.Optional
			return
		}
	}
}

// assignsTo reports whether the block assigns the named variable.
func assignsTo(block *ast.BlockStmt, name string) bool {
	found := false
	ast.Inspect(block, func(n ast.Node) bool {
		assign, ok := n.(*ast.AssignStmt)
		if !ok {
			return true
		}
		for _, lhs := range assign.Lhs {
			if id, ok := lhs.(*ast.Ident); ok && id.Name == name {
				found = true
			}
		}
		return true
	})
	return found
}

// scanMatches detects pattern-match validation of a parameter and
// captures the match expression as a constraint when the pattern
// literal is recoverable.
func scanMatches(u *source.CallableUnit, name string, f *Finding) {
	for _, call := range u.Calls() {
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "MatchString" {
			continue
		}
		if len(call.Args) != 1 {
			continue
		}
		arg, ok := call.Args[0].(*ast.Ident)
		if !ok || arg.Name != name {
			continue
		}
		if pat := patternLiteral(u, sel.X); pat != "" {
			f.Matches = pat
			return
		}
	}
}

// patternLiteral recovers the regexp literal behind a MatchString
// receiver: either an inline regexp.MustCompile("...") call or an
// identifier assigned one inside the unit.
func patternLiteral(u *source.CallableUnit, recv ast.Expr) string {
	switch e := recv.(type) {
	case *ast.CallExpr:
		return compileArg(e)
	case *ast.Ident:
		for _, assign := range u.AssignStmts() {
			for i, lhs := range assign.Lhs {
				id, ok := lhs.(*ast.Ident)
				if !ok || id.Name != e.Name || i >= len(assign.Rhs) {
					continue
				}
				if call, ok := assign.Rhs[i].(*ast.CallExpr); ok {
					if pat := compileArg(call); pat != "" {
						return pat
					}
				}
			}
		}
	}
	return ""
}

// compileArg extracts the string literal from a
// regexp.MustCompile/Compile call.
func compileArg(call *ast.CallExpr) string {
	name := source.CallName(call)
	if name != "regexp.MustCompile" && name != "regexp.Compile" {
		return ""
	}
	if len(call.Args) != 1 {
		return ""
	}
	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return ""
	}
	return strings.Trim(lit.Value, "`\"")
}

// scanAssertions reads type assertions and type switches over the
// parameter as reference/type-check evidence.
func scanAssertions(u *source.CallableUnit, name string, f *Finding) {
	ast.Inspect(u.Decl.Body, func(n ast.Node) bool {
		ta, ok := n.(*ast.TypeAssertExpr)
		if !ok || ta.Type == nil {
			return true
		}
		id, ok := ta.X.(*ast.Ident)
		if !ok || id.Name != name {
			return true
		}
		applyAssertedType(u, ta.Type, f)
		return true
	})

	for _, ts := range u.TypeSwitches() {
		subject := typeSwitchSubject(ts)
		if subject != name {
			continue
		}
		// A type switch proves the parameter is dynamically typed
		// but names no single class; record only when one concrete
		// case exists.
		var caseTypes []ast.Expr
		for _, stmt := range ts.Body.List {
			cc, ok := stmt.(*ast.CaseClause)
			if !ok {
				continue
			}
			caseTypes = append(caseTypes, cc.List...)
		}
		if len(caseTypes) == 1 {
			applyAssertedType(u, caseTypes[0], f)
		}
	}
}

// applyAssertedType maps an asserted type expression onto the
// finding.
func applyAssertedType(u *source.CallableUnit, typ ast.Expr, f *Finding) {
	text := u.Text(typ)
	t, class, generic := canonicalType(text)
	if generic || t == "" {
		return
	}
	f.Type = t
	if class != "" {
		f.Class = class
	}
}

// typeSwitchSubject returns the switched-on identifier name, or "".
func typeSwitchSubject(ts *ast.TypeSwitchStmt) string {
	var expr ast.Expr
	switch s := ts.Assign.(type) {
	case *ast.ExprStmt:
		ta, ok := s.X.(*ast.TypeAssertExpr)
		if !ok {
			return ""
		}
		expr = ta.X
	case *ast.AssignStmt:
		if len(s.Rhs) != 1 {
			return ""
		}
		ta, ok := s.Rhs[0].(*ast.TypeAssertExpr)
		if !ok {
			return ""
		}
		expr = ta.X
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}
