package evidence

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"

	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// ScanRelationships detects cross-parameter constraints from failing
// guard clauses. A guard whose condition mentions exactly two
// declared parameters is classified pairwise; guards over one
// parameter belong to ScanCode. Results are deduplicated by
// canonical signature.
func ScanRelationships(u *source.CallableUnit) []schema.Relationship {
	if u.Decl == nil || u.Decl.Body == nil || len(u.Params) < 2 {
		return nil
	}

	names := make([]string, 0, len(u.Params))
	for _, p := range u.Params {
		if p.Name != "" && p.Name != "_" {
			names = append(names, p.Name)
		}
	}

	var rels []schema.Relationship
	for _, ifs := range u.IfStmts() {
		if !source.FailsFast(ifs.Body) {
			continue
		}
		msg, _ := source.MentionsError(u, ifs.Body)
		rels = append(rels, classifyGuardPair(u, ifs.Cond, names, msg)...)
		rels = append(rels, requiredGroupFromGuard(ifs.Cond, names)...)
	}
	return schema.DedupRelationships(rels)
}

// classifyGuardPair reads an &&-joined failing guard binding exactly
// two parameters and maps it to a relationship.
func classifyGuardPair(u *source.CallableUnit, guard ast.Expr, names []string, msg string) []schema.Relationship {
	parts := conjuncts(guard)
	if len(parts) != 2 {
		return nil
	}

	var bounds []boundCond
	for _, part := range parts {
		matched := false
		for _, name := range names {
			if c, ok := classifyCond(part, name); ok {
				bounds = append(bounds, boundCond{name, c})
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
	}
	if len(bounds) != 2 || bounds[0].name == bounds[1].name {
		return nil
	}

	a, b := bounds[0], bounds[1]

	// die-if-both-set
	if a.c.kind == condSet && b.c.kind == condSet {
		return []schema.Relationship{{
			Type:   schema.RelMutuallyExclusive,
			Params: []string{a.name, b.name},
		}}
	}

	// die-if-A-and-not-B, or a dependency when the error text says
	// "requires".
	if pair, ok := orient(a, b, condSet, condUnset); ok {
		relType := schema.RelConditional
		if strings.Contains(strings.ToLower(msg), "require") {
			relType = schema.RelDependency
		}
		return []schema.Relationship{{
			Type: relType,
			If:   pair[0].name,
			Then: pair[1].name,
		}}
	}

	// die-if-A-equals-literal-and-not-B
	if pair, ok := orient(a, b, condEqLit, condUnset); ok {
		return []schema.Relationship{{
			Type:  schema.RelValueConditional,
			If:    pair[0].name,
			Then:  pair[1].name,
			Value: pair[0].c.lit,
		}}
	}

	// die-if-A-and-B-compares-N: the valid constraint is the
	// negation of the failing comparison.
	if pair, ok := orient(a, b, condSet, condRel); ok {
		return []schema.Relationship{{
			Type:     schema.RelValueConstraint,
			If:       pair[0].name,
			Then:     pair[1].name,
			Operator: invertOperator(pair[1].c.op),
			Value:    formatNumber(pair[1].c.value),
		}}
	}
	if pair, ok := orient(a, b, condSet, condNeqLit); ok {
		return []schema.Relationship{{
			Type:     schema.RelValueConstraint,
			If:       pair[0].name,
			Then:     pair[1].name,
			Operator: "==",
			Value:    pair[1].c.lit,
		}}
	}
	if pair, ok := orient(a, b, condSet, condEqLit); ok {
		return []schema.Relationship{{
			Type:     schema.RelValueConstraint,
			If:       pair[0].name,
			Then:     pair[1].name,
			Operator: "!=",
			Value:    pair[1].c.lit,
		}}
	}
	return nil
}

// requiredGroupFromGuard reads the die-unless-either idiom: a guard
// of ||-joined unset checks over two or more parameters.
func requiredGroupFromGuard(guard ast.Expr, names []string) []schema.Relationship {
	parts := disjuncts(guard)
	if len(parts) < 2 {
		return nil
	}
	var group []string
	for _, part := range parts {
		matched := ""
		for _, name := range names {
			c, ok := classifyCond(part, name)
			if ok && c.kind == condUnset {
				matched = name
				break
			}
		}
		if matched == "" {
			return nil
		}
		group = append(group, matched)
	}
	// All-unset over the whole disjunction only means "at least one
	// required" when the checks cover distinct parameters.
	seen := make(map[string]bool, len(group))
	for _, n := range group {
		if seen[n] {
			return nil
		}
		seen[n] = true
	}
	return []schema.Relationship{{
		Type:   schema.RelRequiredGroup,
		Params: group,
	}}
}

// boundCond is a classified condition bound to a parameter name.
type boundCond struct {
	name string
	c    cond
}

// orient matches the two bound conditions against a kind pair in
// either order, returning them ordered [first, second].
func orient(a, b boundCond, first, second condKind) ([2]boundCond, bool) {
	if a.c.kind == first && b.c.kind == second {
		return [2]boundCond{{a.name, a.c}, {b.name, b.c}}, true
	}
	if b.c.kind == first && a.c.kind == second {
		return [2]boundCond{{b.name, b.c}, {a.name, a.c}}, true
	}
	return [2]boundCond{}, false
}

// invertOperator maps a failing comparison to the constraint valid
// inputs must satisfy.
func invertOperator(op token.Token) string {
	switch op {
	case token.LSS:
		return ">="
	case token.GTR:
		return "<="
	case token.LEQ:
		return ">"
	case token.GEQ:
		return "<"
	case token.EQL:
		return "!="
	case token.NEQ:
		return "=="
	}
	return ""
}

// formatNumber renders a numeric literal without a trailing
// fractional zero.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
