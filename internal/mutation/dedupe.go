package mutation

import (
	"fmt"
	"regexp"
	"strings"
)

// identityOp matches additive and subtractive identity idioms in a
// mutated fragment.
var identityOp = regexp.MustCompile(`[+-]\s*0\b`)

// Deduplicate is the fast-mode filter: it drops redundant mutants and
// collapses mutants sharing originating line, original fragment, and
// operator down to the first seen. Outside fast mode every mutant is
// scored. Order is preserved.
func Deduplicate(mutants []*Mutant, fast bool) []*Mutant {
	if !fast {
		return mutants
	}
	seen := make(map[string]bool, len(mutants))
	out := make([]*Mutant, 0, len(mutants))
	for _, m := range mutants {
		if redundant(m) {
			continue
		}
		key := fmt.Sprintf("%d|%s|%s", m.Line, m.Fragment, m.Operator)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// redundant classifies mutants not worth scoring.
func redundant(m *Mutant) bool {
	// No-op transform.
	if m.Fragment == m.Mutated {
		return true
	}
	// Additive/subtractive identity in the replacement.
	if identityOp.MatchString(m.Mutated) && !identityOp.MatchString(m.Fragment) {
		return true
	}
	// Double negation introduced in a conditional context.
	if m.Kind == KindIf && strings.HasPrefix(strings.TrimSpace(m.Fragment), "!") {
		return true
	}
	// Negating a bare boolean literal.
	if m.Fragment == "true" || m.Fragment == "false" {
		return true
	}
	// Comparisons of identical operands flip to an equally constant
	// result.
	if m.equalOperands {
		return true
	}
	return false
}
