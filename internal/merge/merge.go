// Package merge folds the independent evidence partial maps into one
// confidence-scored schema per callable. The fold is a fixed
// priority table, not an inference engine: documentation beats code
// patterns beats the declared signature, with one exception for
// generic type placeholders.
package merge

import (
	"strings"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/evidence"
	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// Build merges the collected evidence for one callable into its
// schema. Object-requirement resolution is a separate concern; the
// caller attaches the Instantiation afterwards.
func Build(u *source.CallableUnit, sets evidence.Sets, cfg *config.ExtractConfig) *schema.Schema {
	if cfg == nil {
		cfg = &config.DefaultConfig().Extract
	}

	names := paramNames(sets)
	input := make(map[string]*schema.ParameterSpec, len(names))
	for _, name := range names {
		input[name] = mergeParam(name,
			sets.Doc[name], sets.Code[name], sets.Signature[name])
	}

	s := &schema.Schema{
		Function:      u.Name,
		Module:        u.Package,
		Input:         input,
		Output:        mergeReturn(sets.Return),
		Relationships: sets.Relationships,
		Config: schema.Toggles{
			NamedArgs: namedArgStyle(u),
			Fuzz:      true,
			Mutation:  true,
		},
	}
	s.InputConfidence = inputConfidence(input, &cfg.Confidence)
	s.OutputConfidence = outputConfidence(s.Output, &cfg.Confidence)
	return s
}

// paramNames unions the three source maps, ordered by the declared
// signature first so positional information survives even when only
// a doc finding exists for a name.
func paramNames(sets evidence.Sets) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(m map[string]*evidence.Finding) {
		for name := range m {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	add(sets.Signature)
	add(sets.Doc)
	add(sets.Code)
	return names
}

// mergeParam resolves one parameter from its per-source findings.
// Nil findings are skipped; the priority order is doc, code,
// signature.
func mergeParam(name string, doc, code, sig *evidence.Finding) *schema.ParameterSpec {
	p := &schema.ParameterSpec{Name: name}
	ordered := findings(doc, code, sig)

	p.Type, p.Class = mergeType(ordered)

	for _, f := range ordered {
		if p.Min == nil && f.Min != nil {
			p.Min = f.Min
		}
		if p.Max == nil && f.Max != nil {
			p.Max = f.Max
		}
		if p.Matches == "" && f.Matches != "" {
			p.Matches = f.Matches
		}
		if len(p.Enum) == 0 && len(f.Enum) > 0 {
			p.Enum = f.Enum
		}
		if p.Semantic == "" && f.Semantic != "" {
			p.Semantic = f.Semantic
			p.Note = f.Note
		}
		if p.Class == "" && f.Class != "" {
			p.Class = f.Class
		}
	}

	p.Position = mergePosition(ordered)
	p.Optional = mergeOptionality(doc, code, ordered)
	return p
}

func findings(fs ...*evidence.Finding) []*evidence.Finding {
	out := make([]*evidence.Finding, 0, len(fs))
	for _, f := range fs {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// mergeType picks the highest-priority type, except that a generic
// placeholder never overrides a specific finding from any lower
// priority source.
func mergeType(ordered []*evidence.Finding) (schema.ParamType, string) {
	for _, f := range ordered {
		if f.Type != "" && !f.Generic {
			return f.Type, f.Class
		}
	}
	for _, f := range ordered {
		if f.Type != "" {
			return f.Type, f.Class
		}
	}
	return "", ""
}

// mergePosition resolves position by majority vote with the lowest
// value as tiebreak.
func mergePosition(ordered []*evidence.Finding) *int {
	votes := make(map[int]int)
	for _, f := range ordered {
		if f.Position != nil {
			votes[*f.Position]++
		}
	}
	if len(votes) == 0 {
		return nil
	}
	best := -1
	count := 0
	for pos, n := range votes {
		if n > count || (n == count && pos < best) {
			best = pos
			count = n
		}
	}
	return &best
}

// mergeOptionality applies the resolution order: explicit doc
// declaration, explicit code evidence, default-required when any
// evidence at all exists, unknown otherwise. Unanalyzed parameters
// are never silently classified.
func mergeOptionality(doc, code *evidence.Finding, ordered []*evidence.Finding) schema.Tri {
	if doc != nil && doc.Optional != "" {
		return doc.Optional
	}
	if code != nil && code.Optional != "" {
		return code.Optional
	}
	for _, f := range ordered {
		if !f.Empty() {
			return schema.Required
		}
	}
	return schema.OptionalUnknown
}

// mergeReturn folds the return evidence into a ReturnSpec. A cleared
// boolean score overrides the elected type; the raw score is kept
// either way.
func mergeReturn(rf evidence.ReturnFindings) *schema.ReturnSpec {
	out := &schema.ReturnSpec{
		BooleanScore: rf.BooleanScore,
		ContextAware: rf.ContextAware,
		Convention:   rf.Convention,
	}

	if rf.Doc != nil {
		out.Type = rf.Doc.Type
		out.Class = rf.Doc.Class
	}
	if rf.Code != nil {
		if out.Type == "" {
			out.Type = rf.Code.Type
		}
		if out.Class == "" {
			out.Class = rf.Code.Class
		}
		out.Value = rf.Code.Value
	}
	if rf.Boolean {
		out.Type = schema.TypeBoolean
	}

	if out.Type == "" && out.Value == nil && out.Convention == "" &&
		!out.ContextAware && out.BooleanScore == 0 {
		return nil
	}
	return out
}

// namedArgStyle reports whether the callable is invoked with a
// named-parameter map rather than positional values: the Go shape
// for that is a single map or single options-struct parameter.
func namedArgStyle(u *source.CallableUnit) bool {
	if len(u.Params) != 1 {
		return false
	}
	t := u.Params[0].TypeExpr
	if len(t) >= 4 && t[:4] == "map[" {
		return true
	}
	return len(t) > 0 && t[0] == '*' && strings.HasSuffix(strings.ToLower(t), "options")
}
