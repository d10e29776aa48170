// Package evidence scans a callable's documentation, code patterns,
// and declared signature for independent testing signals. Each
// source produces a partial parameter map carrying only the fields
// that source could determine; merging is the job of the merge
// package, never of the collectors.
package evidence

import (
	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/schema"
	"github.com/scry-dev/scry/internal/source"
)

// Finding is one source's partial record for a single parameter.
// Zero values mean "this source said nothing": the merger treats
// absence as meaningful and never fills defaults here.
type Finding struct {
	// Type is the inferred type ("" = not determined).
	Type schema.ParamType

	// Generic marks a type finding derived from a placeholder
	// (any/interface{}); generic findings lose to specific ones
	// regardless of source priority.
	Generic bool

	// Optional is the tri-state optionality ("" = not determined).
	Optional schema.Tri

	// Position is the positional index if this source observed one.
	Position *int

	// Min and Max are numeric or length bounds.
	Min *float64
	Max *float64

	// Matches is a regular-expression constraint.
	Matches string

	// Enum is the set of allowed values, captured verbatim.
	Enum []string

	// Class is the concrete type name for object parameters.
	Class string

	// Semantic and Note tag the parameter with domain meaning.
	Semantic schema.SemanticTag
	Note     string
}

// Empty reports whether the finding carries no information at all.
func (f *Finding) Empty() bool {
	return f.Type == "" && f.Optional == "" && f.Position == nil &&
		f.Min == nil && f.Max == nil && f.Matches == "" &&
		len(f.Enum) == 0 && f.Class == "" && f.Semantic == ""
}

// Sets holds the independent partial maps for one callable, plus the
// return findings and detected relationships. The three maps are
// produced without any cross-merging.
type Sets struct {
	// Doc, Code, and Signature are the per-source partial maps,
	// keyed by parameter name.
	Doc       map[string]*Finding
	Code      map[string]*Finding
	Signature map[string]*Finding

	// Return is the merged-per-source return finding set.
	Return ReturnFindings

	// Relationships are the deduplicated cross-parameter
	// constraints.
	Relationships []schema.Relationship
}

// Collect runs all evidence collectors over one callable. A
// collector that trips on exotic patterns degrades to an empty map
// for that source; it never aborts the extraction pass.
func Collect(u *source.CallableUnit, cfg *config.ExtractConfig) Sets {
	if cfg == nil {
		cfg = &config.DefaultConfig().Extract
	}

	s := Sets{
		Doc:       ScanDoc(u),
		Code:      ScanCode(u, cfg.MaxParams),
		Signature: ScanSignature(u),
		Return:    ScanReturns(u, cfg),
	}
	s.Relationships = ScanRelationships(u)

	// Semantic detection refines the code-source map: it reads the
	// same code patterns and its tags ride the code partial record.
	ScanSemantics(u, s.Code)

	return s
}

// ScanSignature derives a partial map from the declared parameter
// binding. Go signatures always know name, position, and a declared
// type; interface{}/any yields a generic placeholder finding that
// any specific source may override.
func ScanSignature(u *source.CallableUnit) map[string]*Finding {
	out := make(map[string]*Finding, len(u.Params))
	for _, p := range u.Params {
		if p.Name == "" || p.Name == "_" {
			continue
		}
		pos := p.Position
		f := &Finding{Position: &pos}
		f.Type, f.Class, f.Generic = canonicalType(p.TypeExpr)
		out[p.Name] = f
	}
	return out
}

// canonicalType maps a declared Go type expression to the canonical
// type set. The class name is populated for named object types.
func canonicalType(typeExpr string) (schema.ParamType, string, bool) {
	switch typeExpr {
	case "string":
		return schema.TypeString, "", false
	case "bool":
		return schema.TypeBoolean, "", false
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "byte", "rune":
		return schema.TypeInteger, "", false
	case "float32", "float64":
		return schema.TypeNumber, "", false
	case "any", "interface":
		return schema.TypeUnknown, "", true
	case "func":
		return schema.TypeCodeRef, "", false
	case "error":
		return schema.TypeObject, "error", false
	}

	switch {
	case len(typeExpr) > 2 && typeExpr[:2] == "[]":
		return schema.TypeArray, "", false
	case len(typeExpr) > 4 && typeExpr[:4] == "map[":
		return schema.TypeMap, "", false
	case typeExpr == "" || typeExpr == "?":
		return schema.TypeUnknown, "", true
	default:
		class := typeExpr
		if class[0] == '*' {
			class = class[1:]
		}
		return schema.TypeObject, class, false
	}
}
