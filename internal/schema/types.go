// Package schema defines the normalized parameter/return/relationship
// model produced by extraction and consumed by the fuzzing and
// mutation engines, plus its persistence format.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ParamType is the closed set of inferred parameter types.
type ParamType string

// Canonical parameter types.
const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeMap     ParamType = "map"
	TypeObject  ParamType = "object"
	TypeCodeRef ParamType = "code-reference"
	TypeUnknown ParamType = "unknown"
)

// Generic reports whether the type carries no real information and
// may be overridden by any specific finding during merging.
func (t ParamType) Generic() bool {
	return t == TypeUnknown || t == ""
}

// Tri is the tri-state optionality of a parameter. Unknown is a
// first-class state: a parameter is never silently defaulted to
// required or optional without evidence.
type Tri string

// Optionality states.
const (
	Required        Tri = "required"
	Optional        Tri = "optional"
	OptionalUnknown Tri = "unknown"
)

// SemanticTag refines a parameter type with domain meaning. The set
// is open-ended: downstream consumers treat unrecognized tags as
// informational.
type SemanticTag string

// Semantic tags produced by the evidence collector.
const (
	SemanticDateTime  SemanticTag = "datetime-object"
	SemanticDateStr   SemanticTag = "date-string"
	SemanticTimestamp SemanticTag = "unix-timestamp"
	SemanticFile      SemanticTag = "file-handle"
	SemanticFilePath  SemanticTag = "file-path"
	SemanticCallback  SemanticTag = "callback"
	SemanticEnum      SemanticTag = "enum"
)

// ParameterSpec is the merged specification for one parameter.
type ParameterSpec struct {
	// Name is the parameter name.
	Name string `json:"-"`

	// Type is the inferred canonical type.
	Type ParamType `json:"type"`

	// Optional is the tri-state optionality.
	Optional Tri `json:"optional"`

	// Position is the zero-based positional index, if determinable.
	Position *int `json:"position,omitempty"`

	// Min and Max bound numeric values or string/array lengths.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Matches is a regular expression the value must satisfy.
	Matches string `json:"matches,omitempty"`

	// Enum is the set of allowed values, captured verbatim.
	Enum []string `json:"enum,omitempty"`

	// Class is the concrete type name when Type is object.
	Class string `json:"class,omitempty"`

	// Semantic tags the parameter with domain meaning.
	Semantic SemanticTag `json:"semantic,omitempty"`

	// Note carries an explanation of the semantic tag for
	// downstream consumers.
	Note string `json:"note,omitempty"`
}

// ReturnConvention describes how a callable signals failure.
type ReturnConvention string

// Error-signaling conventions.
const (
	ConventionImplicit ReturnConvention = "implicit-undef"
	ConventionSentinel ReturnConvention = "explicit-sentinel"
	ConventionThrows   ReturnConvention = "throws"
)

// ReturnSpec is the merged specification for a callable's return.
type ReturnSpec struct {
	// Type is the inferred return type.
	Type ParamType `json:"type"`

	// Value is the literal returned when the callable is known to
	// return one constant.
	Value *string `json:"value,omitempty"`

	// Class is the concrete type name for object returns.
	Class string `json:"class,omitempty"`

	// BooleanScore is the weighted boolean-detection total. A
	// boolean classification requires the score to clear the
	// configured threshold; the raw score is kept for inspection.
	BooleanScore int `json:"boolean_score,omitempty"`

	// ContextAware distinguishes multi-value from single-value
	// return shape.
	ContextAware bool `json:"context_aware,omitempty"`

	// Convention is the detected error-signaling convention.
	Convention ReturnConvention `json:"convention,omitempty"`
}

// RelationshipType is the closed set of cross-parameter constraints.
type RelationshipType string

// Relationship types.
const (
	RelMutuallyExclusive RelationshipType = "mutually-exclusive"
	RelRequiredGroup     RelationshipType = "required-group"
	RelConditional       RelationshipType = "conditional-requirement"
	RelDependency        RelationshipType = "dependency"
	RelValueConstraint   RelationshipType = "value-constraint"
	RelValueConditional  RelationshipType = "value-conditional"
)

// Relationship is one detected cross-parameter constraint.
type Relationship struct {
	// Type is the constraint kind.
	Type RelationshipType `json:"type"`

	// Params holds the members of symmetric constraints
	// (mutually-exclusive, required-group).
	Params []string `json:"params,omitempty"`

	// If and Then name the directed pair for conditional,
	// dependency, and value constraints.
	If   string `json:"if,omitempty"`
	Then string `json:"then,omitempty"`

	// Operator and Value qualify value-constraint and
	// value-conditional relationships.
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Canonical returns the deduplication signature: the type plus the
// sorted parameter identities for symmetric constraints, or the
// directed identities plus operator/value for the rest.
func (r Relationship) Canonical() string {
	if len(r.Params) > 0 {
		sorted := make([]string, len(r.Params))
		copy(sorted, r.Params)
		sort.Strings(sorted)
		return fmt.Sprintf("%s:%s", r.Type, strings.Join(sorted, ","))
	}
	return fmt.Sprintf("%s:%s>%s:%s:%s", r.Type, r.If, r.Then, r.Operator, r.Value)
}

// DedupRelationships drops structurally identical relationships,
// preserving first-seen order.
func DedupRelationships(rels []Relationship) []Relationship {
	seen := make(map[string]bool, len(rels))
	out := make([]Relationship, 0, len(rels))
	for _, r := range rels {
		sig := r.Canonical()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, r)
	}
	return out
}

// Confidence is the discrete confidence tier derived from the
// weighted point total of evidence signals.
type Confidence string

// Confidence tiers, weakest first.
const (
	ConfidenceNone    Confidence = "none"
	ConfidenceVeryLow Confidence = "very-low"
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
)

// AtLeast reports whether c is at or above the given tier.
func (c Confidence) AtLeast(min Confidence) bool {
	return confidenceRank(c) >= confidenceRank(min)
}

func confidenceRank(c Confidence) int {
	switch c {
	case ConfidenceVeryLow:
		return 1
	case ConfidenceLow:
		return 2
	case ConfidenceMedium:
		return 3
	case ConfidenceHigh:
		return 4
	default:
		return 0
	}
}

// Instantiation describes the object requirement of a callable:
// which class must be constructed and with which constructor
// parameters. A nil *Instantiation on a Schema means no object is
// required.
type Instantiation struct {
	// Class is the type to instantiate.
	Class string `json:"class"`

	// Params lists the constructor parameter names in order.
	Params []string `json:"params,omitempty"`

	// Required and Optional partition Params by the constructor's
	// own evidence.
	Required []string `json:"required,omitempty"`
	Optional []string `json:"optional,omitempty"`

	// External marks classes whose constructor is not local to the
	// analyzed source; their parameters are unknown, not guessed.
	External bool `json:"external,omitempty"`
}

// Toggles is the small fixed set of boolean test-generation switches
// carried in the persisted schema for downstream emitters.
type Toggles struct {
	// NamedArgs selects the named-parameter-map call style over a
	// single positional value.
	NamedArgs bool `json:"named_args"`

	// Fuzz enables fuzzing for this callable.
	Fuzz bool `json:"fuzz"`

	// Mutation enables mutation scoring for this callable.
	Mutation bool `json:"mutation"`
}

// Schema is the complete, confidence-scored model for one callable.
// Created once by the merger; never mutated afterwards except by
// explicit re-extraction.
type Schema struct {
	// Function is the callable name.
	Function string `json:"function"`

	// Module is the originating package import path.
	Module string `json:"module"`

	// Input maps parameter name to its merged specification.
	Input map[string]*ParameterSpec `json:"input"`

	// Output is the merged return specification.
	Output *ReturnSpec `json:"output,omitempty"`

	// New is the object-instantiation requirement, omitted when
	// none.
	New *Instantiation `json:"new,omitempty"`

	// Relationships lists deduplicated cross-parameter constraints.
	Relationships []Relationship `json:"relationships,omitempty"`

	// Config carries test-generation toggles.
	Config Toggles `json:"config"`

	// InputConfidence and OutputConfidence score the two halves of
	// the schema independently. An unset confidence is omitted so a
	// saved document stays valid against the embedded enum.
	InputConfidence  Confidence `json:"input_confidence,omitempty"`
	OutputConfidence Confidence `json:"output_confidence,omitempty"`
}

// ParamsInOrder returns the parameter specs sorted by position, with
// position-less parameters last in name order. Input map iteration
// order is unspecified; all consumers use this accessor.
func (s *Schema) ParamsInOrder() []*ParameterSpec {
	out := make([]*ParameterSpec, 0, len(s.Input))
	for _, p := range s.Input {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Position, out[j].Position
		switch {
		case pi != nil && pj != nil && *pi != *pj:
			return *pi < *pj
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		default:
			return out[i].Name < out[j].Name
		}
	})
	return out
}
