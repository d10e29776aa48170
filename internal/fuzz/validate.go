package fuzz

import (
	"regexp"
	"strconv"

	"github.com/scry-dev/scry/internal/schema"
)

// Conforms checks an input against the schema's declared
// constraints. The fuzzer records a failing call as a bug only when
// this holds: a failure on a schema-invalid input is the target
// rejecting bad data, which is expected behavior.
func Conforms(s *schema.Schema, input Value) bool {
	named, ok := input.(map[string]Value)
	if !ok {
		// A single positional value is checked against the sole
		// parameter when there is one.
		params := s.ParamsInOrder()
		if len(params) != 1 {
			return false
		}
		return paramConforms(params[0], input)
	}

	for _, p := range s.ParamsInOrder() {
		v, present := named[p.Name]
		if !present {
			if p.Optional == schema.Required {
				return false
			}
			continue
		}
		if !paramConforms(p, v) {
			return false
		}
	}
	return relationshipsHold(s.Relationships, named)
}

func paramConforms(p *schema.ParameterSpec, v Value) bool {
	if v == nil {
		return p.Optional != schema.Required
	}

	switch p.Type {
	case schema.TypeInteger, schema.TypeNumber:
		n, ok := numeric(v)
		if !ok {
			return false
		}
		if p.Min != nil && n < *p.Min {
			return false
		}
		if p.Max != nil && n > *p.Max {
			return false
		}
	case schema.TypeString:
		s, ok := v.(string)
		if !ok {
			return false
		}
		if p.Min != nil && float64(len(s)) < *p.Min {
			return false
		}
		if p.Max != nil && float64(len(s)) > *p.Max {
			return false
		}
		if p.Matches != "" {
			re, err := regexp.Compile(p.Matches)
			if err == nil && !re.MatchString(s) {
				return false
			}
		}
	case schema.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return false
		}
	case schema.TypeArray:
		if _, ok := v.([]Value); !ok {
			return false
		}
	case schema.TypeMap:
		if _, ok := v.(map[string]Value); !ok {
			return false
		}
	}

	if len(p.Enum) > 0 {
		if !enumHas(p.Enum, v) {
			return false
		}
	}
	return true
}

func enumHas(enum []string, v Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}

func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// relationshipsHold checks cross-parameter constraints against a
// named input.
func relationshipsHold(rels []schema.Relationship, named map[string]Value) bool {
	for _, r := range rels {
		switch r.Type {
		case schema.RelMutuallyExclusive:
			set := 0
			for _, name := range r.Params {
				if isSet(named[name]) {
					set++
				}
			}
			if set > 1 {
				return false
			}
		case schema.RelRequiredGroup:
			any := false
			for _, name := range r.Params {
				if isSet(named[name]) {
					any = true
				}
			}
			if !any {
				return false
			}
		case schema.RelConditional, schema.RelDependency:
			if isSet(named[r.If]) && !isSet(named[r.Then]) {
				return false
			}
		case schema.RelValueConditional:
			if s, ok := named[r.If].(string); ok && s == r.Value {
				if !isSet(named[r.Then]) {
					return false
				}
			}
		case schema.RelValueConstraint:
			if !valueConstraintHolds(r, named) {
				return false
			}
		}
	}
	return true
}

func valueConstraintHolds(r schema.Relationship, named map[string]Value) bool {
	if !isSet(named[r.If]) {
		return true
	}
	n, ok := numeric(named[r.Then])
	if !ok {
		// Non-numeric comparisons fall back to string equality.
		s, sok := named[r.Then].(string)
		if !sok {
			return true
		}
		switch r.Operator {
		case "==":
			return s == r.Value
		case "!=":
			return s != r.Value
		}
		return true
	}
	want, ok := numericLiteral(r.Value)
	if !ok {
		return true
	}
	switch r.Operator {
	case "==":
		return n == want
	case "!=":
		return n != want
	case "<":
		return n < want
	case "<=":
		return n <= want
	case ">":
		return n > want
	case ">=":
		return n >= want
	}
	return true
}

func numericLiteral(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// isSet mirrors the definedness notion used during evidence
// collection: nil, false, zero, and empty values count as unset.
func isSet(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int64:
		return val != 0
	case int:
		return val != 0
	case float64:
		return val != 0
	case []Value:
		return len(val) > 0
	case map[string]Value:
		return len(val) > 0
	}
	return true
}
