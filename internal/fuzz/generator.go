// Package fuzz implements the coverage-guided, schema-directed
// fuzzer: typed input generation, input mutation, corpus
// persistence, error-isolating invocation, and the fuzzing loop
// itself. All randomness flows through an injected rand.Rand so
// multiple fuzzers can coexist deterministically in tests.
package fuzz

import (
	"math"
	"math/rand"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/schema"
)

// Value is a schema-typed input or output value. Concretely one of
// nil, bool, int64, float64, string, []Value-shaped []any, or
// map[string]any, matching what JSON round-trips.
type Value = any

// Generator produces random schema-conformant inputs.
type Generator struct {
	rng *rand.Rand
	cfg *config.FuzzConfig
}

// NewGenerator builds a generator over the given random source. The
// source is owned by the caller; sharing one across generators gives
// interleaved, not independent, streams.
func NewGenerator(rng *rand.Rand, cfg *config.FuzzConfig) *Generator {
	if cfg == nil {
		cfg = &config.DefaultConfig().Fuzz
	}
	return &Generator{rng: rng, cfg: cfg}
}

// Input generates a full named-parameter input for the schema.
// Required parameters are always present; optional ones appear half
// the time so their absence is exercised too.
func (g *Generator) Input(s *schema.Schema) map[string]Value {
	out := make(map[string]Value)
	for _, p := range s.ParamsInOrder() {
		if p.Optional == schema.Optional && g.rng.Float64() < 0.5 {
			continue
		}
		out[p.Name] = g.Param(p)
	}
	return out
}

// Param generates one value for a parameter spec. A declared
// edge-case value (an enum member) short-circuits generation with
// fixed probability.
func (g *Generator) Param(p *schema.ParameterSpec) Value {
	if len(p.Enum) > 0 && g.rng.Float64() < g.cfg.EdgeCaseProbability {
		return p.Enum[g.rng.Intn(len(p.Enum))]
	}

	switch p.Type {
	case schema.TypeInteger:
		return g.Integer(p.Min, p.Max)
	case schema.TypeNumber:
		return g.Number(p.Min, p.Max)
	case schema.TypeBoolean:
		return g.rng.Intn(2) == 1
	case schema.TypeString:
		return g.String(p.Min, p.Max)
	case schema.TypeArray:
		return g.Array()
	case schema.TypeMap:
		return g.Map()
	case schema.TypeObject, schema.TypeCodeRef:
		// Object construction and callables are the invoker's
		// concern; the generated placeholder is nil.
		return nil
	default:
		return g.anyValue()
	}
}

// integer boundary candidates around the declared range.
func boundaries(min, max float64) []int64 {
	lo, hi := int64(min), int64(max)
	return []int64{lo, lo + 1, 0, -1, 1, hi - 1, hi}
}

// Integer generates a boundary-biased integer within the declared
// bounds, defaulting to a wide signed range.
func (g *Generator) Integer(min, max *float64) int64 {
	lo, hi := rangeOrDefault(min, max, -1<<31, 1<<31)
	if g.rng.Float64() < g.cfg.BoundaryProbability {
		c := boundaries(lo, hi)
		return clampInt(c[g.rng.Intn(len(c))], int64(lo), int64(hi))
	}
	return int64(lo) + g.rng.Int63n(int64(hi-lo)+1)
}

// Number generates a boundary-biased float.
func (g *Generator) Number(min, max *float64) float64 {
	lo, hi := rangeOrDefault(min, max, -1e9, 1e9)
	if g.rng.Float64() < g.cfg.BoundaryProbability {
		c := []float64{lo, hi, 0, -1, 1, lo + math.SmallestNonzeroFloat64, hi - 1}
		v := c[g.rng.Intn(len(c))]
		return clampFloat(v, lo, hi)
	}
	return lo + g.rng.Float64()*(hi-lo)
}

// alphabet mixes printable characters with control bytes so string
// handling is exercised beyond the happy path.
var alphabet = []rune("abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
	" \t\n\r\x00\x01\x1b\"'\\/<>&%{}[]();$`" +
	"äöüß日本語")

// String generates a length-boundary-biased string from the mixed
// alphabet. Min and Max, when set, are read as length bounds.
func (g *Generator) String(min, max *float64) string {
	lo, hi := rangeOrDefault(min, max, 0, 32)
	n := int(lo) + g.rng.Intn(int(hi-lo)+1)
	if g.rng.Float64() < g.cfg.BoundaryProbability {
		lengths := []int{int(lo), int(lo) + 1, 0, int(hi), int(hi) - 1}
		n = lengths[g.rng.Intn(len(lengths))]
		if n < 0 {
			n = 0
		}
	}
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(runes)
}

// Array generates a small array of arbitrary scalars.
func (g *Generator) Array() []Value {
	n := g.rng.Intn(5)
	out := make([]Value, n)
	for i := range out {
		out[i] = g.anyValue()
	}
	return out
}

// Map generates a small string-keyed map of arbitrary scalars.
func (g *Generator) Map() map[string]Value {
	n := g.rng.Intn(5)
	out := make(map[string]Value, n)
	for i := 0; i < n; i++ {
		out[g.String(nil, nil)] = g.anyValue()
	}
	return out
}

// anyValue generates a scalar of random type for untyped slots.
func (g *Generator) anyValue() Value {
	switch g.rng.Intn(4) {
	case 0:
		return g.Integer(nil, nil)
	case 1:
		return g.Number(nil, nil)
	case 2:
		return g.rng.Intn(2) == 1
	default:
		return g.String(nil, nil)
	}
}

func rangeOrDefault(min, max *float64, lo, hi float64) (float64, float64) {
	if min != nil {
		lo = *min
	}
	if max != nil {
		hi = *max
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
