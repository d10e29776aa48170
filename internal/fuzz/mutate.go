package fuzz

import (
	"math/rand"
	"sort"
	"strings"
)

// trickyStrings is the substitution catalog for string mutation:
// values with a track record of shaking out parsing and escaping
// bugs.
var trickyStrings = []string{
	"",
	" ",
	"\t\n\r",
	"\x00",
	"\n",
	strings.Repeat("A", 4096),
	"'; DROP TABLE users;--",
	"<script>alert(1)</script>",
	"../../../etc/passwd",
	"%s%s%s%n",
	"{{}}",
	"\xff\xfe",
	"0",
	"-1",
	"null",
}

// Mutator applies one random type-directed mutation per call.
// Values of unrecognized types pass through unchanged.
type Mutator struct {
	rng *rand.Rand
}

// NewMutator builds a mutator over the given random source.
func NewMutator(rng *rand.Rand) *Mutator {
	return &Mutator{rng: rng}
}

// Mutate dispatches on the dynamic type of v. Input maps mutate one
// random entry value; keys are never touched, since they are
// parameter names rather than data.
func (m *Mutator) Mutate(v Value) Value {
	switch val := v.(type) {
	case int64:
		return m.mutateInt(val)
	case int:
		return m.mutateInt(int64(val))
	case float64:
		return m.mutateFloat(val)
	case string:
		return m.mutateString(val)
	case []Value:
		return m.mutateArray(val)
	case map[string]Value:
		return m.mutateMap(val)
	case bool:
		return !val
	default:
		return v
	}
}

func (m *Mutator) mutateInt(v int64) int64 {
	switch m.rng.Intn(8) {
	case 0:
		return v + 1
	case 1:
		return v - 1
	case 2:
		return v * 2
	case 3:
		if v == 0 {
			return 1
		}
		return v / 2
	case 4:
		return -v
	case 5:
		return 0
	case 6:
		return int64(^uint64(0) >> 1) // max
	default:
		return -int64(^uint64(0)>>1) - 1 // min
	}
}

func (m *Mutator) mutateFloat(v float64) float64 {
	switch m.rng.Intn(4) {
	case 0:
		return v + m.rng.Float64()
	case 1:
		return v - m.rng.Float64()
	case 2:
		return v * (m.rng.Float64()*4 - 2)
	default:
		if m.rng.Intn(2) == 0 {
			return 0
		}
		return -v
	}
}

func (m *Mutator) mutateString(s string) string {
	switch m.rng.Intn(6) {
	case 0: // bit flip
		if len(s) == 0 {
			return s
		}
		b := []byte(s)
		i := m.rng.Intn(len(b))
		b[i] ^= 1 << uint(m.rng.Intn(8))
		return string(b)
	case 1: // insertion
		i := m.rng.Intn(len(s) + 1)
		c := alphabet[m.rng.Intn(len(alphabet))]
		return s[:i] + string(c) + s[i:]
	case 2: // deletion
		if len(s) == 0 {
			return s
		}
		i := m.rng.Intn(len(s))
		return s[:i] + s[i+1:]
	case 3: // truncation
		if len(s) == 0 {
			return s
		}
		return s[:m.rng.Intn(len(s))]
	case 4: // duplication
		return s + s
	default:
		return trickyStrings[m.rng.Intn(len(trickyStrings))]
	}
}

func (m *Mutator) mutateArray(a []Value) []Value {
	out := make([]Value, len(a))
	copy(out, a)
	if len(out) == 0 {
		return out
	}
	switch m.rng.Intn(4) {
	case 0: // mutate one element
		i := m.rng.Intn(len(out))
		out[i] = m.Mutate(out[i])
	case 1: // duplicate one element
		i := m.rng.Intn(len(out))
		out = append(out, out[i])
	case 2: // delete one element
		i := m.rng.Intn(len(out))
		out = append(out[:i], out[i+1:]...)
	default: // empty
		out = out[:0]
	}
	return out
}

func (m *Mutator) mutateMap(in map[string]Value) map[string]Value {
	out := make(map[string]Value, len(in))
	keys := make([]string, 0, len(in))
	for k, v := range in {
		out[k] = v
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return out
	}
	// Deterministic key choice under a seeded source.
	sort.Strings(keys)
	k := keys[m.rng.Intn(len(keys))]
	out[k] = m.Mutate(out[k])
	return out
}
