package fuzz_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/fuzz"
	"github.com/scry-dev/scry/internal/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Function: "Resize",
		Module:   "imaging",
		Input: map[string]*schema.ParameterSpec{
			"width": {
				Name:     "width",
				Type:     schema.TypeInteger,
				Optional: schema.Required,
				Position: intPtr(0),
				Min:      f64Ptr(1),
				Max:      f64Ptr(4096),
			},
			"label": {
				Name:     "label",
				Type:     schema.TypeString,
				Optional: schema.Optional,
				Position: intPtr(1),
			},
		},
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	cfg := &config.DefaultConfig().Fuzz
	s := testSchema()

	a := fuzz.NewGenerator(rand.New(rand.NewSource(42)), cfg)
	b := fuzz.NewGenerator(rand.New(rand.NewSource(42)), cfg)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Input(s), b.Input(s), "same seed must replay the same stream")
	}
}

func TestGeneratorRespectsBounds(t *testing.T) {
	cfg := &config.DefaultConfig().Fuzz
	g := fuzz.NewGenerator(rand.New(rand.NewSource(7)), cfg)
	s := testSchema()

	for i := 0; i < 200; i++ {
		in := g.Input(s)
		w, ok := in["width"]
		require.True(t, ok, "required parameter must always be present")
		n, ok := w.(int64)
		require.True(t, ok, "integer parameter must generate int64, got %T", w)
		assert.GreaterOrEqual(t, n, int64(1))
		assert.LessOrEqual(t, n, int64(4096))
	}
}

func TestGeneratorEnumShortCircuit(t *testing.T) {
	cfg := config.DefaultConfig().Fuzz
	cfg.EdgeCaseProbability = 1.0
	g := fuzz.NewGenerator(rand.New(rand.NewSource(1)), &cfg)

	p := &schema.ParameterSpec{
		Name: "mode",
		Type: schema.TypeString,
		Enum: []string{"r", "w", "rw"},
	}
	for i := 0; i < 20; i++ {
		v := g.Param(p)
		assert.Contains(t, []any{"r", "w", "rw"}, v)
	}
}

func TestMutatorTypeDispatch(t *testing.T) {
	m := fuzz.NewMutator(rand.New(rand.NewSource(3)))

	assert.IsType(t, int64(0), m.Mutate(int64(10)))
	assert.IsType(t, float64(0), m.Mutate(3.5))
	assert.IsType(t, "", m.Mutate("hello"))
	assert.Equal(t, false, m.Mutate(true))

	type opaque struct{ x int }
	v := opaque{x: 1}
	assert.Equal(t, v, m.Mutate(v), "unrecognized values pass through unchanged")
}

func TestMutatorMapKeysUntouched(t *testing.T) {
	m := fuzz.NewMutator(rand.New(rand.NewSource(9)))
	in := map[string]fuzz.Value{"width": int64(5), "label": "x"}

	for i := 0; i < 50; i++ {
		out, _ := m.Mutate(in).(map[string]fuzz.Value)
		require.NotNil(t, out)
		assert.Len(t, out, 2)
		assert.Contains(t, out, "width")
		assert.Contains(t, out, "label")
	}
}

func TestMutatorDeterminism(t *testing.T) {
	a := fuzz.NewMutator(rand.New(rand.NewSource(11)))
	b := fuzz.NewMutator(rand.New(rand.NewSource(11)))
	in := map[string]fuzz.Value{"a": int64(1), "b": "two", "c": 3.0}
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Mutate(in), b.Mutate(in))
	}
}

func TestCorpusRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.json")

	c := fuzz.NewCorpus(99)
	c.Add(map[string]fuzz.Value{"width": int64(5)}, []string{"b1"})
	c.RecordBug(map[string]fuzz.Value{"width": int64(-1)}, "panic: negative width")
	require.NoError(t, c.Save(path))

	loaded, err := fuzz.LoadCorpus(path)
	require.NoError(t, err)
	assert.Equal(t, int64(99), loaded.Seed)
	require.Len(t, loaded.Entries, 1)
	require.Len(t, loaded.Bugs, 1)
	assert.Equal(t, "panic: negative width", loaded.Bugs[0].Error)
}

func TestLoadCorpusRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, writeFile(path, `{"corpus": []}`))

	_, err := fuzz.LoadCorpus(path)
	assert.Error(t, err, "missing required keys must fail validation")
}

func TestCorpusMergeDedupesByInput(t *testing.T) {
	c := fuzz.NewCorpus(1)
	c.Add(map[string]fuzz.Value{"width": int64(5)}, nil)
	c.Add(map[string]fuzz.Value{"width": int64(9)}, nil)

	prev := fuzz.NewCorpus(2)
	prev.Add(map[string]fuzz.Value{"width": int64(5)}, nil)
	prev.Add(map[string]fuzz.Value{"width": int64(7)}, nil)
	prev.Add(map[string]fuzz.Value{"width": int64(7)}, nil)
	prev.RecordBug(map[string]fuzz.Value{"width": int64(-1)}, "panic")

	c.Merge(prev)
	require.Len(t, c.Entries, 3, "equal inputs must merge to one entry")
	assert.Equal(t, map[string]fuzz.Value{"width": int64(7)}, c.Entries[2].Input)
	assert.Len(t, c.Bugs, 1)
}

func TestCorpusDelta(t *testing.T) {
	c := fuzz.NewCorpus(1)
	c.Add(nil, []string{"a", "b"})
	assert.Equal(t, []string{"c"}, c.Delta([]string{"a", "c"}))
	assert.Empty(t, c.Delta([]string{"a", "b"}))
}

func TestConforms(t *testing.T) {
	s := testSchema()

	tests := []struct {
		name  string
		input map[string]fuzz.Value
		want  bool
	}{
		{"valid", map[string]fuzz.Value{"width": int64(100)}, true},
		{"missing required", map[string]fuzz.Value{"label": "x"}, false},
		{"below min", map[string]fuzz.Value{"width": int64(0)}, false},
		{"above max", map[string]fuzz.Value{"width": int64(9999)}, false},
		{"wrong type", map[string]fuzz.Value{"width": "wide"}, false},
		{"optional absent", map[string]fuzz.Value{"width": int64(2)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fuzz.Conforms(s, tt.input))
		})
	}
}

func TestConformsRelationships(t *testing.T) {
	s := testSchema()
	s.Relationships = []schema.Relationship{
		{Type: schema.RelMutuallyExclusive, Params: []string{"width", "label"}},
	}
	ok := fuzz.Conforms(s, map[string]fuzz.Value{"width": int64(5), "label": "x"})
	assert.False(t, ok, "setting both exclusive parameters must not conform")

	ok = fuzz.Conforms(s, map[string]fuzz.Value{"width": int64(5)})
	assert.True(t, ok)
}

func TestConformsMatches(t *testing.T) {
	s := &schema.Schema{
		Function: "Tag",
		Input: map[string]*schema.ParameterSpec{
			"id": {
				Name:     "id",
				Type:     schema.TypeString,
				Optional: schema.Required,
				Matches:  `^[a-z]+$`,
			},
		},
	}
	assert.True(t, fuzz.Conforms(s, map[string]fuzz.Value{"id": "abc"}))
	assert.False(t, fuzz.Conforms(s, map[string]fuzz.Value{"id": "ABC"}))
}

func TestFuncInvokerPanicIsolation(t *testing.T) {
	s := testSchema()
	target := func(width int64, label string) string {
		if width > 100 {
			panic("too wide")
		}
		return label
	}
	inv, err := fuzz.NewFunc(target, s)
	require.NoError(t, err)

	out := inv.Invoke(context.Background(), map[string]fuzz.Value{
		"width": int64(500), "label": "x",
	})
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "too wide")

	out = inv.Invoke(context.Background(), map[string]fuzz.Value{
		"width": int64(5), "label": "ok",
	})
	assert.NoError(t, out.Err)
	assert.Equal(t, "ok", out.Output)
}

func TestFuncInvokerErrorResult(t *testing.T) {
	s := testSchema()
	target := func(width int64, label string) (string, error) {
		if width == 0 {
			return "", errors.New("zero width")
		}
		return label, nil
	}
	inv, err := fuzz.NewFunc(target, s)
	require.NoError(t, err)

	out := inv.Invoke(context.Background(), map[string]fuzz.Value{"width": int64(0)})
	assert.EqualError(t, out.Err, "zero width")
}

func TestNewFuncRejectsNonFunction(t *testing.T) {
	_, err := fuzz.NewFunc(42, testSchema())
	assert.Error(t, err)
}

func TestFuzzerRecordsOnlyConformantBugs(t *testing.T) {
	s := testSchema()
	// Panics on a schema-valid input: a real bug.
	target := func(width int64, label string) string {
		if width >= 2000 {
			panic("overflow in resize")
		}
		return label
	}
	inv, err := fuzz.NewFunc(target, s)
	require.NoError(t, err)

	cfg := config.DefaultConfig().Fuzz
	cfg.Iterations = 400
	f := fuzz.New(s, inv, nil, &cfg, 1234)

	stats, runErr := f.Run(context.Background())
	require.NoError(t, runErr)
	assert.Equal(t, 400, stats.Executed)
	require.NotZero(t, stats.Bugs, "a panic on valid input must be recorded")

	for _, bug := range f.Corpus().Bugs {
		assert.True(t, fuzz.Conforms(s, bug.Input),
			"every recorded bug input must conform to the schema")
	}
}

func TestFuzzerDeterminism(t *testing.T) {
	s := testSchema()
	target := func(width int64, label string) string { return label }

	run := func() *fuzz.Corpus {
		inv, err := fuzz.NewFunc(target, s)
		require.NoError(t, err)
		cfg := config.DefaultConfig().Fuzz
		cfg.Iterations = 100
		f := fuzz.New(s, inv, nil, &cfg, 777)
		_, err = f.Run(context.Background())
		require.NoError(t, err)
		return f.Corpus()
	}

	a, b := run(), run()
	assert.Equal(t, a.Entries, b.Entries, "identical seeds must retain identical corpora")
}

func TestFuzzerCoverageRetention(t *testing.T) {
	s := testSchema()
	rec := fuzz.NewRecorder()
	target := func(width int64, label string) string {
		if width > 2048 {
			rec.Hit("resize.go:big")
		} else {
			rec.Hit("resize.go:small")
		}
		return label
	}
	inv, err := fuzz.NewFunc(target, s)
	require.NoError(t, err)

	cfg := config.DefaultConfig().Fuzz
	cfg.Iterations = 200
	f := fuzz.New(s, inv, rec, &cfg, 5)
	stats, runErr := f.Run(context.Background())
	require.NoError(t, runErr)

	// Two branches exist, so at most a handful of inputs are
	// interesting; coverage gating must not retain everything.
	assert.Less(t, stats.Retained, 50,
		"coverage gating should retain far fewer inputs than executed")
	assert.NotZero(t, stats.Retained)
}

func TestFuzzerContextCancel(t *testing.T) {
	s := testSchema()
	target := func(width int64, label string) string { return label }
	inv, err := fuzz.NewFunc(target, s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := fuzz.New(s, inv, nil, nil, 1)
	_, runErr := f.Run(ctx)
	assert.ErrorIs(t, runErr, context.Canceled)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func intPtr(i int) *int { return &i }

func f64Ptr(f float64) *float64 { return &f }
