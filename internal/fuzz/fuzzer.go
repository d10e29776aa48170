package fuzz

import (
	"context"
	"math/rand"

	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/schema"
)

// Fuzzer drives the coverage-guided loop for one target. One
// instance per run; the random source is owned, not shared.
type Fuzzer struct {
	schema  *schema.Schema
	invoker Invoker
	cov     Coverage
	cfg     *config.FuzzConfig

	rng *rand.Rand
	gen *Generator
	mut *Mutator

	corpus *Corpus
}

// Stats summarizes one completed run.
type Stats struct {
	Iterations int
	Executed   int
	Retained   int
	Bugs       int
}

// New builds a fuzzer. A nil coverage strategy selects the sampling
// fallback; a nil config takes the defaults.
func New(s *schema.Schema, invoker Invoker, cov Coverage, cfg *config.FuzzConfig, seed int64) *Fuzzer {
	if cfg == nil {
		cfg = &config.DefaultConfig().Fuzz
	}
	if cov == nil {
		cov = NoCoverage{}
	}
	rng := rand.New(rand.NewSource(seed))
	return &Fuzzer{
		schema:  s,
		invoker: invoker,
		cov:     cov,
		cfg:     cfg,
		rng:     rng,
		gen:     NewGenerator(rng, cfg),
		mut:     NewMutator(rng),
		corpus:  NewCorpus(seed),
	}
}

// Resume pre-populates the corpus from a previous session. Loaded
// entries carry no coverage state; the covered set rebuilds as the
// run executes.
func (f *Fuzzer) Resume(prev *Corpus) {
	f.corpus.Merge(prev)
}

// Corpus exposes the working corpus for persistence after a run.
func (f *Fuzzer) Corpus() *Corpus {
	return f.corpus
}

// Run executes the fuzzing loop until the iteration budget is spent
// or the context is done.
func (f *Fuzzer) Run(ctx context.Context) (Stats, error) {
	stats := Stats{Iterations: f.cfg.Iterations}

	// Seed with purely random schema-conformant inputs.
	for i := 0; i < f.cfg.SeedEntries; i++ {
		f.corpus.Add(f.gen.Input(f.schema), nil)
	}

	for i := 0; i < f.cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		input := f.nextInput()
		f.cov.Begin()
		inv := f.invoker.Invoke(ctx, input)
		stats.Executed++

		hit := f.cov.Collect()
		if f.interesting(hit) {
			f.corpus.Add(input, hit)
		}

		if inv.Failed() && Conforms(f.schema, input) {
			f.corpus.RecordBug(input, inv.Message())
		}
	}

	stats.Retained = len(f.corpus.Entries)
	stats.Bugs = len(f.corpus.Bugs)
	return stats, nil
}

// nextInput mutates a random corpus entry with the configured
// probability, otherwise generates fresh.
func (f *Fuzzer) nextInput() Value {
	if len(f.corpus.Entries) > 0 && f.rng.Float64() < f.cfg.MutateProbability {
		entry := f.corpus.Pick(f.rng.Intn)
		return f.mut.Mutate(entry.Input)
	}
	return f.gen.Input(f.schema)
}

// interesting decides corpus retention: a fresh coverage delta when
// instrumentation works, a fixed-rate random sample when it does
// not.
func (f *Fuzzer) interesting(hit []string) bool {
	if f.cov.Capable() {
		return len(f.corpus.Delta(hit)) > 0
	}
	return f.rng.Float64() < f.cfg.SampleRate
}
