package fuzz

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/scry-dev/scry/internal/schema"
)

// Entry is one retained corpus input. Coverage sets are in-memory
// only: branch identities do not survive a process boundary.
type Entry struct {
	Input Value `json:"input"`
}

// Bug is one recorded failure with the input that triggered it.
type Bug struct {
	Input Value  `json:"input"`
	Error string `json:"error"`
}

// Corpus is the fuzzer's working set: retained inputs, recorded
// bugs, and the covered-branch set for the current run.
type Corpus struct {
	// Seed is the originating RNG seed, persisted for
	// reproduction but never reused on load.
	Seed int64 `json:"seed"`

	// Entries are the retained inputs in discovery order.
	Entries []Entry `json:"corpus"`

	// Bugs accumulate across runs.
	Bugs []Bug `json:"bugs"`

	covered map[string]bool
}

// NewCorpus builds an empty corpus tagged with its run seed.
func NewCorpus(seed int64) *Corpus {
	return &Corpus{Seed: seed, covered: make(map[string]bool)}
}

// Add retains an input and merges its newly covered branches.
func (c *Corpus) Add(input Value, branches []string) {
	c.Entries = append(c.Entries, Entry{Input: input})
	for _, b := range branches {
		c.covered[b] = true
	}
}

// Delta returns the branches in hit that no prior call this run has
// covered. A non-empty delta marks the triggering input interesting.
func (c *Corpus) Delta(hit []string) []string {
	var fresh []string
	for _, b := range hit {
		if !c.covered[b] {
			fresh = append(fresh, b)
		}
	}
	return fresh
}

// RecordBug appends a failure record.
func (c *Corpus) RecordBug(input Value, message string) {
	c.Bugs = append(c.Bugs, Bug{Input: input, Error: message})
}

// Pick returns a uniformly random retained entry.
func (c *Corpus) Pick(intn func(int) int) Entry {
	return c.Entries[intn(len(c.Entries))]
}

// Save writes the corpus as a schema-valid JSON document. Coverage
// state is deliberately excluded.
func (c *Corpus) Save(path string) error {
	doc := struct {
		Seed    int64   `json:"seed"`
		Entries []Entry `json:"corpus"`
		Bugs    []Bug   `json:"bugs"`
	}{c.Seed, c.Entries, c.Bugs}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	if doc.Bugs == nil {
		doc.Bugs = []Bug{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing corpus %q: %w", path, err)
	}
	return nil
}

// LoadCorpus reads and validates a persisted corpus. Loaded entries
// carry no coverage placeholders: early iterations of a resumed run
// re-establish the covered set, an accepted imprecision.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %q: %w", path, err)
	}
	if err := schema.ValidateDocument(schema.CorpusDoc, data); err != nil {
		return nil, fmt.Errorf("corpus %q is not valid: %w", path, err)
	}

	c := &Corpus{covered: make(map[string]bool)}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding corpus %q: %w", path, err)
	}
	return c, nil
}

// inputKey is the canonical identity of an input. Marshaled JSON
// serves as the key: map keys sort, so equal inputs collide.
func inputKey(v Value) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Merge folds another corpus's entries and bugs into this one, for
// resumed runs seeded from a previous session's file. Entries are
// deduplicated by input identity.
func (c *Corpus) Merge(other *Corpus) {
	seen := make(map[string]bool, len(c.Entries))
	for _, e := range c.Entries {
		seen[inputKey(e.Input)] = true
	}
	for _, e := range other.Entries {
		k := inputKey(e.Input)
		if seen[k] {
			continue
		}
		seen[k] = true
		c.Entries = append(c.Entries, e)
	}
	c.Bugs = append(c.Bugs, other.Bugs...)
}
