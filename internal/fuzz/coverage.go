package fuzz

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/tools/cover"
)

// Coverage is the branch-observation strategy, selected once at
// construction. Capable() false switches the fuzzing loop to its
// sampling fallback; a capable strategy is bracketed Begin/Collect
// around every call.
type Coverage interface {
	// Capable reports whether branch observation actually works in
	// this configuration.
	Capable() bool

	// Begin resets per-call state before an invocation.
	Begin()

	// Collect returns the branch ids hit by the invocation since
	// Begin.
	Collect() []string
}

// NoCoverage is the incapable strategy: the loop falls back to
// fixed-probability sampling so the corpus still grows.
type NoCoverage struct{}

func (NoCoverage) Capable() bool     { return false }
func (NoCoverage) Begin()            {}
func (NoCoverage) Collect() []string { return nil }

// Recorder is the in-process strategy: instrumented targets report
// branch hits directly. Safe for concurrent hits from the target's
// own goroutines.
type Recorder struct {
	mu  sync.Mutex
	hit map[string]bool
}

// NewRecorder builds an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{hit: make(map[string]bool)}
}

// Hit marks one branch id as covered by the current call.
func (r *Recorder) Hit(id string) {
	r.mu.Lock()
	r.hit[id] = true
	r.mu.Unlock()
}

func (r *Recorder) Capable() bool { return true }

func (r *Recorder) Begin() {
	r.mu.Lock()
	r.hit = make(map[string]bool)
	r.mu.Unlock()
}

func (r *Recorder) Collect() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.hit))
	for id := range r.hit {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ProfileCoverage reads a Go coverage profile written by a
// subprocess target between calls. The profile path is fixed at
// construction; a missing or unparseable profile yields no branches
// for that call rather than an error, keeping coverage best-effort.
type ProfileCoverage struct {
	// Path is the coverage profile the target writes.
	Path string
}

// NewProfileCoverage probes whether the profile path is writable and
// returns the strategy, or NoCoverage when it is not.
func NewProfileCoverage(path string) Coverage {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return NoCoverage{}
	}
	f.Close()
	os.Remove(path)
	return &ProfileCoverage{Path: path}
}

func (p *ProfileCoverage) Capable() bool { return true }

func (p *ProfileCoverage) Begin() {
	os.Remove(p.Path)
}

func (p *ProfileCoverage) Collect() []string {
	profiles, err := cover.ParseProfiles(p.Path)
	if err != nil {
		return nil
	}
	var out []string
	for _, prof := range profiles {
		for _, block := range prof.Blocks {
			if block.Count == 0 {
				continue
			}
			out = append(out, fmt.Sprintf("%s:%d.%d,%d.%d",
				prof.FileName,
				block.StartLine, block.StartCol,
				block.EndLine, block.EndCol))
		}
	}
	sort.Strings(out)
	return out
}
