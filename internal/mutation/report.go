package mutation

import (
	"encoding/json"
	"io"
	"math"
)

// SurvivedMutant is one mutant the test suite failed to kill.
type SurvivedMutant struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Line        int    `json:"line"`
	File        string `json:"file"`
}

// Report is the mutation score summary. Score is the percentage of
// scored mutants killed; mutants that errored out are excluded from
// both the total and the score.
type Report struct {
	Score    float64          `json:"score"`
	Total    int              `json:"total"`
	Killed   int              `json:"killed"`
	Survived []SurvivedMutant `json:"survived"`
	Errored  int              `json:"errored,omitempty"`
}

// BuildReport folds per-mutant results into a score.
func BuildReport(results []Result) Report {
	r := Report{Survived: []SurvivedMutant{}}
	for _, res := range results {
		if res.Err != nil {
			r.Errored++
			continue
		}
		r.Total++
		if res.Killed {
			r.Killed++
			continue
		}
		r.Survived = append(r.Survived, SurvivedMutant{
			ID:          res.Mutant.ID,
			Description: res.Mutant.Description,
			Line:        res.Mutant.Line,
			File:        res.Mutant.File,
		})
	}
	if r.Total > 0 {
		r.Score = math.Round(float64(r.Killed)/float64(r.Total)*10000) / 100
	}
	return r
}

// WriteJSON writes the report as formatted JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
