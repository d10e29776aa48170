package merge

import (
	"github.com/scry-dev/scry/internal/config"
	"github.com/scry-dev/scry/internal/schema"
)

// Confidence bucketing thresholds over the per-parameter weighted
// average. With the default weights the maximum score is 13; the
// cut points keep a single strong signal in very-low and demand
// corroborating evidence for medium and high.
const (
	highThreshold    = 9.0
	mediumThreshold  = 6.0
	lowThreshold     = 3.0
	veryLowThreshold = 0.0
)

// inputConfidence averages the per-parameter signal scores and
// buckets the result. No parameters or no signals at all yields the
// distinct none tier.
func inputConfidence(input map[string]*schema.ParameterSpec, w *config.ConfidenceWeights) schema.Confidence {
	if len(input) == 0 {
		return schema.ConfidenceNone
	}
	total := 0
	for _, p := range input {
		total += paramScore(p, w)
	}
	return bucket(float64(total) / float64(len(input)))
}

// paramScore totals the weighted evidence signals for one parameter.
func paramScore(p *schema.ParameterSpec, w *config.ConfidenceWeights) int {
	score := 0
	if p.Type != "" && !p.Type.Generic() {
		score += w.Type
	}
	if p.Min != nil || p.Max != nil || len(p.Enum) > 0 {
		score += w.Constraint
	}
	if p.Optional == schema.Required || p.Optional == schema.Optional {
		score += w.Optional
	}
	if p.Matches != "" {
		score += w.Match
	}
	if p.Class != "" {
		score += w.Class
	}
	if p.Position != nil {
		score += w.Position
	}
	return score
}

// outputConfidence scores the return half independently of the
// input half.
func outputConfidence(out *schema.ReturnSpec, w *config.ConfidenceWeights) schema.Confidence {
	if out == nil {
		return schema.ConfidenceNone
	}
	score := 0
	if out.Type != "" && !out.Type.Generic() {
		score += w.Type
	}
	if out.Value != nil {
		score += w.Constraint
	}
	if out.Class != "" {
		score += w.Class
	}
	if out.Convention != "" {
		score += w.Optional
	}
	if out.ContextAware {
		score += w.Position
	}
	return bucket(float64(score))
}

func bucket(avg float64) schema.Confidence {
	switch {
	case avg >= highThreshold:
		return schema.ConfidenceHigh
	case avg >= mediumThreshold:
		return schema.ConfidenceMedium
	case avg >= lowThreshold:
		return schema.ConfidenceLow
	case avg > veryLowThreshold:
		return schema.ConfidenceVeryLow
	default:
		return schema.ConfidenceNone
	}
}
