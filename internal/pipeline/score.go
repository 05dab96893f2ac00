package pipeline

import (
	"strings"
	"time"

	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/HendryAvila/specforge/internal/stages"
)

// Quality score weights. They always sum to 1.0.
const (
	weightValidation   = 0.40
	weightCompleteness = 0.30
	weightConsistency  = 0.20
	weightPerformance  = 0.10
)

// retryPenalty is the performance deduction per retry that was needed.
const retryPenalty = 0.1

// ScoreInputs feeds the quality scorer.
type ScoreInputs struct {
	Reports        []stages.Report
	Spec           *spec.Specification
	Duration       time.Duration
	Retries        int
	DurationBudget time.Duration
}

// Score composes validation results, completeness, consistency, and
// performance into one integer in 0..100. It has no error path: any
// input extreme still yields a bounded score.
func Score(in ScoreInputs) int {
	total := weightValidation*stages.PassRatio(in.Reports) +
		weightCompleteness*completeness(in.Spec) +
		weightConsistency*consistency(in.Spec) +
		weightPerformance*performance(in.Duration, in.Retries, in.DurationBudget)

	score := int(total*100 + 0.5)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// completeness is the fraction of the three collections that are
// non-empty.
func completeness(s *spec.Specification) float64 {
	if s == nil {
		return 0
	}
	n := 0
	if len(s.Models) > 0 {
		n++
	}
	if len(s.Actions) > 0 {
		n++
	}
	if len(s.Schedules) > 0 {
		n++
	}
	return float64(n) / 3
}

// consistency is the fraction of cross-collection compatibility checks
// that pass: every model an action or schedule reads from or writes to
// must exist in the document. A document declaring no references gets
// full credit.
func consistency(s *spec.Specification) float64 {
	if s == nil {
		return 0
	}

	models := map[string]bool{}
	for _, m := range s.Models {
		models[strings.ToLower(m.Name)] = true
	}

	total, passed := 0, 0
	tally := func(name string) {
		if name == "" {
			return
		}
		total++
		if models[strings.ToLower(name)] {
			passed++
		}
	}
	for _, a := range s.Actions {
		tally(a.Results.Model)
		for _, src := range a.Source.SourceModels() {
			tally(src)
		}
	}
	for _, sc := range s.Schedules {
		tally(sc.Results.Model)
		for _, src := range sc.Source.SourceModels() {
			tally(src)
		}
	}

	if total == 0 {
		return 1
	}
	return float64(passed) / float64(total)
}

// performance starts from a full ceiling, scales down when the run
// overshoots the duration budget, and deducts per retry.
func performance(d time.Duration, retries int, budget time.Duration) float64 {
	p := 1.0
	if budget > 0 && d > budget {
		p = float64(budget) / float64(d)
	}
	p -= retryPenalty * float64(retries)
	if p < 0 {
		return 0
	}
	return p
}
