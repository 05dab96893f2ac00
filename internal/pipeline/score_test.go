package pipeline

import (
	"testing"
	"time"

	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/HendryAvila/specforge/internal/stages"
)

func passingReport(stage stages.Stage, n int) stages.Report {
	r := stages.Report{Stage: stage, Passed: true}
	for i := 0; i < n; i++ {
		r.Checks = append(r.Checks, stages.Check{Name: "ok", Passed: true})
	}
	return r
}

func failingReport(stage stages.Stage, n int) stages.Report {
	r := stages.Report{Stage: stage}
	for i := 0; i < n; i++ {
		r.Checks = append(r.Checks, stages.Check{Name: "bad", Reason: "nope"})
	}
	return r
}

func fullSpec() *spec.Specification {
	m := spec.NewModel("Order")
	return &spec.Specification{
		Models: []spec.Model{m},
		Actions: []spec.Action{{
			Name:      "CreateOrder",
			Operation: spec.OpCreate,
			Source:    spec.DataSource{Models: []spec.ModelSource{{Model: "Order"}}},
			Execution: spec.Execution{Prompt: "p"},
			Results:   spec.Results{Model: "Order"},
		}},
		Schedules: []spec.Schedule{{
			Name:      "DailyReview",
			Operation: spec.OpUpdate,
			Source:    spec.DataSource{Models: []spec.ModelSource{{Model: "Order"}}},
			Execution: spec.Execution{Prompt: "p"},
			Results:   spec.Results{Model: "Order", IdentifierField: "id"},
			Interval:  spec.Interval{Pattern: "0 9 * * *", Active: true},
		}},
	}
}

// --- Bounds ---

func TestScore_PerfectInputsYield100(t *testing.T) {
	got := Score(ScoreInputs{
		Reports:        []stages.Report{passingReport(stages.StageModels, 3)},
		Spec:           fullSpec(),
		Duration:       time.Second,
		DurationBudget: 2 * time.Minute,
	})
	if got != 100 {
		t.Errorf("Score = %d, want 100", got)
	}
}

func TestScore_WorstInputsYield0(t *testing.T) {
	got := Score(ScoreInputs{
		Reports:  []stages.Report{failingReport(stages.StageModels, 3)},
		Spec:     nil,
		Duration: time.Hour,
		Retries:  50,
	})
	if got != 0 {
		t.Errorf("Score = %d, want 0", got)
	}
}

func TestScore_AlwaysWithinBounds(t *testing.T) {
	extremes := []ScoreInputs{
		{},
		{Retries: -5},
		{Duration: -time.Second, DurationBudget: time.Second},
		{Reports: []stages.Report{passingReport(stages.StageModels, 100)}, Spec: fullSpec()},
	}
	for i, in := range extremes {
		got := Score(in)
		if got < 0 || got > 100 {
			t.Errorf("case %d: Score = %d, out of 0..100", i, got)
		}
	}
}

// --- Component behavior ---

func TestScore_ValidationWeight(t *testing.T) {
	// All validation passing vs all failing, with everything else held
	// at full credit, differ by the validation weight (40 points).
	base := ScoreInputs{Spec: fullSpec(), Duration: time.Second, DurationBudget: time.Minute}

	pass := base
	pass.Reports = []stages.Report{passingReport(stages.StageModels, 4)}
	fail := base
	fail.Reports = []stages.Report{failingReport(stages.StageModels, 4)}

	if got := Score(pass) - Score(fail); got != 40 {
		t.Errorf("validation swing = %d points, want 40", got)
	}
}

func TestScore_ConsistencyPenalizesDanglingReferences(t *testing.T) {
	s := fullSpec()
	ok := Score(ScoreInputs{Reports: []stages.Report{passingReport(stages.StageModels, 1)}, Spec: s})

	// Point the action at a model that does not exist.
	s2 := fullSpec()
	s2.Actions[0].Results.Model = "Ghost"
	s2.Actions[0].Source = spec.DataSource{Models: []spec.ModelSource{{Model: "Ghost"}}}
	broken := Score(ScoreInputs{Reports: []stages.Report{passingReport(stages.StageModels, 1)}, Spec: s2})

	if broken >= ok {
		t.Errorf("dangling references scored %d, consistent document %d; want a penalty", broken, ok)
	}
}

func TestScore_NoReferencesGetFullConsistencyCredit(t *testing.T) {
	s := &spec.Specification{Models: []spec.Model{spec.NewModel("Order")}}
	got := Score(ScoreInputs{Reports: []stages.Report{passingReport(stages.StageModels, 1)}, Spec: s})

	// validation 40 + completeness 10 (1 of 3 collections) + consistency
	// 20 + performance 10
	if got != 80 {
		t.Errorf("Score = %d, want 80", got)
	}
}

func TestScore_RetriesReducePerformance(t *testing.T) {
	base := ScoreInputs{
		Reports:        []stages.Report{passingReport(stages.StageModels, 1)},
		Spec:           fullSpec(),
		Duration:       time.Second,
		DurationBudget: time.Minute,
	}
	clean := Score(base)

	retried := base
	retried.Retries = 3
	if got := Score(retried); got >= clean {
		t.Errorf("3 retries scored %d, clean run %d; want a penalty", got, clean)
	}
}

func TestScore_OverBudgetDurationReducesPerformance(t *testing.T) {
	base := ScoreInputs{
		Reports:        []stages.Report{passingReport(stages.StageModels, 1)},
		Spec:           fullSpec(),
		DurationBudget: time.Minute,
	}
	fast := base
	fast.Duration = time.Second
	slow := base
	slow.Duration = 10 * time.Minute

	if Score(slow) >= Score(fast) {
		t.Errorf("over-budget run scored %d, in-budget %d; want a penalty", Score(slow), Score(fast))
	}
}
