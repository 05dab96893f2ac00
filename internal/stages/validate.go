package stages

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/robfig/cron/v3"
)

// MinConfidence is the threshold below which a stage's self-reported
// confidence counts as a validation failure.
const MinConfidence = 50

// cronParser accepts standard five-field cron expressions plus the
// @every and @hourly style descriptors.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Check is one validation criterion applied to a stage output.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"` // set when failed
}

// Report is the validation outcome for one stage. Passed means every
// check passed; individual soft checks are heuristic, so a failed
// report does not by itself halt the pipeline — the orchestrator
// decides per configuration.
type Report struct {
	Stage  Stage   `json:"stage"`
	Checks []Check `json:"checks"`
	Passed bool    `json:"passed"`
}

// Validate runs the stage-specific structural and threshold checks.
// It never mutates the output.
func Validate(out *Output) Report {
	r := Report{Stage: out.Stage}

	switch out.Stage {
	case StageUnderstanding:
		r.Checks = validateUnderstanding(out.Understanding)
	case StageStrategy:
		r.Checks = validateStrategy(out.Strategy)
	case StageDesign:
		r.Checks = validateDesign(out.Design)
	case StageModels:
		r.Checks = validateModels(out.Models)
	case StageActions:
		r.Checks = validateActions(out.Actions)
	case StageSchedules:
		r.Checks = validateSchedules(out.Schedules)
	default:
		r.Checks = []Check{{Name: "known_stage", Reason: fmt.Sprintf("unknown stage %q", out.Stage)}}
	}

	r.Passed = true
	for _, c := range r.Checks {
		if !c.Passed {
			r.Passed = false
			break
		}
	}
	return r
}

// PassRatio returns the fraction of individual checks that passed
// across all reports, in 0..1. No checks counts as zero.
func PassRatio(reports []Report) float64 {
	total, passed := 0, 0
	for _, r := range reports {
		for _, c := range r.Checks {
			total++
			if c.Passed {
				passed++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total)
}

// OverallPass applies the lenient pipeline-validity policy: the run is
// structurally acceptable when at least threshold (a 0..1 ratio, 0.30
// by default) of the per-stage checks passed. The leniency is
// deliberate — these are heuristic quality signals, not correctness
// gates.
func OverallPass(reports []Report, threshold float64) bool {
	return PassRatio(reports) >= threshold
}

func check(name string, ok bool, reason string, args ...any) Check {
	c := Check{Name: name, Passed: ok}
	if !ok {
		c.Reason = fmt.Sprintf(reason, args...)
	}
	return c
}

func validateUnderstanding(v *UnderstandingOutput) []Check {
	if v == nil {
		return []Check{{Name: "output_present", Reason: "understanding output missing"}}
	}
	checks := []Check{
		check("summary_present", strings.TrimSpace(v.Summary) != "", "no summary of the request was produced"),
		check("entities_identified", len(v.Entities) > 0, "no entities identified in the request"),
		check("confidence_threshold", v.Confidence >= MinConfidence, "confidence %d below %d", v.Confidence, MinConfidence),
	}
	if v.Complexity == ComplexityVeryHigh {
		checks = append(checks,
			check("risks_documented", len(v.RiskFactors) > 0, "complexity is very_high but no risk factors documented"))
	}
	return checks
}

func validateStrategy(v *StrategyOutput) []Check {
	if v == nil {
		return []Check{{Name: "output_present", Reason: "strategy output missing"}}
	}
	return []Check{
		check("approach_known", v.Approach == "create" || v.Approach == "extend",
			"unknown approach %q, want create or extend", v.Approach),
		check("collections_selected", v.NeedsModels || v.NeedsActions || v.NeedsSchedules,
			"strategy selects no collection to generate"),
		check("rationale_present", strings.TrimSpace(v.Rationale) != "", "no rationale given"),
		check("confidence_threshold", v.Confidence >= MinConfidence, "confidence %d below %d", v.Confidence, MinConfidence),
	}
}

func validateDesign(v *DesignOutput) []Check {
	if v == nil {
		return []Check{{Name: "output_present", Reason: "design output missing"}}
	}
	checks := []Check{
		check("plans_present",
			len(v.ModelPlans)+len(v.ActionPlans)+len(v.SchedulePlans) > 0,
			"design contains no planned models, actions, or schedules"),
	}

	planned := map[string]bool{}
	unnamed := 0
	for _, p := range v.ModelPlans {
		if p.Name == "" {
			unnamed++
			continue
		}
		planned[strings.ToLower(p.Name)] = true
	}
	checks = append(checks, check("model_plans_named", unnamed == 0, "%d model plans without a name", unnamed))

	dangling := 0
	for _, p := range v.ModelPlans {
		for _, rel := range p.Relations {
			if !planned[strings.ToLower(rel)] {
				dangling++
			}
		}
	}
	checks = append(checks, check("relations_resolve", dangling == 0,
		"%d planned relations reference models not in the design", dangling))
	return checks
}

func validateModels(v *ModelsOutput) []Check {
	if v == nil {
		return []Check{{Name: "output_present", Reason: "models output missing"}}
	}
	checks := []Check{
		check("models_present", len(v.Models) > 0, "no models were produced"),
	}

	var broken []string
	for _, m := range v.Models {
		if err := m.Validate(); err != nil {
			broken = append(broken, err.Error())
		}
	}
	checks = append(checks, check("models_well_formed", len(broken) == 0, "%s", strings.Join(broken, "; ")))

	seen := map[string]bool{}
	dup := 0
	for _, m := range v.Models {
		key := strings.ToLower(m.Name)
		if seen[key] {
			dup++
		}
		seen[key] = true
	}
	checks = append(checks, check("model_names_unique", dup == 0, "%d duplicate model names", dup))
	return checks
}

func validateActions(v *ActionsOutput) []Check {
	if v == nil {
		return []Check{{Name: "output_present", Reason: "actions output missing"}}
	}
	var problems []string
	for _, a := range v.Actions {
		problems = append(problems, automationProblems("action", a.Name, a.Operation, a.Source, a.Execution, a.Results)...)
	}
	return []Check{
		check("actions_well_formed", len(problems) == 0, "%s", strings.Join(problems, "; ")),
	}
}

func validateSchedules(v *SchedulesOutput) []Check {
	if v == nil {
		return []Check{{Name: "output_present", Reason: "schedules output missing"}}
	}
	var problems []string
	var badIntervals []string
	for _, s := range v.Schedules {
		problems = append(problems, automationProblems("schedule", s.Name, s.Operation, s.Source, s.Execution, s.Results)...)
		if s.Interval.Pattern == "" {
			badIntervals = append(badIntervals, fmt.Sprintf("schedule %q has no recurrence pattern", s.Name))
		} else if _, err := cronParser.Parse(s.Interval.Pattern); err != nil {
			badIntervals = append(badIntervals, fmt.Sprintf("schedule %q: %v", s.Name, err))
		}
	}
	return []Check{
		check("schedules_well_formed", len(problems) == 0, "%s", strings.Join(problems, "; ")),
		check("intervals_parse", len(badIntervals) == 0, "%s", strings.Join(badIntervals, "; ")),
	}
}

// automationProblems collects the structural issues shared by actions
// and schedules.
func automationProblems(kind, name string, op spec.OperationKind, src spec.DataSource, exec spec.Execution, res spec.Results) []string {
	var problems []string
	if name == "" {
		problems = append(problems, kind+" without a name")
		name = "(unnamed)"
	}
	if err := spec.ValidateOperation(op); err != nil {
		problems = append(problems, fmt.Sprintf("%s %q: %v", kind, name, err))
	}
	if src.Custom == nil && len(src.Models) == 0 {
		problems = append(problems, fmt.Sprintf("%s %q has no data source", kind, name))
	}
	if exec.Script == "" && exec.Prompt == "" {
		problems = append(problems, fmt.Sprintf("%s %q has no execution descriptor", kind, name))
	}
	if res.Model == "" {
		problems = append(problems, fmt.Sprintf("%s %q has no results target model", kind, name))
	}
	if op == spec.OpUpdate && res.IdentifierField == "" {
		problems = append(problems, fmt.Sprintf("%s %q updates without an identifier field", kind, name))
	}
	return problems
}
