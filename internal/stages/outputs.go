package stages

import (
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/specforge/internal/spec"
)

// --- Complexity enum ---

// Complexity grades how demanding the request is.
type Complexity string

const (
	ComplexityLow      Complexity = "low"
	ComplexityMedium   Complexity = "medium"
	ComplexityHigh     Complexity = "high"
	ComplexityVeryHigh Complexity = "very_high"
)

// validComplexities is the set of recognized grades.
var validComplexities = map[Complexity]bool{
	ComplexityLow:      true,
	ComplexityMedium:   true,
	ComplexityHigh:     true,
	ComplexityVeryHigh: true,
}

// --- Per-stage output shapes ---

// UnderstandingOutput is what the Understanding stage produces: the
// interpreted intent of the free-text command.
type UnderstandingOutput struct {
	Summary     string     `json:"summary"`
	Domain      string     `json:"domain,omitempty"`
	Entities    []string   `json:"entities,omitempty"`
	Operations  []string   `json:"operations,omitempty"`
	Confidence  int        `json:"confidence"` // 0-100
	Complexity  Complexity `json:"complexity"`
	RiskFactors []string   `json:"risk_factors,omitempty"`
}

// StrategyOutput decides how to act on the request: create a fresh
// specification or extend the existing one, and which collections the
// later stages should touch.
type StrategyOutput struct {
	Approach       string `json:"approach"` // create | extend
	NeedsModels    bool   `json:"needs_models"`
	NeedsActions   bool   `json:"needs_actions"`
	NeedsSchedules bool   `json:"needs_schedules"`
	Rationale      string `json:"rationale,omitempty"`
	Confidence     int    `json:"confidence"` // 0-100
}

// ModelPlan sketches one model before generation.
type ModelPlan struct {
	Name      string   `json:"name"`
	Purpose   string   `json:"purpose,omitempty"`
	Relations []string `json:"relations,omitempty"` // names of related planned models
}

// AutomationPlan sketches one action or schedule before generation.
type AutomationPlan struct {
	Name        string             `json:"name"`
	TargetModel string             `json:"target_model,omitempty"`
	Operation   spec.OperationKind `json:"operation,omitempty"`
}

// DesignOutput is the technical design: what the generation stages are
// expected to produce, by name.
type DesignOutput struct {
	ModelPlans    []ModelPlan      `json:"model_plans,omitempty"`
	ActionPlans   []AutomationPlan `json:"action_plans,omitempty"`
	SchedulePlans []AutomationPlan `json:"schedule_plans,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// ModelsOutput carries the generated data models.
type ModelsOutput struct {
	Models []spec.Model `json:"models"`
}

// ActionsOutput carries the generated actions.
type ActionsOutput struct {
	Actions []spec.Action `json:"actions"`
}

// SchedulesOutput carries the generated schedules.
type SchedulesOutput struct {
	Schedules []spec.Schedule `json:"schedules"`
}

// --- The closed output variant ---

// Output is the tagged variant over all stage outputs. Exactly one
// slot is populated, matching Stage. It exists so everything after the
// oracle boundary works with exhaustively typed structures.
type Output struct {
	Stage         Stage                `json:"stage"`
	Understanding *UnderstandingOutput `json:"understanding,omitempty"`
	Strategy      *StrategyOutput      `json:"strategy,omitempty"`
	Design        *DesignOutput        `json:"design,omitempty"`
	Models        *ModelsOutput        `json:"models,omitempty"`
	Actions       *ActionsOutput       `json:"actions,omitempty"`
	Schedules     *SchedulesOutput     `json:"schedules,omitempty"`
}

// Empty reports whether the output carries no usable payload for its
// stage. Empty output from a dependency stage is a fatal pipeline
// condition.
func (o *Output) Empty() bool {
	if o == nil {
		return true
	}
	switch o.Stage {
	case StageUnderstanding:
		return o.Understanding == nil
	case StageStrategy:
		return o.Strategy == nil
	case StageDesign:
		return o.Design == nil
	case StageModels:
		return o.Models == nil
	case StageActions:
		return o.Actions == nil
	case StageSchedules:
		return o.Schedules == nil
	}
	return true
}

// Decode parses raw oracle output for the given stage into its typed
// shape and normalizes it: model invariants are repaired here (the
// mandatory "id" field), clamps applied to confidence values. This is
// the single place untyped data crosses into the pipeline.
func Decode(stage Stage, raw json.RawMessage) (*Output, error) {
	if err := ValidateStage(stage); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("stage %s: empty oracle output", stage)
	}

	out := &Output{Stage: stage}
	var err error
	switch stage {
	case StageUnderstanding:
		var v UnderstandingOutput
		if err = json.Unmarshal(raw, &v); err == nil {
			v.Confidence = clamp(v.Confidence)
			if !validComplexities[v.Complexity] {
				v.Complexity = ComplexityMedium
			}
			out.Understanding = &v
		}
	case StageStrategy:
		var v StrategyOutput
		if err = json.Unmarshal(raw, &v); err == nil {
			v.Confidence = clamp(v.Confidence)
			out.Strategy = &v
		}
	case StageDesign:
		var v DesignOutput
		if err = json.Unmarshal(raw, &v); err == nil {
			out.Design = &v
		}
	case StageModels:
		var v ModelsOutput
		if err = json.Unmarshal(raw, &v); err == nil {
			for i := range v.Models {
				v.Models[i].EnsureIDField()
			}
			out.Models = &v
		}
	case StageActions:
		var v ActionsOutput
		if err = json.Unmarshal(raw, &v); err == nil {
			out.Actions = &v
		}
	case StageSchedules:
		var v SchedulesOutput
		if err = json.Unmarshal(raw, &v); err == nil {
			out.Schedules = &v
		}
	}
	if err != nil {
		return nil, fmt.Errorf("stage %s: decoding oracle output: %w", stage, err)
	}
	return out, nil
}

// clamp bounds a confidence value to 0..100.
func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
