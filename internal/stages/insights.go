package stages

import (
	"fmt"
	"strings"
)

// Insights is the compact, stable-shaped summary of one stage's output.
// Later stages receive it in their context bundle and progress events
// quote its Summary; it deliberately never carries the raw output.
type Insights struct {
	Stage         Stage  `json:"stage"`
	Summary       string `json:"summary"`
	EntityCount   int    `json:"entity_count"`
	ModelCount    int    `json:"model_count"`
	ActionCount   int    `json:"action_count"`
	ScheduleCount int    `json:"schedule_count"`
	RiskLevel     string `json:"risk_level"`
	Confidence    int    `json:"confidence"`
	Coverage      int    `json:"coverage"` // percent, 0-100
}

// Extract condenses a stage output into insights. It is pure, never
// fails, and falls back to neutral values whenever data is missing.
func Extract(out *Output) Insights {
	ins := Insights{RiskLevel: string(ComplexityLow)}
	if out == nil {
		ins.Summary = "no output"
		return ins
	}
	ins.Stage = out.Stage

	switch out.Stage {
	case StageUnderstanding:
		extractUnderstanding(&ins, out.Understanding)
	case StageStrategy:
		extractStrategy(&ins, out.Strategy)
	case StageDesign:
		extractDesign(&ins, out.Design)
	case StageModels:
		extractModels(&ins, out.Models)
	case StageActions:
		extractActions(&ins, out.Actions)
	case StageSchedules:
		extractSchedules(&ins, out.Schedules)
	default:
		ins.Summary = "no output"
	}
	return ins
}

func extractUnderstanding(ins *Insights, v *UnderstandingOutput) {
	if v == nil {
		ins.Summary = "request not interpreted"
		return
	}
	ins.EntityCount = len(v.Entities)
	ins.Confidence = v.Confidence
	ins.Coverage = v.Confidence
	if v.Complexity != "" {
		ins.RiskLevel = string(v.Complexity)
	}
	ins.Summary = v.Summary
	if ins.Summary == "" {
		ins.Summary = fmt.Sprintf("identified %d entities", len(v.Entities))
	}
}

func extractStrategy(ins *Insights, v *StrategyOutput) {
	if v == nil {
		ins.Summary = "no strategy decided"
		return
	}
	ins.Confidence = v.Confidence
	var parts []string
	if v.NeedsModels {
		parts = append(parts, "models")
	}
	if v.NeedsActions {
		parts = append(parts, "actions")
	}
	if v.NeedsSchedules {
		parts = append(parts, "schedules")
	}
	ins.Coverage = len(parts) * 100 / 3
	approach := v.Approach
	if approach == "" {
		approach = "unspecified"
	}
	if len(parts) == 0 {
		ins.Summary = fmt.Sprintf("%s: nothing to generate", approach)
		return
	}
	ins.Summary = fmt.Sprintf("%s: generate %s", approach, strings.Join(parts, ", "))
}

func extractDesign(ins *Insights, v *DesignOutput) {
	if v == nil {
		ins.Summary = "no design produced"
		return
	}
	ins.ModelCount = len(v.ModelPlans)
	ins.ActionCount = len(v.ActionPlans)
	ins.ScheduleCount = len(v.SchedulePlans)

	// Coverage: how many model plans state a purpose.
	if len(v.ModelPlans) > 0 {
		with := 0
		for _, p := range v.ModelPlans {
			if p.Purpose != "" {
				with++
			}
		}
		ins.Coverage = with * 100 / len(v.ModelPlans)
	}
	ins.Summary = fmt.Sprintf("designed %d models, %d actions, %d schedules",
		len(v.ModelPlans), len(v.ActionPlans), len(v.SchedulePlans))
}

func extractModels(ins *Insights, v *ModelsOutput) {
	if v == nil {
		ins.Summary = "no models generated"
		return
	}
	ins.ModelCount = len(v.Models)

	// Coverage: models carrying more than the bare identifier field.
	if len(v.Models) > 0 {
		with := 0
		fields := 0
		for _, m := range v.Models {
			fields += len(m.Fields)
			if len(m.Fields) > 1 {
				with++
			}
		}
		ins.Coverage = with * 100 / len(v.Models)
		ins.Summary = fmt.Sprintf("generated %d models with %d fields", len(v.Models), fields)
		return
	}
	ins.Summary = "generated 0 models"
}

func extractActions(ins *Insights, v *ActionsOutput) {
	if v == nil {
		ins.Summary = "no actions generated"
		return
	}
	ins.ActionCount = len(v.Actions)
	if len(v.Actions) > 0 {
		complete := 0
		for _, a := range v.Actions {
			if len(automationProblems("action", a.Name, a.Operation, a.Source, a.Execution, a.Results)) == 0 {
				complete++
			}
		}
		ins.Coverage = complete * 100 / len(v.Actions)
	}
	ins.Summary = fmt.Sprintf("generated %d actions", len(v.Actions))
}

func extractSchedules(ins *Insights, v *SchedulesOutput) {
	if v == nil {
		ins.Summary = "no schedules generated"
		return
	}
	ins.ScheduleCount = len(v.Schedules)
	if len(v.Schedules) > 0 {
		active := 0
		for _, s := range v.Schedules {
			if s.Interval.Active {
				active++
			}
		}
		ins.Coverage = active * 100 / len(v.Schedules)
		ins.Summary = fmt.Sprintf("generated %d schedules, %d active", len(v.Schedules), active)
		return
	}
	ins.Summary = "generated 0 schedules"
}
