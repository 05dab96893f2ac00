package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/HendryAvila/specforge/internal/stages"
)

// Heuristic is a deterministic, rule-based Generator. It parses the
// command text with keyword heuristics so the server works end-to-end
// without a model backend — useful for local runs and as a reference
// for what shape each stage must emit. It is not a substitute for a
// real model; its understanding of language is crude on purpose.
type Heuristic struct{}

// NewHeuristic creates the rule-based generator.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// scheduleHints are command words that suggest recurring automation.
var scheduleHints = []string{"daily", "weekly", "hourly", "every", "recurring", "schedule", "periodically"}

// actionHints are command words that suggest triggered automation.
var actionHints = []string{"send", "notify", "email", "update", "generate", "create", "remind", "sync"}

// stopWords are command words never treated as entity nouns.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "for": true,
	"with": true, "that": true, "this": true, "of": true, "to": true, "in": true,
	"my": true, "our": true, "system": true, "app": true, "application": true,
	"track": true, "manage": true, "store": true, "build": true, "make": true,
	"want": true, "need": true, "i": true, "we": true, "it": true, "when": true,
	"should": true, "able": true, "be": true, "have": true, "has": true, "each": true,
}

// Generate implements Generator.
func (h *Heuristic) Generate(ctx context.Context, stage stages.Stage, bundle ContextBundle) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch stage {
	case stages.StageUnderstanding:
		return marshal(h.understand(bundle))
	case stages.StageStrategy:
		return marshal(h.strategize(bundle))
	case stages.StageDesign:
		return marshal(h.design(bundle))
	case stages.StageModels:
		return marshal(h.models(bundle))
	case stages.StageActions:
		return marshal(h.actions(bundle))
	case stages.StageSchedules:
		return marshal(h.schedules(bundle))
	}
	return nil, fmt.Errorf("heuristic oracle: unknown stage %q", stage)
}

func marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("heuristic oracle: %w", err)
	}
	return data, nil
}

// entities extracts candidate entity nouns: non-stopword tokens of 3+
// letters, singularized naively and title-cased.
func entities(command string) []string {
	var out []string
	seen := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(command), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(tok) < 3 || stopWords[tok] {
			continue
		}
		if containsAny(tok, scheduleHints) || containsAny(tok, actionHints) {
			continue
		}
		name := titleCase(singular(tok))
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	// Keep the candidate list small; long commands otherwise flood the
	// design with noise nouns.
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func containsAny(tok string, hints []string) bool {
	for _, hint := range hints {
		if tok == hint {
			return true
		}
	}
	return false
}

func singular(tok string) string {
	switch {
	case strings.HasSuffix(tok, "ies"):
		return strings.TrimSuffix(tok, "ies") + "y"
	case strings.HasSuffix(tok, "ses"):
		return strings.TrimSuffix(tok, "es")
	case strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss"):
		return strings.TrimSuffix(tok, "s")
	}
	return tok
}

func titleCase(tok string) string {
	if tok == "" {
		return tok
	}
	return strings.ToUpper(tok[:1]) + tok[1:]
}

func hasHint(command string, hints []string) bool {
	lower := strings.ToLower(command)
	for _, h := range hints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func (h *Heuristic) understand(bundle ContextBundle) stages.UnderstandingOutput {
	ents := entities(bundle.Command)
	confidence := 40 + 10*len(ents)
	if confidence > 90 {
		confidence = 90
	}
	complexity := stages.ComplexityLow
	switch {
	case len(ents) >= 4:
		complexity = stages.ComplexityHigh
	case len(ents) >= 2:
		complexity = stages.ComplexityMedium
	}

	var ops []string
	if hasHint(bundle.Command, actionHints) {
		ops = append(ops, "actions")
	}
	if hasHint(bundle.Command, scheduleHints) {
		ops = append(ops, "schedules")
	}

	return stages.UnderstandingOutput{
		Summary:    fmt.Sprintf("request mentions %d entities: %s", len(ents), strings.Join(ents, ", ")),
		Entities:   ents,
		Operations: ops,
		Confidence: confidence,
		Complexity: complexity,
	}
}

func (h *Heuristic) strategize(bundle ContextBundle) stages.StrategyOutput {
	approach := "create"
	if bundle.Existing != nil && len(bundle.Existing.Models) > 0 {
		approach = "extend"
	}
	u := bundle.PriorUnderstanding()
	needsModels := u == nil || len(u.Entities) > 0
	return stages.StrategyOutput{
		Approach:       approach,
		NeedsModels:    needsModels,
		NeedsActions:   hasHint(bundle.Command, actionHints),
		NeedsSchedules: hasHint(bundle.Command, scheduleHints),
		Rationale:      "derived from command keywords and existing document state",
		Confidence:     70,
	}
}

func (h *Heuristic) design(bundle ContextBundle) stages.DesignOutput {
	var out stages.DesignOutput
	u := bundle.PriorUnderstanding()
	st := bundle.PriorStrategy()

	if st == nil || st.NeedsModels {
		if u != nil {
			for _, e := range u.Entities {
				out.ModelPlans = append(out.ModelPlans, stages.ModelPlan{
					Name:    e,
					Purpose: fmt.Sprintf("tracks %s records", strings.ToLower(e)),
				})
			}
		}
	}
	target := ""
	if len(out.ModelPlans) > 0 {
		target = out.ModelPlans[0].Name
	}
	if st != nil && st.NeedsActions && target != "" {
		out.ActionPlans = append(out.ActionPlans, stages.AutomationPlan{
			Name:        "Create" + target,
			TargetModel: target,
			Operation:   spec.OpCreate,
		})
	}
	if st != nil && st.NeedsSchedules && target != "" {
		out.SchedulePlans = append(out.SchedulePlans, stages.AutomationPlan{
			Name:        "Daily" + target + "Review",
			TargetModel: target,
			Operation:   spec.OpUpdate,
		})
	}
	return out
}

func (h *Heuristic) models(bundle ContextBundle) stages.ModelsOutput {
	var out stages.ModelsOutput
	d := bundle.PriorDesign()
	if d == nil {
		return out
	}
	for _, plan := range d.ModelPlans {
		m := spec.NewModel(plan.Name)
		m.Fields = append(m.Fields,
			spec.Field{Name: "name", Kind: spec.KindScalar, Type: "string", Required: true, Order: 1},
			spec.Field{Name: "createdAt", Kind: spec.KindScalar, Type: "datetime", Order: 2},
		)
		out.Models = append(out.Models, m)
	}
	return out
}

func (h *Heuristic) actions(bundle ContextBundle) stages.ActionsOutput {
	var out stages.ActionsOutput
	d := bundle.PriorDesign()
	if d == nil {
		return out
	}
	for _, plan := range d.ActionPlans {
		out.Actions = append(out.Actions, spec.Action{
			Name:        plan.Name,
			Description: fmt.Sprintf("creates a %s record from user input", plan.TargetModel),
			Operation:   orCreate(plan.Operation),
			Role:        "member",
			Source:      spec.DataSource{Models: []spec.ModelSource{{Model: plan.TargetModel}}},
			Execution:   spec.Execution{Prompt: fmt.Sprintf("Create a new %s from the provided details.", plan.TargetModel)},
			Results: spec.Results{
				Model:        plan.TargetModel,
				FieldMapping: map[string]string{"name": "name"},
			},
		})
	}
	return out
}

func (h *Heuristic) schedules(bundle ContextBundle) stages.SchedulesOutput {
	var out stages.SchedulesOutput
	d := bundle.PriorDesign()
	if d == nil {
		return out
	}
	for _, plan := range d.SchedulePlans {
		out.Schedules = append(out.Schedules, spec.Schedule{
			Name:        plan.Name,
			Description: fmt.Sprintf("reviews %s records once a day", plan.TargetModel),
			Operation:   orCreate(plan.Operation),
			Role:        "system",
			Source:      spec.DataSource{Models: []spec.ModelSource{{Model: plan.TargetModel}}},
			Execution:   spec.Execution{Prompt: fmt.Sprintf("Review all %s records and update stale entries.", plan.TargetModel)},
			Results: spec.Results{
				Model:           plan.TargetModel,
				IdentifierField: spec.IDFieldName,
				FieldMapping:    map[string]string{"status": "status"},
			},
			Interval: spec.Interval{Pattern: "0 9 * * *", Timezone: "UTC", Active: true},
		})
	}
	return out
}

func orCreate(op spec.OperationKind) spec.OperationKind {
	if op == "" {
		return spec.OpCreate
	}
	return op
}
