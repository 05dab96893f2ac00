package oracle

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/HendryAvila/specforge/internal/stages"
)

const command = "track customers and orders, email a weekly summary"

// drive runs the heuristic through the full stage order, feeding each
// decoded output back as prior context, the way the orchestrator does.
func drive(t *testing.T, existing *spec.Specification) map[stages.Stage]*stages.Output {
	t.Helper()
	h := NewHeuristic()
	prior := map[stages.Stage]*stages.Output{}
	for _, st := range stages.Order {
		raw, err := h.Generate(context.Background(), st, ContextBundle{
			Command:  command,
			Existing: existing,
			Prior:    prior,
		})
		if err != nil {
			t.Fatalf("stage %s: %v", st, err)
		}
		out, err := stages.Decode(st, raw)
		if err != nil {
			t.Fatalf("stage %s output does not decode: %v", st, err)
		}
		if out.Empty() {
			t.Fatalf("stage %s produced empty output", st)
		}
		prior[st] = out
	}
	return prior
}

// --- Entity extraction ---

func TestEntities(t *testing.T) {
	got := entities(command)
	want := []string{"Customer", "Order", "Summary"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entities = %v, want %v", got, want)
	}
}

func TestEntities_CapsAtFive(t *testing.T) {
	got := entities("projects tasks milestones sprints epics releases boards")
	if len(got) != 5 {
		t.Errorf("got %d entities, want capped at 5: %v", len(got), got)
	}
}

func TestSingular(t *testing.T) {
	cases := map[string]string{
		"orders":    "order",
		"companies": "company",
		"addresses": "address",
		"glass":     "glass",
		"order":     "order",
	}
	for in, want := range cases {
		if got := singular(in); got != want {
			t.Errorf("singular(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- Full chain ---

func TestGenerate_FullChain(t *testing.T) {
	outputs := drive(t, nil)

	u := outputs[stages.StageUnderstanding].Understanding
	if len(u.Entities) == 0 || u.Confidence < stages.MinConfidence {
		t.Errorf("understanding = %+v", u)
	}

	st := outputs[stages.StageStrategy].Strategy
	if st.Approach != "create" {
		t.Errorf("approach = %q, want create for a fresh document", st.Approach)
	}
	if !st.NeedsActions || !st.NeedsSchedules {
		t.Errorf("command hints not picked up: %+v", st)
	}

	models := outputs[stages.StageModels].Models.Models
	if len(models) != len(u.Entities) {
		t.Errorf("got %d models for %d entities", len(models), len(u.Entities))
	}
	for _, m := range models {
		if err := m.Validate(); err != nil {
			t.Errorf("generated model invalid: %v", err)
		}
	}

	actions := outputs[stages.StageActions].Actions.Actions
	if len(actions) == 0 {
		t.Fatal("no actions generated despite action hints")
	}
	if r := stages.Validate(outputs[stages.StageActions]); !r.Passed {
		t.Errorf("generated actions fail validation: %+v", r.Checks)
	}

	schedules := outputs[stages.StageSchedules].Schedules.Schedules
	if len(schedules) == 0 {
		t.Fatal("no schedules generated despite schedule hints")
	}
	if r := stages.Validate(outputs[stages.StageSchedules]); !r.Passed {
		t.Errorf("generated schedules fail validation: %+v", r.Checks)
	}
}

func TestGenerate_ExtendApproach(t *testing.T) {
	existing := &spec.Specification{Models: []spec.Model{spec.NewModel("Invoice")}}
	outputs := drive(t, existing)

	if got := outputs[stages.StageStrategy].Strategy.Approach; got != "extend" {
		t.Errorf("approach = %q, want extend when the document has models", got)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	h := NewHeuristic()
	bundle := ContextBundle{Command: command}

	a, err := h.Generate(context.Background(), stages.StageUnderstanding, bundle)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Generate(context.Background(), stages.StageUnderstanding, bundle)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("same bundle, different output:\n%s\n%s", a, b)
	}
}

func TestGenerate_UnknownStage(t *testing.T) {
	if _, err := NewHeuristic().Generate(context.Background(), "deployment", ContextBundle{}); err == nil {
		t.Error("unknown stage accepted")
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHeuristic().Generate(ctx, stages.StageUnderstanding, ContextBundle{}); err == nil {
		t.Error("cancelled context accepted")
	}
}

// --- Func adapter ---

func TestFuncAdapter(t *testing.T) {
	called := false
	g := Func(func(ctx context.Context, st stages.Stage, b ContextBundle) (json.RawMessage, error) {
		called = true
		return json.RawMessage(`{}`), nil
	})
	if _, err := g.Generate(context.Background(), stages.StageDesign, ContextBundle{}); err != nil || !called {
		t.Errorf("adapter not forwarded: called=%t err=%v", called, err)
	}
}
