package stages

import (
	"reflect"
	"testing"
)

func TestOrder_SixStages(t *testing.T) {
	want := []Stage{
		StageUnderstanding,
		StageStrategy,
		StageDesign,
		StageModels,
		StageActions,
		StageSchedules,
	}
	if !reflect.DeepEqual(Order, want) {
		t.Fatalf("Order = %v, want %v", Order, want)
	}
}

func TestValidateStage(t *testing.T) {
	for _, st := range Order {
		if err := ValidateStage(st); err != nil {
			t.Errorf("ValidateStage(%s) = %v, want nil", st, err)
		}
	}
	if err := ValidateStage("deployment"); err == nil {
		t.Error("unknown stage accepted")
	}
}

func TestIndex(t *testing.T) {
	if got := Index(StageUnderstanding); got != 0 {
		t.Errorf("Index(understanding) = %d, want 0", got)
	}
	if got := Index(StageSchedules); got != 5 {
		t.Errorf("Index(schedules) = %d, want 5", got)
	}
	if got := Index("bogus"); got != -1 {
		t.Errorf("Index(bogus) = %d, want -1", got)
	}
}

func TestDependencies_AllPriorStages(t *testing.T) {
	if deps := Dependencies(StageUnderstanding); len(deps) != 0 {
		t.Errorf("understanding has dependencies: %v", deps)
	}

	deps := Dependencies(StageModels)
	want := []Stage{StageUnderstanding, StageStrategy, StageDesign}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("Dependencies(models) = %v, want %v", deps, want)
	}

	if deps := Dependencies(StageSchedules); len(deps) != 5 {
		t.Errorf("Dependencies(schedules) = %v, want all five prior stages", deps)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[Stage]string{
		StageUnderstanding: "Understanding",
		StageStrategy:      "Strategy Decision",
		StageDesign:        "Technical Design",
		StageModels:        "Model Generation",
		StageActions:       "Action Generation",
		StageSchedules:     "Schedule Generation",
	}
	for st, want := range cases {
		if got := DisplayName(st); got != want {
			t.Errorf("DisplayName(%s) = %q, want %q", st, got, want)
		}
	}
	if got := DisplayName("bogus"); got != "bogus" {
		t.Errorf("DisplayName(bogus) = %q, want passthrough", got)
	}
}
