// Package stages defines the six generation stages: their order and
// dependencies, the closed typed output each produces, the structural
// validators that judge those outputs, and the insight extractors that
// condense them for later stages and progress reporting.
//
// Design principles:
// - outputs are a closed tagged variant, decoded and normalized once at
//   the oracle boundary; downstream code never touches open maps
// - validators and extractors are pure functions over outputs
// - new stages require touching the order table and the variant, nothing else
package stages

import "fmt"

// Stage identifies one ordered step of the generation pipeline.
type Stage string

const (
	StageUnderstanding Stage = "understanding" // interpret the request
	StageStrategy      Stage = "strategy"      // decide create vs extend, which collections
	StageDesign        Stage = "design"        // technical design: planned models/automations
	StageModels        Stage = "models"        // generate data models
	StageActions       Stage = "actions"       // generate actions
	StageSchedules     Stage = "schedules"     // generate schedules
)

// Order is the fixed execution sequence. Every stage depends on all
// stages before it: stage N's context bundle includes prior outputs, so
// this is a data dependency, not a convenience ordering.
var Order = []Stage{
	StageUnderstanding,
	StageStrategy,
	StageDesign,
	StageModels,
	StageActions,
	StageSchedules,
}

// validStages is the set of recognized stages.
var validStages = map[Stage]bool{
	StageUnderstanding: true,
	StageStrategy:      true,
	StageDesign:        true,
	StageModels:        true,
	StageActions:       true,
	StageSchedules:     true,
}

// ValidateStage returns an error if the stage is not recognized.
func ValidateStage(s Stage) error {
	if !validStages[s] {
		return fmt.Errorf("invalid stage %q", s)
	}
	return nil
}

// Index returns the ordinal position of the stage, or -1 if unknown.
func Index(s Stage) int {
	for i, st := range Order {
		if st == s {
			return i
		}
	}
	return -1
}

// Dependencies returns the stages that must be complete before s may
// start: all stages earlier in Order.
func Dependencies(s Stage) []Stage {
	i := Index(s)
	if i <= 0 {
		return nil
	}
	deps := make([]Stage, i)
	copy(deps, Order[:i])
	return deps
}

// DisplayName returns a human-readable stage title for progress events.
func DisplayName(s Stage) string {
	switch s {
	case StageUnderstanding:
		return "Understanding"
	case StageStrategy:
		return "Strategy Decision"
	case StageDesign:
		return "Technical Design"
	case StageModels:
		return "Model Generation"
	case StageActions:
		return "Action Generation"
	case StageSchedules:
		return "Schedule Generation"
	}
	return string(s)
}
