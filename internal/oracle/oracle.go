// Package oracle defines the boundary to the generation oracle: the
// external collaborator that turns a stage's context bundle into
// structured output (in production, a language-model call).
//
// The pipeline only ever sees this interface. Implementations must be
// safe to call repeatedly for the same stage — the retry controller
// re-invokes on failure — and may not assume any ordering between
// independent calls.
package oracle

import (
	"context"
	"encoding/json"

	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/HendryAvila/specforge/internal/stages"
)

// ContextBundle is the stage-specific input handed to the oracle:
// the free-text command, an excerpt of the existing specification, and
// what earlier stages produced.
type ContextBundle struct {
	Command  string                          `json:"command"`
	Existing *spec.Specification             `json:"existing,omitempty"`
	Insights []stages.Insights               `json:"insights,omitempty"`
	Prior    map[stages.Stage]*stages.Output `json:"prior,omitempty"`
}

// Generator produces raw structured output for one stage. The payload
// is decoded and normalized by stages.Decode at the boundary; the
// generator itself returns whatever the backing model emitted.
type Generator interface {
	Generate(ctx context.Context, stage stages.Stage, bundle ContextBundle) (json.RawMessage, error)
}

// Func adapts a plain function to the Generator interface.
type Func func(ctx context.Context, stage stages.Stage, bundle ContextBundle) (json.RawMessage, error)

// Generate implements Generator.
func (f Func) Generate(ctx context.Context, stage stages.Stage, bundle ContextBundle) (json.RawMessage, error) {
	return f(ctx, stage, bundle)
}

// PriorUnderstanding returns the understanding output from the bundle,
// or nil when absent.
func (b ContextBundle) PriorUnderstanding() *stages.UnderstandingOutput {
	if o, ok := b.Prior[stages.StageUnderstanding]; ok && o != nil {
		return o.Understanding
	}
	return nil
}

// PriorStrategy returns the strategy output from the bundle, or nil.
func (b ContextBundle) PriorStrategy() *stages.StrategyOutput {
	if o, ok := b.Prior[stages.StageStrategy]; ok && o != nil {
		return o.Strategy
	}
	return nil
}

// PriorDesign returns the design output from the bundle, or nil.
func (b ContextBundle) PriorDesign() *stages.DesignOutput {
	if o, ok := b.Prior[stages.StageDesign]; ok && o != nil {
		return o.Design
	}
	return nil
}
