package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/specforge/internal/pipeline"
	"github.com/HendryAvila/specforge/internal/stages"
	"github.com/HendryAvila/specforge/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// ScoreTool handles the spec_score MCP tool: it re-runs the structural
// validators over a stored document's collections and recomputes the
// quality score, without invoking the generation oracle.
type ScoreTool struct {
	store store.Store
}

// NewScoreTool creates a ScoreTool with its dependencies.
func NewScoreTool(st store.Store) *ScoreTool {
	return &ScoreTool{store: st}
}

// Definition returns the MCP tool definition for registration.
func (t *ScoreTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_score",
		mcp.WithDescription(
			"Re-validate a stored specification and recompute its quality "+
				"score: structural validation, completeness, and cross-collection "+
				"consistency.",
		),
		mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("The specification to score"),
		),
	)
}

// Handle processes the spec_score tool call.
func (t *ScoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("spec_id", "")
	if id == "" {
		return mcp.NewToolResultError("'spec_id' is required"), nil
	}

	doc, _, err := t.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("specification %q not found", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading specification: %w", err)
	}

	// Rebuild per-collection outputs from the stored document and put
	// them through the same validators the pipeline uses.
	reports := []stages.Report{
		stages.Validate(&stages.Output{Stage: stages.StageModels, Models: &stages.ModelsOutput{Models: doc.Models}}),
		stages.Validate(&stages.Output{Stage: stages.StageActions, Actions: &stages.ActionsOutput{Actions: doc.Actions}}),
		stages.Validate(&stages.Output{Stage: stages.StageSchedules, Schedules: &stages.SchedulesOutput{Schedules: doc.Schedules}}),
	}
	score := pipeline.Score(pipeline.ScoreInputs{
		Reports: reports,
		Spec:    doc,
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# Quality Score: %d/100\n\n%s\n\n## Checks\n\n", score, specSummary(doc))
	for _, r := range reports {
		for _, c := range r.Checks {
			mark := "✓"
			if !c.Passed {
				mark = "✗"
			}
			fmt.Fprintf(&b, "- %s %s/%s", mark, r.Stage, c.Name)
			if c.Reason != "" {
				fmt.Fprintf(&b, " — %s", c.Reason)
			}
			b.WriteString("\n")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
