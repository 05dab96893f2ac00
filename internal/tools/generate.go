package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/specforge/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
)

// Runner is the slice of the orchestrator the generate tool needs.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) *pipeline.Result
}

// GenerateTool handles the spec_generate MCP tool: it drives the full
// six-stage pipeline for a free-text command and reports the result.
type GenerateTool struct {
	runner Runner
}

// NewGenerateTool creates a GenerateTool with its dependencies.
func NewGenerateTool(runner Runner) *GenerateTool {
	return &GenerateTool{runner: runner}
}

// Definition returns the MCP tool definition for registration.
func (t *GenerateTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_generate",
		mcp.WithDescription(
			"Turn a natural-language request into a structured specification "+
				"(data models, actions, schedules). Runs the staged generation "+
				"pipeline and merges the result with the stored specification "+
				"when spec_id names an existing document. Items are never deleted "+
				"by generation — use spec_delete_items for that.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The natural-language request, e.g. 'track customers and their orders, email a weekly summary'"),
		),
		mcp.WithString("spec_id",
			mcp.Description("Existing specification to extend. Omit to create a new one."),
		),
		mcp.WithString("run_id",
			mcp.Description("Resume a previous run from its last completed stage."),
		),
	)
}

// Handle processes the spec_generate tool call.
func (t *GenerateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := req.GetString("command", "")
	if strings.TrimSpace(command) == "" {
		return mcp.NewToolResultError("'command' is required — describe what the specification should cover"), nil
	}

	result := t.runner.Run(ctx, pipeline.Request{
		Command: command,
		SpecID:  req.GetString("spec_id", ""),
		RunID:   req.GetString("run_id", ""),
	})

	return mcp.NewToolResultText(formatResult(result)), nil
}

// formatResult renders the execution report for the tool response.
func formatResult(r *pipeline.Result) string {
	var b strings.Builder

	if r.Success {
		fmt.Fprintf(&b, "# Specification Generated\n\n")
	} else {
		fmt.Fprintf(&b, "# Generation Failed\n\n")
	}
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	if r.SpecID != "" {
		fmt.Fprintf(&b, "- Specification: `%s` (version %d)\n", r.SpecID, r.Version)
	}
	fmt.Fprintf(&b, "- Quality score: %d/100\n", r.Score)
	fmt.Fprintf(&b, "- Validation: %s\n", passedWord(r.ValidationPassed))
	fmt.Fprintf(&b, "- Duration: %s\n\n", r.Duration.Round(time.Millisecond))

	fmt.Fprintf(&b, "## Stages\n\n")
	for _, sr := range r.Stages {
		line := fmt.Sprintf("- %s: %s", sr.Stage, sr.State)
		if sr.Retries > 0 {
			line += fmt.Sprintf(" (%d retries)", sr.Retries)
		}
		if sr.Insights.Summary != "" {
			line += " — " + sr.Insights.Summary
		}
		if sr.Error != "" {
			line += " — " + sr.Error
		}
		b.WriteString(line + "\n")
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\n## Errors\n\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\n## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if r.Spec != nil {
		fmt.Fprintf(&b, "\n## Result\n\n%s\n", specSummary(r.Spec))
		if doc, err := specJSON(r.Spec); err == nil {
			fmt.Fprintf(&b, "\n```json\n%s\n```\n", doc)
		}
	}
	return b.String()
}

func passedWord(ok bool) string {
	if ok {
		return "passed"
	}
	return "failed"
}
